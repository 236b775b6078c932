package store

import (
	"context"
	"fmt"
	"time"

	"donation-platform/internal/domain/billing"
)

func (s *Store) CreateTransaction(ctx context.Context, t *billing.Transaction) error {
	if err := s.conn(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %s", billing.ErrConflict, t.OrderID)
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *Store) TransactionByOrderID(ctx context.Context, orderID string) (*billing.Transaction, error) {
	var t billing.Transaction
	if err := s.conn(ctx).Where("order_id = ?", orderID).First(&t).Error; err != nil {
		return nil, notFound(err, billing.ErrTransactionNotFound)
	}
	return &t, nil
}

// LockTransactionByOrderID reads the transaction with a row lock; only
// meaningful inside InTx.
func (s *Store) LockTransactionByOrderID(ctx context.Context, orderID string) (*billing.Transaction, error) {
	var t billing.Transaction
	err := s.conn(ctx).Clauses(forUpdate()).Where("order_id = ?", orderID).First(&t).Error
	if err != nil {
		return nil, notFound(err, billing.ErrTransactionNotFound)
	}
	return &t, nil
}

// CompleteTransaction moves a created transaction to completed and records
// the gateway payment id. The unique index on gateway_payment_id rejects a
// second writer with billing.ErrConflict.
func (s *Store) CompleteTransaction(ctx context.Context, t *billing.Transaction, paymentID string, at time.Time) error {
	res := s.conn(ctx).Model(&billing.Transaction{}).
		Where("id = ? AND status = ?", t.ID, billing.StatusCreated).
		Updates(map[string]interface{}{
			"status":             billing.StatusCompleted,
			"gateway_payment_id": paymentID,
			"settled_at":         at,
			"updated_at":         at,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("%w: gateway payment %s already recorded", billing.ErrConflict, paymentID)
		}
		return fmt.Errorf("complete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s no longer pending", billing.ErrConflict, t.OrderID)
	}

	t.Status = billing.StatusCompleted
	t.GatewayPaymentID = &paymentID
	t.SettledAt = &at
	t.UpdatedAt = at
	return nil
}

// CloseTransaction moves a created transaction to failed or refunded.
// The payment id is kept only when no other transaction owns it.
func (s *Store) CloseTransaction(ctx context.Context, t *billing.Transaction, status billing.TransactionStatus, reason string, at time.Time) error {
	res := s.conn(ctx).Model(&billing.Transaction{}).
		Where("id = ? AND status = ?", t.ID, billing.StatusCreated).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": reason,
			"settled_at":     at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return fmt.Errorf("close transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s no longer pending", billing.ErrConflict, t.OrderID)
	}

	t.Status = status
	t.FailureReason = reason
	t.SettledAt = &at
	t.UpdatedAt = at
	return nil
}

func (s *Store) TransactionsForUser(ctx context.Context, userID string) ([]billing.Transaction, error) {
	var list []billing.Transaction
	if err := s.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list user transactions: %w", err)
	}
	return list, nil
}

func (s *Store) ListTransactions(ctx context.Context, limit, offset int) ([]billing.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var list []billing.Transaction
	if err := s.conn(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return list, nil
}
