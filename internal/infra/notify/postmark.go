package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/mrz1836/postmark"
)

// PostmarkSender sends notices as transactional email.
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

func NewPostmarkSender(serverToken, accountToken, from string) (*PostmarkSender, error) {
	if serverToken == "" || accountToken == "" {
		return nil, errors.New("notify: postmark server and account tokens are required")
	}
	if from == "" {
		return nil, errors.New("notify: sender email is required")
	}
	return &PostmarkSender{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, n Notice) error {
	if n.Email == "" {
		return ErrNoRecipient
	}
	subject, body := Render(n)

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       n.Email,
		Subject:  subject,
		Tag:      "subscription-" + string(n.Kind),
		HTMLBody: body,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

// LogSender writes notices to the log. Used when Postmark is not configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, n Notice) error {
	subject, _ := Render(n)
	s.Log.Info("notice",
		slog.String("kind", string(n.Kind)),
		slog.String("user_id", n.UserID),
		slog.String("subject", subject),
	)
	return nil
}

// Render produces the subject and HTML body for a notice.
func Render(n Notice) (string, string) {
	plan := html.EscapeString(n.PlanName)
	until := ""
	if n.PeriodEnd != nil {
		until = " until " + n.PeriodEnd.UTC().Format("2 Jan 2006")
	}

	switch n.Kind {
	case KindActivated:
		return "Your subscription is active",
			fmt.Sprintf("<p>Thank you for your support. Your %s plan is active%s.</p>", plan, until)
	case KindRenewed:
		return "Your subscription was renewed",
			fmt.Sprintf("<p>Your %s plan was renewed%s.</p>", plan, until)
	case KindCancelled:
		return "Your subscription was cancelled",
			fmt.Sprintf("<p>Your %s plan was cancelled. You keep access%s.</p>", plan, until)
	case KindExpired:
		return "Your subscription has ended",
			fmt.Sprintf("<p>Your %s plan has ended.</p>", plan)
	case KindTrial:
		return "Your trial has started",
			fmt.Sprintf("<p>Your %s trial runs%s.</p>", plan, until)
	}
	return "Subscription update", "<p>Your subscription changed.</p>"
}
