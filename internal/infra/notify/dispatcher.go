package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Options struct {
	Workers     int
	Buffer      int
	SendTimeout time.Duration
}

// Dispatcher fans notices out to a fixed pool of workers. Notify never
// blocks: when the buffer is full or the dispatcher is closed the notice is
// dropped and logged.
type Dispatcher struct {
	sender  Sender
	log     *slog.Logger
	queue   chan Notice
	done    chan struct{}
	timeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewDispatcher(sender Sender, log *slog.Logger, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		sender:  sender,
		log:     log,
		queue:   make(chan Notice, opts.Buffer),
		done:    make(chan struct{}),
		timeout: opts.SendTimeout,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Notify(n Notice) {
	select {
	case <-d.done:
		d.log.Warn("notice dropped: dispatcher closed", slog.String("kind", string(n.Kind)), slog.String("user_id", n.UserID))
		return
	default:
	}

	select {
	case d.queue <- n:
	default:
		d.log.Warn("notice dropped: queue full", slog.String("kind", string(n.Kind)), slog.String("user_id", n.UserID))
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.queue:
			d.send(n)
		case <-d.done:
			for {
				select {
				case n := <-d.queue:
					d.send(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(n Notice) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, n); err != nil {
		d.log.Error("notice not delivered",
			slog.String("kind", string(n.Kind)),
			slog.String("user_id", n.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops accepting notices and waits for queued ones to be attempted,
// bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.done) })

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
