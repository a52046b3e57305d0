package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/storage"
)

// Delivery results reported to the Recorder.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Recorder counts delivery outcomes.
type Recorder interface {
	MailDelivered(result string)
}

// WorkerConfig defines how the worker polls and retries.
type WorkerConfig struct {
	PollInterval time.Duration // how often to look for pending mail
	RetryBase    time.Duration // first backoff step inside one delivery
	MaxAttempts  int           // deliveries per message before giving up
	MaxRetries   uint64        // retries inside one delivery
	BatchSize    int           // messages per cycle
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 30 * time.Second,
		RetryBase:    500 * time.Millisecond,
		MaxAttempts:  5,
		MaxRetries:   2,
		BatchSize:    20,
	}
}

// Worker delivers pending outbox messages in the background.
type Worker struct {
	store    storage.OutboxStorage
	sender   Sender
	recorder Recorder
	logger   *slog.Logger
	wake     <-chan struct{}
	clock    func() time.Time
	cancel   context.CancelFunc
	cfg      WorkerConfig
	wg       sync.WaitGroup
}

// NewWorker creates a worker. wake may be nil, then only the poll
// interval triggers delivery.
func NewWorker(logger *slog.Logger, cfg WorkerConfig, store storage.OutboxStorage, sender Sender, wake <-chan struct{}) *Worker {
	def := DefaultWorkerConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = def.RetryBase
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}

	return &Worker{
		store:  store,
		sender: sender,
		logger: logger,
		wake:   wake,
		clock:  time.Now,
		cfg:    cfg,
	}
}

// SetRecorder attaches a delivery outcome recorder.
func (w *Worker) SetRecorder(r Recorder) {
	w.recorder = r
}

// RunOnce delivers one batch of pending messages and returns how many
// were sent. Per-message failures are recorded in storage, not returned.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	pending, err := w.store.PendingMail(ctx, w.cfg.MaxAttempts, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if w.deliver(ctx, m) {
			sent++
		}
	}

	return sent, nil
}

// Start begins background delivery.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for the current cycle to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cycle(ctx)
		case <-w.wake:
			w.cycle(ctx)
		}
	}
}

func (w *Worker) cycle(ctx context.Context) {
	sent, err := w.RunOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "mail delivery cycle failed", slog.Any("error", err))
		return
	}
	if sent > 0 {
		w.logger.DebugContext(ctx, "mail delivered", slog.Int("count", sent))
	}
}

func (w *Worker) deliver(ctx context.Context, m *models.OutboundMail) bool {
	msg := Message{To: m.To, Subject: m.Subject, Body: m.Body}
	backoff := retry.WithMaxRetries(w.cfg.MaxRetries, retry.NewExponential(w.cfg.RetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.sender.Send(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		w.logger.WarnContext(ctx, "mail delivery failed",
			slog.Int64("mail_id", m.ID),
			slog.Int("attempt", m.Attempts+1),
			slog.Any("error", err))
		if markErr := w.store.MarkMailFailed(ctx, m.ID, err.Error()); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to record mail failure",
				slog.Int64("mail_id", m.ID),
				slog.Any("error", markErr))
		}
		w.record(ResultFailed)
		return false
	}

	if err := w.store.MarkMailSent(ctx, m.ID, w.clock().UTC()); err != nil {
		w.logger.ErrorContext(ctx, "failed to mark mail sent",
			slog.Int64("mail_id", m.ID),
			slog.Any("error", err))
	}
	w.record(ResultSent)
	return true
}

func (w *Worker) record(result string) {
	if w.recorder != nil {
		w.recorder.MailDelivered(result)
	}
}
