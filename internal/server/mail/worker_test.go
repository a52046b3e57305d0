package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iudanet/tasktracker/internal/models"
	"github.com/iudanet/tasktracker/internal/server/storage"
)

// memOutbox is an in-memory storage.OutboxStorage
type memOutbox struct {
	enqueueErr error
	items      []*models.OutboundMail
	nextID     int64
	mu         sync.Mutex
}

func (m *memOutbox) EnqueueMail(_ context.Context, mail *models.OutboundMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.nextID++
	cp := *mail
	cp.ID = m.nextID
	mail.ID = cp.ID
	m.items = append(m.items, &cp)
	return nil
}

func (m *memOutbox) PendingMail(_ context.Context, maxAttempts, limit int) ([]*models.OutboundMail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.OutboundMail, 0)
	for _, item := range m.items {
		if item.SentAt == nil && item.Attempts < maxAttempts {
			cp := *item
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOutbox) find(id int64) *models.OutboundMail {
	for _, item := range m.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (m *memOutbox) MarkMailSent(_ context.Context, id int64, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := m.find(id)
	if item == nil {
		return storage.ErrMailNotFound
	}
	item.Attempts++
	item.SentAt = &sentAt
	return nil
}

func (m *memOutbox) MarkMailFailed(_ context.Context, id int64, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := m.find(id)
	if item == nil {
		return storage.ErrMailNotFound
	}
	item.Attempts++
	item.LastError = lastError
	return nil
}

func (m *memOutbox) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.SentAt != nil {
			n++
		}
	}
	return n
}

// fakeSender fails the first failures calls, then succeeds
type fakeSender struct {
	err      error
	sent     []Message
	failures int
	calls    int
	mu       sync.Mutex
}

func (s *fakeSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil && s.calls <= s.failures {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type countingRecorder struct {
	results map[string]int
	mu      sync.Mutex
}

func (r *countingRecorder) MailDelivered(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result]++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: time.Hour,
		RetryBase:    time.Millisecond,
		MaxAttempts:  2,
		MaxRetries:   1,
		BatchSize:    10,
	}
}

func TestWorker_RunOnceDelivers(t *testing.T) {
	ctx := context.Background()
	store := &memOutbox{}
	sender := &fakeSender{}
	recorder := &countingRecorder{results: map[string]int{}}
	outbox := NewOutbox(testLogger(), store)

	outbox.Enqueue(ctx, WelcomeMessage("Jane", "jane@example.com"))
	outbox.Enqueue(ctx, GoodbyeMessage("Bob", "bob@example.com"))

	w := NewWorker(testLogger(), fastConfig(), store, sender, nil)
	w.SetRecorder(recorder)

	sent, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Welcome to Task Manager", sender.sent[0].Subject)
	assert.Equal(t, "Hi Jane, Welcome to task manager app", sender.sent[0].Body)
	assert.Equal(t, "bob@example.com", sender.sent[1].To)
	assert.Equal(t, 2, recorder.results[ResultSent])

	sent, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestWorker_RetriesWithinDelivery(t *testing.T) {
	ctx := context.Background()
	store := &memOutbox{}
	sender := &fakeSender{err: errors.New("421 try later"), failures: 1}
	NewOutbox(testLogger(), store).Enqueue(ctx, WelcomeMessage("Jane", "jane@example.com"))

	w := NewWorker(testLogger(), fastConfig(), store, sender, nil)

	sent, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 2, sender.calls)
}

func TestWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := &memOutbox{}
	sender := &fakeSender{err: errors.New("connection refused"), failures: 100}
	recorder := &countingRecorder{results: map[string]int{}}
	NewOutbox(testLogger(), store).Enqueue(ctx, WelcomeMessage("Jane", "jane@example.com"))

	w := NewWorker(testLogger(), fastConfig(), store, sender, nil)
	w.SetRecorder(recorder)

	for range 3 {
		sent, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)
	}

	// MaxAttempts=2: третий цикл сообщение уже не берет
	assert.Equal(t, 2, store.items[0].Attempts)
	assert.Equal(t, "connection refused", store.items[0].LastError)
	assert.Equal(t, 2, recorder.results[ResultFailed])
	assert.Equal(t, 4, sender.calls)
}

func TestWorker_StartStopNoLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	store := &memOutbox{}
	sender := &fakeSender{}
	outbox := NewOutbox(testLogger(), store)

	w := NewWorker(testLogger(), fastConfig(), store, sender, outbox.Notify())
	w.Start(ctx)

	outbox.Enqueue(ctx, WelcomeMessage("Jane", "jane@example.com"))

	assert.Eventually(t, func() bool {
		return store.sentCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()
}

func TestOutbox_EnqueueFailureIsSwallowed(t *testing.T) {
	store := &memOutbox{enqueueErr: errors.New("database is locked")}
	outbox := NewOutbox(testLogger(), store)

	outbox.Enqueue(context.Background(), WelcomeMessage("Jane", "jane@example.com"))

	assert.Empty(t, store.items)
	select {
	case <-outbox.Notify():
		t.Fatal("worker must not be woken for a lost message")
	default:
	}
}

func TestGoodbyeMessage(t *testing.T) {
	msg := GoodbyeMessage("Jane", "jane@example.com")
	assert.Equal(t, "Sorry to See You Go", msg.Subject)
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Contains(t, msg.Body, "Hi Jane,")
	assert.Contains(t, msg.Body, "Thanks & Goodbye")
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(testLogger()).Send(context.Background(), WelcomeMessage("a", "a@example.com")))
}
