package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/pkg/queue"
)

type sent struct{ to, text string }

type fakeSender struct {
	mu    sync.Mutex
	msgs  []sent
	fails int
}

func (f *fakeSender) SendText(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("graph api down")
	}
	f.msgs = append(f.msgs, sent{to, text})
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type chanSource struct {
	jobs chan *queue.Job
	mu   sync.Mutex
	dlq  []*queue.Job
}

func (s *chanSource) Dequeue(ctx context.Context) (*queue.Job, error) {
	select {
	case j := <-s.jobs:
		return j, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSource) Retry(_ context.Context, job *queue.Job) error {
	job.Attempt++
	if job.Attempt >= queue.MaxRetries {
		s.mu.Lock()
		s.dlq = append(s.dlq, job)
		s.mu.Unlock()
		return nil
	}
	s.jobs <- job
	return nil
}

func job(t *testing.T, typ queue.JobType, phone string) *queue.Job {
	t.Helper()
	j, err := queue.NewJob(typ, queue.OrderNotification{
		OrderID: uuid.New(), OrderCode: "KAI-ABCD1234", UserName: "Ayşe", UserEmail: "ayse@example.com",
		UserPhone: phone, Plan: "BASIC", Amount: 299, Currency: "TRY",
	})
	require.NoError(t, err)
	return j
}

func TestProcess_Recipients(t *testing.T) {
	s := &fakeSender{}
	p := NewNotificationProcessor(nil, s, "905550000000", nil)
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, job(t, queue.JobOrderAwaitingPayment, "")))
	require.NoError(t, p.Process(ctx, job(t, queue.JobOrderActivated, "905551112233")))
	require.NoError(t, p.Process(ctx, job(t, queue.JobOrderActivated, "")))

	require.Len(t, s.msgs, 2)
	assert.Equal(t, "905550000000", s.msgs[0].to)
	assert.Contains(t, s.msgs[0].text, "KAI-ABCD1234")
	assert.Contains(t, s.msgs[0].text, "299 TRY")
	assert.Equal(t, "905551112233", s.msgs[1].to)

	assert.Error(t, p.Process(ctx, &queue.Job{Type: "unknown", Payload: []byte(`{}`)}))
}

func TestRun_RetriesThenDeadLetters(t *testing.T) {
	src := &chanSource{jobs: make(chan *queue.Job, 8)}
	s := &fakeSender{fails: 1}
	p := NewNotificationProcessor(src, s, "905550000000", nil)
	p.backoff = time.Millisecond

	src.jobs <- job(t, queue.JobOrderAwaitingPayment, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return s.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	s.mu.Lock()
	s.fails = 10
	s.mu.Unlock()
	src.jobs <- job(t, queue.JobOrderAwaitingPayment, "")
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.dlq) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, queue.MaxRetries, src.dlq[0].Attempt)
}
