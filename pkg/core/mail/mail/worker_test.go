package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core/mail"
	"github.com/isoflow/clinicorder/pkg/repo/memory"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	failures map[string]int
	sent     []string
	calls    int
}

func (f *fakeSender) Send(_ context.Context, job *model.MailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures[job.To] > 0 {
		f.failures[job.To]--
		return code.MailSendErr.WithMsg("smtp unavailable")
	}
	f.sent = append(f.sent, job.To)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func conf() mail.Config {
	return mail.Config{PoolSize: 2, RatePerSec: 100, Burst: 10, PopTimeout: 20 * time.Millisecond, MaxRetry: 3}
}

func TestHandleRetriesThenDrops(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewMailQueue(4)
	sender := &fakeSender{failures: map[string]int{"a@example.com": 5}}
	w, err := New(queue, sender, conf())
	require.NoError(t, err)

	job := &model.MailJob{Kind: model.MailOrderPlaced, To: "a@example.com"}
	require.Error(t, w.Handle(ctx, job))
	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, 1, job.Attempt)

	requeued, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.Error(t, w.Handle(ctx, requeued))
	requeued, err = queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	err = w.Handle(ctx, requeued)
	assert.ErrorIs(t, err, code.MailSendErr)
	assert.Equal(t, 3, requeued.Attempt)
	assert.Zero(t, queue.Len())
	assert.Equal(t, 3, sender.calls)
}

type payloadSender struct{}

func (payloadSender) Send(context.Context, *model.MailJob) error {
	return code.MailPayloadErr.WithErr(errors.New("bad address"))
}

func TestHandleDropsBadPayload(t *testing.T) {
	queue := memory.NewMailQueue(4)
	w, err := New(queue, payloadSender{}, conf())
	require.NoError(t, err)

	err = w.Handle(context.Background(), &model.MailJob{To: "broken"})
	assert.ErrorIs(t, err, code.MailPayloadErr)
	assert.Zero(t, queue.Len())
}

func TestRunDrainsQueue(t *testing.T) {
	queue := memory.NewMailQueue(16)
	sender := &fakeSender{failures: map[string]int{"b@example.com": 1}}
	w, err := New(queue, sender, conf())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, to := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, queue.Enqueue(ctx, &model.MailJob{Kind: model.MailOrderStatus, To: to}))
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return sender.sentCount() == 3 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com", "c@example.com"}, sender.sent)
	assert.Equal(t, 4, sender.calls)
}
