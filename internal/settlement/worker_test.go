package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/logging"
)

type scriptedSettler struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (s *scriptedSettler) Settle(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	if errors.Is(err, ledger.ErrTransactionNotFound) {
		return ledger.TransactionNotFound(id)
	}
	return err
}

func (s *scriptedSettler) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	settler := &scriptedSettler{errs: []error{errors.New("db blip"), errors.New("db blip")}}
	w := NewWorker(NewMemoryBus(1), settler, logging.Discard()).WithBackoff(time.Millisecond, 2*time.Millisecond)

	err := w.Handle(context.Background(), NewEvent(uuid.New(), time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 3, settler.Calls())
}

func TestWorkerAcknowledgesUnknownTransaction(t *testing.T) {
	settler := &scriptedSettler{errs: []error{ledger.ErrTransactionNotFound}}
	w := NewWorker(NewMemoryBus(1), settler, logging.Discard())

	require.NoError(t, w.Handle(context.Background(), NewEvent(uuid.New(), time.Now())))
	assert.Equal(t, 1, settler.Calls())
}

func TestWorkerStopsRetryingOnCancel(t *testing.T) {
	failures := make([]error, 100)
	for i := range failures {
		failures[i] = errors.New("down")
	}
	settler := &scriptedSettler{errs: failures}
	w := NewWorker(NewMemoryBus(1), settler, logging.Discard()).WithBackoff(5*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := w.Handle(ctx, NewEvent(uuid.New(), time.Now()))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerRunConsumesBus(t *testing.T) {
	bus := NewMemoryBus(4)
	settler := &scriptedSettler{}
	w := NewWorker(bus, settler, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, bus.Publish(ctx, NewEvent(uuid.New(), time.Now())))
	require.NoError(t, bus.Publish(ctx, NewEvent(uuid.New(), time.Now())))
	require.Eventually(t, func() bool { return settler.Calls() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestNewEventIDsAreSortable(t *testing.T) {
	now := time.Now()
	first := NewEvent(uuid.New(), now)
	second := NewEvent(uuid.New(), now.Add(time.Second))
	assert.Len(t, first.ID, 26)
	assert.Less(t, first.ID, second.ID)
}
