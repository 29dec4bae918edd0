package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Mocks ----------

type fakeWorker struct {
	stopped atomic.Bool
}

func (w *fakeWorker) Run(ctx context.Context) error {
	<-ctx.Done()
	w.stopped.Store(true)
	return nil
}

type fakeServer struct {
	closed            chan struct{}
	workerDuringDrain *fakeWorker
	workerWasRunning  atomic.Bool
	shutdowns         atomic.Int32
	listenErr         error
}

func newFakeServer(w *fakeWorker) *fakeServer {
	return &fakeServer{closed: make(chan struct{}), workerDuringDrain: w}
}

func (s *fakeServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.closed
	return http.ErrServerClosed
}

func (s *fakeServer) Shutdown(context.Context) error {
	// in-flight requests finishing now may still enqueue notifications
	time.Sleep(20 * time.Millisecond)
	s.workerWasRunning.Store(!s.workerDuringDrain.stopped.Load())
	if s.shutdowns.Add(1) == 1 {
		close(s.closed)
	}
	return nil
}

// ---------- Tests ----------

func TestServe_DrainsServerBeforeStoppingDispatcher(t *testing.T) {
	dispatcher := &fakeWorker{}
	jobs := &fakeWorker{}
	srv := newFakeServer(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, dispatcher, jobs, time.Second) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.True(t, srv.workerWasRunning.Load(), "dispatcher must outlive the server drain")
	assert.True(t, dispatcher.stopped.Load())
	assert.True(t, jobs.stopped.Load())
	assert.Equal(t, int32(1), srv.shutdowns.Load())
}

func TestServe_ListenFailureStopsEverything(t *testing.T) {
	dispatcher := &fakeWorker{}
	jobs := &fakeWorker{}
	srv := newFakeServer(dispatcher)
	srv.listenErr = errors.New("address in use")

	err := serve(context.Background(), srv, dispatcher, jobs, time.Second)
	require.EqualError(t, err, "address in use")
	assert.True(t, dispatcher.stopped.Load())
	assert.True(t, jobs.stopped.Load())
}
