package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fortuna/propscout/internal/scoring"
	"github.com/fortuna/propscout/internal/store"
)

type fakeRunner struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *fakeRunner) Run(context.Context) (*scoring.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("projections: %w", store.ErrUpstreamUnavailable)
	}
	return &scoring.Report{Rows: []store.ScoredProjection{{Name: "Devin Booker"}}}, nil
}

func (f *fakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu     sync.Mutex
	boards int
	err    error
}

func (f *fakePublisher) PublishBoard(context.Context, *scoring.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards++
	return "1-0", f.err
}

func testConfig() *Config {
	return &Config{DailyRunHour: 10, RunOnStart: true, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestRunOnceRetries(t *testing.T) {
	runner := &fakeRunner{failures: 2}
	pub := &fakePublisher{}
	o := NewOrchestrator(runner, pub, testConfig(), nil)

	report, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Rows, 1)
	assert.Equal(t, 3, runner.Calls())
	assert.Equal(t, 1, pub.boards)
	assert.Same(t, report, o.Latest())
}

func TestRunOnceExhaustsRetries(t *testing.T) {
	runner := &fakeRunner{failures: 5}
	pub := &fakePublisher{}
	o := NewOrchestrator(runner, pub, testConfig(), nil)

	_, err := o.RunOnce(context.Background())
	assert.True(t, errors.Is(err, store.ErrUpstreamUnavailable))
	assert.Equal(t, 3, runner.Calls())
	assert.Zero(t, pub.boards)
	assert.Nil(t, o.Latest())
	assert.Contains(t, o.GetStatus(), "last_error")
}

func TestRunOncePublishFailureKeepsBoard(t *testing.T) {
	o := NewOrchestrator(&fakeRunner{}, &fakePublisher{err: errors.New("redis down")}, testConfig(), nil)

	_, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, o.Latest())
}

func TestRunOnceWithoutPublisher(t *testing.T) {
	o := NewOrchestrator(&fakeRunner{}, nil, testConfig(), nil)

	_, err := o.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, o.GetStatus()["has_board"])
}

func TestStartStopNoLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{}
	o := NewOrchestrator(runner, &fakePublisher{}, testConfig(), nil)

	done := make(chan struct{})
	go func() {
		o.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return runner.Calls() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return o.Latest() != nil }, time.Second, 5*time.Millisecond)
	o.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2022, 3, 6, 8, 0, 0, 0, loc), time.Date(2022, 3, 6, 10, 0, 0, 0, loc)},
		{time.Date(2022, 3, 6, 10, 0, 0, 0, loc), time.Date(2022, 3, 7, 10, 0, 0, 0, loc)},
		{time.Date(2022, 3, 31, 23, 0, 0, 0, loc), time.Date(2022, 4, 1, 10, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextRun(tt.now, 10))
	}
}
