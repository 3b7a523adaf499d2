package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/labeebacademy/internal/modules/upload/dto"
	"anoa.com/labeebacademy/pkg/apperror"
	"anoa.com/labeebacademy/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() *tracker {
	return NewTracker(NewMemoryLocker(), NewPublisher(nil, 0), time.Minute).(*tracker)
}

// drain collects snapshots until the channel closes.
func drain(t *testing.T, ch <-chan dto.Snapshot) []dto.Snapshot {
	t.Helper()
	var out []dto.Snapshot
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, s)
		case <-timeout:
			t.Fatal("timed out waiting for task to finish")
			return out
		}
	}
}

func TestTrackerSucceeds(t *testing.T) {
	tr := newTestTracker()
	owner := uuid.New()
	result := uuid.New()
	release := make(chan struct{})

	snap, err := tr.Start(context.Background(), owner, func(ctx context.Context, report storage.ProgressFunc) (Result, error) {
		<-release
		for _, f := range []float64{0.25, 0.1, 0.5, 0.75, 1} {
			report(f)
		}
		return Result{ID: result, Message: "done"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, dto.StateRunning, snap.State)
	assert.Equal(t, owner, snap.Owner)

	ch, unsubscribe, err := tr.Subscribe(snap.ID)
	require.NoError(t, err)
	defer unsubscribe()
	close(release)

	seen := drain(t, ch)
	require.NotEmpty(t, seen)

	last := seen[len(seen)-1]
	assert.Equal(t, dto.StateSucceeded, last.State)
	assert.Equal(t, 100, last.Percent)
	require.NotNil(t, last.ResultID)
	assert.Equal(t, result, *last.ResultID)
	assert.Equal(t, "done", last.Message)

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Progress, seen[i-1].Progress)
	}

	got, err := tr.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StateSucceeded, got.State)
}

func TestTrackerFailureIsTerminal(t *testing.T) {
	tr := newTestTracker()
	owner := uuid.New()
	release := make(chan struct{})

	snap, err := tr.Start(context.Background(), owner, func(ctx context.Context, report storage.ProgressFunc) (Result, error) {
		<-release
		report(0.3)
		return Result{}, errors.New("storage quota exceeded")
	})
	require.NoError(t, err)

	ch, _, err := tr.Subscribe(snap.ID)
	require.NoError(t, err)
	close(release)

	seen := drain(t, ch)
	last := seen[len(seen)-1]
	assert.Equal(t, dto.StateFailed, last.State)
	assert.Equal(t, "storage quota exceeded", last.Error)
	assert.Nil(t, last.ResultID)

	_, err = tr.Cancel(context.Background(), snap.ID)
	assert.ErrorIs(t, err, apperror.ErrTaskFinished)
}

func TestTrackerSingleFlightPerOwner(t *testing.T) {
	tr := newTestTracker()
	owner := uuid.New()
	release := make(chan struct{})

	job := func(ctx context.Context, report storage.ProgressFunc) (Result, error) {
		<-release
		return Result{ID: uuid.New()}, nil
	}

	first, err := tr.Start(context.Background(), owner, job)
	require.NoError(t, err)

	_, err = tr.Start(context.Background(), owner, job)
	assert.ErrorIs(t, err, apperror.ErrUploadInProgress)

	other, err := tr.Start(context.Background(), uuid.New(), job)
	require.NoError(t, err)

	ch, _, err := tr.Subscribe(first.ID)
	require.NoError(t, err)
	close(release)
	drain(t, ch)

	otherCh, _, err := tr.Subscribe(other.ID)
	require.NoError(t, err)
	drain(t, otherCh)

	again, err := tr.Start(context.Background(), owner, func(ctx context.Context, report storage.ProgressFunc) (Result, error) {
		return Result{ID: uuid.New()}, nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestTrackerCancel(t *testing.T) {
	tr := newTestTracker()
	started := make(chan struct{})

	snap, err := tr.Start(context.Background(), uuid.New(), func(ctx context.Context, report storage.ProgressFunc) (Result, error) {
		report(0.4)
		close(started)
		<-ctx.Done()
		return Result{}, ctx.Err()
	})
	require.NoError(t, err)
	<-started

	ch, _, err := tr.Subscribe(snap.ID)
	require.NoError(t, err)

	_, err = tr.Cancel(context.Background(), snap.ID)
	require.NoError(t, err)

	seen := drain(t, ch)
	last := seen[len(seen)-1]
	assert.Equal(t, dto.StateCancelled, last.State)
	assert.Equal(t, 40, last.Percent)

	_, err = tr.Cancel(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTrackerUnsubscribeLeavesTaskRunning(t *testing.T) {
	tr := newTestTracker()
	release := make(chan struct{})

	snap, err := tr.Start(context.Background(), uuid.New(), func(ctx context.Context, report storage.ProgressFunc) (Result, error) {
		<-release
		report(0.5)
		return Result{ID: uuid.New()}, nil
	})
	require.NoError(t, err)

	_, unsubscribe, err := tr.Subscribe(snap.ID)
	require.NoError(t, err)
	unsubscribe()
	unsubscribe()

	watch, _, err := tr.Subscribe(snap.ID)
	require.NoError(t, err)
	close(release)

	seen := drain(t, watch)
	assert.Equal(t, dto.StateSucceeded, seen[len(seen)-1].State)
}

func TestTrackerPrune(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()
	tr.now = func() time.Time { return now }

	snap, err := tr.Start(context.Background(), uuid.New(), func(ctx context.Context, report storage.ProgressFunc) (Result, error) {
		return Result{ID: uuid.New()}, nil
	})
	require.NoError(t, err)

	ch, _, err := tr.Subscribe(snap.ID)
	require.NoError(t, err)
	drain(t, ch)

	assert.Equal(t, 0, tr.Prune(time.Hour))

	tr.now = func() time.Time { return now.Add(2 * time.Hour) }
	assert.Equal(t, 1, tr.Prune(time.Hour))

	_, err = tr.Get(context.Background(), snap.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMemoryLockerExpires(t *testing.T) {
	l := NewMemoryLocker().(*memoryLocker)
	now := time.Now()
	l.now = func() time.Time { return now }
	owner := uuid.New()

	ok, err := l.Acquire(context.Background(), owner, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(context.Background(), owner, time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = l.Acquire(context.Background(), owner, time.Minute)
	assert.True(t, ok)

	require.NoError(t, l.Release(context.Background(), owner))
	ok, _ = l.Acquire(context.Background(), owner, time.Minute)
	assert.True(t, ok)
}
