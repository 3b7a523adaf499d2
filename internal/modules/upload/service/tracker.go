package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"anoa.com/labeebacademy/internal/modules/upload/dto"
	"anoa.com/labeebacademy/pkg/apperror"
	"anoa.com/labeebacademy/pkg/storage"
	"github.com/google/uuid"
)

// Result is what a finished job hands back to observers.
type Result struct {
	ID      uuid.UUID
	Message string
}

// Job is the work behind an upload task. It reports progress through report
// and returns the record it created.
type Job func(ctx context.Context, report storage.ProgressFunc) (Result, error)

type Tracker interface {
	Start(ctx context.Context, owner uuid.UUID, job Job) (dto.Snapshot, error)
	Get(ctx context.Context, id uuid.UUID) (dto.Snapshot, error)
	Subscribe(id uuid.UUID) (<-chan dto.Snapshot, func(), error)
	Cancel(ctx context.Context, id uuid.UUID) (dto.Snapshot, error)
	Prune(retention time.Duration) int
}

type tracker struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*task
	locker    Locker
	publisher Publisher
	lockTTL   time.Duration
	now       func() time.Time
}

func NewTracker(locker Locker, publisher Publisher, lockTTL time.Duration) Tracker {
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}
	return &tracker{
		tasks:     make(map[uuid.UUID]*task),
		locker:    locker,
		publisher: publisher,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

type task struct {
	mu     sync.Mutex
	snap   dto.Snapshot
	cancel context.CancelFunc
	subs   map[int]chan dto.Snapshot
	nextID int
}

// offer replaces whatever the subscriber has not read yet with snap, so a
// slow reader always sees the latest state and never blocks the task.
func offer(ch chan dto.Snapshot, snap dto.Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (t *task) snapshot() dto.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Start takes the uploader's lock and runs job in the background, detached
// from the request context.
func (tr *tracker) Start(ctx context.Context, owner uuid.UUID, job Job) (dto.Snapshot, error) {
	ok, err := tr.locker.Acquire(ctx, owner, tr.lockTTL)
	if err != nil {
		return dto.Snapshot{}, err
	}
	if !ok {
		return dto.Snapshot{}, apperror.ErrUploadInProgress
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	t := &task{
		snap: dto.Snapshot{
			ID:        uuid.New(),
			Owner:     owner,
			State:     dto.StateRunning,
			StartedAt: tr.now(),
		},
		cancel: cancel,
		subs:   make(map[int]chan dto.Snapshot),
	}

	tr.mu.Lock()
	tr.tasks[t.snap.ID] = t
	tr.mu.Unlock()

	initial := t.snapshot()
	tr.publisher.Publish(ctx, initial)

	go tr.run(taskCtx, t, job)

	return initial, nil
}

func (tr *tracker) run(ctx context.Context, t *task, job Job) {
	defer t.cancel()

	result, err := job(ctx, func(fraction float64) {
		tr.progress(t, fraction)
	})

	t.mu.Lock()
	now := tr.now()
	t.snap.FinishedAt = &now
	switch {
	case err == nil:
		t.snap.State = dto.StateSucceeded
		t.snap.Progress = 1
		t.snap.Percent = 100
		t.snap.ResultID = &result.ID
		t.snap.Message = result.Message
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		t.snap.State = dto.StateCancelled
	default:
		t.snap.State = dto.StateFailed
		t.snap.Error = err.Error()
	}
	final := t.snap
	t.mu.Unlock()

	switch final.State {
	case dto.StateFailed:
		log.Printf("[upload] task %s of %s failed: %s", final.ID, final.Owner, final.Error)
	case dto.StateCancelled:
		log.Printf("[upload] task %s of %s cancelled at %d%%", final.ID, final.Owner, final.Percent)
	}

	bg := context.Background()
	if err := tr.locker.Release(bg, final.Owner); err != nil {
		log.Printf("[upload] failed to release lock for %s: %v", final.Owner, err)
	}
	tr.publisher.Publish(bg, final)

	// Observers learn about the end only once the uploader may start again.
	t.mu.Lock()
	for id, ch := range t.subs {
		offer(ch, final)
		close(ch)
		delete(t.subs, id)
	}
	t.mu.Unlock()
}

// progress only ever moves forward. Observers are notified once per whole
// percent.
func (tr *tracker) progress(t *task, fraction float64) {
	fraction = math.Max(0, math.Min(1, fraction))

	t.mu.Lock()
	if t.snap.Terminal() || fraction <= t.snap.Progress {
		t.mu.Unlock()
		return
	}
	prevPercent := t.snap.Percent
	t.snap.Progress = fraction
	t.snap.Percent = int(fraction * 100)
	snap := t.snap
	if snap.Percent != prevPercent {
		for _, ch := range t.subs {
			offer(ch, snap)
		}
	}
	t.mu.Unlock()

	if snap.Percent != prevPercent {
		tr.publisher.Publish(context.Background(), snap)
	}
}

func (tr *tracker) lookup(id uuid.UUID) (*task, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t, ok := tr.tasks[id]
	return t, ok
}

// Get prefers the local task and falls back to the last published snapshot,
// so any instance can answer for a task.
func (tr *tracker) Get(ctx context.Context, id uuid.UUID) (dto.Snapshot, error) {
	if t, ok := tr.lookup(id); ok {
		return t.snapshot(), nil
	}
	return tr.publisher.Last(ctx, id)
}

// Subscribe streams snapshots of a local task, starting with the current one.
// The channel is closed after the terminal snapshot or on unsubscribe.
func (tr *tracker) Subscribe(id uuid.UUID) (<-chan dto.Snapshot, func(), error) {
	t, ok := tr.lookup(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: upload task not found", apperror.ErrNotFound)
	}

	ch := make(chan dto.Snapshot, 1)

	t.mu.Lock()
	ch <- t.snap
	if t.snap.Terminal() {
		close(ch)
		t.mu.Unlock()
		return ch, func() {}, nil
	}
	subID := t.nextID
	t.nextID++
	t.subs[subID] = ch
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[subID]; ok {
			close(c)
			delete(t.subs, subID)
		}
	}
	return ch, unsubscribe, nil
}

func (tr *tracker) Cancel(_ context.Context, id uuid.UUID) (dto.Snapshot, error) {
	t, ok := tr.lookup(id)
	if !ok {
		return dto.Snapshot{}, fmt.Errorf("%w: upload task not found", apperror.ErrNotFound)
	}

	snap := t.snapshot()
	if snap.Terminal() {
		return snap, apperror.ErrTaskFinished
	}

	t.cancel()
	return snap, nil
}

// Prune forgets finished tasks older than retention and returns how many
// were dropped.
func (tr *tracker) Prune(retention time.Duration) int {
	cutoff := tr.now().Add(-retention)

	tr.mu.Lock()
	defer tr.mu.Unlock()

	pruned := 0
	for id, t := range tr.tasks {
		snap := t.snapshot()
		if snap.FinishedAt != nil && snap.FinishedAt.Before(cutoff) {
			delete(tr.tasks, id)
			pruned++
		}
	}
	return pruned
}
