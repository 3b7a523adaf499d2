package jobs

import (
	"context"
	"log"
	"time"
)

// TaskPruner is satisfied by the upload tracker.
type TaskPruner interface {
	Prune(retention time.Duration) int
}

// OrphanSweeper is satisfied by the video service.
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context, retention time.Duration) (int, error)
}

type pruneUploadsJob struct {
	tracker   TaskPruner
	retention time.Duration
	schedule  string
}

// NewPruneUploadsJob drops finished upload tasks older than retention.
func NewPruneUploadsJob(tracker TaskPruner, retention time.Duration, schedule string) Job {
	return &pruneUploadsJob{tracker: tracker, retention: retention, schedule: schedule}
}

func (j *pruneUploadsJob) Name() string     { return "prune-upload-tasks" }
func (j *pruneUploadsJob) Schedule() string { return j.schedule }

func (j *pruneUploadsJob) Execute(context.Context) error {
	n := j.tracker.Prune(j.retention)
	log.Printf("[jobs] pruned %d finished upload tasks", n)
	return nil
}

type sweepOrphansJob struct {
	videos    OrphanSweeper
	retention time.Duration
	schedule  string
}

// NewSweepOrphansJob deletes blobs of videos removed longer than retention
// ago.
func NewSweepOrphansJob(videos OrphanSweeper, retention time.Duration, schedule string) Job {
	return &sweepOrphansJob{videos: videos, retention: retention, schedule: schedule}
}

func (j *sweepOrphansJob) Name() string     { return "sweep-orphan-blobs" }
func (j *sweepOrphansJob) Schedule() string { return j.schedule }

func (j *sweepOrphansJob) Execute(ctx context.Context) error {
	n, err := j.videos.SweepOrphans(ctx, j.retention)
	if err != nil {
		return err
	}
	log.Printf("[jobs] swept %d orphaned video blobs", n)
	return nil
}
