package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background maintenance.
type Job interface {
	Name() string
	// Schedule is a cron spec; empty leaves the job unscheduled.
	Schedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
	}
}

// Register adds job and schedules it when it carries a cron spec.
func (s *Scheduler) Register(job Job) error {
	schedule := job.Schedule()
	if schedule != "" {
		_, err := s.cron.AddFunc(schedule, func() {
			log.Printf("🧹 [%s] Starting scheduled job...", job.Name())
			if err := job.Execute(context.Background()); err != nil {
				log.Printf("❌ [%s] Job failed: %v", job.Name(), err)
			} else {
				log.Printf("✅ [%s] Job completed successfully", job.Name())
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
		}
		log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	} else {
		log.Printf("📝 [%s] Registered without schedule", job.Name())
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.jobs))
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 Scheduler stopped")
}

func (s *Scheduler) RegisteredJobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
