package cron

import "context"

// Job is one reconciliation pass the worker can run. Name keys the job's
// log lines and metrics.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule holds the jobs one worker cycle executes, in the order they run.
type Schedule struct {
	jobs []Job
}

// NewSchedule builds a schedule from the given jobs; nil entries are dropped.
func NewSchedule(jobs ...Job) *Schedule {
	s := &Schedule{jobs: make([]Job, 0, len(jobs))}
	for _, job := range jobs {
		s.Add(job)
	}
	return s
}

// Add appends a job to the end of the cycle.
func (s *Schedule) Add(job Job) {
	if job == nil {
		return
	}
	s.jobs = append(s.jobs, job)
}

// Jobs returns the run order. Callers get a copy; the schedule itself is
// fixed once the worker starts.
func (s *Schedule) Jobs() []Job {
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}
