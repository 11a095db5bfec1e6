package scheduler

import "errors"

var (
	// ErrInvalidJob is returned when a job has no name or no run function
	ErrInvalidJob = errors.New("scheduler: job needs a name and a run function")

	// ErrDuplicateJob is returned when a job name is registered twice
	ErrDuplicateJob = errors.New("scheduler: job already registered")

	// ErrInvalidCronSpec is returned when a cron expression does not parse
	ErrInvalidCronSpec = errors.New("scheduler: invalid cron spec")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrJobRunning is returned when a job is triggered while it is still executing
	ErrJobRunning = errors.New("scheduler: job already running")
)
