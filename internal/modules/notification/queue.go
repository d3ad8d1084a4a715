package notification

import (
	"context"
	"time"
)

// Stats are the queue counters exposed to operators.
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Queue is the durable job store between the dispatcher and the worker pool.
type Queue interface {
	Enqueuer
	// Reserve leases the next ready job, waiting up to wait for one.
	// It returns nil, nil when nothing became ready.
	Reserve(ctx context.Context, wait time.Duration) (*Job, error)
	Complete(ctx context.Context, job *Job) error
	// Retry parks an active job until delay has passed.
	Retry(ctx context.Context, job *Job, delay time.Duration) error
	Fail(ctx context.Context, job *Job, cause error) error
	Stats(ctx context.Context) (Stats, error)
	// Recover returns jobs whose lease expired, such as those held by a
	// crashed process, to waiting.
	Recover(ctx context.Context) (int, error)
	FailedJobs(ctx context.Context, limit int) ([]*Job, error)
}
