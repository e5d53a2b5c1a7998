package mail

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/repo/model"
)

// Worker drains the mail queue.
type Worker interface {
	// Run blocks until ctx is done, then waits for in-flight sends.
	Run(ctx context.Context) error
	Handle(ctx context.Context, job *model.MailJob) error
}

type Config struct {
	PoolSize   int
	RatePerSec float64
	Burst      int
	PopTimeout time.Duration
	MaxRetry   int
}
