package repo

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type MailQueue interface {
	Enqueue(ctx context.Context, job *model.MailJob) error
	// Dequeue blocks up to timeout. It returns nil, nil when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*model.MailJob, error)
}

type MailSender interface {
	Send(ctx context.Context, job *model.MailJob) error
}
