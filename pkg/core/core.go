package core

import (
	"errors"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"gorm.io/gorm"
)

// Caller is the identity an operation runs on behalf of. ClinicID is zero
// for callers without a clinic account.
type Caller struct {
	UserID   string
	ClinicID int64
	IsAdmin  bool
}

func (c *Caller) CanAccessClinic(clinicID int64) bool {
	if c == nil {
		return false
	}
	return c.IsAdmin || (c.ClinicID != 0 && c.ClinicID == clinicID)
}

// Clock returns the current time. Services take one so tests can pin today.
type Clock func() time.Time

// StoreErr maps a repository error to a coded error. Errors that already
// carry a code pass through.
func StoreErr(err error, notFound code.ErrCode, fallback code.ErrCode) error {
	if err == nil {
		return nil
	}
	if code.From(err) != code.UnDefineErr {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fallback.WithErr(err)
}
