package repo

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/repo/model"
)

// Account resolves an access token to the identity behind it.
type Account interface {
	GetUserInfo(ctx context.Context, token string) (*model.UserData, error)
}
