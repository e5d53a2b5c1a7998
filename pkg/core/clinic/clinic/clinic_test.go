package clinic

import (
	"context"
	"testing"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/clinic"
	"github.com/isoflow/clinicorder/pkg/repo/memory"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = &core.Caller{UserID: "admin", IsAdmin: true}

func TestResolveCaller(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewStore().Clinics(), "admin")

	created, err := svc.CreateClinic(ctx, admin, &clinic.CreateReq{UserID: "u1", Name: "North", Email: "north@example.com"})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	caller, err := svc.ResolveCaller(ctx, &model.UserData{ID: "u1"})
	require.NoError(t, err)
	assert.NotZero(t, caller.ClinicID)
	assert.False(t, caller.IsAdmin)

	caller, err = svc.ResolveCaller(ctx, &model.UserData{ID: "boss", Roles: []string{"admin"}})
	require.NoError(t, err)
	assert.True(t, caller.IsAdmin)
	assert.Zero(t, caller.ClinicID)

	caller, err = svc.ResolveCaller(ctx, &model.UserData{ID: "someone"})
	require.NoError(t, err)
	assert.Zero(t, caller.ClinicID)

	_, err = svc.ResolveCaller(ctx, nil)
	assert.ErrorIs(t, err, code.UnLogin)

	off := false
	_, err = svc.UpdateClinic(ctx, admin, &clinic.UpdateReq{UUID: created.UUID, IsActive: &off})
	require.NoError(t, err)
	_, err = svc.ResolveCaller(ctx, &model.UserData{ID: "u1"})
	assert.ErrorIs(t, err, code.ClinicInactiveErr)
}

func TestClinicAdmin(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewStore().Clinics(), "admin")

	_, err := svc.CreateClinic(ctx, &core.Caller{UserID: "u"}, &clinic.CreateReq{UserID: "u1", Name: "N", Email: "n@example.com"})
	assert.ErrorIs(t, err, code.NoPermission)

	_, err = svc.CreateClinic(ctx, admin, &clinic.CreateReq{UserID: "u1", Name: "N", Email: "not-an-email"})
	assert.ErrorIs(t, err, code.ParamErr)

	for _, name := range []string{"Beta", "Alpha", "Gamma"} {
		_, err := svc.CreateClinic(ctx, admin, &clinic.CreateReq{UserID: "u-" + name, Name: name, Email: name + "@example.com"})
		require.NoError(t, err)
	}
	_, err = svc.CreateClinic(ctx, admin, &clinic.CreateReq{UserID: "u-Beta", Name: "Dup", Email: "dup@example.com"})
	assert.ErrorIs(t, err, code.ClinicExistErr)

	list, err := svc.ListClinics(ctx, admin, &common.PageReq{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "Alpha", list.Data[0].Name)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewStore().Clinics(), "admin")
	_, err := svc.CreateClinic(ctx, admin, &clinic.CreateReq{UserID: "u1", Name: "North", Email: "north@example.com"})
	require.NoError(t, err)
	caller, err := svc.ResolveCaller(ctx, &model.UserData{ID: "u1"})
	require.NoError(t, err)

	phone := "+1 555 0100"
	updated, err := svc.UpdateProfile(ctx, caller, &clinic.ProfileReq{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "North", updated.Name)

	bad := "nope"
	_, err = svc.UpdateProfile(ctx, caller, &clinic.ProfileReq{Email: &bad})
	assert.ErrorIs(t, err, code.ParamErr)

	got, err := svc.Profile(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, phone, got.Phone)
	assert.Equal(t, "north@example.com", got.Email)

	_, err = svc.Profile(ctx, admin)
	assert.ErrorIs(t, err, code.ClinicNotFound)
}
