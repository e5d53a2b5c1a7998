package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "test-secret"
	issuer = "clinicorder-test"
)

type staticResolver struct{}

func (staticResolver) ResolveCaller(_ context.Context, user *model.UserData) (*core.Caller, error) {
	if user.ID == "inactive" {
		return nil, code.ClinicInactiveErr
	}
	return &core.Caller{UserID: user.ID, ClinicID: 3, IsAdmin: user.HasRole("admin")}, nil
}

func router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	conf := &config.Auth{AuthSource: config.AuthJWT, JWTSecret: secret, JWTIssuer: issuer}
	api := r.Group("/api", AuthWeb(conf, nil, staticResolver{}))
	api.GET("/me", func(ctx *gin.Context) {
		caller := GetCaller(ctx)
		ctx.JSON(http.StatusOK, gin.H{"user": GetCurrentUser(ctx).ID, "clinic": caller.ClinicID})
	})
	api.GET("/admin", AdminOnly(), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	return r
}

func token(t *testing.T, id string, roles ...string) string {
	t.Helper()
	tok, err := SignToken(secret, issuer, &model.UserData{ID: id, Name: id, Roles: roles}, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthWeb(t *testing.T) {
	r := router()

	w := do(r, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/api/me", "Bearer")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/api/me", "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/api/me", "Bearer "+token(t, "u1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1","clinic":3}`, w.Body.String())

	w = do(r, "/api/me?access_token="+token(t, "u2"), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "/api/me", "Bearer "+token(t, "inactive"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminOnly(t *testing.T) {
	r := router()

	w := do(r, "/api/admin", "Bearer "+token(t, "u1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, "/api/admin", "Bearer "+token(t, "boss", "admin"))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestParseToken(t *testing.T) {
	tok := token(t, "u1", "admin")
	user, err := ParseToken(secret, issuer, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.HasRole("admin"))

	_, err = ParseToken("other-secret", issuer, tok)
	assert.ErrorIs(t, err, code.InvalidToken)

	_, err = ParseToken(secret, "someone-else", tok)
	assert.ErrorIs(t, err, code.InvalidToken)

	expired, err := SignToken(secret, issuer, &model.UserData{ID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, issuer, expired)
	assert.ErrorIs(t, err, code.InvalidToken)
}
