package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGetUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","data":{"id":"u1","name":"north","email":"n@example.com","roles":["clinic"]}}`))
	}))
	defer srv.Close()

	client := NewWithConfig(&oauth2.Config{}, srv.URL)
	user, err := client.GetUserInfo(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.HasRole("clinic"))

	_, err = client.GetUserInfo(context.Background(), "bad")
	assert.ErrorIs(t, err, code.InvalidToken)
}
