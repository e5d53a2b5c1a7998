package code

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeValuesStable(t *testing.T) {
	assert.Equal(t, ErrCode(1004), NoPermission)
	assert.Equal(t, ErrCode(2001), QueryRecordErr)
	assert.Equal(t, ErrCode(2004), DeleteDataErr)
	assert.Equal(t, ErrCode(3001), RPCHttpCodeErr)
	assert.Equal(t, ErrCode(4005), CycleCapacityErr)
	assert.Equal(t, ErrCode(5000), OrderNotFound)
}

func TestEveryCodeHasMessage(t *testing.T) {
	for c := range httpStatus {
		_, ok := messages[c]
		assert.True(t, ok, "code %d", int(c))
	}
	assert.Equal(t, "error code 2000", ErrCode(2000).String())
	assert.Equal(t, http.StatusInternalServerError, ErrCode(2000).HTTPStatus())
}

func TestErrorWrapping(t *testing.T) {
	inner := fmt.Errorf("pool closed")
	err := fmt.Errorf("place: %w", CycleCapacityErr.WithErr(inner))

	assert.ErrorIs(t, err, CycleCapacityErr)
	assert.ErrorIs(t, err, inner)
	assert.NotErrorIs(t, err, CycleUnavailableErr)
	assert.Equal(t, CycleCapacityErr, From(err))
	assert.Equal(t, "pool closed", Msg(err))
	assert.Equal(t, http.StatusUnprocessableEntity, From(err).HTTPStatus())
	assert.Equal(t, Success, From(nil))
	assert.Equal(t, UnDefineErr, From(fmt.Errorf("plain")))
}
