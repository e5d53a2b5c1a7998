package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/pkg/common/code"
)

type Error struct {
	Msg  string   `json:"msg"`
	Info []string `json:"info,omitempty"`
}

type Resp struct {
	Code  code.ErrCode `json:"code"`
	Data  any          `json:"data,omitempty"`
	Error *Error       `json:"error,omitempty"`
}

type RespT[T any] struct {
	Code  code.ErrCode `json:"code"`
	Data  T            `json:"data"`
	Error *Error       `json:"error,omitempty"`
}

func Reply(ctx *gin.Context, err error, data ...any) {
	if err != nil {
		ReplyErr(ctx, err)
		return
	}
	ReplyOk(ctx, data...)
}

func ReplyErr(ctx *gin.Context, err error, msgs ...string) {
	c := code.From(err)
	resp := &Resp{
		Code: c,
		Error: &Error{
			Msg:  code.Msg(err),
			Info: msgs,
		},
	}
	ctx.JSON(c.HTTPStatus(), resp)
}

func ReplyOk(ctx *gin.Context, data ...any) {
	resp := &Resp{Code: code.Success}
	if len(data) > 0 {
		resp.Data = data[0]
	}
	ctx.JSON(http.StatusOK, resp)
}
