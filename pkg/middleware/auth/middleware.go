package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
)

type AuthType string

const (
	AuthTypeBearer AuthType = "Bearer"
)

type AuthFunc func(ctx *gin.Context, token string) *model.UserData

// CallerResolver turns an authenticated user into a core caller.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, user *model.UserData) (*core.Caller, error)
}

// AuthWeb authenticates bearer tokens with the configured source and
// resolves the caller. account is used for the oauth2 source only.
func AuthWeb(conf *config.Auth, account repo.Account, resolver CallerResolver) gin.HandlerFunc {
	var bearer AuthFunc
	switch conf.AuthSource {
	case config.AuthOAuth2:
		bearer = getOAuthUser(account)
	default:
		bearer = getJWTUser(conf.JWTSecret, conf.JWTIssuer)
	}
	return Auth(map[AuthType]AuthFunc{AuthTypeBearer: bearer}, resolver)
}

func abort(ctx *gin.Context, status int, c code.ErrCode) {
	ctx.AbortWithStatusJSON(status, &common.Resp{
		Code:  c,
		Error: &common.Error{Msg: c.String()},
	})
}

func Auth(authFuncMap map[AuthType]AuthFunc, resolver CallerResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cookie, _ := ctx.Cookie("access_token")
		queryToken := ctx.Query("access_token")
		authHeader := ctx.GetHeader("Authorization")
		// cookie and query tokens carry no scheme
		if t := utils.Or(cookie, queryToken); t != "" {
			authHeader = string(AuthTypeBearer) + " " + t
		}
		if authHeader == "" {
			abort(ctx, http.StatusUnauthorized, code.UnLogin)
			return
		}
		tokens := strings.Split(authHeader, " ")
		if len(tokens) != 2 {
			abort(ctx, http.StatusUnauthorized, code.LoginFormatErr)
			return
		}
		var userInfo *model.UserData
		if f, ok := authFuncMap[AuthType(tokens[0])]; ok {
			userInfo = f(ctx, tokens[1])
		}
		if userInfo == nil {
			abort(ctx, http.StatusUnauthorized, code.InvalidToken)
			return
		}
		ctx.Set(USERKEY, userInfo)

		if resolver != nil {
			caller, err := resolver.ResolveCaller(ctx, userInfo)
			if err != nil {
				logger.Warnf(ctx, "resolve caller user: %s err: %+v", userInfo.ID, err)
				common.ReplyErr(ctx, err)
				ctx.Abort()
				return
			}
			ctx.Set(CALLERKEY, caller)
		}
		ctx.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		caller := GetCaller(ctx)
		if caller == nil || !caller.IsAdmin {
			abort(ctx, http.StatusForbidden, code.NoPermission)
			return
		}
		ctx.Next()
	}
}

func getJWTUser(secret, issuer string) AuthFunc {
	return func(ctx *gin.Context, token string) *model.UserData {
		user, err := ParseToken(secret, issuer, token)
		if err != nil {
			logger.Warnf(ctx, "parse jwt token err: %v", err)
			return nil
		}
		return user
	}
}

func getOAuthUser(account repo.Account) AuthFunc {
	return func(ctx *gin.Context, token string) *model.UserData {
		user, err := account.GetUserInfo(ctx, token)
		if err != nil {
			logger.Errorf(ctx, "Token validation failed: %v", err)
			return nil
		}
		return user
	}
}

func GetCurrentUser(ctx context.Context) *model.UserData {
	gCtx, ok := ctx.(*gin.Context)
	if !ok {
		return nil
	}
	user, exists := gCtx.Get(USERKEY)
	if !exists {
		return nil
	}
	ud, ok := user.(*model.UserData)
	if !ok {
		return nil
	}
	return ud
}

func GetCaller(ctx context.Context) *core.Caller {
	gCtx, ok := ctx.(*gin.Context)
	if !ok {
		return nil
	}
	v, exists := gCtx.Get(CALLERKEY)
	if !exists {
		return nil
	}
	caller, _ := v.(*core.Caller)
	return caller
}
