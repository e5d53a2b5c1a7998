package oauth

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"golang.org/x/oauth2"
)

var (
	oauthConfig *oauth2.Config
	oauthOnce   sync.Once
)

func GetOAuthConfig() *oauth2.Config {
	oauthOnce.Do(func() {
		authConf := config.Global().OAuth2
		oauthConfig = &oauth2.Config{
			ClientID:     authConf.ClientID,
			ClientSecret: authConf.ClientSecret,
			Scopes:       authConf.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL: authConf.TokenURL,
				AuthURL:  authConf.AuthURL,
			},
			RedirectURL: authConf.RedirectURL,
		}
	})
	return oauthConfig
}

// userInfoClient introspects bearer tokens through the provider userinfo
// endpoint.
type userInfoClient struct {
	conf        *oauth2.Config
	userInfoURL string
}

func New() repo.Account {
	return NewWithConfig(GetOAuthConfig(), config.Global().OAuth2.UserInfoURL)
}

func NewWithConfig(conf *oauth2.Config, userInfoURL string) repo.Account {
	return &userInfoClient{conf: conf, userInfoURL: userInfoURL}
}

func (u *userInfoClient) GetUserInfo(ctx context.Context, token string) (*model.UserData, error) {
	client := u.conf.Client(ctx, &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	})
	resp, err := client.Get(u.userInfoURL)
	if err != nil {
		logger.Errorf(ctx, "get user info err: %+v", err)
		return nil, code.InvalidToken
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, code.InvalidToken.WithMsgf("userinfo status: %d", resp.StatusCode)
	}
	result := &model.UserInfo{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil || result.Status != "ok" || result.Data == nil {
		return nil, code.InvalidToken
	}
	return result.Data, nil
}
