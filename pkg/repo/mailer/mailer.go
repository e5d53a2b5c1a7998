package mailer

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type Config struct {
	Addr    string
	APIKey  string
	From    string
	Timeout time.Duration
}

type sendReq struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Tags    map[string]string `json:"tags,omitempty"`
}

type sendResp struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type mailClient struct {
	client *resty.Client
	from   string
}

// New returns a sender for a JSON transactional mail API that accepts
// POST /v1/send with a bearer API key.
func New(conf *Config) repo.MailSender {
	return &mailClient{
		client: resty.New().
			SetBaseURL(conf.Addr).
			SetAuthToken(conf.APIKey).
			SetTimeout(conf.Timeout).
			SetHeader("Content-Type", "application/json"),
		from: conf.From,
	}
}

func (m *mailClient) Send(ctx context.Context, job *model.MailJob) error {
	result := &sendResp{}
	resp, err := m.client.R().SetContext(ctx).
		SetBody(&sendReq{
			From:    m.from,
			To:      []string{job.To},
			Subject: job.Subject,
			Text:    job.Body,
			Tags:    map[string]string{"kind": string(job.Kind)},
		}).
		SetResult(result).
		Post("/v1/send")
	if err != nil {
		logger.Errorf(ctx, "send mail http err: %+v", err)
		return code.RPCHttpErr.WithErr(err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		return code.RPCHttpCodeErr.WithMsgf("mail api http code: %d body: %s", resp.StatusCode(), resp.String())
	}
	logger.Debugf(ctx, "mail sent kind: %s id: %s", job.Kind, result.ID)
	return nil
}
