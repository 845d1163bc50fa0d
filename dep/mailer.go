package dep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crm/config"
)

type EmailService interface {
	SendEmail(ctx context.Context, sendEmail *SendEmail) (*SendResult, error)
	Close(ctx context.Context) error
}

type SendEmail struct {
	FromName   string
	FromEmail  string
	ToEmail    string
	ReplyTo    string
	Subject    string
	HtmlBody   string
	LeadID     uint64
	CampaignID uint64
}

type SendResult struct {
	Success   bool
	MessageID string
	Err       string
}

// The provider's send endpoint is form-encoded and returns a json
// envelope with either a message id or an error message.
type providerSendResp struct {
	Success   *bool  `json:"success"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

type emailService struct {
	cfg    config.Provider
	client *http.Client
}

func NewEmailService(_ context.Context, cfg config.Provider) (EmailService, error) {
	return &emailService{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}, nil
}

func (s *emailService) SendEmail(ctx context.Context, sendEmail *SendEmail) (*SendResult, error) {
	form := url.Values{}
	form.Set("from_name", sendEmail.FromName)
	form.Set("from_email", sendEmail.FromEmail)
	form.Set("to", sendEmail.ToEmail)
	form.Set("reply_to", sendEmail.ReplyTo)
	form.Set("subject", sendEmail.Subject)
	form.Set("html_body", sendEmail.HtmlBody)
	form.Set("tag", fmt.Sprintf("%d:%d", sendEmail.CampaignID, sendEmail.LeadID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SendURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = res.Body.Close()
	}()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	resp := new(providerSendResp)
	if err := json.Unmarshal(b, resp); err != nil {
		return nil, fmt.Errorf("malformed provider response, status: %d, err: %w", res.StatusCode, err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return &SendResult{
			Success: false,
			Err:     firstNonEmpty(resp.Error, resp.Message, strconv.Itoa(res.StatusCode)),
		}, nil
	}

	if resp.Success != nil && !*resp.Success {
		return &SendResult{
			Success: false,
			Err:     firstNonEmpty(resp.Error, resp.Message, "send rejected"),
		}, nil
	}

	return &SendResult{
		Success:   true,
		MessageID: resp.MessageID,
	}, nil
}

func (s *emailService) Close(_ context.Context) error {
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
