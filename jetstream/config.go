package jetstream

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout applies when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "jetstream-go"
)

// Config describes one Jetstream account endpoint.
type Config struct {
	BaseURL   string        // e.g. https://us-api.jetstreamrfid.com
	AccessKey string        // account access key
	Timeout   time.Duration // per request; DefaultTimeout when zero
	UserAgent string
	Debug     bool // resty request/response dumps, never enable in production
}

// Validate checks the fields every client needs.
func (c Config) Validate() error {
	return Require("BaseURL", c.BaseURL, "AccessKey", c.AccessKey)
}

// NewHTTPClient builds the resty client shared by the v3 and v1.5 clients.
// No retries are configured: Jetstream calls are not idempotent in general
// and callers decide how to recover.
func NewHTTPClient(cfg Config, contentType string) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetDebug(cfg.Debug).
		SetHeader("Content-Type", contentType).
		SetHeader("Accept", contentType).
		SetHeader("User-Agent", userAgent)
}

// CheckResponse maps a non-2xx resty response to *Error.
func CheckResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return responseError(resp)
}

// CheckStatusOK is the stricter v1.5 rule: only 200 counts as success.
func CheckStatusOK(resp *resty.Response) error {
	if resp.StatusCode() == 200 {
		return nil
	}
	return responseError(resp)
}

func responseError(resp *resty.Response) error {
	e := &Error{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       resp.Body(),
	}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		if resp.Request.RawRequest != nil {
			e.URL = RedactURL(resp.Request.RawRequest.URL.String())
		} else {
			e.URL = RedactURL(resp.Request.URL)
		}
	}
	return e
}
