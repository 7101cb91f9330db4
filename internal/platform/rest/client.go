// Package rest talks to a hosted backend-as-a-service over its HTTP APIs:
// /auth/v1 for token resolution, /rest/v1 for records and /storage/v1 for
// objects.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"companion-backend/internal/platform"
)

// Config holds the project URL and keys.
type Config struct {
	URL        string
	ServiceKey string
	AnonKey    string
	Timeout    time.Duration
}

// Client is the shared HTTP client behind Auth, Records and Objects.
type Client struct {
	http       *resty.Client
	baseURL    string
	serviceKey string
	anonKey    string
}

// New validates cfg and returns a client with the base URL and timeout applied.
func New(cfg Config) (*Client, error) {
	baseURL, err := normalizeBaseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid project url: %w", err)
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, fmt.Errorf("service role key is required")
	}
	anon := cfg.AnonKey
	if anon == "" {
		anon = cfg.ServiceKey
	}

	client := resty.New().SetBaseURL(baseURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Client{http: client, baseURL: baseURL, serviceKey: cfg.ServiceKey, anonKey: anon}, nil
}

// Backend returns the three adapters sharing this client.
func (c *Client) Backend() platform.Backend {
	return platform.Backend{Auth: &Auth{c: c}, Records: &Records{c: c}, Objects: &Objects{c: c}}
}

func (c *Client) service() *resty.Request {
	return c.http.R().
		SetHeader("apikey", c.serviceKey).
		SetAuthToken(c.serviceKey)
}

func (c *Client) as(cred platform.Credential) *resty.Request {
	if cred.IsService() {
		return c.service()
	}
	return c.http.R().
		SetHeader("apikey", c.anonKey).
		SetAuthToken(cred.Token())
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// apiError is the union of the error bodies the records and storage APIs return.
type apiError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Msg        string `json:"msg"`
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	var apiErr apiError
	_ = json.Unmarshal(resp.Body(), &apiErr)

	code := apiErr.Code
	if code == "" {
		code = apiErr.StatusCode
	}
	if code == "" {
		code = strconv.Itoa(resp.StatusCode())
	}
	msg := firstNonEmpty(apiErr.Message, apiErr.Msg, apiErr.Error, body, http.StatusText(resp.StatusCode()))

	status := resp.StatusCode()
	if n, err := strconv.Atoi(apiErr.StatusCode); err == nil && n >= 400 {
		status = n
	}

	switch {
	case code == platform.NoRowsCode:
		return platform.NewError(platform.KindNotFound, code, "%s", msg)
	case code == "23505" || status == http.StatusConflict:
		return platform.NewError(platform.KindConflict, code, "%s", msg)
	case status == http.StatusUnauthorized:
		return platform.NewError(platform.KindUnauthorized, code, "%s", msg)
	case status == http.StatusForbidden:
		return platform.NewError(platform.KindForbidden, code, "%s", msg)
	case status == http.StatusNotFound && apiErr.Code == "":
		return platform.NewError(platform.KindNotFound, code, "%s", msg)
	default:
		return platform.NewError(platform.KindOther, code, "%s", msg)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
