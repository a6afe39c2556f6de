package iotapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"

	"github.com/muurk/winiotctl/internal/logging"
	"github.com/muurk/winiotctl/internal/version"
)

const (
	// DefaultPort is the Windows Device Portal HTTP port on IoT Core
	DefaultPort = 8080

	// DefaultUsername is the factory Device Portal user on IoT Core images
	DefaultUsername = "Administrator"

	// DefaultSideloadTimeout bounds how long a sideload waits for the install to finish
	DefaultSideloadTimeout = 5 * time.Minute

	// DefaultPollInterval is the delay between install-state polls
	DefaultPollInterval = 5 * time.Second

	// DefaultRequestTimeout is the per-request HTTP timeout. Package uploads
	// go through a single request, so this is generous.
	DefaultRequestTimeout = 2 * time.Minute
)

// Endpoint templates. Placeholders are query-escaped on expansion.
const (
	pathPackages      = "/api/appx/packagemanager/packages"
	pathPackage       = "/api/appx/packagemanager/package?package={package}"
	pathSideload      = "/api/app/packagemanager/package?package={package}"
	pathInstallState  = "/api/app/packagemanager/state"
	pathDefaultApp    = "/api/iot/appx/default"
	pathSetDefaultApp = "/api/iot/appx/default?appid={appid}"
	pathRestart       = "/api/control/restart"
)

// Config holds connection parameters for a device.
type Config struct {
	Address  string
	Username string
	Password string

	// SideloadTimeout bounds the install poll. Zero selects DefaultSideloadTimeout.
	SideloadTimeout time.Duration

	// PollInterval is the delay between polls. Zero selects DefaultPollInterval.
	PollInterval time.Duration
}

// DefaultConfig returns a Config for address with factory credentials and
// default timings.
func DefaultConfig(address string) Config {
	return Config{
		Address:         address,
		Username:        DefaultUsername,
		SideloadTimeout: DefaultSideloadTimeout,
		PollInterval:    DefaultPollInterval,
	}
}

// Client talks to the Device Portal REST API of a single device.
//
// A Client holds no per-call state; every call builds a fresh request with the
// credential computed at construction. Instances are independent and may be
// used from multiple goroutines once configured.
type Client struct {
	// BaseURL is the device base URL (e.g. "http://192.168.1.20:8080")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Logger receives request and poll logs. Defaults to the package logger.
	Logger *zap.Logger

	authorization   string
	sideloadTimeout time.Duration
	pollInterval    time.Duration
}

// NewClient creates a client for the device at address (IP or hostname).
// The Device Portal port is used unless address already names one.
func NewClient(address, username, password string) *Client {
	host := address
	if _, _, err := net.SplitHostPort(address); err != nil {
		host = net.JoinHostPort(address, strconv.Itoa(DefaultPort))
	}
	return NewClientWithURL("http://"+host, username, password)
}

// NewClientWithURL creates a client with a full base URL
// (e.g. "http://192.168.1.20:8080").
func NewClientWithURL(baseURL, username, password string) *Client {
	credential := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &Client{
		BaseURL:         baseURL,
		HTTPClient:      &http.Client{Timeout: DefaultRequestTimeout},
		Logger:          logging.GetLogger(),
		authorization:   "Basic " + credential,
		sideloadTimeout: DefaultSideloadTimeout,
		pollInterval:    DefaultPollInterval,
	}
}

// NewClientFromConfig creates a client from cfg. Zero durations select the
// defaults; negative durations and an empty address are rejected.
func NewClientFromConfig(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, NewConfigError("device address is required")
	}
	if cfg.SideloadTimeout < 0 {
		return nil, NewConfigError(fmt.Sprintf("sideload timeout must be positive, got %s", cfg.SideloadTimeout))
	}
	if cfg.PollInterval < 0 {
		return nil, NewConfigError(fmt.Sprintf("poll interval must be positive, got %s", cfg.PollInterval))
	}

	c := NewClient(cfg.Address, cfg.Username, cfg.Password)
	if cfg.SideloadTimeout > 0 {
		c.sideloadTimeout = cfg.SideloadTimeout
	}
	if cfg.PollInterval > 0 {
		c.pollInterval = cfg.PollInterval
	}
	return c, nil
}

// SideloadTimeout returns the install poll deadline
func (c *Client) SideloadTimeout() time.Duration {
	return c.sideloadTimeout
}

// PollInterval returns the delay between install-state polls
func (c *Client) PollInterval() time.Duration {
	return c.pollInterval
}

// SetSideloadTimeout sets the install poll deadline. A non-positive value
// keeps the previous setting and returns a config error.
func (c *Client) SetSideloadTimeout(d time.Duration) error {
	if d <= 0 {
		return NewConfigError(fmt.Sprintf("sideload timeout must be positive, got %s (keeping %s)", d, c.sideloadTimeout))
	}
	c.sideloadTimeout = d
	return nil
}

// SetPollInterval sets the delay between install-state polls. A non-positive
// value keeps the previous setting and returns a config error.
func (c *Client) SetPollInterval(d time.Duration) error {
	if d <= 0 {
		return NewConfigError(fmt.Sprintf("poll interval must be positive, got %s (keeping %s)", d, c.pollInterval))
	}
	c.pollInterval = d
	return nil
}

// SetRequestTimeout sets the per-request HTTP timeout
func (c *Client) SetRequestTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// endpoint expands a path template, query-escaping every value.
func endpoint(template string, params map[string]string) string {
	return fasttemplate.ExecuteFuncString(template, "{", "}", func(w io.Writer, tag string) (int, error) {
		return io.WriteString(w, url.QueryEscape(params[tag]))
	})
}

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Body       []byte
}

func (r *response) ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// do performs one authenticated request and reads the whole body. Only
// network failures are returned as errors; status handling is up to callers.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, NewProtocolError(op, "failed to create request", err)
	}
	req.Header.Set("Authorization", c.authorization)
	req.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := ClassifyNetworkError(err, c.BaseURL)
		devErr.Op = op
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		devErr := ClassifyNetworkError(err, c.BaseURL)
		devErr.Op = op
		devErr.Message = "failed to read response body"
		return nil, devErr
	}

	logging.LogHTTPRequest(c.logger(), method, path, resp.StatusCode, len(data), time.Since(start))
	return &response{StatusCode: resp.StatusCode, Body: data}, nil
}

// call performs a request and turns a non-2xx status into a transport error.
func (c *Client) call(ctx context.Context, op, method, path string) (*response, error) {
	resp, err := c.do(ctx, op, method, path, nil, "")
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, NewTransportError(op, resp.StatusCode)
	}
	return resp, nil
}

// post sends an empty-bodied POST, which is what the device expects for
// command endpoints.
func (c *Client) post(ctx context.Context, op, path string) (*response, error) {
	resp, err := c.do(ctx, op, http.MethodPost, path, bytes.NewReader(nil), "text/plain; charset=utf-8")
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, NewTransportError(op, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return logging.GetLogger()
	}
	return c.Logger
}
