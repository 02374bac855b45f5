package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"walletcheckin/pkg/config"
	errs "walletcheckin/pkg/errors"
	"walletcheckin/pkg/logger"
	"walletcheckin/pkg/ratelimit"
)

// maxBodyPreview bounds how much of a bad response body is logged
const maxBodyPreview = 200

// Client calls functions on the hosted backend
type Client struct {
	httpClient      *http.Client
	headers         map[string]string
	baseURL         string
	loginFunction   string
	checkInFunction string
	limiter         ratelimit.Limiter
	logger          logger.Logger
}

// NewClient creates a backend client for baseURL
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "walletcheckin/1.0",
		},
		baseURL:         baseURL,
		loginFunction:   DefaultLoginFunction,
		checkInFunction: DefaultCheckInFunction,
		limiter:         ratelimit.Unlimited{},
		logger:          log,
	}
}

// NewClientFromConfig builds a client from the backend and rate_limit
// sections of cfg.
func NewClientFromConfig(cfg *config.Config, log logger.Logger) (*Client, error) {
	baseURL, err := ResolveBaseURL(cfg.Backend.URL, cfg.Backend.Deployment)
	if err != nil {
		return nil, errs.Configuration("invalid backend settings", err)
	}

	client := NewClient(baseURL, cfg.Backend.Timeout, log)
	client.SetFunctions(cfg.Backend.LoginFunction, cfg.Backend.CheckInFunction)
	client.SetLimiter(ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize))
	if cfg.Backend.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Backend.UserAgent)
	}
	if cfg.Backend.DeployKey != "" {
		client.SetDeployKey(cfg.Backend.DeployKey)
	}

	return client, nil
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetDeployKey authenticates requests with an admin deploy key
func (c *Client) SetDeployKey(key string) {
	c.headers["Authorization"] = "Convex " + key
}

// SetFunctions overrides the login and check-in function paths. Empty values
// keep the current ones.
func (c *Client) SetFunctions(login, checkIn string) {
	if login != "" {
		c.loginFunction = login
	}
	if checkIn != "" {
		c.checkInFunction = checkIn
	}
}

// SetLimiter installs a request throttle shared by all callers
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	if l == nil {
		l = ratelimit.Unlimited{}
	}
	c.limiter = l
}

// BaseURL returns the resolved backend URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login runs the login function for address
func (c *Client) Login(ctx context.Context, address string) (*Result, error) {
	return c.Mutation(ctx, c.loginFunction, map[string]interface{}{"address": address})
}

// CheckIn runs the daily check-in function for address
func (c *Client) CheckIn(ctx context.Context, address string) (*Result, error) {
	return c.Mutation(ctx, c.checkInFunction, map[string]interface{}{"address": address})
}

// Mutation calls the mutation function at path with args
func (c *Client) Mutation(ctx context.Context, path string, args map[string]interface{}) (*Result, error) {
	return c.call(ctx, GetMutationURL(c.baseURL), path, args)
}

// Query calls the query function at path with args
func (c *Client) Query(ctx context.Context, path string, args map[string]interface{}) (*Result, error) {
	return c.call(ctx, GetQueryURL(c.baseURL), path, args)
}

func (c *Client) call(ctx context.Context, url, path string, args map[string]interface{}) (*Result, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	body, err := json.Marshal(FunctionRequest{Path: path, Args: args, Format: "json"})
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, "failed to encode request", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, "failed to create request", err)
	}

	resp, err := c.doRequest(req, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if err := c.checkResponseStatus(resp, path, respBody); err != nil {
		return nil, err
	}

	return c.parseEnvelope(path, resp.StatusCode, respBody)
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request, path string) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"function": path,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "request failed", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"function": path,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps non-2xx statuses to typed errors. The backend's
// errorMessage is used when the body carries one.
func (c *Client) checkResponseStatus(resp *http.Response, path string, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := gjson.GetBytes(body, "errorMessage").String()

	var t errs.ErrorType
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		t = errs.ErrorTypeAuth
		if message == "" {
			message = "authentication required"
		}
	case resp.StatusCode == http.StatusNotFound:
		t = errs.ErrorTypeNotFound
		if message == "" {
			message = "function not found"
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		t = errs.ErrorTypeRateLimit
		if message == "" {
			message = "rate limit exceeded"
		}
	case resp.StatusCode >= 500:
		t = errs.ErrorTypeServerError
		if message == "" {
			message = "server error"
		}
	default:
		t = errs.ErrorTypeRemote
		if message == "" {
			message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
	}

	c.logger.DebugWithFields("backend returned error status", map[string]interface{}{
		"function": path,
		"status":   resp.StatusCode,
		"type":     string(t),
	})

	return &errs.Error{Type: t, Message: message, Code: resp.StatusCode}
}

// parseEnvelope decodes the status envelope of a 2xx response
func (c *Client) parseEnvelope(path string, code int, body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		preview := string(body)
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview] + "..."
		}
		c.logger.WarnWithFields("failed to parse backend response", map[string]interface{}{
			"function":     path,
			"body_preview": preview,
		})
		return nil, &errs.Error{Type: errs.ErrorTypeParsing, Message: "response is not valid JSON", Code: code}
	}

	envelope := gjson.ParseBytes(body)
	switch status := envelope.Get("status").String(); status {
	case "success":
		result := &Result{Path: path, Value: json.RawMessage("null")}
		if v := envelope.Get("value"); v.Exists() {
			result.Value = json.RawMessage(v.Raw)
		}
		for _, line := range envelope.Get("logLines").Array() {
			result.LogLines = append(result.LogLines, line.String())
		}
		return result, nil
	case "error":
		message := envelope.Get("errorMessage").String()
		if message == "" {
			message = "function returned an error"
		}
		return nil, errs.New(errs.ErrorTypeRemote, message)
	default:
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("unexpected response status %q", status),
			Code:    code,
		}
	}
}
