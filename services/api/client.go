// Package api talks to the chat backend's REST endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"novelchat/apperrors"
	"novelchat/config"
	"novelchat/pkg/breaker"
	"novelchat/pkg/logger"
	"novelchat/pkg/metrics"

	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp"
)

// Client calls the REST backend. Every call goes through one circuit breaker
// that only counts transport failures and 5xx answers; an envelope with a
// business error code leaves it closed.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	cb      *gobreaker.CircuitBreaker
	log     *logger.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.Default().API.Timeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "novelchat",
			MaxConnsPerHost:     32,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 90 * time.Second,
		},
		cb: breaker.New(breaker.Config{
			Name:        "chat-api",
			MaxRequests: 3,
			Timeout:     15 * time.Second,
			Threshold:   0.6,
			MinRequests: 5,
			IsSuccessful: func(err error) bool {
				return err == nil || !isTransportFailure(err)
			},
		}),
		log: logger.WithComponent("api").WithField("base_url", cfg.BaseURL),
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: fasthttp.MethodGet, path: path, query: query}, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError("failed to encode request").WithInternal(err)
	}
	return c.do(ctx, request{
		method:      fasthttp.MethodPost,
		path:        path,
		body:        body,
		contentType: "application/json",
	}, out)
}

// do performs one request and unwraps the envelope into out.
func (c *Client) do(ctx context.Context, r request, out any) error {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	status := 0

	result, err := breaker.ExecuteCtx(ctx, c.cb, func() (any, error) {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		uri := c.baseURL + r.path
		if len(r.query) > 0 {
			uri += "?" + r.query.Encode()
		}
		req.SetRequestURI(uri)
		req.Header.SetMethod(r.method)
		req.Header.Set(fasthttp.HeaderAccept, "application/json")
		if token := c.bearer(); token != "" {
			req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
		}
		if r.body != nil {
			req.Header.SetContentType(r.contentType)
			req.SetBody(r.body)
		}

		if err := c.http.DoDeadline(req, resp, deadline); err != nil {
			return nil, apperrors.NewAPITransportError(r.path, err)
		}

		status = resp.StatusCode()
		if status >= fasthttp.StatusInternalServerError {
			return nil, apperrors.NewAPITransportError(r.path, fmt.Errorf("HTTP %d", status))
		}

		body := append([]byte(nil), resp.Body()...)
		if status >= fasthttp.StatusBadRequest && !json.Valid(body) {
			return nil, apperrors.NewAPIError(r.path, status, fasthttp.StatusMessage(status))
		}
		return body, nil
	})

	metrics.RecordAPIRequest(r.method, r.path, strconv.Itoa(status), time.Since(start).Seconds())

	if err != nil {
		c.log.WithFields(map[string]any{
			"method": r.method,
			"path":   r.path,
			"status": status,
		}).LogAppError(err, logger.WARN)
		return err
	}

	if err := unwrap(r.path, result.([]byte), out); err != nil {
		c.log.WithFields(map[string]any{
			"method": r.method,
			"path":   r.path,
		}).LogAppError(err, logger.DEBUG)
		return err
	}
	return nil
}

// isTransportFailure reports whether err means the backend could not be
// reached or answered with a server error. Envelope errors carry no
// underlying cause.
func isTransportFailure(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return true
	}
	return appErr.Code == apperrors.ErrCodeAPI && appErr.Internal != nil
}
