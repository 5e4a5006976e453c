package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/observability"
	"github.com/spec-kit/homeservices-portal/internal/session"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

const maxErrorBody = 64 << 10

// Navigator is the part of the UI navigation the interceptor needs.
type Navigator interface {
	Current() string
	Navigate(path string)
}

// Options tunes a Client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	SignInPath     string
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Dispatcher     events.Dispatcher
}

// Client is the single outbound pipeline to the backend. Every call carries the stored
// credential and every 401 is handled by the same interceptor.
type Client struct {
	baseURL        string
	http           *http.Client
	requestTimeout time.Duration
	uploadTimeout  time.Duration
	signInPath     string
	tokens         *session.Store
	nav            Navigator
	logger         *zap.Logger
	metrics        *observability.Metrics
	dispatcher     events.Dispatcher

	redirecting atomic.Bool
}

// New builds a Client reading credentials from tokens.
func New(tokens *session.Store, nav Navigator, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.SignInPath == "" {
		opts.SignInPath = navigation.SignInPath
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = events.Discard
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           opts.HTTPClient,
		requestTimeout: opts.RequestTimeout,
		uploadTimeout:  opts.UploadTimeout,
		signInPath:     opts.SignInPath,
		tokens:         tokens,
		nav:            nav,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		dispatcher:     opts.Dispatcher,
	}
}

// ResetAuthFailure re-arms the 401 interceptor. Called once a new session is established.
func (c *Client) ResetAuthFailure() {
	c.redirecting.Store(false)
}

type request struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	timeout     time.Duration
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	timeout := req.timeout
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	sess, epoch, hasSession := c.tokens.Snapshot()
	if hasSession {
		httpReq.Header.Set("Authorization", "Bearer "+sess.Credential)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	logger := c.logger.With(zap.String("endpoint", req.endpoint), zap.String("request_id", requestID))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.RecordBackendCall(req.endpoint, 0)
		logger.Warn("backend call failed", zap.Error(err))
		return transportError(ctx, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordBackendCall(req.endpoint, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		return c.handleUnauthorized(ctx, epoch, decodeFailure(resp))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		failure := decodeFailure(resp)
		logger.Info("backend rejected call", zap.Int("status", resp.StatusCode), zap.Error(failure))
		return failure
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return transportError(ctx, err)
		}
		return apperrors.NewInvalidResponse("malformed backend response", err)
	}
	return nil
}

// handleUnauthorized clears the session and sends the UI to sign-in, at most once per
// failure cascade. The caller always gets an UNAUTHENTICATED error instead of a result.
func (c *Client) handleUnauthorized(ctx context.Context, epoch uint64, cause error) error {
	c.metrics.RecordAuthFailure()
	if c.nav != nil && c.nav.Current() == c.signInPath {
		return cause
	}
	if !c.redirecting.CompareAndSwap(false, true) {
		return cause
	}

	cleared, err := c.tokens.ClearIfCurrent(context.WithoutCancel(ctx), epoch)
	if err != nil {
		c.logger.Error("failed to clear session after auth failure", zap.Error(err))
	}
	if !cleared {
		// a newer sign-in replaced the credential that failed
		c.redirecting.Store(false)
		return cause
	}

	c.logger.Info("authentication failed; redirecting to sign-in")
	if c.nav != nil {
		c.nav.Navigate(c.signInPath)
	}
	_ = c.dispatcher.Publish(ctx, events.New(events.EventSessionCleared, "", events.SessionClearedPayload{
		Reason: "authentication failure",
	}))
	return cause
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeout("backend request timed out", err)
	}
	return apperrors.NewUnavailable("backend unreachable", err)
}

type failureBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func failureMessage(raw []byte, status int) string {
	var body failureBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != nil && body.Error.Message != "" {
			return body.Error.Message
		}
		if len(body.Detail) > 0 {
			var detail string
			if err := json.Unmarshal(body.Detail, &detail); err == nil && detail != "" {
				return detail
			}
			var items []struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
				return items[0].Msg
			}
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.ToLower(http.StatusText(status))
}

func decodeFailure(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := failureMessage(raw, resp.StatusCode)

	switch status := resp.StatusCode; {
	case status == http.StatusUnauthorized:
		return apperrors.NewUnauthenticated(msg)
	case status == http.StatusForbidden:
		return apperrors.NewForbidden(msg)
	case status == http.StatusNotFound:
		return apperrors.NewDomainError(apperrors.CodeNotFound, msg, status, nil)
	case status == http.StatusConflict:
		return apperrors.NewConflict(msg, nil)
	case status == http.StatusRequestEntityTooLarge:
		return apperrors.NewValidationError("file size exceeds server limit", nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperrors.NewTimeout(msg, nil)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return apperrors.NewUnavailable(msg, fmt.Errorf("backend status %d", status))
	default:
		return apperrors.NewValidationError(msg, map[string]any{"status": status})
	}
}
