// Package apiclient is the storefront's REST transport. Public serves the
// unauthenticated endpoints; Secure attaches the current bearer token to every
// call and routes 401/403 responses to a single session-expiry handler.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foodi-storefront/api/internal/apperr"
)

// DefaultTimeout bounds every call. A timeout counts as a transport failure.
const DefaultTimeout = 10 * time.Second

type transport struct {
	baseURL string
	client  *http.Client
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type request struct {
	method string
	path   string
	query  url.Values
	token  string
	body   interface{}
}

func (t *transport) do(ctx context.Context, req request, out interface{}) error {
	op := req.method + " " + req.path

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	u := t.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return &apperr.Error{Kind: apperr.ErrUnavailable, Op: op, Message: transportMessage(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		return &apperr.Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Op: op, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &apperr.Error{Kind: apperr.ErrUnavailable, Status: resp.StatusCode, Op: op, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.ErrSessionExpired
	case status == http.StatusNotFound:
		return apperr.ErrNotFound
	case status == http.StatusConflict:
		return apperr.ErrConflict
	case status >= 400 && status < 500:
		return apperr.ErrValidationFailed
	}
	return apperr.ErrUnavailable
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	return "network error"
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func isAuthFailure(err error) bool {
	var e *apperr.Error
	return errors.As(err, &e) && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

func newTransport(baseURL string, client *http.Client) *transport {
	return &transport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func escape(id string) string {
	return url.PathEscape(id)
}
