// Package shopapi is the client for the upstream shop REST API. Responses
// arrive as {status, data} envelopes with loosely typed payloads; the client
// normalizes them at the boundary (see normalize.go) so nothing downstream
// sees a raw shape.
package shopapi

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

	"golang.org/x/time/rate"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

// DefaultMaxBody caps how much of a response body is read.
const DefaultMaxBody int64 = 4 << 20

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the shop API.
//
// Token, when set, supplies the bearer token of the end user on whose behalf
// the request is made. Limiter, when set, throttles outgoing requests.
type Client struct {
	Doer      Doer
	BaseURL   string
	AssetsURL string
	Token     func(ctx context.Context) string
	Limiter   *rate.Limiter
	MaxBody   int64
}

// New returns a client with trimmed base URLs.
func New(doer Doer, baseURL, assetsURL string) *Client {
	return &Client{
		Doer:      doer,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AssetsURL: strings.TrimRight(assetsURL, "/"),
		MaxBody:   DefaultMaxBody,
	}
}

type envelope struct {
	Status  any             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// failed reports whether the envelope status signals an application error.
func (e envelope) failed() bool {
	switch s := e.Status.(type) {
	case bool:
		return !s
	case string:
		switch strings.ToLower(s) {
		case "error", "fail", "failed", "false":
			return true
		}
	case json.Number:
		n, err := s.Int64()
		return err == nil && n >= 400
	}
	return false
}

func (c *Client) newReq(ctx context.Context, method, path string, q url.Values, body any) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, errors.New("shopapi: BaseURL is empty")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("shopapi: encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != nil {
		if tok := c.Token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// do sends the request and returns the envelope's data payload.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any) (json.RawMessage, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := c.newReq(ctx, method, path, q, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.Doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := c.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ParseAPIError(resp.StatusCode, bytes.TrimSpace(b))
	}

	var env envelope
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("shopapi: %s %s: bad json body=%s", method, path, b[:min(len(b), 512)])
	}
	if env.failed() {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Status, Message: env.Message, Body: string(b)}
	}
	return env.Data, nil
}

// decodeAny decodes data into generic values, keeping numbers exact.
func decodeAny(data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeList accepts a bare array or an object wrapping one under a common key.
func decodeList(data json.RawMessage) ([]map[string]any, error) {
	v, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	var arr []any
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		arr = t
	case map[string]any:
		for _, k := range []string{"items", "results", "data", "products", "categories", "tags", "sections", "addresses"} {
			if a, ok := t[k].([]any); ok {
				arr = a
				break
			}
		}
	default:
		return nil, fmt.Errorf("shopapi: expected list, got %T", v)
	}
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func decodeObject(data json.RawMessage) (map[string]any, error) {
	v, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("shopapi: expected object, got %T", v)
	}
	return m, nil
}

// UserToken is a Token func that forwards the bearer token of the
// authenticated user stored in ctx.
func UserToken(ctx context.Context) string {
	u, _ := domain.UserFromCtx(ctx)
	return u.Token
}
