package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/store"
)

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed credential, used by CLI commands.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Options configures New.
type Options struct {
	// BaseURL is the backend root, e.g. http://127.0.0.1:8000.
	BaseURL string
	// Timeout bounds one call including retries. Default 30s.
	Timeout time.Duration
	// Retries is the number of extra attempts for idempotent GETs.
	Retries int

	Tokens     TokenSource
	HTTPClient *http.Client
	Events     store.EventRepo
	Logger     *logging.Logger
}

// Client is the HTTP ContentService.
type Client struct {
	baseURL string
	timeout time.Duration
	retries int
	backoff time.Duration
	tokens  TokenSource
	http    *http.Client
	events  store.EventRepo
	log     *logging.Logger
}

const maxResponseBytes = 8 << 20

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Tokens == nil {
		opts.Tokens = StaticToken("")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Client{
		baseURL: base,
		timeout: opts.Timeout,
		retries: opts.Retries,
		backoff: 250 * time.Millisecond,
		tokens:  opts.Tokens,
		http:    opts.HTTPClient,
		events:  opts.Events,
		log:     opts.Logger.With("component", "api"),
	}, nil
}

// BaseURL returns the normalised backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// body is an encoded request payload.
type body struct {
	contentType string
	data        []byte
}

func jsonBody(v any) (*body, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &body{contentType: "application/json", data: data}, nil
}

func formBody(values url.Values) *body {
	return &body{contentType: "application/x-www-form-urlencoded", data: []byte(values.Encode())}
}

func multipartBody(fileField, filename string, file io.Reader, fields map[string]string) (*body, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &body{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

// call describes one backend request.
type call struct {
	method string
	path   string
	query  url.Values
	body   *body
	// anonymous skips the Authorization header (login, register).
	anonymous bool
}

func (cl call) op() string { return cl.method + " " + cl.path }

// do sends cl and returns the raw 2xx body. GETs are retried on network
// and 5xx failures; the whole exchange is bounded by the client timeout.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attempts := 1
	if cl.method == http.MethodGet {
		attempts += c.retries
	}

	wait := c.backoff
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		raw, err := c.once(ctx, cl)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !KindOf(err).Transient() || ctx.Err() != nil || attempt == attempts-1 {
			break
		}
		c.log.Debug("retrying request", "op", cl.op(), "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, &Error{Kind: KindNetwork, Op: cl.op(), Err: ctx.Err()}
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, cl call) ([]byte, error) {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	var reader io.Reader
	if cl.body != nil {
		reader = bytes.NewReader(cl.body.data)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, reader)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: cl.op(), Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", cl.body.contentType)
	}
	if !cl.anonymous {
		if tok := strings.TrimSpace(c.tokens.Token()); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := &Error{Kind: KindNetwork, Op: cl.op(), Err: err}
		c.record(ctx, cl, requestID, 0, start, apiErr)
		return nil, apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		apiErr := &Error{Kind: KindNetwork, Op: cl.op(), Status: resp.StatusCode, Err: err}
		c.record(ctx, cl, requestID, resp.StatusCode, start, apiErr)
		return nil, apiErr
	}
	if len(raw) > maxResponseBytes {
		apiErr := &Error{Kind: KindValidation, Op: cl.op(), Status: resp.StatusCode,
			Detail: "The server sent a response that is too large.", Err: ErrResponseTooLarge}
		c.record(ctx, cl, requestID, resp.StatusCode, start, apiErr)
		return nil, apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := statusError(cl.op(), resp.StatusCode, raw)
		c.record(ctx, cl, requestID, resp.StatusCode, start, apiErr)
		return nil, apiErr
	}
	c.record(ctx, cl, requestID, resp.StatusCode, start, nil)
	return raw, nil
}

// record appends a request event. Bodies are not stored: they can carry
// passwords, tokens and student work.
func (c *Client) record(ctx context.Context, cl call, requestID string, status int, start time.Time, err error) {
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.log.Warn("request failed", "op", cl.op(), "request_id", requestID, "status", status, "latency_ms", latency, "error", err)
	} else {
		c.log.Debug("request", "op", cl.op(), "request_id", requestID, "status", status, "latency_ms", latency)
	}
	if c.events == nil {
		return
	}
	ev := store.RequestEventData{
		Kind:      store.KindAPI,
		Target:    cl.op(),
		RequestID: requestID,
		Status:    status,
		LatencyMs: latency,
		Success:   err == nil,
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	// The request context may already be done; the record should still land.
	if rerr := c.events.AppendRequest(context.WithoutCancel(ctx), ev); rerr != nil {
		c.log.Warn("record request event", "error", rerr)
	}
}

// decodeJSON unmarshals a reply into v, mapping failures to validation
// errors.
func decodeJSON(op string, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("decode reply: %w", err)}
	}
	return nil
}

// wrapDecode tags a content decoding error with the operation.
func wrapDecode(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return err
	}
	return &Error{Kind: KindValidation, Op: op, Err: err}
}
