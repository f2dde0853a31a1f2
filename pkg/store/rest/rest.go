// Package rest implements store.Store against a PostgREST endpoint such as
// the one exposed by Supabase at <url>/rest/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/BeAltea/altea-pay/pkg/store"
)

const (
	apiPrefix        = "/rest/v1"
	defaultTimeout   = 30 * time.Second
	defaultRetryWait = 500 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	URL       string
	Key       string
	Timeout   time.Duration
	Retries   uint64
	RetryWait time.Duration
}

// Client talks to PostgREST. Every call blocks until the response arrives,
// the timeout elapses or ctx is cancelled.
type Client struct {
	http    *resty.Client
	retries uint64
	wait    time.Duration
	logger  *log.Logger
}

// New builds a client for the project at opts.URL authenticated with opts.Key.
func New(opts Options, logger *log.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("store url is required")
	}
	if opts.Key == "" {
		return nil, fmt.Errorf("store key is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	wait := opts.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}

	client := resty.New().
		SetBaseURL(base+apiPrefix).
		SetTimeout(timeout).
		SetHeader("apikey", opts.Key).
		SetHeader("Authorization", "Bearer "+opts.Key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: client, retries: opts.Retries, wait: wait, logger: logger}, nil
}

// FindOne issues GET /<collection>?<col>=eq.<value>&limit=1.
func (c *Client) FindOne(ctx context.Context, collection string, f store.Filter) (store.Record, error) {
	params := make(map[string]string, len(f)+2)
	for col, v := range f {
		params[col] = "eq." + v
	}
	params["select"] = "*"
	params["limit"] = "1"

	var recs []store.Record
	err := c.do(ctx, "find", collection, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get("/" + collection)
	}, &recs)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	return recs[0], nil
}

// Create issues POST /<collection> asking for the stored representation back.
func (c *Client) Create(ctx context.Context, collection string, attrs store.Record) (store.Record, error) {
	var recs []store.Record
	err := c.do(ctx, "create", collection, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeader("Prefer", "return=representation").
			SetBody(attrs).
			Post("/" + collection)
	}, &recs)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &store.RemoteWriteError{Collection: collection, Op: "create", Message: "empty representation returned"}
	}
	return recs[0], nil
}

type requestFunc func(ctx context.Context) (*resty.Response, error)

// do runs req under the retry policy and decodes a JSON array body into out.
// Only transport failures and 5xx responses are retried.
func (c *Client) do(ctx context.Context, op, collection string, req requestFunc, out *[]store.Record) error {
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.wait))
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := req(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			werr := &store.RemoteWriteError{Collection: collection, Op: op, Err: err}
			c.logRetry(op, collection, attempt, werr)
			return retry.RetryableError(werr)
		}

		if resp.IsError() {
			werr := &store.RemoteWriteError{
				Collection: collection,
				Op:         op,
				StatusCode: resp.StatusCode(),
				Message:    errorMessage(resp.Body()),
			}
			if resp.StatusCode() >= http.StatusInternalServerError {
				c.logRetry(op, collection, attempt, werr)
				return retry.RetryableError(werr)
			}
			return werr
		}

		if err := decode(resp.Body(), out); err != nil {
			return &store.RemoteWriteError{Collection: collection, Op: op, StatusCode: resp.StatusCode(), Message: "malformed response", Err: err}
		}
		return nil
	})
}

func (c *Client) logRetry(op, collection string, attempt int, err error) {
	if c.logger == nil || uint64(attempt) > c.retries {
		return
	}
	c.logger.Warn("store request failed, retrying", "op", op, "collection", collection, "attempt", attempt, "err", err)
}

// decode accepts both a JSON array and a single object.
func decode(body []byte, out *[]store.Record) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		*out = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if body[0] == '{' {
		var rec store.Record
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		*out = []store.Record{rec}
		return nil
	}
	return dec.Decode(out)
}

// errorMessage extracts PostgREST's {"message": ...} or falls back to the raw body.
func errorMessage(body []byte) string {
	var pe struct {
		Message string `json:"message"`
		Details string `json:"details"`
		Hint    string `json:"hint"`
	}
	if err := json.Unmarshal(body, &pe); err == nil && pe.Message != "" {
		if pe.Details != "" {
			return pe.Message + " (" + pe.Details + ")"
		}
		return pe.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

