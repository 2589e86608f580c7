// Package graph is a minimal client for the managed GraphQL query service.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"voice-features-go/internal/logger"
)

var (
	clientOnce sync.Once
	httpClient *http.Client
)

// sharedHTTP returns the process-wide transport; per-call timeouts are applied
// through the request context.
func sharedHTTP() *http.Client {
	clientOnce.Do(func() {
		httpClient = &http.Client{}
	})
	return httpClient
}

type Options struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Log        *logrus.Entry
}

type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	hc         *http.Client
	log        *logrus.Entry
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = sharedHTTP()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		timeout:    timeout,
		maxRetries: max(opts.MaxRetries, 0),
		hc:         hc,
		log:        logger.OrDiscard(opts.Log),
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

type Error struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType,omitempty"`
}

// QueryError carries the errors array of a GraphQL response.
type QueryError struct {
	Errors []Error
}

func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, x := range e.Errors {
		msgs = append(msgs, x.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// StatusError is a non-2xx reply from the service.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graphql http %d: %s", e.Status, e.Body)
}

// Do posts {query, variables} and decodes the data member into out.
// Transport failures and 5xx replies are retried up to MaxRetries times
// (default zero); GraphQL errors and 4xx replies never are.
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode graphql request: %w", err)
	}

	var data json.RawMessage
	op := func() error {
		d, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		data = d
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.WithError(err).WithField("wait", wait).Warn("graphql call failed, retrying")
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return err
	}
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build graphql request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if resp.StatusCode >= 500 {
		return nil, &StatusError{Status: resp.StatusCode, Body: truncate(raw)}
	}
	var env response
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, backoff.Permanent(&StatusError{Status: resp.StatusCode, Body: truncate(raw)})
		}
		return nil, backoff.Permanent(fmt.Errorf("decode graphql envelope: %w", err))
	}
	if len(env.Errors) > 0 {
		return nil, backoff.Permanent(&QueryError{Errors: env.Errors})
	}
	if resp.StatusCode/100 != 2 {
		return nil, backoff.Permanent(&StatusError{Status: resp.StatusCode, Body: truncate(raw)})
	}
	return env.Data, nil
}

func truncate(b []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// IsQueryError reports whether err came from the errors member of a response.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
