package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Caller is satisfied by anything that can invoke a remote method, so
// models can be handed either a Client or a dynamically resolved one.
type Caller interface {
	Call(ctx context.Context, method string, params []any, result any) error
}

type ClientOption func(c *Client)

// WithToken sets the auth token sent in the Authorization header.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc == nil {
			return
		}
		c.httpClient = hc
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l == nil {
			return
		}
		c.logger = l
	}
}

// Client calls methods of one module served at one url using JSON-RPC 1.1.
type Client struct {
	module     string
	url        string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(module, url string, opts ...ClientOption) *Client {
	c := &Client{
		module:     module,
		url:        url,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var requestID atomic.Uint64

type request struct {
	Version string `json:"version"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// response ignores version and id; servers answer with ids of any type.
type response struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Call invokes module.method with params and decodes the first element of
// the reply's result array into result. A nil result discards the reply.
//
// Errors reported by the service are returned as *Error; replies that
// cannot be understood wrap ErrBadResponse.
func (c *Client) Call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	fullMethod := c.module + "." + method
	body, err := json.Marshal(request{
		Version: "1.1",
		ID:      strconv.FormatUint(requestID.Add(1), 10),
		Method:  fullMethod,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s params: %w", fullMethod, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("call %s: %w", fullMethod, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", fullMethod, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("call %s: read reply: %w", fullMethod, err)
	}
	c.logger.Debug("json-rpc call",
		zap.String("method", fullMethod),
		zap.String("url", c.url),
		zap.Int("status", res.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	var reply response
	if err := json.Unmarshal(data, &reply); err != nil {
		if res.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("%w: %s: http status %d", ErrBadResponse, fullMethod, res.StatusCode)
		}
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, fullMethod, err)
	}
	if reply.Error != nil {
		return reply.Error
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s: http status %d", ErrBadResponse, fullMethod, res.StatusCode)
	}
	if result == nil {
		return nil
	}

	var results []json.RawMessage
	if err := json.Unmarshal(reply.Result, &results); err != nil {
		return fmt.Errorf("%w: %s: result is not an array", ErrBadResponse, fullMethod)
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: %s: empty result", ErrBadResponse, fullMethod)
	}
	if err := json.Unmarshal(results[0], result); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, fullMethod, err)
	}
	return nil
}
