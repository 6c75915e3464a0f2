// Package client talks to a regressd server over its REST API and
// transition stream.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"regression-lab/internal/dataset"
	"regression-lab/internal/ml"
	"regression-lab/internal/server"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("regressd: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("regressd: %s (%s)", e.Message, e.Kind)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

type Client struct {
	base string
	rest *resty.Client
}

// New creates a client for the server at base, e.g. http://localhost:8080.
func New(base string, timeout time.Duration) *Client {
	base = strings.TrimRight(base, "/")
	r := resty.New().SetBaseURL(base)
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r}
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	apiErr := &server.ErrorResponse{}
	req := c.rest.R().
		SetContext(ctx).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{StatusCode: resp.StatusCode(), Kind: apiErr.Kind, Message: msg}
	}
	return nil
}

// Pairs returns the server's current training set.
func (c *Client) Pairs(ctx context.Context) (dataset.Set, error) {
	var out server.PairsResponse
	if err := c.do(ctx, resty.MethodGet, "/api/pairs", nil, &out); err != nil {
		return nil, err
	}
	return out.Pairs, nil
}

// AddPair appends the default pair.
func (c *Client) AddPair(ctx context.Context) (dataset.Set, error) {
	var out server.PairsResponse
	if err := c.do(ctx, resty.MethodPost, "/api/pairs", nil, &out); err != nil {
		return nil, err
	}
	return out.Pairs, nil
}

// SetPair replaces one field of one pair with the raw value.
func (c *Client) SetPair(ctx context.Context, index int, field dataset.Field, raw string) (dataset.Set, error) {
	var out server.PairsResponse
	path := "/api/pairs/" + strconv.Itoa(index) + "/" + url.PathEscape(string(field))
	if err := c.do(ctx, resty.MethodPut, path, server.ValueRequest{Value: raw}, &out); err != nil {
		return nil, err
	}
	return out.Pairs, nil
}

// ResetPairs restores the seed training set.
func (c *Client) ResetPairs(ctx context.Context) (dataset.Set, error) {
	var out server.PairsResponse
	if err := c.do(ctx, resty.MethodPost, "/api/pairs/reset", nil, &out); err != nil {
		return nil, err
	}
	return out.Pairs, nil
}

// Train starts a run on the current set. With wait it blocks until the run ends.
func (c *Client) Train(ctx context.Context, wait bool) (server.TrainResponse, error) {
	var out server.TrainResponse
	path := "/api/train"
	if wait {
		path += "?wait=true"
	}
	err := c.do(ctx, resty.MethodPost, path, nil, &out)
	return out, err
}

// Cancel stops the in-flight run.
func (c *Client) Cancel(ctx context.Context) (server.CancelResponse, error) {
	var out server.CancelResponse
	err := c.do(ctx, resty.MethodPost, "/api/train/cancel", nil, &out)
	return out, err
}

// Session returns the session state.
func (c *Client) Session(ctx context.Context) (ml.State, error) {
	var out ml.State
	err := c.do(ctx, resty.MethodGet, "/api/session", nil, &out)
	return out, err
}

// SetValue sets the value to predict from raw input.
func (c *Client) SetValue(ctx context.Context, raw string) (ml.State, error) {
	var out ml.State
	err := c.do(ctx, resty.MethodPut, "/api/predict/value", server.ValueRequest{Value: raw}, &out)
	return out, err
}

// Predict evaluates the trained model on the current value to predict.
func (c *Client) Predict(ctx context.Context) (server.PredictResponse, error) {
	var out server.PredictResponse
	err := c.do(ctx, resty.MethodPost, "/api/predict", nil, &out)
	return out, err
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (server.HealthResponse, error) {
	var out server.HealthResponse
	err := c.do(ctx, resty.MethodGet, "/health", nil, &out)
	return out, err
}

// Watch streams session transitions into events until ctx ends or the
// server closes the connection.
func (c *Client) Watch(ctx context.Context, events chan<- ml.Transition) error {
	wsURL, err := c.streamURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()
	log.Debug().Str("url", wsURL).Msg("watching session transitions")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev ml.Transition
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read transition: %w", err)
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
