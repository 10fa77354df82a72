package logmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"logwal/pkg/dberrors"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// HTTPRemote talks to a logmapd HTTP endpoint.
type HTTPRemote struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	retries int
	backoff time.Duration
	closed  atomic.Bool
}

func NewHTTPRemote(baseURL string, opts ...DialOption) *HTTPRemote {
	return newHTTPRemote(baseURL, newDialOptions(opts))
}

func newHTTPRemote(baseURL string, o dialOptions) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  o.httpClient,
		logger:  o.logger,
		retries: o.retries,
		backoff: o.backoff,
	}
}

// ConcurrentSafe reports true: http.Client is safe for concurrent use.
func (s *HTTPRemote) ConcurrentSafe() bool { return true }

type lenResp struct {
	Len int `json:"len"`
}

func (s *HTTPRemote) keyURL(key int64) string {
	return s.baseURL + "/api/map/" + strconv.FormatInt(key, 10)
}

// do sends one request, retrying only when the request never got a response.
func (s *HTTPRemote) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	if s.closed.Load() {
		return nil, dberrors.ErrClosed
	}

	reqID := uuid.NewString()
	wait := s.backoff
	for attempt := 0; ; attempt++ {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return nil, fmt.Errorf("create %s request: %w", method, err)
		}
		req.Header.Set(requestIDHeader, reqID)
		if body != nil {
			req.Header.Set("Content-Type", "application/octet-stream")
		}

		resp, err := s.client.Do(req)
		if err == nil {
			return resp, nil
		}
		if attempt >= s.retries || ctx.Err() != nil {
			return nil, fmt.Errorf("%s do: %w", method, err)
		}

		s.logger.Debug("logmap request failed, retrying",
			"method", method, "url", u, "request_id", reqID, "attempt", attempt+1, "error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s do: %w", method, errors.Join(err, ctx.Err()))
		}
		wait *= 2
	}
}

func readError(method string, resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s failed: %d: %s", method, resp.StatusCode, strings.TrimSpace(string(b)))
}

func (s *HTTPRemote) Insert(ctx context.Context, key int64, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	resp, err := s.do(ctx, http.MethodPut, s.keyURL(key), value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsert, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %w", ErrInsert, readError("PUT", resp))
	}
	return nil
}

func (s *HTTPRemote) Get(ctx context.Context, key int64) ([]byte, bool, error) {
	resp, err := s.do(ctx, http.MethodGet, s.keyURL(key), nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrGet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: %w", ErrGet, readError("GET", resp))
	}

	value, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read GET body: %w", ErrGet, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *HTTPRemote) Remove(ctx context.Context, key int64) error {
	resp, err := s.do(ctx, http.MethodDelete, s.keyURL(key), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemove, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %w", ErrRemove, readError("DELETE", resp))
	}
	return nil
}

func (s *HTTPRemote) ContainsKey(ctx context.Context, key int64) (bool, error) {
	resp, err := s.do(ctx, http.MethodHead, s.keyURL(key), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: HEAD failed: %d", ErrQuery, resp.StatusCode)
	}
}

func (s *HTTPRemote) Len(ctx context.Context) (int, error) {
	resp, err := s.do(ctx, http.MethodGet, s.baseURL+"/api/len", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %w", ErrQuery, readError("LEN", resp))
	}

	var lr lenResp
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return 0, fmt.Errorf("%w: decode LEN body: %w", ErrQuery, err)
	}
	return lr.Len, nil
}

func (s *HTTPRemote) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.client.CloseIdleConnections()
	}
	return nil
}
