package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBackoff is used when a rate-limit response carries no Retry-After.
const DefaultBackoff = 60 * time.Second

// HTTPProvider subscribes to a long-lived HTTP endpoint that streams
// newline-delimited JSON posts.
type HTTPProvider struct {
	URL         string
	BearerToken string
	// ConnectTimeout bounds the handshake, up to the response headers. The
	// body is read for as long as the stream lasts.
	ConnectTimeout time.Duration
	Backoff        time.Duration
	Client         *http.Client
	Logger         *slog.Logger

	now func() time.Time
}

func (p *HTTPProvider) Name() string { return "http" }

// Connect performs the handshake. A rate-limit answer is not an error: the
// returned stream first yields a RateLimited message and retries the
// handshake on the following call to Next.
func (p *HTTPProvider) Connect(ctx context.Context, track []string) (Stream, error) {
	s := &httpStream{p: p, ctx: ctx, track: track}
	if err := s.handshake(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *HTTPProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *HTTPProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *HTTPProvider) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

type httpStream struct {
	p     *HTTPProvider
	ctx   context.Context
	track []string

	body   io.ReadCloser
	lines  *lineReader
	cancel context.CancelFunc

	// noticePending is set when the last handshake was refused with a rate
	// limit and the notice has not been delivered yet.
	limitedUntil  time.Time
	noticePending bool

	// retrying is set after a rate-limit notice was delivered.
	retrying bool
}

func (s *httpStream) handshake() error {
	u, err := url.Parse(s.p.URL)
	if err != nil {
		return transportErr(s.p.Name(), "handshake", fmt.Errorf("parse url: %w", err))
	}
	q := u.Query()
	q.Set("track", strings.Join(s.track, ","))
	u.RawQuery = q.Encode()

	reqCtx, cancel := context.WithCancel(s.ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return transportErr(s.p.Name(), "handshake", err)
	}
	if s.p.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.p.BearerToken)
	}
	req.Header.Set("Accept", "application/x-ndjson")

	var timer *time.Timer
	if s.p.ConnectTimeout > 0 {
		timer = time.AfterFunc(s.p.ConnectTimeout, cancel)
	}
	resp, err := s.p.client().Do(req)
	timedOut := timer != nil && !timer.Stop()
	if err != nil {
		cancel()
		if timedOut {
			err = fmt.Errorf("no response within %s", s.p.ConnectTimeout)
		}
		return transportErr(s.p.Name(), "handshake", err)
	}

	switch {
	case resp.StatusCode == 420 || resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		cancel()
		s.limitedUntil = s.p.clock().Add(retryAfter(resp.Header.Get("Retry-After"), s.p.backoff(), s.p.clock()))
		s.noticePending = true
		s.p.logger().Warn("stream rate limited",
			"status", resp.StatusCode,
			"until", s.limitedUntil.Format(time.RFC3339),
		)
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		te := &TransportError{Provider: s.p.Name(), Op: "handshake", Status: resp.StatusCode}
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			te.Err = errors.New(msg)
		}
		return te
	}

	s.body = resp.Body
	s.lines = newLineReader(resp.Body)
	s.cancel = cancel
	s.p.logger().Debug("stream connected", "url", s.p.URL, "track", strings.Join(s.track, ","))
	return nil
}

func (p *HTTPProvider) backoff() time.Duration {
	if p.Backoff > 0 {
		return p.Backoff
	}
	return DefaultBackoff
}

func (s *httpStream) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	if s.noticePending {
		s.noticePending = false
		s.retrying = true
		return Message{Kind: RateLimited, Until: s.limitedUntil}, nil
	}

	if s.retrying {
		if err := s.handshake(); err != nil {
			return Message{}, err
		}
		if s.noticePending {
			return s.Next(ctx)
		}
		s.retrying = false
		return Message{Kind: Resumed}, nil
	}

	line, err := s.lines.next()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Message{}, ctxErr
		}
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return Message{}, ctxErr
		}
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, transportErr(s.p.Name(), "read", err)
	}
	return Message{Kind: Data, Payload: line}, nil
}

func (s *httpStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date.
func retryAfter(h string, def time.Duration, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return def
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return def
}
