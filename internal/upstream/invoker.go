package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"helios/internal/token"
	"helios/pkg/domain"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/requestcontext"
)

// maxResponseBytes bounds how much of an upstream response the gateway will
// buffer for relay and extraction.
const maxResponseBytes = 16 << 20

// Request describes one proxied upstream call.
type Request struct {
	OrganizationID domain.OrgID
	Method         string
	BaseURL        string
	Path           string
	RawQuery       string
	Scope          string
	Header         http.Header
	Body           []byte
}

// Outcome is a reached-upstream result: any status the upstream produced,
// 2xx or not, relayed verbatim. Network errors, timeouts, and upstream 5xx
// never produce an Outcome; they surface as CodeUpstreamUnavailable.
type Outcome struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports whether the outcome should trigger sync extraction.
func (o *Outcome) Success() bool {
	return o.StatusCode >= 200 && o.StatusCode < 300
}

// Headers the gateway consumes itself and must never forward.
var strippedRequestHeaders = []string{
	"Authorization",
	"X-Api-Key",
	"X-Actor-Name",
	"X-Actor-Email",
	"X-Client-Reference",
	"Cookie",
}

// Hop-by-hop headers per RFC 7230 §6.1, dropped in both directions.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Accept-Encoding",
	"Content-Length",
}

// Invoker performs the HTTP call to the upstream API using a token from the
// token cache. It never retries: retry policy belongs to the caller, for
// every status class including 429.
type Invoker struct {
	client  *http.Client
	tokens  *token.Cache
	timeout time.Duration
	logger  *slog.Logger
}

func NewInvoker(tokens *token.Cache, timeout time.Duration, logger *slog.Logger) *Invoker {
	return &Invoker{
		client: &http.Client{
			// Relay redirects to the caller instead of following them.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		tokens:  tokens,
		timeout: timeout,
		logger:  logger,
	}
}

// Invoke obtains a token, issues the upstream call, and classifies the result.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*Outcome, error) {
	tok, err := inv.tokens.Get(ctx, token.Key{OrganizationID: req.OrganizationID, Scope: req.Scope})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	target := req.BaseURL + req.Path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not build upstream request")
	}

	httpReq.Header = sanitizeHeader(req.Header)
	httpReq.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := inv.client.Do(httpReq)
	if err != nil {
		inv.logger.WarnContext(ctx, "upstream call failed",
			"method", req.Method,
			"url", req.BaseURL+req.Path,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "upstream call timed out")
		case ctx.Err() != nil:
			return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "upstream call canceled")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "upstream unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "reading upstream response failed")
	}

	if resp.StatusCode >= 500 {
		inv.logger.WarnContext(ctx, "upstream returned server error",
			"method", req.Method,
			"url", req.BaseURL+req.Path,
			"status", resp.StatusCode,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Newf(dErrors.CodeUpstreamUnavailable, "upstream returned %d", resp.StatusCode)
	}

	return &Outcome{
		StatusCode: resp.StatusCode,
		Header:     sanitizeResponseHeader(resp.Header),
		Body:       respBody,
	}, nil
}

func sanitizeHeader(in http.Header) http.Header {
	out := in.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, h := range strippedRequestHeaders {
		out.Del(h)
	}
	for _, h := range hopHeaders {
		out.Del(h)
	}
	return out
}

func sanitizeResponseHeader(in http.Header) http.Header {
	out := in.Clone()
	for _, h := range hopHeaders {
		out.Del(h)
	}
	return out
}
