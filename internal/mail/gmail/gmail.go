// Package gmail adapts the Gmail REST API to the mailbox ports.
package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"subscan/internal/core"
	"subscan/internal/log"
	"subscan/internal/mail"
)

const (
	defaultUser        = "me"
	defaultMaxPerQuery = 200
	maxPageSize        = 500
)

// Ensure interface conformance
var _ mail.Mailbox = (*Client)(nil)

var errQueryCapReached = errors.New("query result cap reached")

// Credentials locate the OAuth client and the token written by oauth-init.
// Inline JSON takes precedence over files.
type Credentials struct {
	ClientFile string
	ClientJSON string
	TokenFile  string
	TokenJSON  string
}

// RetryPolicy bounds retries of transient search and fetch failures.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy returns the retry settings used against the live API.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
	}
}

// Options tune a Client.
type Options struct {
	// MaxResultsPerQuery caps ids collected per query (default 200).
	MaxResultsPerQuery int64
	Retry              RetryPolicy
	// Breaker guards message fetches; nil uses NewFetchBreaker.
	Breaker *gobreaker.CircuitBreaker
	Logger  *slog.Logger
}

// NewFetchBreaker opens after a run of transient fetch failures so the rest
// of a scan fails fast instead of waiting on a struggling API.
func NewFetchBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-fetch",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				log.FieldOperation, log.OpFetch,
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}

// Client implements mail.Mailbox on top of the Gmail API.
type Client struct {
	svc         *gmail.Service
	user        string
	maxPerQuery int64
	retry       RetryPolicy
	breaker     *gobreaker.CircuitBreaker
	logger      *slog.Logger
}

// New creates a Gmail client authorized with a stored OAuth token.
func New(ctx context.Context, creds Credentials, opts Options) (*Client, error) {
	svc, err := newGmailService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return NewWithService(svc, opts), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gmail.Service, opts Options) *Client {
	if opts.MaxResultsPerQuery <= 0 {
		opts.MaxResultsPerQuery = defaultMaxPerQuery
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Breaker == nil {
		opts.Breaker = NewFetchBreaker(opts.Logger)
	}
	return &Client{
		svc:         svc,
		user:        defaultUser,
		maxPerQuery: opts.MaxResultsPerQuery,
		retry:       opts.Retry,
		breaker:     opts.Breaker,
		logger:      opts.Logger,
	}
}

func newGmailService(ctx context.Context, creds Credentials) (*gmail.Service, error) {
	clientJSON, err := readSecret(creds.ClientJSON, creds.ClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	cfg, err := google.ConfigFromJSON(clientJSON, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readSecret(creds.TokenJSON, creds.TokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	// Token refreshes and API calls share the pooled transport.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := cfg.Client(ctx, &tok)

	svc, err := gmail.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func readSecret(inline, file, what string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("missing %s credentials", what)
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for many small
// sequential or fanned-out Gmail API requests.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Search runs every query and concatenates the resulting ids in query order.
// A failing query is logged and skipped; the search fails only when no query
// succeeds.
func (c *Client) Search(ctx context.Context, queries []string) ([]core.RawMessageRef, error) {
	if len(queries) == 0 {
		return nil, errors.New("no search queries")
	}

	var (
		refs []core.RawMessageRef
		errs []error
	)
	for _, q := range queries {
		found, err := c.searchQuery(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WarnContext(ctx, "Gmail search query failed",
				log.FieldOperation, log.OpSearch,
				log.FieldQuery, q,
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("query %q: %w", q, err))
			continue
		}
		c.logger.DebugContext(ctx, "Gmail search query complete", log.FieldQuery, q, "results", len(found))
		refs = append(refs, found...)
	}

	if len(errs) == len(queries) {
		return nil, fmt.Errorf("all %d search queries failed: %w", len(queries), errors.Join(errs...))
	}
	return refs, nil
}

func (c *Client) searchQuery(ctx context.Context, q string) ([]core.RawMessageRef, error) {
	var found []core.RawMessageRef

	op := func() error {
		found = found[:0]
		call := c.svc.Users.Messages.List(c.user).Q(q).MaxResults(min(c.maxPerQuery, maxPageSize))
		err := call.Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
			for _, m := range resp.Messages {
				if m == nil || m.Id == "" {
					continue
				}
				found = append(found, core.RawMessageRef{ID: m.Id})
				if int64(len(found)) >= c.maxPerQuery {
					return errQueryCapReached
				}
			}
			return nil
		})
		if err == nil || errors.Is(err, errQueryCapReached) {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return found, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialInterval
	b.MaxElapsedTime = c.retry.MaxElapsedTime
	return backoff.WithContext(backoff.WithMaxRetries(b, c.retry.MaxRetries), ctx)
}

// isRetryable reports whether err is a rate limit, a server-side failure or
// a broken transport. Cancellation is never retried.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Fetch loads a full message and normalizes its body to plain text.
// Transient failures are retried; every attempt passes through the breaker.
func (c *Client) Fetch(ctx context.Context, ref core.RawMessageRef) (core.RawMessage, error) {
	var msg *gmail.Message
	op := func() error {
		res, err := c.breaker.Execute(func() (any, error) {
			return c.svc.Users.Messages.Get(c.user, ref.ID).Format("full").Context(ctx).Do()
		})
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		msg = res.(*gmail.Message)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.DebugContext(ctx, "Retrying Gmail fetch",
			log.FieldOperation, log.OpFetch,
			log.FieldMessageID, ref.ID,
			"retry_in", wait,
			log.FieldError, err)
	}
	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		return core.RawMessage{}, fmt.Errorf("%w: message %s: %w", core.ErrFetch, ref.ID, err)
	}

	if msg.Payload == nil {
		return core.RawMessage{}, fmt.Errorf("%w: message %s: empty payload", core.ErrExtraction, ref.ID)
	}
	body, err := mail.BodyText(toPayload(msg.Payload))
	if err != nil {
		return core.RawMessage{}, fmt.Errorf("message %s: %w", ref.ID, err)
	}

	headers := msg.Payload.Headers
	return core.RawMessage{
		ID:         ref.ID,
		Subject:    header(headers, "Subject"),
		Sender:     header(headers, "From"),
		DateHeader: header(headers, "Date"),
		BodyText:   body,
	}, nil
}

func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func toPayload(p *gmail.MessagePart) mail.Payload {
	out := mail.Payload{MimeType: p.MimeType}
	if p.Body != nil {
		out.Data = p.Body.Data
	}
	for _, part := range p.Parts {
		if part == nil {
			continue
		}
		out.Parts = append(out.Parts, toPayload(part))
	}
	return out
}
