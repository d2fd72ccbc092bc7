package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cognicore/moodlens/pkg/moodlens/retry"
)

// Source opens a model or vocabulary artifact by reference.
type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

const userAgent = "moodlens/1.0 (+https://github.com/cognicore/moodlens)"

// StatusError is returned for non-200 artifact responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status code %d", e.URL, e.Code)
}

// HTTPSource downloads artifacts over HTTP(S), retrying server errors and
// rate limits with exponential backoff. Client errors are permanent.
type HTTPSource struct {
	HTTPClient *http.Client
	Policy     retry.Policy
	Logger     *slog.Logger
}

// Open implements Source. The caller closes the returned body.
func (s *HTTPSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	policy := s.Policy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		s.logger().Warn("[HTTPSource] Request failed, will retry",
			slog.String("url", ref),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))
	}

	return retry.Do(ctx, policy, classify, func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, &retry.PermanentError{Err: err}
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := s.httpClient().Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, &StatusError{URL: ref, Code: resp.StatusCode}
		}
		return resp.Body, nil
	})
}

func classify(err error) retry.Action {
	var perm *retry.PermanentError
	if errors.As(err, &perm) {
		return retry.Stop
	}
	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.Code == http.StatusTooManyRequests:
			return retry.After
		case status.Code >= 500:
			return retry.Retry
		default:
			return retry.Stop
		}
	}
	return retry.Retry
}

func (s *HTTPSource) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (s *HTTPSource) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// FileSource reads artifacts from the local filesystem. References may be
// plain paths or file:// URLs.
type FileSource struct{}

// Open implements Source.
func (FileSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(strings.TrimPrefix(ref, "file://"))
}

// SchemeSource routes http(s) references to HTTP and everything else to
// File.
type SchemeSource struct {
	HTTP *HTTPSource
	File FileSource
}

// NewSchemeSource returns a SchemeSource using httpSource for remote
// references. A nil httpSource gets default settings.
func NewSchemeSource(httpSource *HTTPSource) *SchemeSource {
	if httpSource == nil {
		httpSource = &HTTPSource{}
	}
	return &SchemeSource{HTTP: httpSource}
}

// Open implements Source.
func (s *SchemeSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return s.HTTP.Open(ctx, ref)
	}
	return s.File.Open(ctx, ref)
}
