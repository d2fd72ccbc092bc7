package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/moodlens/pkg/moodlens/retry"
)

type roundTrip func(*http.Request) (*http.Response, error)

func (f roundTrip) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func response(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, RateLimitBackoff: time.Millisecond}
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	src := &HTTPSource{
		Policy: fastPolicy(),
		HTTPClient: &http.Client{Transport: roundTrip(func(r *http.Request) (*http.Response, error) {
			assert.Contains(t, r.Header.Get("User-Agent"), "moodlens")
			if calls.Add(1) == 1 {
				return response(http.StatusServiceUnavailable, ""), nil
			}
			return response(http.StatusOK, "artifact"), nil
		})},
	}

	rc, err := src.Open(context.Background(), "https://models.example/model.json")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "artifact", string(body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSourceClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	src := &HTTPSource{
		Policy: fastPolicy(),
		HTTPClient: &http.Client{Transport: roundTrip(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return response(http.StatusNotFound, "missing"), nil
		})},
	}

	_, err := src.Open(context.Background(), "https://models.example/model.json")
	require.Error(t, err)

	var perm *retry.PermanentError
	assert.ErrorAs(t, err, &perm)
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSourceGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	src := &HTTPSource{
		Policy: fastPolicy(),
		HTTPClient: &http.Client{Transport: roundTrip(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return response(http.StatusTooManyRequests, ""), nil
		})},
	}

	_, err := src.Open(context.Background(), "https://models.example/model.json")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSourceAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vocabulary.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"vocabulary":{"calm":1}}`))
	}))
	defer srv.Close()

	b := New(Options{
		Source:        NewSchemeSource(&HTTPSource{Policy: fastPolicy()}),
		ModelRef:      "file://" + modelRef,
		VocabularyRef: srv.URL + "/vocabulary.json",
	})
	require.NoError(t, b.Initialize(context.Background()))
	assert.Equal(t, 1, b.Vocabulary().Lookup("calm"))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	for _, ref := range []string{path, "file://" + path} {
		rc, err := FileSource{}.Open(context.Background(), ref)
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	}

	_, err := FileSource{}.Open(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FileSource{}.Open(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
