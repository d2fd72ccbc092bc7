// Package valkeystore persists a journal in Valkey as a single JSON string.
package valkeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/cognicore/moodlens/pkg/moodlens/journal"
	"github.com/cognicore/moodlens/pkg/moodlens/retry"
)

// Options configures a Store.
type Options struct {
	Key    string
	Policy retry.Policy
	Logger *slog.Logger
}

// Store implements journal.Store on a Valkey client.
type Store struct {
	client valkey.Client
	key    string
	policy retry.Policy
	logger *slog.Logger
}

// New wraps an existing client. The store owns the client and closes it.
func New(client valkey.Client, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = "moodEntries"
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{client: client, key: opts.Key, policy: opts.Policy, logger: opts.Logger}
}

// Dial connects to addr and checks the connection with PING.
func Dial(ctx context.Context, addr, password string, opts Options) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:      []string{addr},
		Password:         password,
		ConnWriteTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("[ValkeyStore] create client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyStore] ping %s: %w", addr, err)
	}

	s := New(client, opts)
	s.logger.Info("[ValkeyStore] Connected", slog.String("addr", addr))
	return s, nil
}

// Close implements journal.Store.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// Load implements journal.Store.
func (s *Store) Load(ctx context.Context) ([]journal.Entry, error) {
	r, err := s.do(ctx, "GET", func() valkey.Completed {
		return s.client.B().Get().Key(s.key).Build()
	})
	if err != nil {
		return nil, err
	}
	if !r.found {
		return nil, nil
	}

	var entries []journal.Entry
	if err := json.Unmarshal([]byte(r.value), &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return entries, nil
}

// Save implements journal.Store.
func (s *Store) Save(ctx context.Context, entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	_, err = s.do(ctx, "SET", func() valkey.Completed {
		return s.client.B().Set().Key(s.key).Value(string(data)).Build()
	})
	return err
}

type reply struct {
	value string
	found bool
}

// do runs a command, rebuilding it on every attempt since completed
// commands may be recycled by the client after use. A nil reply is not an
// error.
func (s *Store) do(ctx context.Context, name string, build func() valkey.Completed) (reply, error) {
	policy := s.policy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		s.logger.Warn("[ValkeyStore] Command failed, will retry",
			slog.String("command", name),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}

	return retry.Do(ctx, policy, classify, func(ctx context.Context) (reply, error) {
		value, err := s.client.Do(ctx, build()).ToString()
		if valkey.IsValkeyNil(err) {
			return reply{}, nil
		}
		if err != nil {
			return reply{}, err
		}
		return reply{value: value, found: true}, nil
	})
}

func classify(err error) retry.Action {
	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout") {
		return retry.Retry
	}
	return retry.Stop
}
