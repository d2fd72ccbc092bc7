package valkeystore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"

	"github.com/cognicore/moodlens/pkg/moodlens"
	"github.com/cognicore/moodlens/pkg/moodlens/journal"
	"github.com/cognicore/moodlens/pkg/moodlens/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, RateLimitBackoff: time.Millisecond}
}

func entries() []journal.Entry {
	return []journal.Entry{{
		ID:      "01HQ",
		Date:    time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC),
		Content: "疲惫 但 充实",
		Mood:    3,
		Tags:    []string{"疲惫", "充实"},
		Analysis: moodlens.Result{
			ToneScore:   0.1,
			Keywords:    []string{"疲惫", "但", "充实"},
			Suggestions: []string{"散步"},
			Outcome:     moodlens.OutcomeModel,
		},
	}}
}

func TestLoadMissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().Do(gomock.Any(), mock.Match("GET", "moodEntries")).Return(mock.Result(mock.ValkeyNil()))

	got, err := New(client, Options{Policy: fastPolicy()}).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveAndLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	data, err := json.Marshal(entries())
	require.NoError(t, err)

	gomock.InOrder(
		client.EXPECT().Do(gomock.Any(), mock.Match("SET", "journal:alice", string(data))).Return(mock.Result(mock.ValkeyString("OK"))),
		client.EXPECT().Do(gomock.Any(), mock.Match("GET", "journal:alice")).Return(mock.Result(mock.ValkeyBlobString(string(data)))),
	)

	s := New(client, Options{Key: "journal:alice", Policy: fastPolicy()})
	require.NoError(t, s.Save(context.Background(), entries()))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "疲惫 但 充实", got[0].Content)
	assert.Equal(t, []string{"疲惫", "充实"}, got[0].Tags)
	assert.Equal(t, moodlens.OutcomeModel, got[0].Analysis.Outcome)
}

func TestSaveRetriesConnectionErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	gomock.InOrder(
		client.EXPECT().Do(gomock.Any(), mock.Match("SET", "moodEntries", "[]")).Return(mock.ErrorResult(errors.New("dial tcp: connection refused"))),
		client.EXPECT().Do(gomock.Any(), mock.Match("SET", "moodEntries", "[]")).Return(mock.Result(mock.ValkeyString("OK"))),
	)

	require.NoError(t, New(client, Options{Policy: fastPolicy()}).Save(context.Background(), nil))
}

func TestLoadDoesNotRetryCommandErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().Do(gomock.Any(), mock.Match("GET", "moodEntries")).
		Return(mock.ErrorResult(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))).
		Times(1)

	_, err := New(client, Options{Policy: fastPolicy()}).Load(context.Background())
	assert.Error(t, err)
}

func TestLoadCorruptValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().Do(gomock.Any(), mock.Match("GET", "moodEntries")).Return(mock.Result(mock.ValkeyBlobString("{not json")))

	_, err := New(client, Options{Policy: fastPolicy()}).Load(context.Background())
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().Close()

	assert.NoError(t, New(client, Options{}).Close())
}
