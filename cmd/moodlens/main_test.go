package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cognicore/moodlens/pkg/moodlens"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"-env", filepath.Join(t.TempDir(), "missing.env")}
	err := run(context.Background(), append(base, args...), strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := runCLI(t, "", "analyze", "我 今天 很 开心 很 开心 工作 顺利")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var res moodlens.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not a result: %v\n%s", err, out)
	}
	if res.Outcome != moodlens.OutcomeDegraded || res.Reason != moodlens.ReasonUnavailable {
		t.Errorf("Expected degraded/unavailable without a model, got %s/%s", res.Outcome, res.Reason)
	}
	if len(res.Keywords) == 0 || res.Keywords[0] != "开心" {
		t.Errorf("Expected 开心 first, got %v", res.Keywords)
	}
	if strings.Contains(out, `"trend"`) {
		t.Error("trend should be omitted for a one-shot analysis")
	}
}

func TestJournalCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	out, err := runCLI(t, "", "-db", db, "add", "-mood", "4", "-tags", "开心,充实", "工作 顺利")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "mood 4") || !strings.Contains(out, "tags: 开心, 充实") {
		t.Errorf("Unexpected add output:\n%s", out)
	}

	if _, err := runCLI(t, "有点 累\n\n还 不错\n", "-db", db); err != nil {
		t.Fatalf("interactive: %v", err)
	}

	out, err = runCLI(t, "", "-db", db, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "3 entries") {
		t.Errorf("Expected 3 entries:\n%s", out)
	}
	if strings.Index(out, "还 不错") > strings.Index(out, "工作 顺利") {
		t.Errorf("Entries should be newest first:\n%s", out)
	}

	out, err = runCLI(t, "", "-db", db, "trend")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 {
		t.Errorf("Expected 3 trend lines, got %d:\n%s", len(lines), out)
	}
}

func TestAddRejectsUnknownTag(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	if _, err := runCLI(t, "", "-db", db, "add", "-tags", "grumpy", "hello"); err == nil {
		t.Error("Expected error for unknown tag")
	}
}

func TestDeleteMissingEntry(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	if _, err := runCLI(t, "", "-db", db, "delete", "01NOPE"); err == nil {
		t.Error("Expected error deleting a missing entry")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := runCLI(t, "", "frobnicate"); err == nil {
		t.Error("Expected error for unknown command")
	}
}

// modelServer serves the backend test artifacts and counts requests.
func modelServer(t *testing.T) (configPath string, hits *atomic.Int32) {
	t.Helper()
	hits = new(atomic.Int32)
	files := http.FileServer(http.Dir(filepath.Join("..", "..", "pkg", "moodlens", "backend", "testdata")))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	configPath = filepath.Join(t.TempDir(), "moodlens.yaml")
	body := fmt.Sprintf("model_url: %s/model.json\nvocabulary_url: %s/vocabulary.json\n", srv.URL, srv.URL)
	if err := os.WriteFile(configPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, hits
}

func TestReadOnlyCommandsSkipModelFetch(t *testing.T) {
	configPath, hits := modelServer(t)
	db := filepath.Join(t.TempDir(), "journal.db")

	for _, cmd := range []string{"list", "trend"} {
		if _, err := runCLI(t, "", "-config", configPath, "-db", db, cmd); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
	}
	if _, err := runCLI(t, "", "-config", configPath, "-db", db, "delete", "01NOPE"); err == nil {
		t.Error("Expected error deleting a missing entry")
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("Expected no model requests for read-only commands, got %d", n)
	}

	out, err := runCLI(t, "", "-config", configPath, "analyze", "so happy today")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if hits.Load() == 0 {
		t.Error("Expected analyze to fetch the model")
	}
	var res moodlens.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not a result: %v\n%s", err, out)
	}
	if res.Outcome != moodlens.OutcomeModel {
		t.Errorf("Expected a model score, got %s/%s", res.Outcome, res.Reason)
	}
}
