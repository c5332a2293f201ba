package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
)

// mockVerifier implements FileVerifier
type mockVerifier struct {
	failPath string
	calls    int32
}

func (m *mockVerifier) VerifyFile(ctx context.Context, path string) (*model.RunReport, error) {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(5 * time.Millisecond) // Simulate work
	if path == m.failPath {
		return nil, errors.New("verify error")
	}
	return &model.RunReport{Source: path, Task: "t"}, nil
}

func TestBatchProcessor_ProcessFiles(t *testing.T) {
	verifier := &mockVerifier{failPath: "b.json"}
	processor := NewBatchProcessor(verifier, 2, nil)

	paths := []string{"a.json", "b.json", "c.json"}
	results := processor.ProcessFiles(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d: expected path %s, got %s", i, paths[i], res.Path)
		}
	}
	if results[0].Error != nil || results[0].Report == nil || results[0].Report.Source != "a.json" {
		t.Errorf("unexpected result for a.json: %+v", results[0])
	}
	if results[1].Error == nil || results[1].Report != nil {
		t.Errorf("expected error and nil report for b.json, got %+v", results[1])
	}
	if atomic.LoadInt32(&verifier.calls) != 3 {
		t.Errorf("expected 3 verifier calls, got %d", verifier.calls)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	results := NewBatchProcessor(&mockVerifier{}, 2, nil).ProcessFiles(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&mockVerifier{}, 1, nil).ProcessFiles(ctx, []string{"a.json", "b.json"})
	if len(results) != 2 {
		t.Fatalf("expected a result per path, got %d", len(results))
	}
	for _, r := range results {
		if r.Error == nil {
			t.Errorf("expected cancellation error for %s", r.Path)
		}
	}
}

func TestCollectBatchFiles_Dir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.json", "notes.md", "c.jsonl"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := CollectBatchFiles(dir)
	if err != nil {
		t.Fatalf("CollectBatchFiles failed: %v", err)
	}
	want := []string{"a.json", "b.yaml", "c.jsonl"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i, name := range want {
		if paths[i] != filepath.Join(dir, name) {
			t.Errorf("expected %s, got %s", name, paths[i])
		}
	}
}

func TestReadPathsFromFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "batches.txt")
	content := "# batch list\n\nfirst.json\n/abs/second.yaml\nfirst.json\n"
	if err := os.WriteFile(list, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	paths, err := CollectBatchFiles(list)
	if err != nil {
		t.Fatalf("CollectBatchFiles failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 deduplicated paths, got %v", paths)
	}
	if paths[0] != filepath.Join(dir, "first.json") || paths[1] != "/abs/second.yaml" {
		t.Errorf("unexpected paths: %v", paths)
	}
}

func TestCollectBatchFiles_Single(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	paths, err := CollectBatchFiles(path)
	if err != nil || len(paths) != 1 || paths[0] != path {
		t.Errorf("expected single path, got %v (%v)", paths, err)
	}

	if _, err := CollectBatchFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing target")
	}
}
