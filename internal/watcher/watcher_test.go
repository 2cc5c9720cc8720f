package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// csFilter selects .cs files and skips directories named obj.
type csFilter struct{}

func (csFilter) Selected(path string) bool { return strings.HasSuffix(path, ".cs") }
func (csFilter) SkipDir(path string) bool  { return filepath.Base(path) == "obj" }

// collect gathers batches until the timeout passes without a new one.
func collect(t *testing.T, batches <-chan []string, timeout time.Duration) [][]string {
	t.Helper()
	var got [][]string
	for {
		select {
		case b, ok := <-batches:
			if !ok {
				return got
			}
			got = append(got, b)
		case <-time.After(timeout):
			return got
		}
	}
}

func startWatcher(t *testing.T, cfg Config) <-chan []string {
	t.Helper()
	w := New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	batches, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Give the watcher time to initialize.
	time.Sleep(200 * time.Millisecond)
	return batches
}

func TestDebouncedBatch(t *testing.T) {
	tmpDir := t.TempDir()
	a := filepath.Join(tmpDir, "A.cs")
	b := filepath.Join(tmpDir, "B.cs")

	batches := startWatcher(t, Config{Roots: []string{tmpDir}, Filter: csFilter{}, Debounce: 150 * time.Millisecond})

	// Rapid writes to two files collapse into one batch.
	for i := 0; i < 5; i++ {
		for _, p := range []string{a, b} {
			if err := os.WriteFile(p, []byte("class C"+string(rune('0'+i))+" { }"), 0644); err != nil {
				t.Fatal(err)
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := collect(t, batches, 600*time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("got %d batches, want 1: %v", len(got), got)
	}
	if len(got[0]) != 2 || got[0][0] != a || got[0][1] != b {
		t.Errorf("batch = %v, want [%s %s]", got[0], a, b)
	}
}

func TestFilteredPathsNotReported(t *testing.T) {
	tmpDir := t.TempDir()
	objDir := filepath.Join(tmpDir, "obj")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		t.Fatal(err)
	}

	batches := startWatcher(t, Config{Roots: []string{tmpDir}, Filter: csFilter{}, Debounce: 100 * time.Millisecond})

	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(objDir, "Gen.cs"), []byte("class G { }"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := collect(t, batches, 500*time.Millisecond); len(got) != 0 {
		t.Errorf("expected no batches for filtered paths, got %v", got)
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	batches := startWatcher(t, Config{Roots: []string{tmpDir}, Filter: csFilter{}, Debounce: 100 * time.Millisecond})

	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	// Wait a bit for the directory to be added to the watcher.
	time.Sleep(300 * time.Millisecond)

	newFile := filepath.Join(subDir, "New.cs")
	if err := os.WriteFile(newFile, []byte("class N { }"), 0644); err != nil {
		t.Fatal(err)
	}

	got := collect(t, batches, 600*time.Millisecond)
	if len(got) == 0 {
		t.Fatal("expected a batch for the new file, got none")
	}
	if got[0][0] != newFile {
		t.Errorf("batch = %v, want [%s]", got[0], newFile)
	}
}

func TestChannelClosedOnCancel(t *testing.T) {
	w := New(Config{Roots: []string{t.TempDir()}})
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	batches, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-batches:
		if ok {
			t.Error("expected closed channel, got a batch")
		}
	case <-time.After(2 * time.Second):
		t.Error("channel not closed after cancel")
	}
}

func TestStartMissingRoot(t *testing.T) {
	w := New(Config{Roots: []string{filepath.Join(t.TempDir(), "missing")}})
	defer w.Close()
	if _, err := w.Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want error for a missing root")
	}
}

func TestConvertOp(t *testing.T) {
	tests := []struct {
		name   string
		op     fsnotify.Op
		want   EventOp
		wantOk bool
	}{
		{"create", fsnotify.Create, Create, true},
		{"write", fsnotify.Write, Write, true},
		{"remove", fsnotify.Remove, Remove, true},
		{"rename", fsnotify.Rename, Rename, true},
		{"chmod only", fsnotify.Chmod, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convertOp(tt.op)
			if ok != tt.wantOk {
				t.Errorf("convertOp(%v) ok = %v, want %v", tt.op, ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("convertOp(%v) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestEventOpString(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{Create, "Create"},
		{Write, "Write"},
		{Remove, "Remove"},
		{Rename, "Rename"},
		{EventOp(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.op.String(); got != tt.want {
				t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
			}
		})
	}
}
