package logs_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediacache/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mediacache.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestReadLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	chunk, err := logs.Read(context.Background(), path, logs.Options{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "b" || chunk.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}
	if chunk.Offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", chunk.Offset)
	}
}

func TestReadLastLinesSpansBlocks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&b, "line %04d %s\n", i, strings.Repeat("x", 20))
	}
	path := writeLog(t, b.String())

	chunk, err := logs.Read(context.Background(), path, logs.Options{Offset: -1, Limit: 3000})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 3000 {
		t.Fatalf("expected 3000 lines, got %d", len(chunk.Lines))
	}
	if !strings.HasPrefix(chunk.Lines[0], "line 2000 ") || !strings.HasPrefix(chunk.Lines[2999], "line 4999 ") {
		t.Fatalf("unexpected window: %q .. %q", chunk.Lines[0], chunk.Lines[2999])
	}
}

func TestReadMatchFiltersLines(t *testing.T) {
	path := writeLog(t, "item=a start\nitem=b start\nitem=a done\n")

	chunk, err := logs.Read(context.Background(), path, logs.Options{Offset: 0, Match: "item=a"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[1] != "item=a done" {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}
}

func TestReadMissingFile(t *testing.T) {
	chunk, err := logs.Read(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.Options{Offset: 42})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if chunk.Offset != 0 || len(chunk.Lines) != 0 {
		t.Fatalf("expected empty chunk, got %+v", chunk)
	}
}

func TestReadFromOffsetLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntw")

	chunk, err := logs.Read(context.Background(), path, logs.Options{Offset: 0})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 1 || chunk.Offset != 4 {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
}

func TestReadFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	first, err := logs.Read(ctx, path, logs.Options{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial read: %v", err)
	}

	done := make(chan logs.Chunk, 1)
	go func() {
		chunk, err := logs.Read(ctx, path, logs.Options{Offset: first.Offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow read: %v", err)
		}
		done <- chunk
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	select {
	case chunk := <-done:
		if len(chunk.Lines) != 1 || chunk.Lines[0] != "later" {
			t.Fatalf("unexpected follow lines: %#v", chunk.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not return")
	}
}
