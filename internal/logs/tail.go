package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	blockSize    = 32 * 1024
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1024 * 1024
)

// Options controls a Read call.
type Options struct {
	// Offset is the byte position to continue from. A negative offset returns
	// the last Limit lines instead.
	Offset int64
	Limit  int
	// Follow waits up to Wait for new lines when none are available yet.
	Follow bool
	Wait   time.Duration
	// Match keeps only lines containing the substring, e.g. a cache item id.
	Match string
}

// Chunk holds lines read from the log and the offset to resume from.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Read returns log lines according to opts. A missing file yields an empty
// chunk at offset zero.
func Read(ctx context.Context, path string, opts Options) (Chunk, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return Chunk{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Chunk{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var chunk Chunk
	if opts.Offset < 0 {
		chunk, err = readLast(path, opts.Limit, opts.Match)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The file was truncated or replaced; start over.
			offset = 0
		}
		chunk, err = readFrom(path, offset, opts.Limit, opts.Match)
	}
	if err != nil {
		return chunk, err
	}
	if opts.Follow && opts.Wait > 0 && len(chunk.Lines) == 0 {
		return follow(ctx, path, chunk.Offset, opts)
	}
	return chunk, nil
}

// readLast scans backwards from the end of the file in fixed blocks until it
// has collected limit matching lines.
func readLast(path string, limit int, match string) (Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return Chunk{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return Chunk{}, fmt.Errorf("seek log file: %w", err)
	}
	chunk := Chunk{Offset: end}
	if limit <= 0 || end == 0 {
		return chunk, nil
	}

	var (
		collected []string
		partial   []byte
		pos       = end
		buf       = make([]byte, blockSize)
	)
	for pos > 0 && len(collected) < limit {
		size := int64(blockSize)
		if pos < size {
			size = pos
		}
		pos -= size
		if _, err := file.ReadAt(buf[:size], pos); err != nil && !errors.Is(err, io.EOF) {
			return Chunk{}, fmt.Errorf("read log file: %w", err)
		}
		data := append(append([]byte(nil), buf[:size]...), partial...)
		lines := strings.Split(string(data), "\n")
		// The first element may continue in the previous block.
		partial = []byte(lines[0])
		for i := len(lines) - 1; i >= 1 && len(collected) < limit; i-- {
			if keep(lines[i], match) {
				collected = append(collected, lines[i])
			}
		}
		if len(partial) > maxLineBytes {
			partial = partial[len(partial)-maxLineBytes:]
		}
	}
	if pos == 0 && len(collected) < limit && keep(string(partial), match) {
		collected = append(collected, string(partial))
	}

	chunk.Lines = make([]string, len(collected))
	for i, line := range collected {
		chunk.Lines[len(collected)-1-i] = line
	}
	return chunk, nil
}

// readFrom reads complete lines after offset. A trailing line without a
// newline is left for the next call.
func readFrom(path string, offset int64, limit int, match string) (Chunk, error) {
	chunk := Chunk{Offset: offset}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Chunk{}, nil
		}
		return chunk, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return chunk, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, blockSize)
	for limit <= 0 || len(chunk.Lines) < limit {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return chunk, fmt.Errorf("read log file: %w", err)
		}
		chunk.Offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if keep(line, match) {
			chunk.Lines = append(chunk.Lines, line)
		}
	}
	return chunk, nil
}

func follow(ctx context.Context, path string, offset int64, opts Options) (Chunk, error) {
	deadline := time.Now().Add(opts.Wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Chunk{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
		chunk, err := readFrom(path, offset, opts.Limit, opts.Match)
		if err != nil {
			return Chunk{Offset: offset}, err
		}
		offset = chunk.Offset
		if len(chunk.Lines) > 0 || !time.Now().Before(deadline) {
			return chunk, nil
		}
	}
}

func keep(line, match string) bool {
	if line == "" {
		return false
	}
	return match == "" || strings.Contains(line, match)
}
