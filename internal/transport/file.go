package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/chatfold/internal"
)

// maxLineSize bounds one JSONL event line
const maxLineSize = 4 * 1024 * 1024

// FileReplay replays threads from JSONL event logs stored as
// <Dir>/<threadID>.jsonl
type FileReplay struct {
	Dir string
}

// NewFileReplay creates a file-backed replay transport
func NewFileReplay(dir string) *FileReplay {
	return &FileReplay{Dir: dir}
}

// LogPath returns the event log path for a thread
func (f *FileReplay) LogPath(threadID string) string {
	return filepath.Join(f.Dir, threadID+".jsonl")
}

// Replay streams every event of the thread's log to onEvent. Lines that are
// not valid JSON are logged and skipped.
func (f *FileReplay) Replay(ctx context.Context, threadID string, onEvent internal.EventHandler) error {
	if threadID == "" || strings.ContainsAny(threadID, `/\`) {
		return fmt.Errorf("invalid thread id %q: %w", threadID, internal.ErrThreadNotFound)
	}

	path := f.LogPath(threadID)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, internal.ErrThreadNotFound)
		}
		return &internal.StorageError{Path: path, Op: "open", Err: err}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		raw, err := internal.ParseRawEvent([]byte(line))
		if err != nil {
			internal.LogWarn("%s:%d: %v", path, lineNum, &internal.EventError{Source: "replay", Kind: "line", Err: err})
			continue
		}
		if err := onEvent(raw); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return &internal.StorageError{Path: path, Op: "read", Err: err}
	}
	return nil
}
