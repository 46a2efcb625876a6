// Package jsonl appends and reads line-delimited JSON files.
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const maxLineSize = 1024 * 1024

// Appender writes one JSON record per line. Writes to the same path are
// serialized and each record goes out in a single O_APPEND write, so
// concurrent callers never interleave partial lines.
type Appender struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAppender() *Appender {
	return &Appender{locks: make(map[string]*sync.Mutex)}
}

func (a *Appender) lockFor(path string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.locks[path]
	if !ok {
		l = &sync.Mutex{}
		a.locks[path] = l
	}
	return l
}

// Lock holds the path's write lock until the returned func is called. Use it
// to make a read-then-append sequence atomic with respect to other appends.
func (a *Appender) Lock(path string) (unlock func()) {
	l := a.lockFor(filepath.Clean(path))
	l.Lock()
	return l.Unlock
}

// Append marshals v and writes it as one line.
func (a *Appender) Append(path string, v interface{}) error {
	unlock := a.Lock(path)
	defer unlock()
	return AppendLocked(path, v)
}

// AppendLocked writes v without taking the path lock. The caller must hold it.
func AppendLocked(path string, v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// Each calls fn with every line of the file. A missing file has no lines.
func Each(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// Decode reads every line of path into a T.
func Decode[T any](path string) ([]T, error) {
	var out []T
	err := Each(path, func(line []byte) error {
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return fmt.Errorf("malformed line in %s: %w", path, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}
