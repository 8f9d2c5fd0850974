// Package store persists telemetry events that could not be delivered,
// so they survive process restarts and network outages.
package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/telemetry"
)

// ErrSpoolFull is returned by Persist when writing the given events would
// grow the spool file beyond its configured size limit.
var ErrSpoolFull = errors.New("spool file size limit reached")

// File is an append-only JSON Lines spool. Each persisted event occupies
// one line, which keeps partial writes from corrupting earlier entries and
// lets LoadPersisted skip damaged lines instead of failing wholesale.
type File struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
}

var _ telemetry.Store = (*File)(nil)

// NewFile creates the state directory if needed and returns a spool backed
// by a single file inside it. maxBytes <= 0 disables the size limit.
func NewFile(dir string, maxBytes int64) (*File, error) {
	if dir == "" {
		return nil, errors.New("store: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &File{
		path:     filepath.Join(dir, constants.SpoolFileName),
		maxBytes: maxBytes,
	}, nil
}

// Path returns the location of the spool file.
func (f *File) Path() string {
	return f.path
}

// Persist appends the events to the spool, one JSON document per line.
// The write is all-or-nothing: if encoding any event fails or the size
// limit would be exceeded, the file is left untouched.
func (f *File) Persist(ctx context.Context, events []telemetry.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to encode event %q: %w", ev.Name, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.maxBytes > 0 {
		size := int64(0)
		if info, err := os.Stat(f.path); err == nil {
			size = info.Size()
		}
		if size+int64(buf.Len()) > f.maxBytes {
			return fmt.Errorf("%w: %d bytes stored, %d pending, limit %d",
				ErrSpoolFull, size, buf.Len(), f.maxBytes)
		}
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open spool file: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("failed to write spool file: %w", err)
	}
	return file.Close()
}

// LoadPersisted reads every event currently in the spool. Lines that do
// not parse as events are skipped; a missing file yields no events.
func (f *File) LoadPersisted(ctx context.Context) ([]telemetry.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open spool file: %w", err)
	}
	defer file.Close()

	var events []telemetry.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev telemetry.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			// Damaged line, likely a crash mid-write. Keep the rest.
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("failed to read spool file: %w", err)
	}
	return events, nil
}

// Clear removes the spool file. Clearing an empty spool is not an error.
func (f *File) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove spool file: %w", err)
	}
	return nil
}
