package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/hunters/events"
)

// Journal writes every event as one JSON line into a zstd stream.
// It is an events.Sink; write errors are kept and reported by Close.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	buf bytes.Buffer
	n   int
	err error
}

// NewJournal creates events.jsonl.zst in dir. bufSize <= 0 uses 128KiB.
func NewJournal(dir string, bufSize int) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl.zst"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	if bufSize <= 0 {
		bufSize = 128 * 1024
	}
	return &Journal{f: f, enc: enc, w: bufio.NewWriterSize(enc, bufSize)}, nil
}

// Emit appends e to the journal.
func (j *Journal) Emit(e events.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil || j.w == nil {
		return
	}

	j.buf.Reset()
	if err := json.NewEncoder(&j.buf).Encode(e); err != nil {
		j.err = err
		return
	}
	if _, err := j.w.Write(j.buf.Bytes()); err != nil {
		j.err = err
		return
	}
	j.n++
}

// Count returns the number of events written.
func (j *Journal) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.n
}

// Close flushes the stream and closes the file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil {
		return j.err
	}

	err := j.err
	if ferr := j.w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if cerr := j.enc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := j.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	j.w, j.enc, j.f = nil, nil, nil
	return err
}

// ReadJournal decodes a journal written by Journal.
func ReadJournal(path string) ([]events.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var out []events.Event
	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var e events.Event
		if err := jd.Decode(&e); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, fmt.Errorf("decode event %d: %w", len(out), err)
		}
		out = append(out, e)
	}
}
