// Package jsonl reads and writes newline-delimited JSON event files.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leshachaplin/mmpgen/internal/domain"
)

var (
	ErrNotFound     = errors.New("file not found")
	ErrTrailingData = errors.New("unexpected data after event object")
)

// Encode renders events as compact JSON objects joined by "\n", without a trailing newline.
func Encode(events []domain.Event) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(events)*256))
	for i := range events {
		if i > 0 {
			buf.WriteByte('\n')
		}
		body, err := json.Marshal(events[i])
		if err != nil {
			return nil, fmt.Errorf("marshal event %d: %w", i, err)
		}
		buf.Write(body)
	}
	return buf.Bytes(), nil
}

// WriteFile writes one JSON object per line, creating parent directories.
func WriteFile(path string, events []domain.Event) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range events {
		// Encode terminates each object with '\n'
		if err = enc.Encode(events[i]); err != nil {
			_ = f.Close()
			return fmt.Errorf("write event %d: %w", i, err)
		}
	}
	if err = w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile decodes records from a JSONL file for validation.
func ReadFile(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads one JSON object per line. Blank lines are skipped.
func Decode(r io.Reader) ([]domain.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanLines)

	records := make([]domain.Record, 0)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var rec domain.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: decode event: %w", line, err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("line %d: %w", line, ErrTrailingData)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return records, nil
}
