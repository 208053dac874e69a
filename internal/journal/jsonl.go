package journal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ammcore/internal/model"
)

const maxLineBytes = 10 * 1024 * 1024

// Writer appends JSON lines to a file.
type Writer struct {
	path string
	mu   sync.Mutex
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) AppendOperations(ops []model.Operation) error {
	return appendLines(w, ops)
}

func (w *Writer) AppendResults(results []model.OperationResult) error {
	return appendLines(w, results)
}

func appendLines[T any](w *Writer, records []T) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(w.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// DecodeError is passed to the scan callback for a line that is not a valid
// operation.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ScanOperations calls fn for each operation in the journal at path, in file
// order. Lines that fail to decode are reported to onBad and skipped.
func ScanOperations(ctx context.Context, path string, fn func(model.Operation) error, onBad func(*DecodeError)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			if onBad != nil {
				onBad(&DecodeError{Line: lineNo, Err: err})
			}
			continue
		}
		if op.Op == "" {
			if onBad != nil {
				onBad(&DecodeError{Line: lineNo, Err: fmt.Errorf("missing op")})
			}
			continue
		}
		if err := fn(op); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan journal: %w", err)
	}
	return nil
}

// LastSeq returns the highest sequence number in the journal, or zero when
// the file is missing or empty.
func LastSeq(ctx context.Context, path string) (uint64, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat journal: %w", err)
	}
	var last uint64
	err := ScanOperations(ctx, path, func(op model.Operation) error {
		if op.Seq > last {
			last = op.Seq
		}
		return nil
	}, nil)
	return last, err
}
