package adapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// TraceReader loads a per-execution block trace from a side-channel file.
type TraceReader interface {
	ReadTrace(ctx context.Context, path m.Path) ([]uint64, error)
}

// LocalTraceReader reads trace files from the local filesystem.
type LocalTraceReader struct{}

// NewLocalTraceReader constructs a LocalTraceReader.
func NewLocalTraceReader() *LocalTraceReader {
	return &LocalTraceReader{}
}

// ReadTrace parses the trace file at path.
func (r *LocalTraceReader) ReadTrace(ctx context.Context, path m.Path) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer file.Close()

	return ParseTrace(file)
}

// ParseTrace reads newline-delimited hex block addresses, with or without a
// 0x prefix. Blank lines are skipped; any other unparsable line fails the
// whole trace.
func ParseTrace(r io.Reader) ([]uint64, error) {
	scanner := bufio.NewScanner(r)
	trace := make([]uint64, 0, 256)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")

		block, err := strconv.ParseUint(text, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}

		trace = append(trace, block)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	return trace, nil
}
