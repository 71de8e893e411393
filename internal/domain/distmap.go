package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMalformedDistanceMap is wrapped by every DistanceMapError.
	ErrMalformedDistanceMap = errors.New("malformed distance map")
	// ErrEmptyDistanceMap is returned when a distance map has no entries.
	ErrEmptyDistanceMap = errors.New("distance map is empty")
)

// DistanceMapError reports the offending line of a distance map.
type DistanceMapError struct {
	Line int
	Text string
	Err  error
}

func (e *DistanceMapError) Error() string {
	return fmt.Sprintf("distance map line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *DistanceMapError) Unwrap() []error {
	return []error{ErrMalformedDistanceMap, e.Err}
}

// DistanceMap maps basic block ids to their distance from the target.
// A distance of 0 marks a target block. It is read-only once parsed.
type DistanceMap struct {
	distances map[uint64]float64
	targets   int
}

// NewDistanceMap builds a map from already parsed entries.
func NewDistanceMap(entries map[uint64]float64) (*DistanceMap, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyDistanceMap
	}

	dm := &DistanceMap{distances: make(map[uint64]float64, len(entries))}

	for block, distance := range entries {
		if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
			return nil, fmt.Errorf("block %#x has invalid distance %v: %w", block, distance, ErrMalformedDistanceMap)
		}

		dm.distances[block] = distance
		if distance == 0 {
			dm.targets++
		}
	}

	return dm, nil
}

// ParseDistanceMap reads "<hex block> <decimal distance>" lines. The block
// may carry a 0x prefix. Blank lines are skipped; anything else that does
// not parse is an error.
func ParseDistanceMap(r io.Reader) (*DistanceMap, error) {
	entries := make(map[uint64]float64)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		block, distance, err := parseDistanceLine(text)
		if err != nil {
			return nil, &DistanceMapError{Line: lineNo, Text: text, Err: err}
		}

		if previous, dup := entries[block]; dup && previous != distance {
			slog.Debug("Duplicate distance map entry", "block", block, "previous", previous, "distance", distance)
		}

		entries[block] = distance
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read distance map: %w", err)
	}

	return NewDistanceMap(entries)
}

func parseDistanceLine(text string) (uint64, float64, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected 2 fields, got %d", len(fields))
	}

	block, err := parseBlockID(fields[0])
	if err != nil {
		return 0, 0, err
	}

	distance, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("distance: %w", err)
	}

	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0, 0, fmt.Errorf("distance %v is not a finite non-negative number", distance)
	}

	return block, distance, nil
}

func parseBlockID(field string) (uint64, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")

	block, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("block id: %w", err)
	}

	return block, nil
}

// Len returns the number of blocks in the map.
func (dm *DistanceMap) Len() int {
	return len(dm.distances)
}

// Targets returns the number of blocks with distance 0.
func (dm *DistanceMap) Targets() int {
	return dm.targets
}

// Distance returns the distance of block, if it is known.
func (dm *DistanceMap) Distance(block uint64) (float64, bool) {
	d, ok := dm.distances[block]
	return d, ok
}

// Distances returns a copy of all distances, for summaries.
func (dm *DistanceMap) Distances() []float64 {
	out := make([]float64, 0, len(dm.distances))
	for _, d := range dm.distances {
		out = append(out, d)
	}

	return out
}
