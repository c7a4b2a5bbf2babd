// Package portroute answers whether a historical shipping lane connected two ports
// in a given year. Lane data is loaded once from a CSV source. Loading fails open:
// an unreadable or malformed source leaves the validator empty, and an empty
// validator allows every route.
package portroute

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// State is the load lifecycle of a Validator
type State int32

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var ErrInvalidHeader = errors.New("lane data header must name origin and destination port columns")

// Source opens the lane CSV
type Source func(ctx context.Context) (io.ReadCloser, error)

// FileSource reads lanes from a file path
func FileSource(path string) Source {
	return func(context.Context) (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// ReaderSource reads lanes from an in-memory reader; used by tests and embedded data
func ReaderSource(r io.Reader) Source {
	return func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	}
}

// Validator holds lanes as year -> origin -> set of destinations
type Validator struct {
	source Source
	logger zerolog.Logger

	once  sync.Once
	mu    sync.RWMutex
	state State
	lanes map[string]map[string]map[string]struct{}
	years []string
	err   error
}

// New creates a validator that will load from source on Initialize
func New(source Source, logger zerolog.Logger) *Validator {
	return &Validator{
		source: source,
		logger: logger,
		lanes:  map[string]map[string]map[string]struct{}{},
	}
}

// Initialize loads the lane data exactly once. Concurrent callers block until the
// single load finishes. A failed load still leaves the validator Ready with no
// data; the load error is returned to every caller.
func (v *Validator) Initialize(ctx context.Context) error {
	v.once.Do(func() {
		v.mu.Lock()
		v.state = Loading
		v.mu.Unlock()

		lanes, err := v.load(ctx)

		v.mu.Lock()
		defer v.mu.Unlock()

		if err != nil {
			v.err = err
			v.logger.Error().Err(err).Msg("Failed to load port lanes, allowing all routes")
		} else {
			v.lanes = lanes
			v.years = sortedKeys(lanes)
			v.logger.Info().
				Int("years", len(v.years)).
				Strs("available", v.years).
				Msg("Port lanes loaded")
		}
		v.state = Ready
	})

	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

func (v *Validator) load(ctx context.Context) (map[string]map[string]map[string]struct{}, error) {
	if v.source == nil {
		return nil, errors.New("no lane source configured")
	}
	rc, err := v.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("open lane source: %w", err)
	}
	defer rc.Close()

	return parseLanes(rc)
}

// columns holds the indexes of the lane fields in a row
type columns struct {
	year, from, to int
}

func (c columns) widest() int {
	return max(c.year, c.from, c.to)
}

func detectColumns(header []string) (columns, error) {
	cols := columns{year: -1, from: -1, to: -1}
	for i, h := range header {
		h = strings.ToLower(clean(h))
		switch {
		case strings.Contains(h, "出発港") || strings.Contains(h, "origin"):
			cols.from = i
		case strings.Contains(h, "到着港") || strings.Contains(h, "destination"):
			cols.to = i
		case strings.Contains(h, "年") || strings.Contains(h, "year"):
			cols.year = i
		}
	}
	if cols.from < 0 || cols.to < 0 {
		return cols, ErrInvalidHeader
	}
	if cols.year < 0 {
		cols.year = 0
	}
	return cols, nil
}

func parseLanes(r io.Reader) (map[string]map[string]map[string]struct{}, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read lane header: %w", err)
	}
	cols, err := detectColumns(header)
	if err != nil {
		return nil, err
	}

	lanes := map[string]map[string]map[string]struct{}{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read lane row: %w", err)
		}
		if len(record) <= cols.widest() {
			continue
		}

		year := clean(record[cols.year])
		from := clean(record[cols.from])
		to := clean(record[cols.to])
		if year == "" || from == "" || to == "" {
			continue
		}

		byOrigin, ok := lanes[year]
		if !ok {
			byOrigin = map[string]map[string]struct{}{}
			lanes[year] = byOrigin
		}
		dests, ok := byOrigin[from]
		if !ok {
			dests = map[string]struct{}{}
			byOrigin[from] = dests
		}
		dests[to] = struct{}{}
	}

	return lanes, nil
}

func clean(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}

// IsValidRoute reports whether a lane from fromPort to toPort existed in year.
// Lanes are directional. Unloaded validators and years without data allow everything.
func (v *Validator) IsValidRoute(fromPort, toPort, year string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.state != Ready {
		return true
	}
	byOrigin, ok := v.lanes[year]
	if !ok || len(byOrigin) == 0 {
		return true
	}
	_, ok = byOrigin[fromPort][toPort]
	return ok
}

// ValidDestinations lists ports reachable from fromPort in year, sorted
func (v *Validator) ValidDestinations(fromPort, year string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	dests := v.lanes[year][fromPort]
	out := make([]string, 0, len(dests))
	for d := range dests {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// AvailableYears lists years with lane data in ascending order
func (v *Validator) AvailableYears() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string{}, v.years...)
}

// RouteCount returns how many directional lanes exist for year
func (v *Validator) RouteCount(year string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	n := 0
	for _, dests := range v.lanes[year] {
		n += len(dests)
	}
	return n
}

// State returns the current load state
func (v *Validator) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
