package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ToggleOutcome tags what a toggle did to the route
type ToggleOutcome string

const (
	Added                ToggleOutcome = "added"
	Removed              ToggleOutcome = "removed"
	RejectedInvalidRoute ToggleOutcome = "rejected_invalid_route"
	// the stop's own road leg is blocked, so it was truncated straight back out
	RejectedBlockedRoad ToggleOutcome = "rejected_blocked_road"
)

// maxConcurrentLookups bounds in-flight road lookups per recompute
const maxConcurrentLookups = 4

var ErrStopNotFound = errors.New("stop is not on the route")

// RouteView is a consistent published snapshot of a DeliveryStack
type RouteView struct {
	Start      *Location      `json:"start,omitempty"`
	Stops      []Location     `json:"stops"`
	Segments   []RouteSegment `json:"segments"`
	Result     DeliveryResult `json:"result"`
	Generation uint64         `json:"generation"`
	Pending    bool           `json:"pending"` // a newer stack shape has not been priced yet
}

// Truncation describes stops dropped because a road leg was blocked
type Truncation struct {
	BlockedFrom Location   `json:"blocked_from"`
	Removed     []Location `json:"removed"`
	Message     string     `json:"message"`
}

// ToggleResult is returned by Toggle and Remove
type ToggleResult struct {
	Outcome    ToggleOutcome `json:"outcome"`
	Location   Location      `json:"location"`
	Message    string        `json:"message"`
	Truncation *Truncation   `json:"truncation,omitempty"`
	Superseded bool          `json:"superseded,omitempty"`
	Route      RouteView     `json:"route"`
}

// RecomputeResult is returned by Recompute
type RecomputeResult struct {
	Route      RouteView   `json:"route"`
	Truncation *Truncation `json:"truncation,omitempty"`
	Superseded bool        `json:"superseded,omitempty"`
}

// DeliveryStack is the ordered list of stops a player picked for the active quest.
//
// Every mutation bumps a generation counter and triggers a full recompute. Road
// lookups run without holding the lock; a recompute whose captured generation is no
// longer current when the lookups finish is discarded, so the newest stack shape
// always wins regardless of which lookup returns last.
type DeliveryStack struct {
	mu         sync.Mutex
	roads      RoadDistanceProvider
	validator  RouteValidator
	logger     zerolog.Logger
	start      *Location
	stops      []Location
	generation uint64
	published  RouteView
}

// NewDeliveryStack creates an empty stack. Nil collaborators fall back to
// straight-line road distances and an allow-all validator.
func NewDeliveryStack(roads RoadDistanceProvider, validator RouteValidator, logger zerolog.Logger) *DeliveryStack {
	if roads == nil {
		roads = straightLineRoads{}
	}
	if validator == nil {
		validator = allowAllRoutes{}
	}

	s := &DeliveryStack{
		roads:     roads,
		validator: validator,
		logger:    logger,
	}
	s.publishLocked(nil)
	return s
}

// SetStart sets the quest start point, which is element zero of every route,
// and clears all stops.
func (s *DeliveryStack) SetStart(start *Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if start != nil {
		st := *start
		s.start = &st
	} else {
		s.start = nil
	}
	s.stops = nil
	s.generation++
	s.publishLocked(nil)
}

// Reset empties the stops and zeroes the aggregate; the start point is kept
func (s *DeliveryStack) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stops = nil
	s.generation++
	s.publishLocked(nil)
}

// Toggle removes loc when it is already a stop, otherwise appends it.
// A port appended directly after another port is checked against the
// historical lanes for year and rejected without mutation when invalid.
func (s *DeliveryStack) Toggle(ctx context.Context, loc Location, year string) ToggleResult {
	s.mu.Lock()

	if idx := s.indexLocked(loc.Key()); idx >= 0 {
		s.stops = slices.Delete(slices.Clone(s.stops), idx, idx+1)
		s.generation++
		s.mu.Unlock()

		rec := s.Recompute(ctx)
		return s.toggleResult(Removed, loc, fmt.Sprintf("Removed %s from the route", loc.Name), rec)
	}

	if loc.IsPort() {
		if prev, ok := s.previousLocked(); ok && prev.IsPort() && !s.validator.IsValidRoute(prev.Name, loc.Name, year) {
			view := s.viewLocked()
			s.mu.Unlock()

			return ToggleResult{
				Outcome:  RejectedInvalidRoute,
				Location: loc,
				Message:  fmt.Sprintf("No shipping lane from %s to %s in %s", prev.Name, loc.Name, year),
				Route:    view,
			}
		}
	}

	s.stops = append(slices.Clone(s.stops), loc)
	s.generation++
	s.mu.Unlock()

	rec := s.Recompute(ctx)
	outcome := Added
	if rec.Truncation != nil && slices.ContainsFunc(rec.Truncation.Removed, loc.SameAs) {
		outcome = RejectedBlockedRoad
	}
	return s.toggleResult(outcome, loc, fmt.Sprintf("Added %s to the route", loc.Name), rec)
}

// Remove deletes loc from the route wherever it sits
func (s *DeliveryStack) Remove(ctx context.Context, loc Location) (ToggleResult, error) {
	s.mu.Lock()
	idx := s.indexLocked(loc.Key())
	if idx < 0 {
		s.mu.Unlock()
		return ToggleResult{}, fmt.Errorf("%w: %s", ErrStopNotFound, loc.Key())
	}
	s.stops = slices.Delete(slices.Clone(s.stops), idx, idx+1)
	s.generation++
	s.mu.Unlock()

	rec := s.Recompute(ctx)
	return s.toggleResult(Removed, loc, fmt.Sprintf("Removed %s from the route", loc.Name), rec), nil
}

// Recompute prices every leg of (start, stop1, stop2, ...) and publishes the
// result if the stack has not changed since the recompute began.
func (s *DeliveryStack) Recompute(ctx context.Context) RecomputeResult {
	s.mu.Lock()
	gen := s.generation
	stops := slices.Clone(s.stops)
	var start *Location
	if s.start != nil {
		st := *s.start
		start = &st
	}
	s.mu.Unlock()

	legs := buildLegs(start, stops)
	segments, blockedAt := s.priceLegs(ctx, legs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug().
			Uint64("generation", gen).
			Uint64("current", s.generation).
			Msg("Discarding superseded route recompute")
		return RecomputeResult{Route: s.viewLocked(), Superseded: true}
	}

	var truncation *Truncation
	if blockedAt >= 0 {
		blocked := legs[blockedAt]
		removed := slices.Clone(stops[blocked.stopIndex:])
		s.stops = slices.Clone(stops[:blocked.stopIndex])
		s.generation++
		segments = segments[:blockedAt]

		truncation = &Truncation{
			BlockedFrom: blocked.from,
			Removed:     removed,
			Message:     truncationMessage(blocked.from, removed),
		}
		s.logger.Info().
			Str("from", blocked.from.Name).
			Int("removed", len(removed)).
			Msg("Truncated route at blocked road leg")
	}

	s.publishLocked(segments)
	return RecomputeResult{Route: s.viewLocked(), Truncation: truncation}
}

// View returns the last published snapshot
func (s *DeliveryStack) View() RouteView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Stops returns the current stop sequence, including unpublished changes
func (s *DeliveryStack) Stops() []Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.stops)
}

// Generation returns the current mutation counter
func (s *DeliveryStack) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *DeliveryStack) toggleResult(outcome ToggleOutcome, loc Location, msg string, rec RecomputeResult) ToggleResult {
	if rec.Truncation != nil {
		msg = rec.Truncation.Message
	}
	return ToggleResult{
		Outcome:    outcome,
		Location:   loc,
		Message:    msg,
		Truncation: rec.Truncation,
		Superseded: rec.Superseded,
		Route:      rec.Route,
	}
}

func (s *DeliveryStack) indexLocked(key LocationKey) int {
	return slices.IndexFunc(s.stops, func(l Location) bool { return l.Key() == key })
}

// previousLocked returns the point a new stop would be appended after
func (s *DeliveryStack) previousLocked() (Location, bool) {
	if n := len(s.stops); n > 0 {
		return s.stops[n-1], true
	}
	if s.start != nil {
		return *s.start, true
	}
	return Location{}, false
}

func (s *DeliveryStack) publishLocked(segments []RouteSegment) {
	if segments == nil {
		segments = []RouteSegment{}
	}

	var result DeliveryResult
	for _, seg := range segments {
		result = result.Add(seg)
	}

	var start *Location
	if s.start != nil {
		st := *s.start
		start = &st
	}

	stops := slices.Clone(s.stops)
	if stops == nil {
		stops = []Location{}
	}

	s.published = RouteView{
		Start:      start,
		Stops:      stops,
		Segments:   segments,
		Result:     result,
		Generation: s.generation,
	}
}

func (s *DeliveryStack) viewLocked() RouteView {
	v := s.published
	v.Stops = slices.Clone(v.Stops)
	v.Segments = slices.Clone(v.Segments)
	if v.Start != nil {
		st := *v.Start
		v.Start = &st
	}
	v.Pending = v.Generation != s.generation
	return v
}

// leg is one priced hop; stopIndex is the index of its destination in the stops
type leg struct {
	from      Location
	to        Location
	stopIndex int
}

func buildLegs(start *Location, stops []Location) []leg {
	legs := make([]leg, 0, len(stops))
	prev := start
	for i := range stops {
		if prev != nil {
			legs = append(legs, leg{from: *prev, to: stops[i], stopIndex: i})
		}
		prev = &stops[i]
	}
	return legs
}

// priceLegs prices legs concurrently and returns the index of the first blocked
// leg, or -1.
func (s *DeliveryStack) priceLegs(ctx context.Context, legs []leg) ([]RouteSegment, int) {
	segments := make([]RouteSegment, len(legs))
	blocked := make([]bool, len(legs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentLookups)
	for i, l := range legs {
		g.Go(func() error {
			segments[i], blocked[i] = s.priceLeg(ctx, l)
			return nil
		})
	}
	_ = g.Wait()

	return segments, slices.Index(blocked, true)
}

func (s *DeliveryStack) priceLeg(ctx context.Context, l leg) (RouteSegment, bool) {
	method := MethodFor(l.to)
	if method == Ship {
		return NewSegment(l.from, l.to, Ship, HaversineKm(l.from.Coords, l.to.Coords)), false
	}

	km, err := s.roads.RoadDistance(ctx, l.from.Coords, l.to.Coords)
	if err != nil {
		if errors.Is(err, ErrRouteBlocked) {
			return NewSegment(l.from, l.to, Truck, 0), true
		}

		s.logger.Warn().
			Err(err).
			Str("from", l.from.Name).
			Str("to", l.to.Name).
			Msg("Road distance lookup failed, counting leg as 0 km")
		seg := NewSegment(l.from, l.to, Truck, 0)
		seg.Degraded = true
		return seg, false
	}

	return NewSegment(l.from, l.to, Truck, km), false
}

func truncationMessage(from Location, removed []Location) string {
	switch len(removed) {
	case 0:
		return fmt.Sprintf("No road-only route from %s", from.Name)
	case 1:
		return fmt.Sprintf("No road-only route from %s to %s; removed %s from the route",
			from.Name, removed[0].Name, removed[0].Name)
	default:
		return fmt.Sprintf("No road-only route from %s to %s; removed %d stops (%s through %s)",
			from.Name, removed[0].Name, len(removed), removed[0].Name, removed[len(removed)-1].Name)
	}
}
