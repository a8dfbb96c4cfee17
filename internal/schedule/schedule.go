// Package schedule holds signal-timing plans in their compact form and expands
// them into the per-tick green-street sequences intersections consume.
package schedule

import (
	"github.com/samber/lo"

	"github.com/cxd309/signal-engine/internal/graph"
	"github.com/cxd309/signal-engine/internal/simerr"
)

// Item keeps Street green for Duration consecutive ticks of the cycle.
type Item struct {
	Street   string `json:"street"`
	Duration int    `json:"duration"` // ticks
}

// Entry is the cycle of one intersection.
type Entry struct {
	Intersection graph.IntersectionID `json:"intersection"`
	Items        []Item               `json:"items"`
}

// CycleLength returns the number of ticks in one repetition of the entry.
func (e Entry) CycleLength() int {
	return lo.SumBy(e.Items, func(it Item) int { return it.Duration })
}

// Plan is a complete signal-timing plan. Intersections it does not mention
// keep an empty schedule and never turn green.
type Plan struct {
	Entries []Entry `json:"entries"`
}

// Expand resolves every street against net and returns one expanded sequence
// per intersection, indexed by intersection id. Repeated entries for the same
// intersection append to its sequence.
func (p Plan) Expand(net *graph.Network) ([][]graph.StreetID, error) {
	if len(p.Entries) > net.Intersections() {
		return nil, simerr.Malformed("plan schedules %d intersections, network has %d", len(p.Entries), net.Intersections())
	}
	out := make([][]graph.StreetID, net.Intersections())
	for _, e := range p.Entries {
		if e.Intersection < 0 || e.Intersection >= net.Intersections() {
			return nil, simerr.Malformed("intersection %d out of range", e.Intersection)
		}
		for _, it := range e.Items {
			s, err := net.StreetByName(it.Street)
			if err != nil {
				return nil, simerr.Malformed("intersection %d: %v", e.Intersection, err)
			}
			if s.To != e.Intersection {
				return nil, simerr.Malformed("intersection %d: street %q ends at intersection %d", e.Intersection, s.Name, s.To)
			}
			if it.Duration < 0 {
				return nil, simerr.Malformed("intersection %d: street %q: negative duration %d", e.Intersection, s.Name, it.Duration)
			}
			out[e.Intersection] = append(out[e.Intersection],
				lo.Times(it.Duration, func(int) graph.StreetID { return s.ID })...)
		}
	}
	return out, nil
}
