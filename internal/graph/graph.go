// Package graph provides the road network: directed streets between numbered
// intersections, stored in an arena indexed by StreetID.
package graph

import (
	"fmt"

	"github.com/cxd309/signal-engine/internal/simerr"
)

// IntersectionID is the dense numeric id of an intersection, 0 ≤ id < count.
type IntersectionID = int

// StreetID is the interned id of a street: its index in the network arena.
type StreetID int

// NoStreet is the zero value used where no street applies.
const NoStreet StreetID = -1

// StreetData is the serialisable description of one street.
type StreetData struct {
	Name   string         `json:"name"`
	From   IntersectionID `json:"from"`
	To     IntersectionID `json:"to"`
	Length int            `json:"length"` // ticks to cross
}

// NetworkData is the serialisable input representation of a road network.
type NetworkData struct {
	Intersections int          `json:"intersections"`
	Streets       []StreetData `json:"streets"`
}

// Street is an immutable directed road segment.
type Street struct {
	ID     StreetID
	Name   string
	From   IntersectionID
	To     IntersectionID
	Length int
}

// Network is the immutable road network. It is safe for concurrent readers
// once built.
type Network struct {
	intersections int
	streets       []Street
	byName        map[string]StreetID
	incoming      [][]StreetID // intersection → streets ending there, in load order
}

// NewNetwork builds a Network from NetworkData, returning an error wrapping
// simerr.ErrMalformedInput if any street is invalid.
func NewNetwork(data NetworkData) (*Network, error) {
	if data.Intersections < 0 {
		return nil, simerr.Malformed("negative intersection count %d", data.Intersections)
	}
	n := &Network{
		intersections: data.Intersections,
		streets:       make([]Street, 0, len(data.Streets)),
		byName:        make(map[string]StreetID, len(data.Streets)),
		incoming:      make([][]StreetID, data.Intersections),
	}
	for _, s := range data.Streets {
		if _, err := n.addStreet(s); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// addStreet appends a street to the arena.
func (n *Network) addStreet(s StreetData) (StreetID, error) {
	if s.Name == "" {
		return NoStreet, simerr.Malformed("street with empty name")
	}
	if _, exists := n.byName[s.Name]; exists {
		return NoStreet, simerr.Malformed("street %q already exists", s.Name)
	}
	if !n.validIntersection(s.From) {
		return NoStreet, simerr.Malformed("street %q: origin intersection %d out of range", s.Name, s.From)
	}
	if !n.validIntersection(s.To) {
		return NoStreet, simerr.Malformed("street %q: destination intersection %d out of range", s.Name, s.To)
	}
	if s.Length <= 0 {
		return NoStreet, simerr.Malformed("street %q: length %d must be positive", s.Name, s.Length)
	}
	id := StreetID(len(n.streets))
	n.streets = append(n.streets, Street{ID: id, Name: s.Name, From: s.From, To: s.To, Length: s.Length})
	n.byName[s.Name] = id
	n.incoming[s.To] = append(n.incoming[s.To], id)
	return id, nil
}

func (n *Network) validIntersection(id IntersectionID) bool {
	return id >= 0 && id < n.intersections
}

// Intersections returns the number of intersections.
func (n *Network) Intersections() int { return n.intersections }

// Streets returns the number of streets.
func (n *Network) Streets() int { return len(n.streets) }

// Street returns the street with the given id. The id must come from this
// network; an unknown id panics like an out-of-range slice index.
func (n *Network) Street(id StreetID) Street { return n.streets[id] }

// StreetByName looks up a street by its name.
func (n *Network) StreetByName(name string) (Street, error) {
	id, ok := n.byName[name]
	if !ok {
		return Street{}, fmt.Errorf("street %q not found", name)
	}
	return n.streets[id], nil
}

// Incoming returns the ids of the streets ending at intersection id, in load
// order. The returned slice must not be modified.
func (n *Network) Incoming(id IntersectionID) []StreetID {
	if !n.validIntersection(id) {
		return nil
	}
	return n.incoming[id]
}

// ResolveRoute maps a route of street names to street ids.
func (n *Network) ResolveRoute(names []string) ([]StreetID, error) {
	route := make([]StreetID, len(names))
	for i, name := range names {
		id, ok := n.byName[name]
		if !ok {
			return nil, simerr.Malformed("route entry %d: unknown street %q", i, name)
		}
		route[i] = id
	}
	return route, nil
}
