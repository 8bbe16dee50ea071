// Package sequence orders batches to keep color-family changeovers short.
//
// The walk is greedy: from the current family it moves to the first
// adjacent family still waiting, falling back to the first waiting family
// in encounter order. It is deterministic but not optimal.
package sequence

import (
	"sort"
	"time"

	"github.com/cyclo/millplan/internal/model"
)

// Graph is an immutable directed adjacency list of color families.
type Graph struct {
	adj map[string][]string
}

// NewGraph builds a Graph. Family names are normalized so lookups ignore
// case and surrounding whitespace.
func NewGraph(adjacency map[string][]string) *Graph {
	g := &Graph{adj: make(map[string][]string, len(adjacency))}
	for from, to := range adjacency {
		key := model.NormalizeColorFamily(from)
		neighbors := make([]string, 0, len(to))
		for _, n := range to {
			neighbors = append(neighbors, model.NormalizeColorFamily(n))
		}
		g.adj[key] = append(g.adj[key], neighbors...)
	}
	return g
}

// Neighbors returns the ordered nearest families of family.
func (g *Graph) Neighbors(family string) []string {
	return g.adj[model.NormalizeColorFamily(family)]
}

// Has reports whether family has an adjacency entry.
func (g *Graph) Has(family string) bool {
	_, ok := g.adj[model.NormalizeColorFamily(family)]
	return ok
}

// Sequencer orders batches by walking a Graph.
type Sequencer struct {
	graph *Graph
}

// New returns a Sequencer over graph.
func New(graph *Graph) *Sequencer {
	return &Sequencer{graph: graph}
}

// Walk returns the visitation order of families, starting from start.
// Every family in families appears exactly once.
func (s *Sequencer) Walk(start string, families []string) []string {
	remaining := make([]string, 0, len(families))
	queued := make(map[string]bool, len(families))
	for _, f := range families {
		if f == start || queued[f] {
			continue
		}
		queued[f] = true
		remaining = append(remaining, f)
	}

	current := start
	seq := append(make([]string, 0, len(remaining)+1), current)
	visited := map[string]bool{current: true}

	for len(remaining) > 0 {
		idx := s.next(current, remaining, visited)
		current = remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		seq = append(seq, current)
		visited[current] = true
	}
	return seq
}

// next returns the index in remaining of the family to visit after current.
func (s *Sequencer) next(current string, remaining []string, visited map[string]bool) int {
	for _, n := range s.graph.Neighbors(current) {
		if visited[n] {
			continue
		}
		for i, r := range remaining {
			if r == n {
				return i
			}
		}
	}
	return 0
}

// Order returns the batches sorted by (family visit rank, due priority,
// required quantity descending), with Rank set to each batch's 1-based
// position. The input slice is not modified.
func (s *Sequencer) Order(batches []model.Batch) []model.Batch {
	out := make([]model.Batch, len(batches))
	copy(out, batches)
	if len(out) == 0 {
		return out
	}

	var families []string
	earliest := make(map[string]time.Time)
	for _, b := range out {
		f := b.ColorFamilyNorm
		due, seen := earliest[f]
		if !seen {
			families = append(families, f)
			earliest[f] = b.DuePriority
			continue
		}
		if b.DuePriority.Before(due) {
			earliest[f] = b.DuePriority
		}
	}

	rank := map[string]int{families[0]: 0}
	if len(families) > 1 {
		start := families[0]
		for _, f := range families[1:] {
			if earliest[f].Before(earliest[start]) {
				start = f
			}
		}
		for i, f := range s.Walk(start, families) {
			rank[f] = i
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := rank[a.ColorFamilyNorm], rank[b.ColorFamilyNorm]; ra != rb {
			return ra < rb
		}
		if !a.DuePriority.Equal(b.DuePriority) {
			return a.DuePriority.Before(b.DuePriority)
		}
		return a.RequiredQty > b.RequiredQty
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
