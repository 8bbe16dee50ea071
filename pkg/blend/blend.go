// Package blend resolves free-text yarn compositions to canonical blend codes.
package blend

import "strings"

// Normalizer maps composition text to blend codes. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	table map[string]string
}

// New builds a Normalizer from a composition → code table. Keys are
// whitespace-collapsed, and a second entry without trademark marks is
// indexed so "CYCLO Recycled Cotton" resolves like "CYCLO® Recycled Cotton".
// A written key always beats a stripped one. Stripped keys that would map
// to different codes are left out.
func New(table map[string]string) *Normalizer {
	n := &Normalizer{table: make(map[string]string, len(table)*2)}
	for k, v := range table {
		n.table[Clean(k)] = v
	}

	bare := make(map[string]string)
	ambiguous := make(map[string]bool)
	for k, v := range table {
		key := Clean(k)
		b := stripMarks(key)
		if b == key {
			continue
		}
		if cur, ok := bare[b]; ok && cur != v {
			ambiguous[b] = true
			continue
		}
		bare[b] = v
	}
	for b, v := range bare {
		if ambiguous[b] {
			continue
		}
		if _, exists := n.table[b]; !exists {
			n.table[b] = v
		}
	}
	return n
}

// Normalize returns the canonical code for composition.
func (n *Normalizer) Normalize(composition string) (string, bool) {
	key := Clean(composition)
	if key == "" {
		return "", false
	}
	if code, ok := n.table[key]; ok {
		return code, true
	}
	code, ok := n.table[stripMarks(key)]
	return code, ok
}

// Len returns the number of indexed keys.
func (n *Normalizer) Len() int {
	return len(n.table)
}

// Clean trims and collapses runs of whitespace to single spaces.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var markReplacer = strings.NewReplacer("®", "", "™", "")

func stripMarks(s string) string {
	return Clean(markReplacer.Replace(s))
}
