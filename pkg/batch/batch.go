// Package batch groups estimated orders into schedulable batches.
package batch

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cyclo/millplan/internal/model"
)

// Options controls batch construction.
type Options struct {
	// UseDueDates sets each batch's DuePriority to the earliest due date
	// among its orders. Otherwise every batch gets model.MaxDue.
	UseDueDates bool
}

type group struct {
	batch model.Batch
	ids   []string
}

// Aggregate groups orders sharing (count, yarn type, blend, color code,
// color family). Batches are returned in ascending key order; order IDs
// within a batch keep encounter order.
func Aggregate(orders []model.EstimatedOrder, opts Options) []model.Batch {
	groups := make(map[model.BatchKey]*group)
	var keys []model.BatchKey

	for _, o := range orders {
		key := model.BatchKey{
			Count:       o.Count,
			YarnType:    o.YarnType,
			Blend:       o.Blend,
			ColorCode:   o.ColorCode,
			ColorFamily: o.ColorFamily,
		}
		g, ok := groups[key]
		if !ok {
			g = &group{batch: model.Batch{
				Key:             key,
				ID:              ID(key),
				ColorFamilyNorm: model.NormalizeColorFamily(key.ColorFamily),
				DuePriority:     model.MaxDue,
			}}
			groups[key] = g
			keys = append(keys, key)
		}

		g.ids = append(g.ids, o.ID)
		g.batch.RequiredQty += o.Quantity
		g.batch.EstimatedHours += o.Hours
		if o.DueDate != nil && (g.batch.EarliestDue == nil || o.DueDate.Before(*g.batch.EarliestDue)) {
			due := *o.DueDate
			g.batch.EarliestDue = &due
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })

	batches := make([]model.Batch, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		g.batch.Orders = strings.Join(g.ids, ", ")
		if opts.UseDueDates && g.batch.EarliestDue != nil {
			g.batch.DuePriority = dayOf(*g.batch.EarliestDue)
		}
		batches = append(batches, g.batch)
	}
	return batches
}

// ID derives the batch identifier: count, first token of the blend code
// and color code joined by "-", with spaces replaced by "_".
func ID(k model.BatchKey) string {
	prefix := ""
	if fields := strings.Fields(k.Blend); len(fields) > 0 {
		prefix = fields[0]
	}
	id := strconv.Itoa(k.Count) + "-" + prefix + "-" + k.ColorCode
	return strings.ReplaceAll(id, " ", "_")
}

func keyLess(a, b model.BatchKey) bool {
	if a.Count != b.Count {
		return a.Count < b.Count
	}
	if a.YarnType != b.YarnType {
		return a.YarnType < b.YarnType
	}
	if a.Blend != b.Blend {
		return a.Blend < b.Blend
	}
	if a.ColorCode != b.ColorCode {
		return a.ColorCode < b.ColorCode
	}
	return a.ColorFamily < b.ColorFamily
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
