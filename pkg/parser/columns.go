package parser

import "strings"

// Standard order column names.
const (
	ColOrderID     = "PI NO"
	ColCount       = "Yarn Count"
	ColComposition = "Composition"
	ColYarnType    = "Yarn Type"
	ColColorCode   = "Color Code"
	ColColorFamily = "ColorFamilyName"
	ColQuantity    = "Quantity"
	ColDueDate     = "Due Date"
	ColColor       = "Color"
	ColInvoiceDate = "Invoice Date"
	ColCustomer    = "Customer"
)

// columnAliases maps each standard column to the headers it is known by.
var columnAliases = []struct {
	std     string
	aliases []string
}{
	{ColOrderID, []string{"PI NO", "PI No", "PI Number", "PI#", "Invoice No"}},
	{ColCount, []string{"Yarn Count", "Count", "Count (Ne)", "Ne Count", "Count Ne", "Count Ne/"}},
	{ColComposition, []string{"Composition", "Blend", "Material Composition"}},
	{ColYarnType, []string{"Yarn Type", "Type", "YarnType"}},
	{ColColorCode, []string{"Color Code", "Colour Code", "ColorCode", "Shade Code"}},
	{ColColorFamily, []string{"ColorFamilyName", "Color Family", "Colour Family", "Family Color"}},
	{ColQuantity, []string{"Quantity", "Qty", "Quantity (KG)", "Quantity (kg)", "QTY (KG)", "QTY (kg)", "Order Qty (KG)"}},
	{ColDueDate, []string{"Due Date", "Delivery Date", "Customer requested Delivery Date"}},
	{ColColor, []string{"Color", "Shade", "Colour"}},
	{ColInvoiceDate, []string{"Invoice Date", "PI Date"}},
	{ColCustomer, []string{"Customer", "Buyer"}},
}

// requiredColumns must be present for an order table to be usable.
var requiredColumns = []string{ColOrderID, ColCount, ColComposition, ColYarnType, ColQuantity}

var aliasIndex = func() map[string]string {
	m := make(map[string]string)
	for _, c := range columnAliases {
		for _, a := range c.aliases {
			if _, ok := m[a]; !ok {
				m[a] = c.std
			}
		}
	}
	return m
}()

// StandardColumn maps a header to its standard name. Unknown headers are
// returned trimmed.
func StandardColumn(header string) string {
	h := strings.TrimSpace(header)
	if std, ok := aliasIndex[h]; ok {
		return std
	}
	return h
}

// detectHeader returns the index of the row among the first limit rows
// with the most known column aliases. Ties keep the earliest row.
func detectHeader(rows [][]string, limit int) int {
	best, bestScore := 0, 0
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		score := 0
		for _, v := range rows[i] {
			if _, ok := aliasIndex[strings.TrimSpace(v)]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// columnIndex maps standard column names to positions in header. The first
// occurrence of a column wins.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		std := StandardColumn(h)
		if std == "" {
			continue
		}
		if _, ok := idx[std]; !ok {
			idx[std] = i
		}
	}
	return idx
}

func requiredHits(idx map[string]int) int {
	n := 0
	for _, c := range requiredColumns {
		if _, ok := idx[c]; ok {
			n++
		}
	}
	return n
}

// lookup returns the column position or -1.
func lookup(idx map[string]int, col string) int {
	if i, ok := idx[col]; ok {
		return i
	}
	return -1
}
