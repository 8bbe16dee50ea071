// Package model defines core data structures for millplan.
package model

import "time"

// Order is one customer order line as ingested from the order workbook.
// Orders are never mutated after loading.
type Order struct {
	// ID is the proforma invoice number (PI NO).
	ID string `json:"order_id"`

	// Count is the yarn count in Ne. Zero means the count was missing
	// or could not be parsed.
	Count int `json:"count"`

	// Composition is the raw blend text as written on the order.
	Composition string `json:"composition"`

	YarnType    string  `json:"yarn_type"`
	ColorCode   string  `json:"color_code"`
	ColorFamily string  `json:"color_family"`
	Quantity    float64 `json:"quantity_kg"`

	// DueDate is optional.
	DueDate *time.Time `json:"due_date,omitempty"`

	Customer string `json:"customer,omitempty"`

	// Row is the 1-based source row, kept for error reporting.
	Row int `json:"row,omitempty"`
}

// EstimatedOrder is an order that passed throughput estimation.
type EstimatedOrder struct {
	Order

	// Blend is the canonical blend code resolved by the normalizer.
	Blend string `json:"blend"`

	// Hours is the estimated machine time on the fastest eligible line.
	Hours float64 `json:"calculated_hours"`
}

// UnmatchedOrder is an order that could not be planned, with the reason.
type UnmatchedOrder struct {
	OrderID     string  `json:"order_id"`
	Count       int     `json:"count"`
	Composition string  `json:"blend"`
	YarnType    string  `json:"yarn_type"`
	ColorCode   string  `json:"color_code"`
	ColorFamily string  `json:"color_family"`
	Quantity    float64 `json:"required_qty"`
	Code        string  `json:"code"`
	Reason      string  `json:"reason"`
}

// NewUnmatched builds an UnmatchedOrder from an order and a failure.
func NewUnmatched(o Order, code, reason string) UnmatchedOrder {
	return UnmatchedOrder{
		OrderID:     o.ID,
		Count:       o.Count,
		Composition: o.Composition,
		YarnType:    o.YarnType,
		ColorCode:   o.ColorCode,
		ColorFamily: o.ColorFamily,
		Quantity:    o.Quantity,
		Code:        code,
		Reason:      reason,
	}
}
