package config

import "github.com/cyclo/millplan/internal/model"

// DefaultLines returns the five-line mill layout.
func DefaultLines() []model.LineConfig {
	return []model.LineConfig{
		{Name: "Line 1", Machines: 4, SpindlesPerMachine: 460, DailyCapacityKg: 5000},
		{Name: "Line 2", Machines: 3, SpindlesPerMachine: 460, DailyCapacityKg: 5000},
		{Name: "Line 3", Machines: 3, SpindlesPerMachine: 460, DailyCapacityKg: 5000},
		{Name: "Line 4", Machines: 2, SpindlesPerMachine: 240, DailyCapacityKg: 2000},
		{Name: "Line 5", Machines: 2, SpindlesPerMachine: 240, DailyCapacityKg: 2000},
	}
}

// DefaultShifts returns three back-to-back 8h shifts.
func DefaultShifts() []model.Shift {
	return []model.Shift{
		{Name: "A", StartMinute: 0, DurationMinutes: 480},
		{Name: "B", StartMinute: 480, DurationMinutes: 480},
		{Name: "C", StartMinute: 960, DurationMinutes: 480},
	}
}

// DefaultColors returns the nearest-family adjacency used to chain color
// families with minimal changeover.
func DefaultColors() map[string][]string {
	return map[string][]string{
		"Red":            {"Maroon", "Rust Melange", "Orange"},
		"Green":          {"Midnight Olive", "Pearl Teal"},
		"Blue":           {"Denim", "Midnight Blue", "Pearl Teal"},
		"Beige":          {"Stone", "Cream", "Natural"},
		"White":          {"Cream", "Grey"},
		"Yellow":         {"Dijon", "Cream"},
		"Stone":          {"Beige", "Natural", "Grey", "Anthracite"},
		"Anthracite":     {"Stone", "Grey"},
		"Midnight Olive": {"Green", "Brown"},
		"Golden Mocha":   {"Brown", "Chocolate"},
		"Charcoal":       {"Grey", "Black"},
		"Midnight Blue":  {"Blue", "Denim"},
		"Pearl Teal":     {"Aqua", "Turquoise", "Green"},
		"Maroon":         {"Red", "Rust Melange", "Brown"},
		"Brown":          {"Chocolate", "Golden Mocha", "Maroon"},
		"Rust Melange":   {"Maroon", "Red", "Brown"},
		"Rose":           {"Pink", "Magenta"},
		"Pink":           {"Rose", "Magenta", "Red"},
		"Grey":           {"Charcoal", "White", "Stone"},
		"Purple":         {"Magenta", "Pink"},
		"Chocolate":      {"Brown", "Golden Mocha"},
		"Aqua":           {"Turquoise", "Pearl Teal"},
		"Black":          {"Charcoal", "Grey"},
		"Cream":          {"Beige", "White", "Natural"},
		"Denim":          {"Blue", "Midnight Blue"},
		"Dijon":          {"Yellow", "Brown"},
		"Natural":        {"Beige", "Cream", "Stone"},
		"Orange":         {"Red", "Rust Melange"},
		"Turquoise":      {"Aqua", "Pearl Teal"},
		"Magenta":        {"Pink", "Rose", "Purple"},
	}
}

// DefaultBlends returns the built-in composition → blend code table.
// Keys are matched after whitespace collapsing, so spacing here is free.
func DefaultBlends() map[string]string {
	return map[string]string{
		"70% CYCLO® Recycled Cotton 30% Recycled Polyester":                      "70/30 CYL Cot/poly",
		"70% CYCLO® Recycled Cotton 30% Polyester":                               "70/30 CYL Cot/poly",
		"30% Polyester 70% CYCLO® Recycled Cotton":                               "70/30 CYL Cot/poly",
		"70% CYCLO® Recycled Cotton 30% Recycled Polyester (BPA free)":           "70/30 CYL Cot/poly",
		"80% CYCLO® Recycled Cotton 20% Recycled Polyester":                      "80/20 CYL Cot/poly",
		"90% CYCLO® Recycled Cotton 10% Recycled Polyester":                      "90/10 CYL Cot/poly",
		"60% CYCLO® Recycled Cotton 40% Recycled Polyester":                      "60/40 CYL Cot/poly",
		"60% CYCLO® Recycled Cotton 40% Polyester":                               "60/40 CYL Cot/poly",
		"40% Polyester 60% CYCLO® Recycled Cotton":                               "60/40 CYL Cot/poly",
		"50% CYCLO® Recycled Cotton 50% Recycled Polyester":                      "50/50 CYL Cot/poly",
		"80% CYCLO® Recycled Cotton 20% Recycled Polyester 0.001% Tracer Fibers": "80/20 CYL Cot/poly Fiber tracer 0.001%",
		"70% CYCLO® Recycled Cotton 30% Recycled Polyester 0.001% Tracer Fibers": "70/30 CYL Cot/poly Fiber tracer 0.001%",
		"50% CYCLO® Recycled Cotton 50% Recycled Polyester 0.001% Tracer Fibers": "50/50 CYL Cot/poly Fiber tracer 0.001%",
		"50% CYCLO® Recycled Cotton 30% Recycled Polyester 20% Nylon":            "50/30/20 CYL Cot/poly/nylon",
		"52% CYCLO® Recycled Cotton 27% Polyester 21% Nylon":                     "52/27/23 CYL Cot/poly/nylon",
		"50% CYCLO® Recycled Cotton 50% ECOVERO™ Viscose":                        "50/50 ECOVERO™ Viscose/Cyl Cot",
		"50% ECOVERO™ Viscose 50% CYCLO® Recycled Cotton":                        "50/50 ECOVERO™ Viscose/Cyl Cot",
		"50% CYCLO® Recycled Cotton 50% Liva Reviva™ Viscose":                    "50/50 Liva Reviva™ Viscose/Cyl Cot",
		"50% Liva Reviva™ Viscose 50% CYCLO® Recycled Cotton":                    "50/50 Liva Reviva™ Viscose/Cyl Cot",
		"50% CYCLO® Recycled Cotton 50% Lyocell":                                 "50/50 Lyocell/Cyl Cot",
		"50% Lyocell 50% CYCLO® Recycled Cotton":                                 "50/50 Lyocell/Cyl Cot",
		"70% CYCLO® Recycled Cotton 30% Lyocell":                                 "30/70 Lyocell/Cyl Cot",
		"30% Lyocell 70% CYCLO® Recycled Cotton":                                 "30/70 Lyocell/Cyl Cot",
		"50% CYCLO® Recycled Cotton 50% Organic Cotton":                          "50/50 Org/Cyl Cot",
		"50% Organic Cotton 50% CYCLO® Recycled Cotton":                          "50/50 Org/Cyl Cot",
		"70% Organic Cotton 30% CYCLO® Recycled Cotton":                          "70/30 Org/Cyl Cot",
		"30% CYCLO® Recycled Cotton 70% Organic Cotton":                          "70/30 Org/Cyl Cot",
		"50% CYCLO® Recycled Cotton 50% Virgin Cotton":                           "50/50 CYL Cot/Virgin Cot",
		"50% Virgin Cotton 50% CYCLO® Recycled Cotton":                           "50/50 CYL Cot/Virgin Cot",
		"55% CYCLO® Recycled Cotton 30% Virgin Cotton 15% Polyester":             "55/30/15 CYL Cot/Virgin Cot/poly",
		"60% CYCLO® Recycled Cotton 20% Viscose 20% Nylon":                       "60/20/20 CYL Cot/Viscose/Nylon",
		"70% CYCLO® Recycled Cotton 30% Acrylic":                                 "70/30 CYL Cot/Acrylic",
		"50% CYCLO® Recycled Cotton 50% Bamboo":                                  "50/50 Bamboo/Cyl Cot",
		"50% Bamboo 50% CYCLO® Recycled Cotton":                                  "50/50 Bamboo/Cyl Cot",
		"70% CYCLO® Recycled Cotton 30% Bamboo Viscose":                          "30/70 Bamboo Viscose/Cyl Cot",
		"30% Bamboo Viscose 70% CYCLO® Recycled Cotton":                          "30/70 Bamboo Viscose/Cyl Cot",
		"90% CYCLO® Recycled Cotton 10% Tencel™":                                 "90/10 CYL Cot/Tencel™",
		"10% Tencel™ 90% CYCLO® Recycled Cotton":                                 "90/10 CYL Cot/Tencel™",
		"70% CYCLO® Recycled Cotton 20% Linen 10% Viscose":                       "70/20/10 CYL Cot/Linen/Viscose",
		"100% CYCLO® Recycled Cotton":                                            "100 CYL Cot",
	}
}
