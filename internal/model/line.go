package model

// MachineProfile is one row of the machine capability table.
type MachineProfile struct {
	Count       int     `json:"count" yaml:"count"`
	Blend       string  `json:"blend" yaml:"blend"`
	YarnType    string  `json:"yarn_type" yaml:"yarn_type"`
	TwistFactor float64 `json:"twist_factor" yaml:"twist_factor"`
	RotorRPM    float64 `json:"rotor_rpm" yaml:"rotor_rpm"`
}

// ProfileKey identifies the machine profiles that can serve an order.
type ProfileKey struct {
	Count    int
	Blend    string
	YarnType string
}

// Key returns the lookup key of the profile.
func (p MachineProfile) Key() ProfileKey {
	return ProfileKey{Count: p.Count, Blend: p.Blend, YarnType: p.YarnType}
}

// LineConfig describes the static capacity of one production line.
type LineConfig struct {
	Name               string  `json:"name" yaml:"name"`
	Machines           int     `json:"machines" yaml:"machines"`
	SpindlesPerMachine int     `json:"spindles_per_machine" yaml:"spindles_per_machine"`
	DailyCapacityKg    float64 `json:"daily_capacity_kg" yaml:"daily_capacity_kg"`
}

// Spindles returns the total spindle count of the line.
func (l LineConfig) Spindles() int {
	return l.Machines * l.SpindlesPerMachine
}

// ShiftCapacity returns the kg a single shift can absorb when the day is
// split evenly across n shifts.
func (l LineConfig) ShiftCapacity(n int) float64 {
	if n <= 0 {
		return 0
	}
	return l.DailyCapacityKg / float64(n)
}

// Shift is a fixed window within a calendar day.
type Shift struct {
	Name            string `json:"name" yaml:"name"`
	StartMinute     int    `json:"start_minute" yaml:"start_minute"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
}

// Pool names.
const (
	PoolMain  = "main"
	PoolSmall = "small"
	PoolAll   = "all"
)
