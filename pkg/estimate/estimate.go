// Package estimate converts an order into machine hours using the rotor
// spinning throughput model.
package estimate

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/blend"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

// Spinning constants.
const (
	// texNumerator converts an Ne count to tex.
	texNumerator = 583.0
	// workingEfficiency is the fraction of a 24h day a spindle produces.
	workingEfficiency = 0.9
)

// Config carries the static line data the estimator needs.
type Config struct {
	Lines     []model.LineConfig
	MainPool  []string
	SmallPool []string

	// Orders whose quantity lies in [BandMinKg, BandMaxKg] are sized
	// against SmallPool, all others against MainPool.
	BandMinKg float64
	BandMaxKg float64
}

// Estimator computes required hours per order. It is immutable after
// construction and safe for concurrent use.
type Estimator struct {
	blends   *blend.Normalizer
	profiles map[model.ProfileKey]model.MachineProfile
	lines    map[string]model.LineConfig
	cfg      Config
}

// New indexes the machine table and returns an Estimator. When several
// profiles share a key the one with the highest twist factor wins; the
// first row wins ties.
func New(blends *blend.Normalizer, machines []model.MachineProfile, cfg Config) *Estimator {
	e := &Estimator{
		blends:   blends,
		profiles: make(map[model.ProfileKey]model.MachineProfile, len(machines)),
		lines:    make(map[string]model.LineConfig, len(cfg.Lines)),
		cfg:      cfg,
	}
	for _, m := range machines {
		m.Blend = strings.TrimSpace(m.Blend)
		m.YarnType = strings.TrimSpace(m.YarnType)
		key := m.Key()
		if cur, ok := e.profiles[key]; !ok || m.TwistFactor > cur.TwistFactor {
			e.profiles[key] = m
		}
	}
	for _, l := range cfg.Lines {
		e.lines[l.Name] = l
	}
	return e
}

// Profile returns the authoritative machine profile for a key.
func (e *Estimator) Profile(count int, blendCode, yarnType string) (model.MachineProfile, bool) {
	p, ok := e.profiles[model.ProfileKey{Count: count, Blend: blendCode, YarnType: strings.TrimSpace(yarnType)}]
	return p, ok
}

// PoolFor returns the pool an order of qty kg is sized against.
func (e *Estimator) PoolFor(qty float64) []string {
	if qty >= e.cfg.BandMinKg && qty <= e.cfg.BandMaxKg {
		return e.cfg.SmallPool
	}
	return e.cfg.MainPool
}

// Estimate returns the hours the fastest line in pool needs to spin the
// order, rounded up to 0.01h.
func (e *Estimator) Estimate(order model.Order, pool []string) (float64, error) {
	_, hours, err := e.estimate(order, pool)
	return hours, err
}

// EstimateOrder validates the order, resolves its blend code and sizes it
// against PoolFor(order.Quantity).
func (e *Estimator) EstimateOrder(order model.Order) (model.EstimatedOrder, error) {
	if err := Validate(order); err != nil {
		return model.EstimatedOrder{}, err
	}
	code, hours, err := e.estimate(order, e.PoolFor(order.Quantity))
	if err != nil {
		return model.EstimatedOrder{}, err
	}
	return model.EstimatedOrder{Order: order, Blend: code, Hours: hours}, nil
}

// Validate checks that the fields the throughput model needs are present.
func Validate(order model.Order) error {
	switch {
	case strings.TrimSpace(order.ID) == "":
		return perrors.MissingField("PI NO")
	case order.Count <= 0:
		return perrors.MissingField("Yarn Count")
	case strings.TrimSpace(order.Composition) == "":
		return perrors.MissingField("Composition")
	case strings.TrimSpace(order.YarnType) == "":
		return perrors.MissingField("Yarn Type")
	case order.Quantity <= 0 || math.IsNaN(order.Quantity):
		return perrors.MissingField("Quantity")
	}
	return nil
}

func (e *Estimator) estimate(order model.Order, pool []string) (string, float64, error) {
	code, ok := e.blends.Normalize(order.Composition)
	if !ok {
		return "", 0, perrors.BlendNotMapped(strings.TrimSpace(order.Composition))
	}

	profile, ok := e.Profile(order.Count, code, order.YarnType)
	if !ok {
		return "", 0, perrors.NoMachineData(order.Count, code, order.YarnType)
	}

	perSpindleDay := SpindleKgPerDay(order.Count, profile.TwistFactor, profile.RotorRPM)

	bestLine := ""
	bestRate := math.Inf(-1)
	for _, name := range pool {
		line, ok := e.lines[name]
		if !ok {
			continue
		}
		rate := perSpindleDay * float64(line.Spindles()) / 24.0
		if rate > bestRate {
			bestLine, bestRate = name, rate
		}
	}
	if bestLine == "" || bestRate <= 0 || math.IsNaN(bestRate) || math.IsInf(bestRate, 0) {
		return "", 0, perrors.ZeroThroughput(bestLine)
	}

	return code, RoundUp(order.Quantity / bestRate), nil
}

// SpindleKgPerDay is the daily output of one rotor spindle at working
// efficiency for the given count, twist factor and rotor speed.
func SpindleKgPerDay(count int, twistFactor, rotorRPM float64) float64 {
	if count <= 0 || twistFactor <= 0 {
		return 0
	}
	tex := texNumerator / float64(count)
	tpm := twistFactor * 95 / math.Sqrt(tex) * 10
	takeUp := rotorRPM / tpm
	kgPerHour := takeUp * 60 * tex / 1_000_000
	return kgPerHour * 24 * workingEfficiency
}

// RoundUp rounds v up to two decimal places.
func RoundUp(v float64) float64 {
	return decimal.NewFromFloat(v).RoundCeil(2).InexactFloat64()
}
