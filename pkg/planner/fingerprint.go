package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/config"
)

// fingerprintInput is everything that can change a plan.
type fingerprintInput struct {
	Orders   []model.Order          `json:"orders"`
	Machines []model.MachineProfile `json:"machines"`
	Start    string                 `json:"start"`
	Planning config.PlanningConfig  `json:"planning"`
	Lines    []model.LineConfig     `json:"lines"`
	Pools    config.PoolsConfig     `json:"pools"`
	Shifts   []model.Shift          `json:"shifts"`
	Blends   map[string]string      `json:"blends"`
	Colors   map[string][]string    `json:"colors"`
}

// Fingerprint hashes the run inputs together with every configuration
// value the pipeline reads. Map keys are encoded sorted, so the digest is
// stable across processes.
func Fingerprint(cfg *config.Config, in Inputs) (string, error) {
	planning := cfg.Planning
	// The resolved start is hashed instead.
	planning.StartDate = ""

	data, err := json.Marshal(fingerprintInput{
		Orders:   in.Orders,
		Machines: in.Machines,
		Start:    day(in.Start).Format("2006-01-02"),
		Planning: planning,
		Lines:    cfg.Lines,
		Pools:    cfg.Pools,
		Shifts:   cfg.Shifts,
		Blends:   cfg.Blends.Table,
		Colors:   cfg.Colors,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint inputs: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
