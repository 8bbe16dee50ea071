package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	perrors "github.com/cyclo/millplan/pkg/errors"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Lines) != 5 {
		t.Errorf("len(Lines) = %d, want 5", len(cfg.Lines))
	}
	if cfg.Planning.HorizonDays != 60 {
		t.Errorf("HorizonDays = %d, want 60", cfg.Planning.HorizonDays)
	}

	l1, ok := cfg.Line("Line 1")
	if !ok {
		t.Fatal("Line 1 missing")
	}
	if l1.Spindles() != 1840 {
		t.Errorf("Line 1 spindles = %d, want 1840", l1.Spindles())
	}
	if got := l1.ShiftCapacity(len(cfg.Shifts)); got < 1666.66 || got > 1666.67 {
		t.Errorf("Line 1 shift capacity = %v, want 5000/3", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no lines", func(c *Config) { c.Lines = nil }, "lines"},
		{"unknown pool line", func(c *Config) { c.Pools.Small = []string{"Line 9"} }, "pools"},
		{"empty shifts", func(c *Config) { c.Shifts = nil }, "shifts"},
		{"band inverted", func(c *Config) { c.Planning.SmallBandMinKg = 5000 }, "planning.small_band"},
		{"zero capacity", func(c *Config) { c.Lines[0].DailyCapacityKg = 0 }, "lines"},
		{"duplicate line", func(c *Config) { c.Lines[1].Name = "Line 1" }, "lines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !perrors.IsCode(err, perrors.CodeInvalidConfig) {
				t.Fatalf("Validate() = %v, want InvalidConfig", err)
			}
			pErr := err.(*perrors.PlanError)
			if pErr.Context["field"] != tt.field {
				t.Errorf("field = %v, want %s", pErr.Context["field"], tt.field)
			}
		})
	}
}

func TestManager_LoadExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mill.yaml")
	data := `
planning:
  horizon_days: 14
  start_date: "2025-11-04"
  use_due_dates: true
cache:
  backend: none
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg := m.Get()
	if cfg.Planning.HorizonDays != 14 {
		t.Errorf("HorizonDays = %d, want 14", cfg.Planning.HorizonDays)
	}
	if !cfg.Planning.UseDueDates {
		t.Error("UseDueDates should be true")
	}
	if cfg.Cache.Backend != "none" {
		t.Errorf("Cache.Backend = %q, want none", cfg.Cache.Backend)
	}
	// Untouched sections keep their defaults.
	if len(cfg.Lines) != 5 || cfg.Planning.SmallBandMaxKg != 2000 {
		t.Error("defaults should survive a partial file")
	}

	start, err := cfg.PlanStart(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("PlanStart = %v, want %v", start, want)
	}
}

func TestManager_LoadMissingExplicit(t *testing.T) {
	m := NewManager()
	err := m.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !perrors.IsCode(err, perrors.CodeFileNotFound) {
		t.Errorf("Load() = %v, want FileNotFound", err)
	}
}

func TestManager_EnvOverrides(t *testing.T) {
	t.Setenv("MILLPLAN_HORIZON_DAYS", "30")
	t.Setenv("MILLPLAN_REDIS_ADDR", "redis:6379")

	m := NewManager()
	if err := m.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := m.Get()
	if cfg.Planning.HorizonDays != 30 {
		t.Errorf("HorizonDays = %d, want 30", cfg.Planning.HorizonDays)
	}
	if cfg.Cache.RedisAddress != "redis:6379" {
		t.Errorf("RedisAddress = %q", cfg.Cache.RedisAddress)
	}
}

func TestManager_BlendFileMerges(t *testing.T) {
	dir := t.TempDir()
	blends := filepath.Join(dir, "blends.yaml")
	if err := os.WriteFile(blends, []byte(`"100% Hemp": "100 Hemp"`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "mill.yaml")
	if err := os.WriteFile(path, []byte("blends:\n  file: "+blends+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	table := m.Get().Blends.Table
	if table["100% Hemp"] != "100 Hemp" {
		t.Error("blend file entry missing")
	}
	if table["100% CYCLO® Recycled Cotton"] != "100 CYL Cot" {
		t.Error("default blend entries should be kept")
	}
}

func TestPlanStart_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Planning.StartDate = "04/11/2025"
	if _, err := cfg.PlanStart(time.Now()); !perrors.IsCode(err, perrors.CodeInvalidConfig) {
		t.Errorf("PlanStart() = %v, want InvalidConfig", err)
	}
}
