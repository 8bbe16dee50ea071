// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < explicit file < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyclo/millplan/internal/model"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

// Config holds all millplan configuration.
type Config struct {
	Version int `yaml:"version"`

	Planning  PlanningConfig      `yaml:"planning"`
	Lines     []model.LineConfig  `yaml:"lines"`
	Pools     PoolsConfig         `yaml:"pools"`
	Shifts    []model.Shift       `yaml:"shifts"`
	Blends    BlendsConfig        `yaml:"blends"`
	Colors    map[string][]string `yaml:"colors"`
	Machines  MachinesConfig      `yaml:"machines"`
	Cache     CacheConfig         `yaml:"cache"`
	Storage   StorageConfig       `yaml:"storage"`
	Telemetry TelemetryConfig     `yaml:"telemetry"`
	Server    ServerConfig        `yaml:"server"`
	Log       LogConfig           `yaml:"log"`
}

// PlanningConfig controls the allocation run.
type PlanningConfig struct {
	HorizonDays int `yaml:"horizon_days"`

	// StartDate is "YYYY-MM-DD"; empty means today.
	StartDate string `yaml:"start_date"`

	// Epsilon is the remaining quantity treated as fully allocated.
	Epsilon float64 `yaml:"epsilon"`

	// SampleMaxKg splits orders with 0 < qty <= SampleMaxKg out as samples.
	// Zero disables the split.
	SampleMaxKg float64 `yaml:"sample_max_kg"`

	// Small order-size band, closed interval in kg.
	SmallBandMinKg float64 `yaml:"small_band_min_kg"`
	SmallBandMaxKg float64 `yaml:"small_band_max_kg"`

	// EstimateBandMinKg is the lower bound of the band the estimator sizes
	// against the small pool. It is stricter than SmallBandMinKg.
	EstimateBandMinKg float64 `yaml:"estimate_band_min_kg"`

	// UseDueDates feeds earliest due dates into color sequencing.
	UseDueDates bool `yaml:"use_due_dates"`
}

// PoolsConfig partitions lines by order-size band.
type PoolsConfig struct {
	Main  []string `yaml:"main"`
	Small []string `yaml:"small"`
}

// BlendsConfig holds the composition → canonical blend code table.
type BlendsConfig struct {
	// File is an optional YAML file with a flat composition: code map,
	// merged over Table.
	File  string            `yaml:"file"`
	Table map[string]string `yaml:"table"`
}

// MachinesConfig locates the machine capability workbook.
type MachinesConfig struct {
	File  string `yaml:"file"`
	Sheet string `yaml:"sheet"`
}

// CacheConfig controls plan memoization.
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory | redis | none
	MaxEntries    int           `yaml:"max_entries"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddress  string        `yaml:"redis_address"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
}

// StorageConfig controls where finished plans are persisted.
type StorageConfig struct {
	DuckDB string   `yaml:"duckdb"`
	S3     S3Config `yaml:"s3"`
}

// S3Config locates the bucket exports are uploaded to.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// ServerConfig for the HTTP API.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Host          string `yaml:"host"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// LogConfig selects the log encoder.
type LogConfig struct {
	Mode string `yaml:"mode"` // dev | prod
}

// Default returns the default configuration: the five-line mill with
// three 480-minute shifts and a 60-day horizon.
func Default() *Config {
	return &Config{
		Version: 1,
		Planning: PlanningConfig{
			HorizonDays:    60,
			Epsilon:        1e-6,
			SampleMaxKg:    200,
			SmallBandMinKg: 200,
			SmallBandMaxKg: 2000,

			EstimateBandMinKg: 500,
		},
		Lines: DefaultLines(),
		Pools: PoolsConfig{
			Main:  []string{"Line 1", "Line 2", "Line 3"},
			Small: []string{"Line 4", "Line 5"},
		},
		Shifts: DefaultShifts(),
		Blends: BlendsConfig{
			Table: DefaultBlends(),
		},
		Colors: DefaultColors(),
		Machines: MachinesConfig{
			File: filepath.Join("reports", "updated_machine_data.xlsx"),
		},
		Cache: CacheConfig{
			Backend:     "memory",
			MaxEntries:  32,
			TTL:         24 * time.Hour,
			RedisPrefix: "millplan:plans:",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "millplan",
			Insecure:    true,
			SampleRatio: 1.0,
		},
		Server: ServerConfig{
			Port:          8080,
			Host:          "localhost",
			MaxUploadSize: 32 << 20,
		},
		Log: LogConfig{Mode: "dev"},
	}
}

// Line returns the named line configuration.
func (c *Config) Line(name string) (model.LineConfig, bool) {
	for _, l := range c.Lines {
		if l.Name == name {
			return l, true
		}
	}
	return model.LineConfig{}, false
}

// LineNames returns all line names in configuration order.
func (c *Config) LineNames() []string {
	names := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		names[i] = l.Name
	}
	return names
}

// PlanStart resolves the configured start date, falling back to now's
// calendar date in UTC.
func (c *Config) PlanStart(now time.Time) (time.Time, error) {
	if c.Planning.StartDate == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", c.Planning.StartDate)
	if err != nil {
		return time.Time{}, perrors.InvalidConfig("planning.start_date", "start date must be YYYY-MM-DD")
	}
	return t, nil
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	if len(c.Lines) == 0 {
		return perrors.InvalidConfig("lines", "at least one line is required")
	}
	seen := make(map[string]bool, len(c.Lines))
	for _, l := range c.Lines {
		if l.Name == "" {
			return perrors.InvalidConfig("lines", "line name is empty")
		}
		if seen[l.Name] {
			return perrors.InvalidConfig("lines", "duplicate line "+l.Name)
		}
		seen[l.Name] = true
		if l.DailyCapacityKg <= 0 {
			return perrors.InvalidConfig("lines", "daily capacity must be positive for "+l.Name)
		}
		if l.Spindles() <= 0 {
			return perrors.InvalidConfig("lines", "spindle count must be positive for "+l.Name)
		}
	}

	if len(c.Pools.Main) == 0 {
		return perrors.InvalidConfig("pools.main", "main pool is empty")
	}
	if len(c.Pools.Small) == 0 {
		return perrors.InvalidConfig("pools.small", "small pool is empty")
	}
	for _, pool := range [][]string{c.Pools.Main, c.Pools.Small} {
		for _, name := range pool {
			if !seen[name] {
				return perrors.InvalidConfig("pools", "unknown line "+name)
			}
		}
	}

	if len(c.Shifts) == 0 {
		return perrors.InvalidConfig("shifts", "at least one shift is required")
	}
	for _, s := range c.Shifts {
		if s.DurationMinutes <= 0 {
			return perrors.InvalidConfig("shifts", "shift duration must be positive for "+s.Name)
		}
	}

	if c.Planning.HorizonDays < 0 {
		return perrors.InvalidConfig("planning.horizon_days", "horizon must not be negative")
	}
	if c.Planning.SmallBandMinKg > c.Planning.SmallBandMaxKg {
		return perrors.InvalidConfig("planning.small_band", "band minimum exceeds maximum")
	}
	if c.Planning.Epsilon <= 0 {
		return perrors.InvalidConfig("planning.epsilon", "epsilon must be positive")
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order. explicit,
// when non-empty, must exist and is applied after the discovered files.
func (m *Manager) Load(explicit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("load config %s: %w", path, err)
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	if explicit != "" {
		if err := m.loadFile(explicit); err != nil {
			if os.IsNotExist(err) {
				return perrors.FileNotFound(explicit)
			}
			return fmt.Errorf("load config %s: %w", explicit, err)
		}
		m.paths = append(m.paths, explicit)
	}

	m.loadEnv()

	if m.config.Blends.File != "" {
		if err := m.loadBlendFile(m.config.Blends.File); err != nil {
			return err
		}
	}

	return m.config.Validate()
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/millplan/config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".millplan", "config.yaml"))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".millplan.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return perrors.Wrap(err, perrors.CodeInvalidFormat, "invalid config yaml").WithContext("path", path)
	}

	m.merge(&partial)
	return nil
}

func (m *Manager) loadBlendFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return perrors.FileNotFound(path)
		}
		return fmt.Errorf("read blend table: %w", err)
	}

	var table map[string]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return perrors.Wrap(err, perrors.CodeInvalidFormat, "invalid blend table").WithContext("path", path)
	}

	merged := make(map[string]string, len(m.config.Blends.Table)+len(table))
	for k, v := range m.config.Blends.Table {
		merged[k] = v
	}
	for k, v := range table {
		merged[k] = v
	}
	m.config.Blends.Table = merged
	return nil
}

// merge merges non-zero values from src into config. Tables (lines,
// shifts, colors, blends) replace the defaults wholesale.
func (m *Manager) merge(src *Config) {
	dst := m.config

	// Planning
	if src.Planning.HorizonDays != 0 {
		dst.Planning.HorizonDays = src.Planning.HorizonDays
	}
	if src.Planning.StartDate != "" {
		dst.Planning.StartDate = src.Planning.StartDate
	}
	if src.Planning.Epsilon != 0 {
		dst.Planning.Epsilon = src.Planning.Epsilon
	}
	if src.Planning.SampleMaxKg != 0 {
		dst.Planning.SampleMaxKg = src.Planning.SampleMaxKg
	}
	if src.Planning.SmallBandMinKg != 0 {
		dst.Planning.SmallBandMinKg = src.Planning.SmallBandMinKg
	}
	if src.Planning.SmallBandMaxKg != 0 {
		dst.Planning.SmallBandMaxKg = src.Planning.SmallBandMaxKg
	}
	if src.Planning.EstimateBandMinKg != 0 {
		dst.Planning.EstimateBandMinKg = src.Planning.EstimateBandMinKg
	}
	if src.Planning.UseDueDates {
		dst.Planning.UseDueDates = true
	}

	// Static tables
	if len(src.Lines) > 0 {
		dst.Lines = src.Lines
	}
	if len(src.Pools.Main) > 0 {
		dst.Pools.Main = src.Pools.Main
	}
	if len(src.Pools.Small) > 0 {
		dst.Pools.Small = src.Pools.Small
	}
	if len(src.Shifts) > 0 {
		dst.Shifts = src.Shifts
	}
	if len(src.Colors) > 0 {
		dst.Colors = src.Colors
	}
	if len(src.Blends.Table) > 0 {
		dst.Blends.Table = src.Blends.Table
	}
	if src.Blends.File != "" {
		dst.Blends.File = src.Blends.File
	}

	// Machines
	if src.Machines.File != "" {
		dst.Machines.File = src.Machines.File
	}
	if src.Machines.Sheet != "" {
		dst.Machines.Sheet = src.Machines.Sheet
	}

	// Cache
	if src.Cache.Backend != "" {
		dst.Cache.Backend = src.Cache.Backend
	}
	if src.Cache.MaxEntries != 0 {
		dst.Cache.MaxEntries = src.Cache.MaxEntries
	}
	if src.Cache.TTL != 0 {
		dst.Cache.TTL = src.Cache.TTL
	}
	if src.Cache.RedisAddress != "" {
		dst.Cache.RedisAddress = src.Cache.RedisAddress
	}
	if src.Cache.RedisPassword != "" {
		dst.Cache.RedisPassword = src.Cache.RedisPassword
	}
	if src.Cache.RedisDB != 0 {
		dst.Cache.RedisDB = src.Cache.RedisDB
	}
	if src.Cache.RedisPrefix != "" {
		dst.Cache.RedisPrefix = src.Cache.RedisPrefix
	}

	// Storage
	if src.Storage.DuckDB != "" {
		dst.Storage.DuckDB = src.Storage.DuckDB
	}
	if src.Storage.S3.Bucket != "" {
		dst.Storage.S3 = src.Storage.S3
	}

	// Telemetry
	if src.Telemetry.Enabled {
		dst.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		dst.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
	if src.Telemetry.ServiceName != "" {
		dst.Telemetry.ServiceName = src.Telemetry.ServiceName
	}
	if src.Telemetry.SampleRatio != 0 {
		dst.Telemetry.SampleRatio = src.Telemetry.SampleRatio
	}

	// Server
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.Host != "" {
		dst.Server.Host = src.Server.Host
	}
	if src.Server.MaxUploadSize != 0 {
		dst.Server.MaxUploadSize = src.Server.MaxUploadSize
	}

	if src.Log.Mode != "" {
		dst.Log.Mode = src.Log.Mode
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("MILLPLAN_HORIZON_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m.config.Planning.HorizonDays = n
		}
	}
	if v := os.Getenv("MILLPLAN_START_DATE"); v != "" {
		m.config.Planning.StartDate = v
	}
	if v := os.Getenv("MILLPLAN_MACHINES"); v != "" {
		m.config.Machines.File = v
	}
	if v := os.Getenv("MILLPLAN_CACHE"); v != "" {
		m.config.Cache.Backend = v
	}
	if v := os.Getenv("MILLPLAN_REDIS_ADDR"); v != "" {
		m.config.Cache.RedisAddress = v
	}
	if v := os.Getenv("MILLPLAN_DUCKDB"); v != "" {
		m.config.Storage.DuckDB = v
	}
	if v := os.Getenv("MILLPLAN_S3_BUCKET"); v != "" {
		m.config.Storage.S3.Bucket = v
	}
	if v := os.Getenv("MILLPLAN_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Enabled = true
		m.config.Telemetry.Endpoint = v
	}
	if v := os.Getenv("MILLPLAN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			m.config.Server.Port = port
		}
	}
	if v := os.Getenv("MILLPLAN_LOG_MODE"); v != "" {
		m.config.Log.Mode = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Marshal renders the effective configuration as YAML.
func (m *Manager) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return yaml.Marshal(m.config)
}
