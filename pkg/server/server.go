// Package server provides the HTTP planning API.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cyclo/millplan/internal/logger"
	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/config"
	perrors "github.com/cyclo/millplan/pkg/errors"
	"github.com/cyclo/millplan/pkg/export"
	"github.com/cyclo/millplan/pkg/parser"
	"github.com/cyclo/millplan/pkg/planner"
	"github.com/cyclo/millplan/pkg/report"
	"github.com/cyclo/millplan/pkg/resilience"
)

const dateLayout = "2006-01-02"

// Server handles planning requests.
type Server struct {
	planner  *planner.Planner
	machines []model.MachineProfile
	parser   parser.Config
	log      *logger.Logger
	mux      *http.ServeMux
	breaker  *resilience.Breaker

	mu   sync.RWMutex
	runs map[string]*model.Plan
	// order keeps run IDs oldest first so the registry can be capped.
	order   []string
	maxRuns int
}

// RunInfo is one entry of GET /api/runs.
type RunInfo struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Start       time.Time `json:"start"`
	AllocatedKg float64   `json:"allocated_kg"`
	Unmatched   int       `json:"unmatched"`
}

// New creates a server around p. machines is the default capability table
// used when a request does not upload its own.
func New(p *planner.Planner, machines []model.MachineProfile, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		planner:  p,
		machines: machines,
		parser:   parser.DefaultConfig(),
		log:      log,
		mux:      http.NewServeMux(),
		breaker:  resilience.NewBreaker(),
		runs:     make(map[string]*model.Plan),
		maxRuns:  50,
	}
	s.parser.Sheet = p.Config().Machines.Sheet
	s.breaker.OnTrip = func(reason string) { log.Warn("planning circuit open", "reason", reason) }
	s.breaker.OnReset = func() { log.Info("planning circuit closed") }
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/api/plan", s.handlePlan)
	s.mux.HandleFunc("/api/plan/xlsx", s.handlePlanXLSX)
	s.mux.HandleFunc("/api/runs", s.handleRuns)
	s.mux.HandleFunc("/api/runs/", s.handleRun)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonResponse(w, map[string]interface{}{
		"status":   "ok",
		"machines": len(s.machines),
		"circuit":  s.breaker.State().String(),
		"metrics":  s.planner.Metrics().Summary(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.planner.Config()
	jsonResponse(w, struct {
		Lines    []model.LineConfig    `json:"lines"`
		Pools    config.PoolsConfig    `json:"pools"`
		Shifts   []model.Shift         `json:"shifts"`
		Planning config.PlanningConfig `json:"planning"`
	}{cfg.Lines, cfg.Pools, cfg.Shifts, cfg.Planning})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.plan(w, r)
	if !ok {
		return
	}
	jsonResponse(w, plan)
}

func (s *Server) handlePlanXLSX(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.plan(w, r)
	if !ok {
		return
	}
	writeWorkbook(w, plan)
}

// plan parses a multipart request and runs the planner. On failure it has
// already written the error response.
func (s *Server) plan(w http.ResponseWriter, r *http.Request) (*model.Plan, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	limit := s.planner.Config().Server.MaxUploadSize
	if limit <= 0 {
		limit = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		jsonError(w, "Failed to parse upload", http.StatusBadRequest)
		return nil, false
	}

	in := planner.Inputs{Machines: s.machines}

	if v := strings.TrimSpace(r.FormValue("start")); v != "" {
		start, err := time.Parse(dateLayout, v)
		if err != nil {
			jsonError(w, fmt.Sprintf("invalid start %q: want YYYY-MM-DD", v), http.StatusBadRequest)
			return nil, false
		}
		in.Start = start
	}

	file, header, err := r.FormFile("orders")
	if err != nil {
		jsonError(w, "No orders file provided", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	sheet, err := parser.NewOrderReader(s.parser).Read(r.Context(), file, uploadFormat(header))
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return nil, false
	}
	in.Orders = sheet.Orders

	if mf, mh, err := r.FormFile("machines"); err == nil {
		defer mf.Close()
		machines, err := parser.ReadMachines(r.Context(), mf, uploadFormat(mh), s.parser)
		if err != nil {
			jsonError(w, err.Error(), statusFor(err))
			return nil, false
		}
		in.Machines = machines
	}
	if len(in.Machines) == 0 {
		jsonError(w, "No machine data: upload a machines file or configure machines.file", http.StatusBadRequest)
		return nil, false
	}

	if err := s.breaker.Acquire(); err != nil {
		w.Header().Set("Retry-After", "30")
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return nil, false
	}
	plan, err := s.planner.Plan(r.Context(), in)
	s.breaker.Release(err == nil)
	if err != nil {
		s.log.Error("plan failed", "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return nil, false
	}

	s.remember(plan)
	s.log.Info("plan served",
		"run_id", plan.RunID,
		"file", header.Filename,
		"orders", len(in.Orders),
	)
	return plan, true
}

func (s *Server) remember(plan *model.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[plan.RunID]; !ok {
		s.order = append(s.order, plan.RunID)
	}
	s.runs[plan.RunID] = plan
	for len(s.order) > s.maxRuns {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

// Run returns a plan served earlier.
func (s *Server) Run(id string) (*model.Plan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.runs[id]
	return p, ok
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	out := make([]RunInfo, 0, len(s.runs))
	for _, p := range s.runs {
		out = append(out, RunInfo{
			RunID:       p.RunID,
			GeneratedAt: p.GeneratedAt,
			Start:       p.Start,
			AllocatedKg: report.Round(p.TotalAllocatedKg(), 2),
			Unmatched:   len(p.Unmatched),
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	jsonResponse(w, out)
}

// handleRun serves /api/runs/{id}, /api/runs/{id}/summary and
// /api/runs/{id}/xlsx.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(r.URL.Path[len("/api/runs/"):], "/")
	id, view, _ := strings.Cut(rest, "/")
	if id == "" {
		jsonError(w, "Run ID required", http.StatusBadRequest)
		return
	}

	plan, ok := s.Run(id)
	if !ok {
		jsonError(w, "Run not found", http.StatusNotFound)
		return
	}

	switch view {
	case "":
		jsonResponse(w, plan)
	case "summary":
		jsonResponse(w, report.Summarize(plan))
	case "xlsx":
		writeWorkbook(w, plan)
	default:
		jsonError(w, "Unknown view", http.StatusNotFound)
	}
}

func writeWorkbook(w http.ResponseWriter, plan *model.Plan) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, plan); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "plan-"+plan.RunID+".xlsx"))
	w.Write(buf.Bytes())
}

// uploadFormat detects the format from the upload's file name, falling back
// to xlsx.
func uploadFormat(h *multipart.FileHeader) parser.Format {
	if f := parser.DetectFormat(h.Filename); f != parser.FormatUnknown {
		return f
	}
	return parser.FormatXLSX
}

func statusFor(err error) int {
	if errors.Is(err, parser.ErrNoTable) {
		return http.StatusBadRequest
	}
	switch perrors.GetCode(err) {
	case perrors.CodeInvalidFormat, perrors.CodeMissingColumn, perrors.CodeInvalidConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
