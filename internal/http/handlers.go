package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanoney1-alt/UpTend-sub012/internal/approval"
	"github.com/alanoney1-alt/UpTend-sub012/internal/assign"
	"github.com/alanoney1-alt/UpTend-sub012/internal/credentials"
	"github.com/alanoney1-alt/UpTend-sub012/internal/directory"
	"github.com/alanoney1-alt/UpTend-sub012/internal/geo"
	"github.com/alanoney1-alt/UpTend-sub012/internal/ingest"
	"github.com/alanoney1-alt/UpTend-sub012/internal/matcher"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/notify"
	"github.com/alanoney1-alt/UpTend-sub012/internal/observability"
	"github.com/alanoney1-alt/UpTend-sub012/internal/pricing"
	"github.com/alanoney1-alt/UpTend-sub012/internal/routing"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

// Server wires the dispatch core behind an HTTP API. All decisions happen
// in the internal packages; handlers translate transport to calls.
type Server struct {
	Store     storage.Store
	Directory directory.Directory
	Locations geo.Locations
	Gate      *credentials.Gate
	Matcher   *matcher.Service
	Assigner  *assign.Assigner
	Planner   *routing.Planner
	Heatmap   *directory.HeatmapService
	Verifier  *pricing.Verifier
	Approvals *approval.Service
	Kafka     *ingest.KafkaProducer
	WSReg     *notify.WSRegistry

	// seed surfaces for the in-memory directory and credential registry;
	// deployments backed by external collaborators leave these nil
	Pros         *directory.Memory
	CredRegistry *credentials.MemoryRegistry

	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(logger *slog.Logger) *Server {
	s := &Server{logger: logger, mux: mux.NewRouter()}
	return s
}

// Init registers middleware and routes once dependencies are set.
func (s *Server) Init() {
	s.registerMiddleware()
	s.routes()
}

func (s *Server) routes() {
	s.mux.HandleFunc("/internal/pro/locations", s.handleProLocation).Methods("POST")
	s.mux.HandleFunc("/internal/jobs", s.handleCreateJob).Methods("POST")
	s.mux.HandleFunc("/internal/pros", s.handleUpsertPro).Methods("POST")
	s.mux.HandleFunc("/internal/credentials", s.handleAddCredential).Methods("POST")
	s.mux.HandleFunc("/internal/jobs/{job_id}/cancel", s.handleCancelJob).Methods("POST")
	s.mux.HandleFunc("/internal/approvals/sweep", s.handleSweep).Methods("POST")

	s.mux.HandleFunc("/api/v1/jobs/{job_id}/matches", s.handleMatches).Methods("GET")
	s.mux.HandleFunc("/api/v1/jobs/{job_id}/assign", s.handleAutoAssign).Methods("POST")
	s.mux.HandleFunc("/api/v1/jobs/{job_id}/verify", s.handleVerify).Methods("POST")
	s.mux.HandleFunc("/api/v1/pros/{pro_id}/route", s.handleRoute).Methods("GET")
	s.mux.HandleFunc("/api/v1/pros/{pro_id}/jobs", s.handleVisibleJobs).Methods("GET")
	s.mux.HandleFunc("/api/v1/pros/{pro_id}/credentials", s.handleCredentialSummary).Methods("GET")
	s.mux.HandleFunc("/api/v1/pros/eligible", s.handleEligiblePros).Methods("GET")
	s.mux.HandleFunc("/api/v1/availability/heatmap", s.handleHeatmap).Methods("GET")
	s.mux.HandleFunc("/api/v1/approvals/{approval_id}/resolve", s.handleResolveApproval).Methods("POST")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{client_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleProLocation(w http.ResponseWriter, r *http.Request) {
	var loc geo.ProLocation
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if loc.ProID == "" {
		writeError(w, http.StatusBadRequest, "validation", "pro_id is required")
		return
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishLocation(loc)
	}
	if s.Locations != nil {
		s.Locations.Upsert(loc)
	}
	observability.ProsReporting.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var job models.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if job.ServiceType == "" || job.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "validation", "service_type and customer_id are required")
		return
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.AccountType == "" {
		job.AccountType = models.AccountConsumer
	}
	job.Status = models.JobOpen
	now := time.Now()
	job.CreatedAt, job.UpdatedAt = now, now
	if job.ScheduledFor.IsZero() {
		job.ScheduledFor = now
	}
	if err := s.Store.CreateJob(r.Context(), &job); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleUpsertPro(w http.ResponseWriter, r *http.Request) {
	if s.Pros == nil {
		writeError(w, http.StatusNotImplemented, "not_supported", "pro directory is externally managed")
		return
	}
	var p models.ProCandidate
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if p.ID == "" {
		writeError(w, http.StatusBadRequest, "validation", "id is required")
		return
	}
	s.Pros.Upsert(p)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddCredential(w http.ResponseWriter, r *http.Request) {
	if s.CredRegistry == nil {
		writeError(w, http.StatusNotImplemented, "not_supported", "credential registry is externally managed")
		return
	}
	var rec models.CredentialRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if rec.ProID == "" || rec.Slug == "" {
		writeError(w, http.StatusBadRequest, "validation", "pro_id and slug are required")
		return
	}
	s.CredRegistry.Add(rec)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if err := s.Store.UpdateJobStatus(r.Context(), jobID, models.JobCancelled); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	// pending price-change consents must not dangle after cancellation
	if err := s.Approvals.CancelForJob(r.Context(), jobID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	job, err := s.Store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	pool, err := s.Directory.AvailablePros(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	result, err := s.Matcher.Rank(r.Context(), *job, pool)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	res, err := s.Assigner.AutoAssign(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, assign.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, assign.ErrAlreadyAssigned):
			writeError(w, http.StatusConflict, "already_assigned", "job already has a worker")
		case errors.Is(err, assign.ErrConflict):
			writeError(w, http.StatusConflict, "assignment_conflict", "another caller assigned this job first")
		case errors.Is(err, assign.ErrNoWorkers):
			writeError(w, http.StatusUnprocessableEntity, "no_workers", "no available workers")
		case errors.Is(err, assign.ErrNoEligibleWorkers):
			writeError(w, http.StatusUnprocessableEntity, "no_eligible_workers", "no workers hold the required credentials")
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	proID := mux.Vars(r)["pro_id"]
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "date must be YYYY-MM-DD")
		return
	}
	plan, err := s.Planner.PlanDay(r.Context(), proID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleVisibleJobs(w http.ResponseWriter, r *http.Request) {
	proID := mux.Vars(r)["pro_id"]
	open, err := s.Store.ListOpenJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	vis, err := s.Gate.VisibleJobs(r.Context(), proID, open)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"visible":          vis.Visible,
		"hidden_job_count": len(vis.Hidden),
		"hidden":           vis.Hidden,
	})
}

func (s *Server) handleCredentialSummary(w http.ResponseWriter, r *http.Request) {
	proID := mux.Vars(r)["pro_id"]
	open, err := s.Store.ListOpenJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	summary, err := s.Gate.Summarize(r.Context(), proID, open)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type eligiblePro struct {
	Pro    models.ProCandidate `json:"pro"`
	Badges []string            `json:"badges"`
}

func (s *Server) handleEligiblePros(w http.ResponseWriter, r *http.Request) {
	st := models.ServiceType(r.URL.Query().Get("job_type"))
	if st == "" {
		writeError(w, http.StatusBadRequest, "validation", "job_type is required")
		return
	}
	at := s.Gate.ResolveAccountType(r.Context(), r.URL.Query().Get("account_id"))
	pool, err := s.Directory.AvailablePros(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	ids := make([]string, len(pool))
	byID := make(map[string]models.ProCandidate, len(pool))
	for i, p := range pool {
		ids[i] = p.ID
		byID[p.ID] = p
	}
	eligible, err := s.Gate.FilterEligible(r.Context(), ids, st, at)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	required := s.Gate.RequiredCredentials(st, at)
	out := make([]eligiblePro, 0, len(eligible))
	for _, id := range eligible {
		out = append(out, eligiblePro{Pro: byID[id], Badges: required})
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_type": st, "account_type": at, "pros": out})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		writeError(w, http.StatusBadRequest, "validation", "region is required")
		return
	}
	hm, err := s.Heatmap.Heatmap(r.Context(), region)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hm)
}

type verifyRequest struct {
	Quote          models.Quote         `json:"quote"`
	VerifiedInputs models.PricingInputs `json:"verified_inputs"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	job, err := s.Store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	rec, err := s.Verifier.Verify(r.Context(), *job, req.Quote, req.VerifiedInputs)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidQuote) {
			writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type resolveRequest struct {
	Approved bool `json:"approved"`
}

func (s *Server) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["approval_id"]
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	resolved, err := s.Approvals.Resolve(r.Context(), id, req.Approved)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "approval not found")
		case errors.Is(err, approval.ErrAlreadyResolved):
			writeError(w, http.StatusConflict, "already_resolved", "approval already reached a terminal state")
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	expired, err := s.Approvals.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expired": expired, "count": len(expired)})
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["client_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "upgrade failed")
		return
	}
	s.WSReg.Add(id, conn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}
