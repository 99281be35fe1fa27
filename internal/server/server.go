package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/config"
	"github.com/iwvelando/vehicle-finance/internal/garage"
	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/internal/store"
	"github.com/iwvelando/vehicle-finance/pkg/affordability"
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/datetime"
	"github.com/iwvelando/vehicle-finance/pkg/output"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
	"go.uber.org/zap"
)

type handler struct {
	garage        *garage.Service
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	adviceLimiter *RateLimiter
}

// Options tunes NewHandler. Zero values take defaults.
type Options struct {
	MaxUploadSize int64
	Version       string
	AdviceLimiter *RateLimiter
}

// NewHandler constructs the HTTP handler that serves the JSON API over svc.
func NewHandler(svc *garage.Service, logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		garage:        svc,
		logger:        logger,
		maxUploadSize: opts.MaxUploadSize,
		version:       trimmedVersion,
		adviceLimiter: opts.AdviceLimiter,
	}

	mux := http.NewServeMux()

	// Stateless pricing
	mux.HandleFunc("POST /api/plans", h.handlePlans)
	mux.HandleFunc("POST /api/affordability", h.handleAffordability)
	mux.HandleFunc("POST /api/evaluate", h.handleEvaluate)
	mux.HandleFunc("POST /api/advice", h.handleAdvice)

	// Per-user records
	mux.HandleFunc("GET /api/users/{user}/plans", h.handleSavedPlans)
	mux.HandleFunc("POST /api/users/{user}/plans", h.handleSavePlan)
	mux.HandleFunc("GET /api/users/{user}/loans", h.handleLoans)
	mux.HandleFunc("POST /api/users/{user}/loans", h.handleCommit)
	mux.HandleFunc("POST /api/users/{user}/loans/{loan}/payments", h.handlePayment)
	mux.HandleFunc("GET /api/users/{user}/schedule", h.handleSchedule)
	mux.HandleFunc("GET /api/users/{user}/status", h.handleStatus)

	mux.HandleFunc("GET /api/version", h.handleVersion)

	return mux
}

type plansRequest struct {
	Input    plan.UserInput `json:"input"`
	Vehicles []plan.Vehicle `json:"vehicles,omitempty"`
}

type selectionRequest struct {
	Vehicle plan.Vehicle     `json:"vehicle"`
	Plan    plan.VehiclePlan `json:"plan"`
}

type paymentRequest struct {
	Amount *float64 `json:"amount"`
}

type evaluateResponse struct {
	Range    affordability.Range `json:"range"`
	Options  []plan.Option       `json:"options"`
	CSV      string              `json:"csv"`
	Warnings []string            `json:"warnings,omitempty"`
	Duration string              `json:"duration"`
}

func (h *handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	var req plansRequest
	if !h.decode(w, r, &req, "server.handlePlans") {
		return
	}
	options, err := h.garage.Plans(req.Input, req.Vehicles)
	if err != nil {
		h.respondFailure(w, err, "server.handlePlans")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"options": options})
}

func (h *handler) handleAffordability(w http.ResponseWriter, r *http.Request) {
	var req plansRequest
	if !h.decode(w, r, &req, "server.handleAffordability") {
		return
	}
	priceRange, err := h.garage.Affordability(req.Input)
	if err != nil {
		h.respondFailure(w, err, "server.handleAffordability")
		return
	}
	h.writeJSON(w, http.StatusOK, priceRange)
}

// handleEvaluate prices an uploaded YAML configuration: its profile against
// its own vehicle list.
func (h *handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), "server.handleEvaluate")
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), "server.handleEvaluate")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", "server.handleEvaluate")
		return
	}
	defer file.Close()

	conf, err := config.LoadConfigurationFromReader(file)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handleEvaluate")
		return
	}

	priceRange, err := h.garage.Affordability(conf.Profile)
	if err != nil {
		h.respondFailure(w, err, "server.handleEvaluate")
		return
	}
	options, err := h.garage.Plans(conf.Profile, conf.Vehicles)
	if err != nil {
		h.respondFailure(w, err, "server.handleEvaluate")
		return
	}

	var csv strings.Builder
	if err := output.CsvPlans(&csv, options); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), "server.handleEvaluate")
		return
	}

	h.writeJSON(w, http.StatusOK, evaluateResponse{
		Range:    priceRange,
		Options:  options,
		CSV:      csv.String(),
		Warnings: conf.ValidateConfiguration(),
		Duration: time.Since(start).String(),
	})
}

func (h *handler) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if h.adviceLimiter != nil && !h.adviceLimiter.Allow(clientIP(r)) {
		h.respondErrorWithOp(w, http.StatusTooManyRequests, "rate limit exceeded", "server.handleAdvice")
		return
	}
	var req plansRequest
	if !h.decode(w, r, &req, "server.handleAdvice") {
		return
	}
	advice, err := h.garage.Advice(r.Context(), req.Input, req.Vehicles)
	if err != nil {
		h.respondFailure(w, err, "server.handleAdvice")
		return
	}
	h.writeJSON(w, http.StatusOK, advice)
}

func (h *handler) handleSavedPlans(w http.ResponseWriter, r *http.Request) {
	saved, err := h.garage.SavedPlans(r.Context(), r.PathValue("user"))
	if err != nil {
		h.respondFailure(w, err, "server.handleSavedPlans")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"plans": saved})
}

func (h *handler) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.decode(w, r, &req, "server.handleSavePlan") {
		return
	}
	saved, err := h.garage.SavePlan(r.Context(), r.PathValue("user"), req.Vehicle, req.Plan)
	if err != nil {
		h.respondFailure(w, err, "server.handleSavePlan")
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

func (h *handler) handleLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.garage.Loans(r.Context(), r.PathValue("user"))
	if err != nil {
		h.respondFailure(w, err, "server.handleLoans")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"loans": loans})
}

func (h *handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.decode(w, r, &req, "server.handleCommit") {
		return
	}
	result, err := h.garage.Commit(r.Context(), r.PathValue("user"), req.Vehicle, req.Plan)
	if err != nil {
		h.respondFailure(w, err, "server.handleCommit")
		return
	}
	status := http.StatusCreated
	if result.AlreadyCommitted {
		status = http.StatusOK
	}
	h.writeJSON(w, status, result)
}

func (h *handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req, "server.handlePayment") {
		return
	}
	if req.Amount == nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing payment amount", "server.handlePayment")
		return
	}
	loan, err := h.garage.Pay(r.Context(), r.PathValue("user"), r.PathValue("loan"), *req.Amount)
	if err != nil {
		h.respondFailure(w, err, "server.handlePayment")
		return
	}
	h.writeJSON(w, http.StatusOK, loan)
}

func (h *handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var from time.Time
	if raw := query.Get("from"); raw != "" {
		parsed, err := datetime.ParseDate(raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid from date %q, expected YYYY-MM-DD", raw), "server.handleSchedule")
			return
		}
		from = parsed
	}

	months := 0
	if raw := query.Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid months %q, expected a positive integer", raw), "server.handleSchedule")
			return
		}
		months = parsed
	}

	events, err := h.garage.Schedule(r.Context(), r.PathValue("user"), from, months)
	if err != nil {
		h.respondFailure(w, err, "server.handleSchedule")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"payments": events})
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.garage.Statuses(r.Context(), r.PathValue("user"))
	if err != nil {
		h.respondFailure(w, err, "server.handleStatus")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"loans": statuses})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

// decode reads a JSON body into dst, answering the request itself on failure.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case validation.IsValidationError(err), errors.Is(err, validation.ErrInvalidPaymentAmount):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *handler) respondFailure(w http.ResponseWriter, err error, op string) {
	h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Debug("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
