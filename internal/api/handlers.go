package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shopfloorlabs/oee-engine/internal/cache"
	"github.com/shopfloorlabs/oee-engine/internal/config"
	"github.com/shopfloorlabs/oee-engine/internal/engine"
	"github.com/shopfloorlabs/oee-engine/internal/metrics"
	"github.com/shopfloorlabs/oee-engine/internal/models"
	"github.com/shopfloorlabs/oee-engine/internal/services"
	"github.com/shopfloorlabs/oee-engine/internal/utils"
)

const maxBodyBytes = 10 << 20

// Handler owns the HTTP surface. It decodes wire requests, resolves the
// threshold preset, delegates to the service and renders wire responses.
type Handler struct {
	service *services.OeeService
	presets *config.PresetStore
	cache   cache.Provider
	logger  *slog.Logger
}

func NewHandler(service *services.OeeService, presets *config.PresetStore, provider cache.Provider, logger *slog.Logger) *Handler {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &Handler{service: service, presets: presets, cache: provider, logger: logger}
}

// Routes builds the request mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/oee/calculate", h.handleCalculate)
	mux.HandleFunc("POST /api/v1/oee/calculate/full", h.handleCalculateFull)
	mux.HandleFunc("POST /api/v1/oee/sensitivity", h.handleSensitivity)
	mux.HandleFunc("POST /api/v1/oee/leverage", h.handleLeverage)
	mux.HandleFunc("POST /api/v1/oee/system/aggregate", h.handleAggregate)
	mux.HandleFunc("POST /api/v1/oee/system/compare", h.handleCompare)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	return h.logRequests(mux)
}

type errorResponse struct {
	Error string `json:"error"`
}

type reportEnvelope struct {
	ReportID  string `json:"report_id"`
	CreatedAt string `json:"created_at"`
	Payload   any    `json:"payload"`
}

func envelope[T any](report services.Report[T], payload any) reportEnvelope {
	return reportEnvelope{
		ReportID:  report.ReportID,
		CreatedAt: utils.FormatRFC3339(report.CreatedAt),
		Payload:   payload,
	}
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	body, ok := h.decode(w, r, &req)
	if !ok {
		return
	}

	in, err := decodeInput(req.Input)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	thresholds, err := h.thresholds(req.ThresholdPreset)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	key := cacheKey(r.URL.Path, body)
	if payload, ok := h.cachedPayload(key); ok {
		report := services.Report[struct{}]{ReportID: h.freshReportID(), CreatedAt: time.Now()}
		h.writeJSON(w, http.StatusOK, envelope(report, payload))
		return
	}

	var report services.Report[models.OeeResult]
	if req.Economics != nil {
		params, perr := decodeEconomics(*req.Economics)
		if perr != nil {
			h.writeError(w, http.StatusBadRequest, perr)
			return
		}
		report, err = h.service.CalculateWithEconomics(r.Context(), in, thresholds, params)
	} else {
		report, err = h.service.Calculate(r.Context(), in, thresholds)
	}
	if err != nil {
		h.writeComputeError(w, err)
		return
	}

	payload := renderResult(report.Payload)
	h.storePayload(key, payload)
	h.writeJSON(w, http.StatusOK, envelope(report, payload))
}

func (h *Handler) handleCalculateFull(w http.ResponseWriter, r *http.Request) {
	var req calculateFullRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	in, err := decodeInput(req.Input)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	thresholds, err := h.thresholds(req.ThresholdPreset)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := engine.DefaultFullOptions()
	if req.IncludeSensitivity != nil {
		opts.IncludeSensitivity = *req.IncludeSensitivity
	}
	if req.VariationPercent > 0 {
		opts.SensitivityVariation = req.VariationPercent
	}
	opts.TemporalScrapWindow = utils.DurationSeconds(req.StartupWindowSeconds)
	if req.Economics != nil {
		params, perr := decodeEconomics(*req.Economics)
		if perr != nil {
			h.writeError(w, http.StatusBadRequest, perr)
			return
		}
		opts.Economics = &params
	}

	report, err := h.service.CalculateFull(r.Context(), in, thresholds, opts)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(report, renderFullResult(report.Payload)))
}

func (h *Handler) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	var req sensitivityRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	in, err := decodeInput(req.Input)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := h.service.AnalyzeSensitivity(r.Context(), in, req.VariationPercent)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(report, renderSensitivity(report.Payload)))
}

func (h *Handler) handleLeverage(w http.ResponseWriter, r *http.Request) {
	var req leverageRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	in, err := decodeInput(req.Input)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	thresholds, err := h.thresholds(req.ThresholdPreset)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := h.service.AnalyzeLeverage(r.Context(), in, thresholds, req.VariationPercent)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(report, renderLeverage(report.Payload)))
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	report, err := h.service.AggregateSystem(r.Context(), decodeMachines(req.Machines), models.AggregationMethod(req.Method))
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(report, renderSystemAnalysis(report.Payload)))
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if _, ok := h.decode(w, r, &req); !ok {
		return
	}

	report, err := h.service.CompareAggregationMethods(r.Context(), decodeMachines(req.Machines))
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(report, renderComparison(report.Payload)))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	latency := h.service.Latency()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"presets": h.presets.Names(),
		"latency": map[string]any{
			"samples":     latency.Count(),
			"p50_seconds": utils.Seconds(latency.Percentile(50)),
			"p95_seconds": utils.Seconds(latency.Percentile(95)),
			"p99_seconds": utils.Seconds(latency.Percentile(99)),
		},
	})
}

func (h *Handler) thresholds(preset string) (models.ThresholdConfiguration, error) {
	if preset == "" {
		preset = "default"
	}
	return h.presets.Get(preset)
}

// decode reads and unmarshals the request body, returning the raw bytes so
// callers can derive cache keys from them.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return body, true
}

func cacheKey(path string, body []byte) string {
	sum := sha256.Sum256(body)
	return path + ":" + hex.EncodeToString(sum[:])
}

// cachedPayload returns the previously rendered payload for an identical
// request body. Only the payload is cached; each response carries a fresh
// report identity.
func (h *Handler) cachedPayload(key string) (json.RawMessage, bool) {
	data, err := h.cache.Get(key)
	if err != nil {
		metrics.CacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
	return json.RawMessage(data), true
}

func (h *Handler) storePayload(key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.cache.Set(key, data); err != nil {
		h.logger.Debug("cache store failed", slog.Any("error", err))
	}
}

func (h *Handler) freshReportID() string {
	// The cached path bypasses the service, so mint the id here.
	return uuid.NewString()
}

func (h *Handler) writeComputeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, utils.ErrStructural) {
		status = http.StatusBadRequest
	}
	h.writeError(w, status, err)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("response encode failed", slog.Any("error", err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(started)))
	})
}
