package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/engine/research"
	"github.com/WessleyAI/researchdesk/pkg/metrics"
	"github.com/WessleyAI/researchdesk/pkg/mid"
)

const maxBodyBytes = 1 << 20

// Researcher is the service behind the endpoints.
type Researcher interface {
	FetchAndStore(ctx context.Context, topic string) (research.FetchReport, error)
	Search(ctx context.Context, topic string, startYear int) ([]domain.Paper, error)
	Summarize(ctx context.Context, topic string) (string, error)
	FutureWorks(ctx context.Context, topic string) (string, error)
	Answer(ctx context.Context, topic, question string, topK int) (*research.Answer, error)
}

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	svc    Researcher
	health Pinger
	logger *slog.Logger
}

func newRouter(svc Researcher, health Pinger, corsOrigin string, logger *slog.Logger) http.Handler {
	h := &handlers{svc: svc, health: health, logger: logger}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(corsOrigin),
		metrics.Middleware,
	)

	r.Post("/fetch_and_store_papers", h.fetchAndStore)
	r.Get("/get_papers", h.getPapers)
	r.Post("/summarize", h.summarize)
	r.Post("/future_works", h.futureWorks)
	r.Post("/qa", h.qa)
	r.Get("/health", h.healthz)
	r.Handle("/metrics", metrics.Handler())

	return mid.OTel("researchdesk-api")(r)
}

// --- Request bodies ---

type topicRequest struct {
	Topic *string `json:"topic"`
}

type qaRequest struct {
	Topic    *string `json:"topic"`
	Question *string `json:"question"`
	TopK     *int    `json:"top_k,omitempty"`
}

// --- Handlers ---

func (h *handlers) fetchAndStore(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.decodeTopic(w, r)
	if !ok {
		return
	}
	report, err := h.svc.FetchAndStore(r.Context(), topic)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) getPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("topic") {
		badRequest(w, "missing query parameter: topic")
		return
	}
	if !q.Has("start_year") {
		badRequest(w, "missing query parameter: start_year")
		return
	}
	topic := q.Get("topic")
	startYear, err := strconv.Atoi(q.Get("start_year"))
	if err != nil {
		badRequest(w, "start_year must be an integer")
		return
	}

	papers, err := h.svc.Search(r.Context(), topic, startYear)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(papers) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("No papers found on topic '%s' after year %d.", topic, startYear),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Paper{"papers": papers})
}

func (h *handlers) summarize(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.decodeTopic(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.Summarize(r.Context(), topic)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (h *handlers) futureWorks(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.decodeTopic(w, r)
	if !ok {
		return
	}
	suggestions, err := h.svc.FutureWorks(r.Context(), topic)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"suggestions": suggestions})
}

func (h *handlers) qa(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Topic == nil {
		badRequest(w, "topic is required")
		return
	}
	if req.Question == nil {
		badRequest(w, "question is required")
		return
	}
	topK := 0
	if req.TopK != nil {
		if err := domain.ValidateTopK(*req.TopK); err != nil {
			h.writeError(w, r, err)
			return
		}
		topK = *req.TopK
	}

	answer, err := h.svc.Answer(r.Context(), *req.Topic, *req.Question, topK)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func (h *handlers) decodeTopic(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req topicRequest
	if !decodeBody(w, r, &req) {
		return "", false
	}
	if req.Topic == nil {
		badRequest(w, "topic is required")
		return "", false
	}
	return *req.Topic, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeError maps the error kind to a status: invalid arguments are the
// caller's fault, everything else is reported as a server error.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidArgument) {
		badRequest(w, err.Error())
		return
	}
	h.logger.Error("request failed",
		"path", r.URL.Path,
		"kind", domain.KindName(err),
		"err", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"detail": "An error occurred: " + err.Error(),
	})
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
