package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/query"
)

// User-facing messages. Internal error text only goes to the log.
const (
	msgScrapeDone   = "Scraping completado exitosamente"
	msgScrapeFailed = "Error en el scraping"
	msgListFailed   = "Error obteniendo sismos"
	msgRateLimited  = "Demasiadas solicitudes de scraping, intente más tarde"
	msgInternal     = "Error interno del servidor"
)

type handlers struct {
	query   LatestQuerier
	scraper ScrapeRunner
	limiter *rate.Limiter
	clock   clockwork.Clock
	logger  *slog.Logger
}

type listResponse struct {
	Sismos    []domain.EarthquakeRecord `json:"sismos"`
	Total     int                       `json:"total"`
	Timestamp *string                   `json:"timestamp"`
}

type scrapeResponse struct {
	Message   string `json:"message"`
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Saved     int    `json:"saved"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) listEarthquakes(w http.ResponseWriter, r *http.Request) {
	limit := query.ParseLimit(r.URL.Query().Get("limit"))

	records, err := h.query.Latest(r.Context(), limit)
	if err != nil {
		h.logger.Error("list earthquakes failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgListFailed})
		return
	}

	resp := listResponse{Sismos: records, Total: len(records)}
	if resp.Sismos == nil {
		resp.Sismos = []domain.EarthquakeRecord{}
	}
	if len(records) > 0 {
		ts := records[0].OccurredAt.UTC().Format(time.RFC3339)
		resp.Timestamp = &ts
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) triggerScrape(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: msgRateLimited})
		return
	}

	res, err := h.scraper.Run(r.Context())
	if err != nil {
		h.logger.Error("scrape failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgScrapeFailed})
		return
	}

	writeJSON(w, http.StatusOK, scrapeResponse{
		Message:   msgScrapeDone,
		RunID:     res.RunID,
		Processed: res.Processed,
		Saved:     res.Saved,
		Timestamp: h.clock.Now().UTC().Format(time.RFC3339),
	})
}

// recoverJSON turns a handler panic into a generic JSON 500.
func recoverJSON(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("handler panic",
						"panic", rec,
						"path", r.URL.Path,
						"request_id", middleware.GetReqID(r.Context()),
					)
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON adds the permissive CORS header to every API response, including
// errors that bypass the cors middleware.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	sharedobs.WriteJSON(w, status, v)
}
