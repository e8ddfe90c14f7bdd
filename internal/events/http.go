package events

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/adxrelay/internal/dispatch"
)

// HTTPHandler receives pushed storage events (Event Grid webhook style) and
// runs each contained notification through the dispatcher. Any failed
// dispatch maps to a 5xx response so the pusher redelivers the whole
// delivery; skips are success.
type HTTPHandler struct {
	dispatcher   *dispatch.Dispatcher
	logger       *zap.Logger
	maxBodyBytes int64
	router       chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(dispatcher *dispatch.Dispatcher, logger *zap.Logger, maxBodyBytes int64) *HTTPHandler {
	h := &HTTPHandler{
		dispatcher:   dispatcher,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/v1/events", h.handleEvents)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	// Event Grid sends a one-time handshake when the subscription is
	// created; echo the code back instead of dispatching.
	if code, ok := ValidationCode(body); ok {
		writeJSON(w, http.StatusOK, map[string]string{
			"validationResponse": code,
		})
		return
	}

	notifications, err := ParseNotifications(body)
	if err != nil {
		h.logger.Warn("undecodable event payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "undecodable event payload")
		return
	}

	var submitted, skipped, failed int
	for _, n := range notifications {
		switch out := h.dispatcher.Dispatch(r.Context(), n); out.State {
		case dispatch.StateSubmitted:
			submitted++
		case dispatch.StateFailed:
			failed++
		default:
			skipped++
		}
	}

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]int{
		"submitted": submitted,
		"skipped":   skipped,
		"failed":    failed,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
