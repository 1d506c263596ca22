package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dyluth/warren/internal/chunk"
	"github.com/dyluth/warren/internal/orchestrator"
	"github.com/dyluth/warren/internal/session"
	"github.com/dyluth/warren/internal/strategy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxRequestBytes bounds request bodies.
const maxRequestBytes = 1 << 20

// HTTPHandler exposes the command surface over HTTP.
type HTTPHandler struct {
	orch       Orchestrator
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// MessageRequest is the body of POST /v1/users/{userID}/messages and
// POST /v1/users/{userID}/commands.
type MessageRequest struct {
	Text string `json:"text"`
}

// StrategyRequest is the body of PUT /v1/users/{userID}/strategy.
type StrategyRequest struct {
	Strategy string `json:"strategy"`
}

// MessageResponse is returned for a handled message.
type MessageResponse struct {
	RequestID        string          `json:"request_id"`
	Strategy         strategy.Kind   `json:"strategy"`
	Specialists      []string        `json:"specialists"`
	Failed           []string        `json:"failed,omitempty"`
	InteractionCount int64           `json:"interaction_count"`
	Segments         []chunk.Segment `json:"segments"`
}

// CommandResponse is returned for POST /v1/users/{userID}/commands.
type CommandResponse struct {
	Command  CommandKind     `json:"command"`
	Segments []chunk.Segment `json:"segments"`
	Error    string          `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`   // wording for people
	Details string `json:"details"` // underlying error
}

// NewHTTPHandler builds the chi router. A nil logger disables request logs.
func NewHTTPHandler(orch Orchestrator, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTPHandler{
		orch:       orch,
		dispatcher: NewDispatcher(orch, logger),
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/healthz", orchestrator.NewHealthHandler(orch))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/strategies", h.ListStrategies)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/start", h.Start)
			r.Post("/messages", h.PostMessage)
			r.Post("/commands", h.PostCommand)
			r.Put("/strategy", h.PutStrategy)
			r.Get("/status", h.GetStatus)
		})
	})

	return r
}

// NewHTTPServer wraps handler in a server with conservative timeouts.
// writeTimeout must leave room for the slowest strategy.
func NewHTTPServer(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// ListStrategies handles GET /v1/strategies.
func (h *HTTPHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Kind        strategy.Kind `json:"kind"`
		Title       string        `json:"title"`
		Specialists []string      `json:"specialists"`
		Synthesize  bool          `json:"synthesize,omitempty"`
	}

	out := make([]entry, 0, len(strategy.Kinds()))
	for _, st := range h.dispatcher.strategies() {
		out = append(out, entry{
			Kind:        st.Kind,
			Title:       StrategyTitle(st.Kind),
			Specialists: st.SpecialistIDs,
			Synthesize:  st.Synthesize,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"strategies": out})
}

// Start handles POST /v1/users/{userID}/start.
func (h *HTTPHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.orch.Start(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"session":  sess,
		"greeting": GreetingText(sess, h.dispatcher.strategies()),
	})
}

// PostMessage handles POST /v1/users/{userID}/messages.
func (h *HTTPHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.orch.Process(r.Context(), chi.URLParam(r, "userID"), req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}

	JSON(w, http.StatusOK, MessageResponse{
		RequestID:        res.RequestID,
		Strategy:         res.Reply.Mode,
		Specialists:      res.Reply.SpecialistIDs,
		Failed:           res.Reply.Failed,
		InteractionCount: res.Session.InteractionCount,
		Segments:         res.Segments,
	})
}

// PostCommand handles POST /v1/users/{userID}/commands: the same text
// surface as the console, commands and messages alike.
func (h *HTTPHandler) PostCommand(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !decode(w, r, &req) {
		return
	}

	reply := h.dispatcher.Dispatch(r.Context(), chi.URLParam(r, "userID"), req.Text)

	resp := CommandResponse{Command: reply.Command.Kind, Segments: reply.Segments}
	status := http.StatusOK
	if reply.Err != nil {
		resp.Error = reply.Err.Error()
		status = StatusCode(reply.Err)
	}
	JSON(w, status, resp)
}

// PutStrategy handles PUT /v1/users/{userID}/strategy.
func (h *HTTPHandler) PutStrategy(w http.ResponseWriter, r *http.Request) {
	var req StrategyRequest
	if !decode(w, r, &req) {
		return
	}

	kind, err := h.orch.SwitchStrategy(r.Context(), chi.URLParam(r, "userID"), req.Strategy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"active_strategy": kind})
}

// GetStatus handles GET /v1/users/{userID}/status.
func (h *HTTPHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.orch.Status(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, st)
}

// StatusCode maps an error onto an HTTP status.
func StatusCode(err error) int {
	var unknown *strategy.UnknownStrategyError
	switch {
	case errors.As(err, &unknown),
		errors.Is(err, orchestrator.ErrEmptyMessage),
		errors.Is(err, session.ErrEmptyUserID):
		return http.StatusBadRequest
	case strategy.IsTimeout(err):
		return http.StatusGatewayTimeout
	case strategy.IsExecutionError(err):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	JSON(w, StatusCode(err), ErrorResponse{Error: Describe(err), Details: err.Error()})
}

// requestLogger logs each request once it completes.
func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.Info("http_request",
			zap.String("component", "channel"),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		JSON(w, http.StatusBadRequest, ErrorResponse{Error: "Request body must be a JSON object.", Details: err.Error()})
		return false
	}
	return true
}
