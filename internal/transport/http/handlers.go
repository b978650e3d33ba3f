package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/auth"
	"english-quiz-service/internal/domain"
)

// Handler exposes the session use cases over REST and WebSocket.
type Handler struct {
	service  *app.SessionService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service *app.SessionService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type openRequest struct {
	QuizID string `json:"quizId"`
}

type answerRequest struct {
	Option domain.OptionLabel `json:"option"`
}

type navigateRequest struct {
	Action string `json:"action"` // next | previous | jump
	Index  int    `json:"index"`
}

type errorBody struct {
	Error   string                  `json:"error"`
	Session *domain.SessionSnapshot `json:"session,omitempty"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	learner, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthorized, nil)
		return
	}
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "quizId is required"})
		return
	}
	session, err := h.service.Open(r.Context(), learner, req.QuizID)
	if err != nil {
		h.writeError(w, err, session)
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error { return nil })
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error { return s.Start() })
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid answer payload"})
		return
	}
	h.withSession(w, r, func(s *app.Session) error { return s.SelectAnswer(req.Option) })
}

func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid navigate payload"})
		return
	}
	h.withSession(w, r, func(s *app.Session) error { return navigate(s, req.Action, req.Index) })
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *app.Session) error {
		_, err := s.Submit(r.Context())
		return err
	})
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	learner, _ := auth.FromContext(r.Context())
	if err := h.service.Leave(r.Context(), learner, chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withSession resolves the caller's session, applies action and answers with the
// resulting snapshot.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, action func(*app.Session) error) {
	learner, _ := auth.FromContext(r.Context())
	session, err := h.service.Get(r.Context(), learner, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	if err := action(session); err != nil {
		h.writeError(w, err, session)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func navigate(s *app.Session, action string, index int) error {
	switch action {
	case "next":
		return s.Next()
	case "previous":
		return s.Previous()
	case "jump":
		return s.JumpTo(index)
	}
	return errUnknownAction
}

var (
	errUnknownAction      = errors.New("unknown navigation action")
	errUnsupportedMessage = errors.New("unsupported message type")
)

func (h *Handler) writeError(w http.ResponseWriter, err error, session *app.Session) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	if session != nil {
		snap := session.Snapshot()
		body.Session = &snap
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrQuestionIndexOutOfRange),
		errors.Is(err, errUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPhase),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrNoAnswers),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusConflict
	}
	// Remaining errors come from the stores behind the session.
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
