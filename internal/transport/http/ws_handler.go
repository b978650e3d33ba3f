package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/auth"
	"english-quiz-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

// ServeWS upgrades to a websocket that streams session snapshots and accepts learner
// commands. Dropping the connection leaves the session running; only DELETE abandons it.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	learner, _ := auth.FromContext(r.Context())
	session, err := h.service.Get(r.Context(), learner, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := session.Subscribe()
	defer cancel()

	inbound := make(chan inboundMessage)
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(readerDone)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-stop:
				return
			}
		}
	}()

	// Submissions must outlive the socket.
	ctx := context.WithoutCancel(r.Context())

	// This goroutine is the only writer on conn.
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "closed", Payload: errorPayload{Message: "session closed"}})
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.SessionSnapshot]{Type: "snapshot", Payload: snap}); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		case msg := <-inbound:
			if err := h.dispatch(ctx, session, msg); err != nil {
				if werr := conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}); werr != nil {
					return
				}
			}
		case <-readerDone:
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, session *app.Session, msg inboundMessage) error {
	switch msg.Type {
	case "start":
		return session.Start()
	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return domain.ErrInvalidOption
		}
		return session.SelectAnswer(payload.Option)
	case "next":
		return session.Next()
	case "previous":
		return session.Previous()
	case "jump":
		var payload jumpPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return domain.ErrQuestionIndexOutOfRange
		}
		return session.JumpTo(payload.Index)
	case "submit":
		_, err := session.Submit(ctx)
		return err
	}
	return errUnsupportedMessage
}
