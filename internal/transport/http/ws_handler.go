package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/quiz"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(service *app.QuizService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type reviewPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionView is a question without its answer key.
type questionView struct {
	ID      string                `json:"id"`
	Text    string                `json:"text"`
	Kind    domain.QuestionKind   `json:"kind"`
	Options []domain.AnswerOption `json:"options"`
}

type sessionPayload struct {
	SessionID string         `json:"sessionId"`
	Title     string         `json:"title,omitempty"`
	Questions []questionView `json:"questions"`
	Snapshot  quiz.Snapshot  `json:"snapshot"`
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	catalogID := r.URL.Query().Get("catalogId")
	if catalogID == "" {
		http.Error(w, "missing catalogId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID, snap, err := h.service.CreateSession(ctx, catalogID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Close(ctx, sessionID)

	catalog, err := h.service.Catalog(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	logger := h.logger.With(zap.String("session_id", sessionID), zap.String("catalog_id", catalogID))
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	// Events arrive in session order: a command's state, or finished
	// followed by the state of the command that ended the quiz.
	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev.Snapshot}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{
		SessionID: sessionID,
		Title:     catalog.Title,
		Questions: questionViews(catalog),
		Snapshot:  snap,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "state" {
			current, err := h.service.Snapshot(ctx, sessionID)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: current}
			continue
		}

		cmd, err := decodeCommand(inbound)
		if err != nil {
			send <- errorMessage(err.Error())
			continue
		}
		if _, err := h.service.Dispatch(ctx, sessionID, cmd); err != nil {
			if errors.Is(err, domain.ErrUnsupportedCommand) {
				send <- errorMessage("unsupported message type")
				continue
			}
			send <- errorMessage(err.Error())
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func decodeCommand(in inboundMessage) (quiz.Command, error) {
	switch quiz.CommandType(in.Type) {
	case quiz.CmdSelectAnswer:
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return quiz.Command{}, errors.New("invalid answer payload")
		}
		return quiz.SelectAnswer(payload.QuestionID, payload.OptionID), nil
	case quiz.CmdSelectForReview:
		var payload reviewPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return quiz.Command{}, errors.New("invalid review payload")
		}
		return quiz.SelectForReview(payload.Index), nil
	default:
		return quiz.Command{Type: quiz.CommandType(in.Type)}, nil
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func questionViews(c domain.Catalog) []questionView {
	views := make([]questionView, 0, len(c.Questions))
	for _, q := range c.Questions {
		views = append(views, questionView{ID: q.ID, Text: q.Text, Kind: q.Kind, Options: q.Options})
	}
	return views
}
