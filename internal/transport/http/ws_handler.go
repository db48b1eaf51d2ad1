package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"arithmetic-practice-service/internal/app"
	"arithmetic-practice-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.PracticeService
	limits   Limits
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PracticeService, limits Limits) *WSHandler {
	return &WSHandler{
		service: service,
		limits:  limits.normalized(),
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
	ProblemIndex int        `json:"problemIndex"`
	Answer       flexNumber `json:"answer"`
}

type answerResult struct {
	ProblemIndex int  `json:"problemIndex"`
	IsCorrect    bool `json:"isCorrect"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one practice session over the socket:
// the session starts on connect, answers stream in, and "finish" closes it out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	grade, err := strconv.Atoi(r.URL.Query().Get("grade"))
	if err != nil {
		http.Error(w, "missing or invalid grade", http.StatusBadRequest)
		return
	}
	count := h.limits.DefaultCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 1 || count > h.limits.MaxCount {
			http.Error(w, fmt.Sprintf("count must be between 1 and %d", h.limits.MaxCount), http.StatusBadRequest)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.StartSession(r.Context(), grade, count)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	emit := func(typ string, payload any) bool {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
			return true
		case <-writerDone:
			return false
		}
	}
	emitError := func(err error) bool {
		return emit("error", errorPayload{Message: err.Error()})
	}

	emit("started", session)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var ok bool
		switch inbound.Type {
		case "answer":
			ok = h.handleAnswer(r, session.ID, inbound.Payload, emit, emitError)
		case "finish":
			summary, err := h.service.FinishSession(r.Context(), session.ID)
			if err != nil {
				ok = emitError(err)
				break
			}
			ok = emit("finished", summary)
		default:
			ok = emitError(fmt.Errorf("unsupported message type %q", inbound.Type))
		}
		if !ok {
			break
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) handleAnswer(r *http.Request, sessionID int64, raw json.RawMessage, emit func(string, any) bool, emitError func(error) bool) bool {
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return emitError(fmt.Errorf("%w: invalid answer payload", domain.ErrMalformedInput))
	}
	value, err := domain.ParseAnswer(string(payload.Answer))
	if err != nil {
		return emitError(err)
	}
	correct, err := h.service.SubmitAnswer(r.Context(), sessionID, payload.ProblemIndex, value)
	if err != nil {
		return emitError(err)
	}
	return emit("answerResult", answerResult{ProblemIndex: payload.ProblemIndex, IsCorrect: correct})
}
