package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"quizmap-service/internal/app"
	"quizmap-service/internal/quiz"
)

type WSHandler struct {
	service  *app.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service) *WSHandler {
	return &WSHandler{
		service: service,
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

type startPayload struct {
	Subject string `json:"subject"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type lifelinePayload struct {
	Kind string `json:"kind"`
}

const (
	lifelineFiftyFifty = "fifty-fifty"
	lifelineExtraTime  = "extra-time"
)

type tickPayload struct {
	Index     int `json:"index"`
	Remaining int `json:"remaining"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: errorBody(err).Error, Status: statusFor(err)}}
}

// ServeWS upgrades HTTP requests to websockets and drives one player's
// attempts over the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if player == "" {
		http.Error(w, "missing player", http.StatusBadRequest)
		return
	}
	if _, err := h.service.Profile(r.Context(), player); err != nil {
		writeErr(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.SubscribeLeaderboard(r.Context())
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	// Only attempts started on this socket are abandoned when it drops; another
	// tab of the same player keeps its attempt.
	var owned string
	defer func() {
		if owned != "" {
			h.service.AbandonAttempt(player, owned)
		}
	}()

	send := make(chan outboundMessage[any], 16)
	events := make(chan quiz.Event, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("ws write error", "player", player, "error", err)
				return
			}
		}
	}()

	// Countdown events and leaderboard updates arrive from other goroutines
	// and are funnelled into the single writer.
	go func() {
		defer close(forwardDone)
		for {
			var msg outboundMessage[any]
			select {
			case ev := <-events:
				msg = timerMessage(ev)
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg = outboundMessage[any]{Type: "leaderboard", Payload: update}
			case <-closeSignals:
				return
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	listener := func(ev quiz.Event) {
		select {
		case events <- ev:
		case <-closeSignals:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handle(r, player, inbound, listener, &owned) {
			send <- msg
		}
	}

	close(closeSignals)
	<-forwardDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(r *http.Request, player string, in inboundMessage, listener func(quiz.Event), owned *string) []outboundMessage[any] {
	ctx := r.Context()
	reply := func(typ string, payload any, err error) []outboundMessage[any] {
		if err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return []outboundMessage[any]{{Type: typ, Payload: payload}}
	}
	invalid := []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "invalid " + in.Type + " payload", Status: http.StatusBadRequest}}}

	switch in.Type {
	case "start":
		var p startPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid
		}
		a, view, err := h.service.StartAttempt(ctx, player, p.Subject, listener)
		if err == nil {
			*owned = a.ID()
		}
		return reply("question", view, err)
	case "review":
		a, view, err := h.service.StartReview(ctx, player, listener)
		if err == nil {
			*owned = a.ID()
		}
		return reply("question", view, err)
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid
		}
		reveal, err := h.service.Submit(player, p.Answer)
		return reply("revealed", reveal, err)
	case "continue":
		view, err := h.service.Continue(player)
		if err != nil || view.State != quiz.Complete {
			return reply("question", view, err)
		}
		report, err := h.service.FinishAttempt(ctx, player)
		return reply("complete", report, err)
	case "lifeline":
		var p lifelinePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return invalid
		}
		var err error
		switch p.Kind {
		case lifelineFiftyFifty:
			_, err = h.service.UseFiftyFifty(player)
		case lifelineExtraTime:
			_, err = h.service.UseExtraTime(player)
		default:
			return invalid
		}
		if err != nil {
			return reply("", nil, err)
		}
		a, err := h.service.Attempt(player)
		if err != nil {
			return reply("", nil, err)
		}
		return reply("question", a.Current(), nil)
	case "abandon":
		h.service.Abandon(player)
		return reply("abandoned", struct{}{}, nil)
	default:
		return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: "unsupported message type", Status: http.StatusBadRequest}}}
	}
}

func timerMessage(ev quiz.Event) outboundMessage[any] {
	if ev.Kind == quiz.EventTimeout && ev.Reveal != nil {
		return outboundMessage[any]{Type: "revealed", Payload: *ev.Reveal}
	}
	return outboundMessage[any]{Type: "tick", Payload: tickPayload{Index: ev.Index, Remaining: ev.Remaining}}
}
