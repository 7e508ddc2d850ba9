package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quizparty/internal/domain"
	"quizparty/internal/game"
	"quizparty/internal/modes"
)

// WSHandler bridges websocket clients into the lobby and the game state
// machines: players join by room code, the host drives its machine with
// command messages, and every room broadcast is forwarded to the socket.
type WSHandler struct {
	lobby    *game.Lobby
	manager  *game.Manager
	upgrader websocket.Upgrader
}

func NewWSHandler(lobby *game.Lobby, manager *game.Manager) *WSHandler {
	return &WSHandler{
		lobby:   lobby,
		manager: manager,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type selectPayload struct {
	OptionID string `json:"optionId"`
}

type kickPayload struct {
	ParticipantID string `json:"participantId"`
}

type joinedPayload struct {
	SessionID     string `json:"sessionId"`
	RoomCode      string `json:"roomCode"`
	ParticipantID string `json:"participantId"`
	ModeID        string `json:"modeId"`
	QuizTitle     string `json:"quizTitle,omitempty"`
}

// ListModes serves the mode catalog.
func (h *WSHandler) ListModes(w http.ResponseWriter, r *http.Request) {
	type modeView struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		MinPlayers  int      `json:"minPlayers"`
		MaxPlayers  int      `json:"maxPlayers"`
		Teams       bool     `json:"teams"`
		Mechanics   []string `json:"mechanics,omitempty"`
	}
	all := modes.All()
	out := make([]modeView, len(all))
	for i, m := range all {
		out[i] = modeView{
			ID: m.ID, Name: m.Name, Description: m.Description,
			MinPlayers: m.MinPlayers, MaxPlayers: m.MaxPlayers,
			Teams: m.Teams, Mechanics: m.Mechanics,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type createSessionRequest struct {
	QuizID     string         `json:"quizId"`
	ModeID     string         `json:"modeId"`
	ModeConfig map[string]int `json:"modeConfig,omitempty"`
	HostUserID string         `json:"hostUserId"`
	HostName   string         `json:"hostName"`
	TimeLimitS int            `json:"timeLimitS,omitempty"`
}

// CreateSession sets up a game and returns its room code.
func (h *WSHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.QuizID == "" || req.ModeID == "" || req.HostUserID == "" || req.HostName == "" {
		http.Error(w, "missing quizId, modeId, hostUserId, or hostName", http.StatusBadRequest)
		return
	}
	session, host, err := h.lobby.CreateSession(r.Context(), game.CreateSessionInput{
		QuizID:     req.QuizID,
		ModeID:     req.ModeID,
		ModeConfig: req.ModeConfig,
		HostUserID: req.HostUserID,
		HostName:   req.HostName,
		TimeLimit:  time.Duration(req.TimeLimitS) * time.Second,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(joinedPayload{
		SessionID:     session.ID,
		RoomCode:      session.RoomCode,
		ParticipantID: host.ID,
		ModeID:        session.ModeID,
		QuizTitle:     session.Snapshot.Title,
	})
}

// ServeWS upgrades the connection and runs either the host command loop or
// the player loop, depending on the role query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("role") == "host" {
		h.serveHost(w, r)
		return
	}
	h.servePlayer(w, r)
}

func (h *WSHandler) servePlayer(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("roomCode")
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	if roomCode == "" || userID == "" || name == "" {
		http.Error(w, "missing roomCode, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, participant, err := h.lobby.Join(r.Context(), game.JoinInput{
		RoomCode:    roomCode,
		UserID:      userID,
		DisplayName: name,
		AvatarID:    r.URL.Query().Get("avatar"),
	})
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	player := h.manager.NewPlayer(session, participant)
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go func() {
		if err := player.Run(runCtx); err != nil && err != context.Canceled {
			log.Printf("player %s: run ended: %v", participant.ID, err)
		}
	}()

	events, cancel, err := h.manager.Channel(session.ID).Subscribe(runCtx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send, cleanup := wireConn(conn, events)
	defer cleanup()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		SessionID:     session.ID,
		RoomCode:      session.RoomCode,
		ParticipantID: participant.ID,
		ModeID:        session.ModeID,
		QuizTitle:     session.Snapshot.Title,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				continue
			}
			state := player.Select(payload.OptionID)
			send <- outboundMessage[any]{Type: "selection", Payload: state.Selected}
		case "mode_choice":
			var choice modes.Choice
			if err := json.Unmarshal(inbound.Payload, &choice); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid mode choice payload"}}
				continue
			}
			if err := h.lobby.SetModeChoice(r.Context(), session.ID, participant.ID, choice); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "mode_choice", Payload: choice}
		case "submit":
			if err := player.Submit(r.Context()); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "submitted", Payload: player.State().QuestionIndex}
		case "leave":
			player.Leave()
			if err := h.lobby.Leave(r.Context(), session.ID, participant.ID); err != nil {
				log.Printf("player %s: leave: %v", participant.ID, err)
			}
			return
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	// socket dropped without an explicit leave: mark the player offline
	player.Leave()
	if err := h.lobby.Leave(context.Background(), session.ID, participant.ID); err != nil {
		log.Printf("player %s: leave on disconnect: %v", participant.ID, err)
	}
}

func (h *WSHandler) serveHost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	participantID := r.URL.Query().Get("participantId")
	if sessionID == "" || participantID == "" {
		http.Error(w, "missing sessionId or participantId", http.StatusBadRequest)
		return
	}
	if err := h.lobby.AuthorizeHost(r.Context(), sessionID, participantID); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, domain.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// host loop outlives this socket so a dropped host can reconnect
	host := h.manager.Host(context.Background(), sessionID)

	events, cancel, err := h.manager.Channel(sessionID).Subscribe(r.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send, cleanup := wireConn(conn, events)
	defer cleanup()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		var cmdErr error
		switch inbound.Type {
		case "start_game":
			cmdErr = host.StartGame(r.Context())
		case "start_round":
			cmdErr = host.StartRound(r.Context())
		case "end_round":
			cmdErr = host.EndRound(r.Context())
		case "advance":
			cmdErr = host.Advance(r.Context())
		case "end_game":
			cmdErr = host.EndGame(r.Context())
		case "kick":
			var payload kickPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				cmdErr = err
				break
			}
			cmdErr = h.kick(r.Context(), sessionID, participantID, payload.ParticipantID)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
			continue
		}
		if cmdErr != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: cmdErr.Error()}}
			continue
		}
		send <- outboundMessage[any]{Type: "ack", Payload: inbound.Type}
	}
}

func (h *WSHandler) kick(ctx context.Context, sessionID, byID, targetID string) error {
	if err := h.lobby.Kick(ctx, sessionID, byID, targetID); err != nil {
		return err
	}
	// tell the kicked player's client; presence catches anyone who misses it
	return h.manager.Channel(sessionID).Broadcast(ctx, domain.NewEvent(
		domain.EventParticipantKicked,
		domain.ParticipantKickedData{ParticipantID: targetID},
		time.Now(),
	))
}

// wireConn serializes all socket writes through one goroutine and forwards
// room events into it. The returned cleanup stops the forwarder before
// closing the send channel so nothing writes to a closed channel.
func wireConn(conn *websocket.Conn, events <-chan domain.RealtimeEvent) (chan outboundMessage[any], func()) {
	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(forwardDone)
		for {
			select {
			case <-closeSignals:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev.Data}:
				case <-closeSignals:
					return
				}
			}
		}
	}()

	cleanup := func() {
		close(closeSignals)
		<-forwardDone
		close(send)
		<-writerDone
	}
	return send, cleanup
}
