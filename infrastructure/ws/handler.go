// Package ws is the websocket transport of the messaging core. It decodes
// inbound frames, guards them with identity resolution, and delegates to
// the service layer; one read pump per connection preserves arrival order.
package ws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dm-core/auth"
	"dm-core/domain"
	"dm-core/errors"
	"dm-core/internal/metrics"
	"dm-core/services"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Handler struct {
	log                *slog.Logger
	service            services.IDMService
	verifier           *auth.Verifier
	allowPlainIdentity bool
	sendBuffer         int
	upgrader           websocket.Upgrader
	validate           *validator.Validate
}

func NewHandler(log *slog.Logger, service services.IDMService, verifier *auth.Verifier,
	allowPlainIdentity bool, sendBuffer int) *Handler {
	return &Handler{
		log:                log,
		service:            service,
		verifier:           verifier,
		allowPlainIdentity: allowPlainIdentity,
		sendBuffer:         sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy belongs to the fronting proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		validate: validator.New(),
	}
}

// ServeHTTP upgrades the connection and runs its event loop. The handler
// goroutine becomes the read pump; the write pump runs alongside. Returning
// from here means the connection is gone, which is reported to the core as
// an implicit disconnect.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(uuid.NewString(), conn, h.sendBuffer, h.log)
	metrics.OnlineConns.Inc()
	go client.writePump()

	h.readPump(r.Context(), client)

	metrics.OnlineConns.Dec()
	h.service.Disconnect(context.Background(), client.ID())
	client.close()
}

func (h *Handler) readPump(ctx context.Context, client *Client) {
	client.conn.SetReadLimit(maxFrameSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Connection closed unexpectedly", "conn_id", client.ID(), "error", err)
			}
			return
		}
		h.handleFrame(ctx, client, data)
	}
}

// handleFrame dispatches one inbound frame. Protocol and consistency errors
// are answered with an error frame and logged; the connection always stays
// open. Nothing here is fatal to the process.
func (h *Handler) handleFrame(ctx context.Context, client *Client, data []byte) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		h.reject(client, "", fmt.Errorf("malformed frame: %w", err))
		return
	}

	var err error
	switch envelope.Type {
	case TypeAnnounce:
		err = h.handleAnnounce(ctx, client, envelope.Payload)
	case TypeJoin:
		var p JoinPayload
		if err = h.decode(envelope.Payload, &p); err == nil {
			err = h.service.Join(ctx, client.ID(), domain.ConversationID(p.ConversationID))
		}
	case TypeSend:
		var p SendPayload
		if err = h.decode(envelope.Payload, &p); err == nil {
			_, err = h.service.Send(ctx, client.ID(),
				domain.ConversationID(p.ConversationID), p.Text, p.ClientTimestamp)
		}
	case TypeSeen:
		var p SeenPayload
		if err = h.decode(envelope.Payload, &p); err == nil {
			err = h.service.MarkSeen(ctx, client.ID(),
				domain.ConversationID(p.ConversationID), domain.MessageID(p.MessageID))
		}
	case TypeTyping:
		var p TypingPayload
		if err = h.decode(envelope.Payload, &p); err == nil {
			err = h.service.NotifyTyping(ctx, client.ID(),
				domain.ConversationID(p.ConversationID), p.IsTyping)
		}
	default:
		err = fmt.Errorf("unknown event type %q", envelope.Type)
	}

	if err != nil {
		h.reject(client, envelope.Type, err)
	}
}

func (h *Handler) handleAnnounce(ctx context.Context, client *Client, payload []byte) error {
	var p AnnouncePayload
	if err := h.decode(payload, &p); err != nil {
		return err
	}

	var identity domain.UserID
	switch {
	case p.Token != "" && h.verifier == nil:
		return fmt.Errorf("token announce without verifier configured: %w", errors.ErrInvalidToken)
	case p.Token != "":
		verified, err := h.verifier.Authenticate(p.Token)
		if err != nil {
			return err
		}
		identity = verified
	case h.allowPlainIdentity:
		identity = domain.UserID(p.Identity)
	default:
		return fmt.Errorf("plain identity announce rejected: %w", errors.ErrInvalidToken)
	}

	h.service.Announce(ctx, client.ID(), identity, client)
	return nil
}

func (h *Handler) decode(payload []byte, target any) error {
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if err := h.validate.Struct(target); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// reject answers the initiating connection and logs. An event from an
// unannounced connection is only warned about, per the no-crash rule.
func (h *Handler) reject(client *Client, eventType string, err error) {
	if stderrors.Is(err, errors.ErrUnknownConnection) {
		h.log.Warn("Event from unannounced connection dropped",
			"conn_id", client.ID(), "event", eventType)
	} else {
		h.log.Warn("Rejected inbound event",
			"conn_id", client.ID(), "event", eventType, "error", err)
	}
	client.enqueueRaw(EncodeError(err.Error()))
}
