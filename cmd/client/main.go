// Command client is a terminal companion for manual testing against a
// running server. It announces an identity, joins one conversation and
// bridges stdin lines to send-message frames while rendering everything
// the server pushes back.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dm-core/auth"
	"dm-core/domain"
	"dm-core/infrastructure/ws"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL  string `env:"DM_SERVER_URL,default=ws://localhost:8080/ws"`
	Identity   string `env:"DM_IDENTITY,required=true"`
	Peer       string `env:"DM_PEER,required=true"`
	AuthSecret string `env:"AUTH_SECRET"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	convID, err := domain.ResolveConversationID(
		domain.UserID(config.Identity), domain.UserID(config.Peer))
	if err != nil {
		return exitConfig, fmt.Errorf("conversation error: %w", err)
	}

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Establish the websocket connection.
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// 4. Announce and join, token-based when a shared secret is available.
	announce := ws.AnnouncePayload{Identity: config.Identity}
	if config.AuthSecret != "" {
		token, err := auth.GenerateToken(config.AuthSecret, domain.UserID(config.Identity), time.Hour)
		if err != nil {
			return exitConfig, fmt.Errorf("token error: %w", err)
		}
		announce = ws.AnnouncePayload{Token: token}
	}
	if err := send(conn, ws.TypeAnnounce, announce); err != nil {
		return exitRuntime, err
	}
	if err := send(conn, ws.TypeJoin, ws.JoinPayload{ConversationID: string(convID)}); err != nil {
		return exitRuntime, err
	}

	color.Cyanln(fmt.Sprintf(">>> Connected as %s, talking to %s (Ctrl+C to quit)",
		config.Identity, config.Peer))

	// 5. Reception loop on its own goroutine; stdin loop below.
	go receive(ctx, conn, config.Identity)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		now := time.Now()
		err := send(conn, ws.TypeSend, ws.SendPayload{
			ConversationID:  string(convID),
			Text:            text,
			ClientTimestamp: &now,
		})
		if err != nil {
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, err
		}
	}
	return exitOK, nil
}

func send(conn *websocket.Conn, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(ws.Envelope{Type: eventType, Payload: raw})
}

// receive renders every server push until the connection drops. Seen
// receipts are sent back for messages authored by the peer.
func receive(ctx context.Context, conn *websocket.Conn, identity string) {
	for {
		var envelope ws.Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if ctx.Err() == nil {
				color.Redln("Connection lost: " + err.Error())
			}
			return
		}
		render(conn, identity, envelope)
	}
}

func render(conn *websocket.Conn, identity string, envelope ws.Envelope) {
	switch envelope.Type {
	case "new-message":
		var p struct {
			ConversationID string             `json:"conversationId"`
			Message        ws.MessageResponse `json:"message"`
		}
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		printMessage(p.Message, identity)
		if p.Message.Sender != identity {
			_ = send(conn, ws.TypeSeen, ws.SeenPayload{
				ConversationID: p.ConversationID,
				MessageID:      p.Message.ID,
			})
		}
	case "message-status-updated":
		var p struct {
			MessageID string `json:"messageId"`
			Status    string `json:"status"`
		}
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		color.Grayln(fmt.Sprintf("    %s -> %s", shortID(p.MessageID), colorStatus(p.Status)))
	case "user-typing":
		var p struct {
			From     string `json:"from"`
			IsTyping bool   `json:"isTyping"`
		}
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		if p.IsTyping {
			color.Grayln(fmt.Sprintf("    %s is typing...", p.From))
		}
	case "users-online":
		var p struct {
			Online []string `json:"online"`
		}
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		color.Greenln("Online: " + strings.Join(p.Online, ", "))
	case "message-history":
		var p struct {
			ConversationID string               `json:"conversationId"`
			Messages       []ws.MessageResponse `json:"messages"`
		}
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		printHistory(p.ConversationID, p.Messages)
	case "conversations":
		var p struct {
			Conversations map[string][]ws.MessageResponse `json:"conversations"`
		}
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		for id, messages := range p.Conversations {
			printHistory(id, messages)
		}
	case "error":
		var p struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(envelope.Payload, &p) != nil {
			return
		}
		color.Redln("Server rejected: " + p.Error)
	}
}

func printHistory(conversationID string, messages []ws.MessageResponse) {
	if len(messages) == 0 {
		return
	}
	color.Cyanln("History of " + conversationID)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Sender", "Text", "Status"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, msg := range messages {
		table.Append([]string{
			msg.Timestamp.Format(time.TimeOnly),
			msg.Sender,
			msg.Text,
			msg.Status,
		})
	}
	table.Render()
}

func printMessage(msg ws.MessageResponse, identity string) {
	author := color.Green.Sprint(msg.Sender)
	if msg.Sender == identity {
		author = color.Blue.Sprint("me")
	}
	fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format(time.TimeOnly), author, msg.Text)
}

func colorStatus(status string) string {
	switch status {
	case "delivered":
		return color.Yellow.Sprint(status)
	case "seen":
		return color.Green.Sprint(status)
	default:
		return status
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
