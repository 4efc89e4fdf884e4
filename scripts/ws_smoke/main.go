package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/gamenode/internal/auth"
	"github.com/vovakirdan/gamenode/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:9000/node1/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to sign the token for")
	secret := flag.String("secret", "", "JWT secret shared with the node")
	text := flag.String("text", "hello from smoke test", "chat text to send")
	leave := flag.Bool("leave", false, "leave the game after the chat round trip")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := auth.GenerateToken(&auth.JWTConfig{Secret: []byte(*secret), TTL: time.Minute}, *user)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	u, err := url.Parse(*addr)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	// The node pushes the current state as soon as the seat is attached.
	if _, err := readState(ctx, conn); err != nil {
		return err
	}
	fmt.Println("attached to game")

	chatArg, err := json.Marshal(*text)
	if err != nil {
		return fmt.Errorf("marshal chat: %w", err)
	}
	chat := proto.Inbound{Type: proto.InboundTypeGame, Command: "chat", Args: []json.RawMessage{chatArg}}
	if err := wsjson.Write(ctx, conn, chat); err != nil {
		return fmt.Errorf("send chat: %w", err)
	}

	want := *user + ": " + *text
	for {
		state, err := readState(ctx, conn)
		if err != nil {
			return err
		}
		if strings.Contains(string(state), want) {
			fmt.Printf("chat round trip ok: %q\n", want)
			break
		}
	}

	if !*leave {
		return nil
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.CommandLeaveGame}); err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if out.Type == proto.OutboundTypeClearGameState {
			fmt.Println("left game")
			return nil
		}
	}
}

func readState(ctx context.Context, conn *websocket.Conn) (json.RawMessage, error) {
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if out.Type == proto.OutboundTypeGameState {
			return out.Data, nil
		}
		fmt.Printf("ignoring outbound type=%s\n", out.Type)
	}
}
