// Command probe is a development client: it connects to a relay server,
// joins a room, prints every event it receives, and forwards raw JSON
// envelopes typed on stdin.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

func send(c *websocket.Conn, event string, body any) error {
	raw, err := json.Marshal(map[string]any{"event": event, "body": body})
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, raw)
}

func main() {
	addr := flag.String("addr", "localhost:9000", "server host:port")
	room := flag.String("room", "probe", "room id to join")
	password := flag.String("password", "probe", "room password")
	nickname := flag.String("nickname", "probe", "nickname to publish")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			var env envelope
			if err := json.Unmarshal(message, &env); err != nil {
				log.Printf("Received invalid frame: %s", message)
				continue
			}
			log.Printf("<- %s %s", env.Event, env.Body)
		}
	}()

	if err := send(c, "join_game", map[string]any{"roomId": *room, "password": *password}); err != nil {
		log.Fatalf("join_game failed: %v", err)
	}
	if err := send(c, "player_state", map[string]any{"nickname": *nickname}); err != nil {
		log.Fatalf("player_state failed: %v", err)
	}

	// Stdin loop: each line is a full envelope, e.g.
	//   {"event":"player_pointer","body":{"x":1,"y":2}}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var env envelope
			if err := json.Unmarshal([]byte(line), &env); err != nil {
				log.Printf("Not an envelope: %v", err)
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				log.Printf("Write error: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted, closing")
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-done
	}
}
