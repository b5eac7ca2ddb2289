package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/zKi3v/ECOALERTA-FTD/internal/adapters/nats"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to truck feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "fleet" | "follow" | "arrivals" (default: fleet)
	Truck   string `json:"truck"`   // fleet truck filter (optional)
	Report  string `json:"report"`  // report filter for follow and arrivals (optional)
}

// channelSubject maps a client subscription onto a NATS subject.
func channelSubject(m wsMessage) (string, bool) {
	channel := m.Channel
	if channel == "" {
		channel = "fleet"
	}
	switch channel {
	case "fleet":
		if m.Truck != "" {
			return natsadapter.SubjectFleetPrefix + m.Truck, true
		}
		return natsadapter.SubjectFleetPrefix + ">", true
	case "follow":
		if m.Report != "" {
			return natsadapter.SubjectFollowPrefix + m.Report, true
		}
		return natsadapter.SubjectFollowPrefix + ">", true
	case "arrivals":
		if m.Report != "" {
			return natsadapter.SubjectArrivalPrefix + m.Report, true
		}
		return natsadapter.SubjectArrivalPrefix + ">", true
	default:
		return "", false
	}
}

// WebSocketHandler returns a handler that relays truck frames and arrivals
// from NATS to connected clients.
// Clients send JSON: {"action":"subscribe","channel":"follow","report":"15"}.
// New connections receive the whole fleet until they unsubscribe from it.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		log := slog.Default().With("remote", remoteAddr)
		if nc == nil {
			_ = c.WriteJSON(map[string]string{"error": "realtime feed unavailable"})
			return
		}
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		defaultSubject, _ := channelSubject(wsMessage{})
		sub, err := nc.Subscribe(defaultSubject, relay)
		if err != nil {
			log.Warn("ws default subscribe failed", "error", err)
			return
		}
		subs[defaultSubject] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := channelSubject(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}
