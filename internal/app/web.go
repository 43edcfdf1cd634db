// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/tapglove/internal/config"
	"github.com/relabs-tech/tapglove/internal/logger"
	"github.com/relabs-tech/tapglove/internal/transcript"
)

const wsWriteTimeout = time.Second

// wsEvent is pushed to every websocket client.
type wsEvent struct {
	Type string          `json:"type"` // "text" or "tap"
	Data json.RawMessage `json:"data"`
	Text string          `json:"text"` // transcript after the event
}

// hub fans events out to connected websocket clients.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.Close()
	}
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast writes ev to every client, dropping the ones that fail.
func (h *hub) broadcast(ev wsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.WriteJSON(ev); err != nil {
			logger.Log.Debugf("web: dropping client %s: %v", c.RemoteAddr(), err)
			delete(h.clients, c)
			c.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type textResponse struct {
	Text  string `json:"text"`
	Count uint64 `json:"count"`
}

// newWebHandler serves the transcript API, the websocket feed and the static
// page from staticDir.
func newWebHandler(tr *transcript.Transcript, h *hub, staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/text", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodDelete:
			tr.Reset()
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(textResponse{Text: tr.String(), Count: tr.Count()}); err != nil {
			logger.Log.Warnf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Warnf("web: websocket upgrade: %v", err)
			return
		}
		h.add(c)
		logger.Log.Debugf("web: client %s connected", c.RemoteAddr())
		// the feed is one-way; reading only detects the close
		go func() {
			defer h.remove(c)
			for {
				if _, _, err := c.NextReader(); err != nil {
					return
				}
			}
		}()
	})

	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb serves a live view of the decoded text on WEB_SERVER_PORT.
func RunWeb(ctx context.Context, staticDir string) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	tr := transcript.New(0)
	h := newHub()

	err = subscribe(client, cfg.TopicText, func(_ mqtt.Client, msg mqtt.Message) {
		if _, err := applyText(tr, msg.Payload()); err != nil {
			logger.Log.Warnf("web: %v", err)
			return
		}
		h.broadcast(wsEvent{Type: "text", Data: msg.Payload(), Text: tr.String()})
	})
	if err != nil {
		return err
	}
	err = subscribe(client, cfg.TopicTaps, func(_ mqtt.Client, msg mqtt.Message) {
		if !json.Valid(msg.Payload()) {
			logger.Log.Warnf("web: invalid tap payload on %s", msg.Topic())
			return
		}
		h.broadcast(wsEvent{Type: "tap", Data: msg.Payload(), Text: tr.String()})
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newWebHandler(tr, h, staticDir),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Log.Infof("web: listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
