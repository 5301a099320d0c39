package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Phoenix V2 serializer 的事件名稱子集，模擬器只實作元件用得到的部分
const (
	eventJoin         = "phx_join"
	eventLeave        = "phx_leave"
	eventReply        = "phx_reply"
	eventHeartbeat    = "heartbeat"
	eventOutbid       = "outbid"
	eventAuctionEnded = "auction_ended"

	topicPhoenix = "phoenix"
)

// frame 為一則 V2 線上訊息: [joinRef, ref, topic, event, payload]
type frame struct {
	JoinRef string
	Ref     string
	Topic   string
	Event   string
	Payload json.RawMessage
}

func decodeFrame(data []byte) (frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	if len(parts) != 5 {
		return frame{}, fmt.Errorf("unexpected frame length %d", len(parts))
	}

	var f frame
	for i, out := range []*string{&f.JoinRef, &f.Ref, &f.Topic, &f.Event} {
		if string(parts[i]) == "null" {
			continue
		}
		if err := json.Unmarshal(parts[i], out); err != nil {
			return frame{}, fmt.Errorf("invalid frame field %d: %w", i, err)
		}
	}
	f.Payload = parts[4]
	return f, nil
}

func encodeFrame(f frame) ([]byte, error) {
	var joinRef, ref any
	if f.JoinRef != "" {
		joinRef = f.JoinRef
	}
	if f.Ref != "" {
		ref = f.Ref
	}
	payload := f.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([5]any{joinRef, ref, f.Topic, f.Event, payload})
}

// client 為一條已升級的 websocket 連線
// 寫入以 mu 序列化，gorilla 的連線不允許並發寫
type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	topics map[string]string // topic -> joinRef
}

func (c *client) send(f frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub 管理所有連線並依 topic 廣播推播事件
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.With(slog.String("caller", "Hub")),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Broadcast 將事件送給所有已加入該 topic 的連線
// 個別連線的寫入失敗只記錄，不影響其他連線
func (h *Hub) Broadcast(topic, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast payload", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if _, joined := c.topics[topic]; joined {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		f := frame{Topic: topic, Event: event, Payload: data}
		if err := c.send(f); err != nil {
			h.logger.Warn("failed to broadcast", slog.Any("error", err))
		}
	}
}

var upgrader = websocket.Upgrader{
	// 模擬器只在本地使用，不檢查 Origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSocket 升級連線並服務 Phoenix 頻道子集:
// phx_join/phx_leave 一律成功，heartbeat 回覆 ok，
// 其餘訊息忽略。推播由 Hub.Broadcast 寫入。
func (s *Server) handleSocket(c *gin.Context) {
	if c.Query("vsn") != "2.0.0" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported serializer version"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", slog.Any("error", err))
		return
	}

	cl := &client{conn: conn, topics: make(map[string]string)}
	s.hub.add(cl)
	defer func() {
		s.hub.remove(cl)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := decodeFrame(data)
		if err != nil {
			s.logger.Warn("ignoring malformed frame", slog.Any("error", err))
			continue
		}

		switch f.Event {
		case eventJoin:
			s.hub.mu.Lock()
			cl.topics[f.Topic] = f.JoinRef
			s.hub.mu.Unlock()
			s.logger.Info("channel joined", slog.String("topic", f.Topic))
			cl.send(replyOK(f))
		case eventLeave:
			s.hub.mu.Lock()
			delete(cl.topics, f.Topic)
			s.hub.mu.Unlock()
			cl.send(replyOK(f))
		case eventHeartbeat:
			if f.Topic == topicPhoenix {
				cl.send(replyOK(f))
			}
		}
	}
}

// replyOK 組出對應訊息的成功 phx_reply
func replyOK(f frame) frame {
	return frame{
		JoinRef: f.JoinRef,
		Ref:     f.Ref,
		Topic:   f.Topic,
		Event:   eventReply,
		Payload: json.RawMessage(`{"status":"ok","response":{}}`),
	}
}
