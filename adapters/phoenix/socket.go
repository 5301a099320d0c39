// Package phoenix 實作拍賣後端 Phoenix channel 的 WebSocket 客戶端。
// 僅涵蓋元件需要的協定子集: 連線、加入頻道、心跳，
// 以及 outbid / auction_ended 兩種推播事件。
package phoenix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/smallnest/chanx"
)

type socketOptions struct {
	logger            *slog.Logger
	dialer            *websocket.Dialer
	joinTimeout       time.Duration
	heartbeatInterval time.Duration
}

type SocketOption func(*socketOptions)

// WithLogger 設置日誌記錄器
func WithLogger(logger *slog.Logger) SocketOption {
	return func(o *socketOptions) {
		o.logger = logger
	}
}

// WithDialer 設置自定義的 websocket dialer，供測試注入
func WithDialer(dialer *websocket.Dialer) SocketOption {
	return func(o *socketOptions) {
		o.dialer = dialer
	}
}

// WithJoinTimeout 設置等待 phx_reply 的超時時間
func WithJoinTimeout(d time.Duration) SocketOption {
	return func(o *socketOptions) {
		o.joinTimeout = d
	}
}

// WithHeartbeatInterval 設置心跳間隔
func WithHeartbeatInterval(d time.Duration) SocketOption {
	return func(o *socketOptions) {
		o.heartbeatInterval = d
	}
}

// Socket 代表一條到 Phoenix 端點的 WebSocket 連線
// 同一時間只加入一個拍賣頻道
type Socket struct {
	wsURL string
	token string

	conn    *websocket.Conn
	writeMu sync.Mutex // 序列化所有寫入

	refCounter atomic.Int64
	pendingMu  sync.Mutex
	pending    map[string]chan reply // 等待中的 phx_reply，以 ref 為鍵

	// events 為無界緩衝，讀取 goroutine 永不因下游消費過慢而阻塞
	events *chanx.UnboundedChan[Event]

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	closed     bool

	logger  *slog.Logger
	options socketOptions
}

// NewSocket 建立尚未連線的 Socket
// wsURL: 端點位址，例如 wss://encheres-immo.com/api/socket
// token: 認證用的 access token，以查詢參數傳遞
func NewSocket(wsURL string, token string, opts ...SocketOption) *Socket {
	options := socketOptions{
		logger:            slog.Default(),
		dialer:            websocket.DefaultDialer,
		joinTimeout:       10 * time.Second,
		heartbeatInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Socket{
		wsURL:      wsURL,
		token:      token,
		pending:    make(map[string]chan reply),
		events:     chanx.NewUnboundedChan[Event](ctx, 16),
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     options.logger.With(slog.String("caller", "phoenix.Socket")),
		options:    options,
	}
}

// Connect 建立 WebSocket 連線並啟動讀取與心跳 goroutine
func (s *Socket) Connect(ctx context.Context) error {
	const op = "Socket.Connect"

	endpoint, err := url.Parse(s.wsURL + "/websocket")
	if err != nil {
		return fmt.Errorf("[%s] Fail to parse ws url, err=%w", op, err)
	}
	query := endpoint.Query()
	query.Set("vsn", "2.0.0")
	if s.token != "" {
		query.Set("token", s.token)
	}
	endpoint.RawQuery = query.Encode()

	conn, _, err := s.options.dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("[%s] Fail to connect, err=%w", op, err)
	}
	s.conn = conn

	s.wg.Add(2)
	go s.readPump()
	go s.heartbeatLoop()
	return nil
}

// Join 加入指定的 topic 並等待伺服器回覆
// 回覆為 error 或超時時，呼叫端應拆除整條連線
func (s *Socket) Join(ctx context.Context, topic string) error {
	const op = "Socket.Join"

	ref := s.nextRef()
	replyCh := make(chan reply, 1)
	s.pendingMu.Lock()
	s.pending[ref] = replyCh
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, ref)
		s.pendingMu.Unlock()
	}()

	if err := s.send(message{JoinRef: ref, Ref: ref, Topic: topic, Event: eventJoin}); err != nil {
		return fmt.Errorf("[%s] Fail to send join, err=%w", op, err)
	}

	select {
	case resp := <-replyCh:
		if resp.Status != "ok" {
			s.logger.Error("unable to join channel",
				slog.String("topic", topic), slog.String("status", resp.Status))
			return fmt.Errorf("[%s] Fail to join topic %s, status=%s", op, topic, resp.Status)
		}
		s.logger.Info("joined channel", slog.String("topic", topic))
		return nil
	case <-time.After(s.options.joinTimeout):
		return fmt.Errorf("[%s] Fail to join topic %s, timeout", op, topic)
	case <-ctx.Done():
		return fmt.Errorf("[%s] Fail to join topic %s, err=%w", op, topic, ctx.Err())
	case <-s.ctx.Done():
		return fmt.Errorf("[%s] Fail to join topic %s, socket closed", op, topic)
	}
}

// Events 回傳推播事件通道，連線關閉後通道關閉
func (s *Socket) Events() <-chan Event {
	return s.events.Out
}

// Close 中斷連線並等待所有 goroutine 結束，可重複呼叫
func (s *Socket) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancelFunc()
	if s.conn != nil {
		// 關閉底層連線讓 readPump 解除阻塞
		_ = s.conn.Close()
	}
	s.wg.Wait()
	close(s.events.In)
	s.logger.Info("socket closed")
}

func (s *Socket) nextRef() string {
	return strconv.FormatInt(s.refCounter.Add(1), 10)
}

// send 編碼並寫入一則訊息，寫入以互斥鎖序列化
func (s *Socket) send(msg message) error {
	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// readPump 讀取並分派所有進站訊息
// phx_reply 交給等待中的呼叫端，推播事件送進事件緩衝
func (s *Socket) readPump() {
	defer s.wg.Done()
	defer s.logger.Debug("read pump stopped")

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.ctx.Done():
			default:
				s.logger.Error("connection lost", slog.Any("error", err))
				s.cancelFunc()
			}
			return
		}

		msg, err := decodeMessage(data)
		if err != nil {
			s.logger.Error("failed to decode frame", slog.Any("error", err))
			continue
		}

		switch msg.Event {
		case eventReply:
			var resp reply
			if err := json.Unmarshal(msg.Payload, &resp); err != nil {
				s.logger.Error("failed to decode reply", slog.Any("error", err))
				continue
			}
			s.pendingMu.Lock()
			replyCh, ok := s.pending[msg.Ref]
			s.pendingMu.Unlock()
			if ok {
				replyCh <- resp
			}
		case eventError:
			s.logger.Error("channel error", slog.String("topic", msg.Topic))
		default:
			event, ok, err := decodeEvent(msg)
			if err != nil {
				s.logger.Error("failed to decode event",
					slog.String("event", msg.Event), slog.Any("error", err))
				continue
			}
			if !ok {
				s.logger.Debug("ignoring event", slog.String("event", msg.Event))
				continue
			}
			select {
			case s.events.In <- event:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

// heartbeatLoop 週期性送出心跳，維持伺服器端的連線
func (s *Socket) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.options.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			msg := message{Ref: s.nextRef(), Topic: topicPhoenix, Event: eventHeartbeat}
			if err := s.send(msg); err != nil {
				s.logger.Error("heartbeat failed", slog.Any("error", err))
			}
		}
	}
}
