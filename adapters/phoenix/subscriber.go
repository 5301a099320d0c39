package phoenix

import (
	"context"
	"fmt"
	"sync"

	"log/slog"
)

// Subscriber 為 ISubscriber 的實作，替每個訂閱建立獨立的 Socket
type Subscriber struct {
	wsURL  string
	token  string
	logger *slog.Logger
	opts   []SocketOption
}

// NewSubscriber 建立拍賣頻道訂閱器
func NewSubscriber(wsURL string, token string, opts ...SocketOption) *Subscriber {
	return &Subscriber{
		wsURL:  wsURL,
		token:  token,
		logger: slog.Default().With(slog.String("caller", "phoenix.Subscriber")),
		opts:   opts,
	}
}

// Subscribe 連線並加入 auction:{id} 頻道
// 加入失敗時整條連線拆除，錯誤傳回呼叫端（不留下半開的資源）
func (s *Subscriber) Subscribe(ctx context.Context, auctionID string) (IHandle, error) {
	const op = "Subscriber.Subscribe"

	sock := NewSocket(s.wsURL, s.token, s.opts...)
	if err := sock.Connect(ctx); err != nil {
		return nil, fmt.Errorf("[%s] %w", op, err)
	}

	topic := "auction:" + auctionID
	if err := sock.Join(ctx, topic); err != nil {
		sock.Close()
		return nil, fmt.Errorf("[%s] %w", op, err)
	}

	return &handle{socket: sock}, nil
}

// handle 包裝一條已加入頻道的連線
type handle struct {
	socket *Socket
	once   sync.Once
}

func (h *handle) Events() <-chan Event {
	return h.socket.Events()
}

// Close 中斷連線
// 正常頁面卸載不需呼叫，僅在換訂其他拍賣前必須先拆除
func (h *handle) Close() {
	h.once.Do(func() {
		h.socket.Close()
	})
}
