// Package notify 實作元件對宿主頁面的自訂通知事件。
// 對應瀏覽器中 dispatchEvent 的行為: 發送方不等待、
// 也不關心是否有人正在監聽。
package notify

import (
	"sync"
)

// subscriberBuffer 為每個訂閱者通道的緩衝大小
// 緩衝滿時直接丟棄事件，發送端永不阻塞
const subscriberBuffer = 16

// Emitter 管理單一事件類型的所有訂閱者，
// 並將事件以非阻塞方式廣播給所有訂閱者。
type Emitter[T any] struct {
	subscribers map[<-chan T]chan T
	mu          sync.RWMutex
}

// NewEmitter creates a new notification emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{
		subscribers: make(map[<-chan T]chan T),
	}
}

// Subscribe 建立一個新的 chan T，將其加入 subscribers，並回傳唯讀通道給呼叫者。
func (e *Emitter[T]) Subscribe() <-chan T {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan T, subscriberBuffer)
	e.subscribers[ch] = ch
	return ch
}

// Unsubscribe 從 subscribers 中移除指定的通道，並關閉該通道。
func (e *Emitter[T]) Unsubscribe(ch <-chan T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if writeCh, exists := e.subscribers[ch]; exists {
		delete(e.subscribers, ch)
		close(writeCh)
	}
}

// UnsubscribeAll 關閉所有訂閱者的通道並清空訂閱清單。
func (e *Emitter[T]) UnsubscribeAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, writeCh := range e.subscribers {
		close(writeCh)
	}
	clear(e.subscribers)
}

// Emit 將事件廣播給所有仍在訂閱清單中的通道。
// 訂閱者來不及接收時事件直接丟棄，不回壓到發送端。
func (e *Emitter[T]) Emit(event T) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, writeCh := range e.subscribers {
		select {
		case writeCh <- event:
		default:
		}
	}
}

// IsIdle 判斷 subscribers 是否為空。
func (e *Emitter[T]) IsIdle() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers) == 0
}
