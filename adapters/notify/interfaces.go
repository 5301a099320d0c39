package notify

// IEmitter 定義了宿主頁面通知發射器的介面
// 通知為 fire-and-forget: 沒有掛載監聽者時不保證送達
type IEmitter[T any] interface {
	// Subscribe 建立一個新的訂閱並返回接收通知的通道
	Subscribe() <-chan T
	// Unsubscribe 取消指定通道的訂閱
	Unsubscribe(ch <-chan T)
	// UnsubscribeAll 取消所有訂閱
	UnsubscribeAll()
	// Emit 將通知以盡力而為的方式廣播給所有訂閱者
	Emit(event T)
	// IsIdle 檢查是否沒有訂閱者
	IsIdle() bool
}
