package phoenix

import "context"

// IHandle 定義單一拍賣頻道訂閱的介面
type IHandle interface {
	// Events 回傳接收推播事件的通道，連線關閉時通道關閉
	Events() <-chan Event
	// Close 離開頻道並中斷底層連線，可重複呼叫
	Close()
}

// ISubscriber 定義了拍賣推播頻道的訂閱介面
// 每個元件實例同時間最多持有一個有效訂閱
type ISubscriber interface {
	// Subscribe 連線並加入指定拍賣的頻道
	// 加入失敗時底層連線會被拆除，錯誤傳回呼叫端
	Subscribe(ctx context.Context, auctionID string) (IHandle, error)
}
