package notify

// NewBidEvent 對應 "new_bid" 通知:
// 推播調和器收到他人出價時發出，供宿主頁面追蹤或顯示提示
type NewBidEvent struct {
	Amount int64  `json:"amount"`
	Bidder string `json:"bidder"`
	Date   int64  `json:"date"`
}

// BidPlacedEvent 對應 "bid_placed" 通知:
// 目前使用者成功送出出價後發出，供宿主頁面整合（如分析追蹤）
type BidPlacedEvent struct {
	Amount int64 `json:"amount"`
	Date   int64 `json:"date"`
}

// RegisterEvent 對應 "register" 通知:
// 使用者成功送出拍賣報名後發出
type RegisterEvent struct {
	AuctionID string `json:"auctionId"`
}
