package models

import (
	"sort"
)

// Kind 代表拍賣的類型，決定適用的定價與出價規則
type Kind string

const (
	// KindProgressive 漸進式拍賣（英式），出價逐步上升
	KindProgressive Kind = "progressive"
	// KindDigressive 遞減式拍賣（荷蘭式），價格隨時間下降直到有人接受
	KindDigressive Kind = "digressive"
	// KindFlash 限時搶購拍賣，目前行為等同漸進式
	KindFlash Kind = "flash"
	// KindSealed 密封投標拍賣，目前行為等同漸進式
	KindSealed Kind = "sealed"
)

// ParseKind 解析伺服器回傳的拍賣類型字串
// 未知的類型一律視為漸進式
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindProgressive, KindDigressive, KindFlash, KindSealed:
		return Kind(s)
	default:
		return KindProgressive
	}
}

// Status 代表伺服器權威的拍賣生命週期狀態
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// NotStarted 判斷伺服器狀態是否為尚未開始
func (s Status) NotStarted() bool {
	return s == StatusDraft || s == StatusScheduled
}

// InProgress 判斷伺服器狀態是否為進行中
func (s Status) InProgress() bool {
	return s == StatusStarted
}

// Ended 判斷伺服器狀態是否為已結束
func (s Status) Ended() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Auction 代表一場限時的不動產拍賣
// 時間欄位一律為 epoch 毫秒，金額一律為整數最小貨幣單位
type Auction struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`

	// StartDate/EndDate 為拍賣的時間界線
	// 遞減式拍賣進行中時 EndDate 尚未有權威值，以 0 表示未知
	StartDate int64 `json:"startDate"`
	EndDate   int64 `json:"endDate"`

	StartingPrice int64 `json:"startingPrice"`
	Step          int64 `json:"step"`
	// ReservePrice 為伺服器端強制的底價，客戶端僅保存不使用
	ReservePrice *int64 `json:"reservePrice,omitempty"`
	// StepIntervalSeconds 僅對遞減式拍賣有意義，為降價的週期秒數
	StepIntervalSeconds int64 `json:"stepIntervalSeconds,omitempty"`

	// Bids 依到達順序保存，客戶端只追加、不刪除也不重排
	Bids []Bid `json:"bids"`
	// HighestBid 為目前領先的出價，nil 表示尚無出價
	HighestBid *Bid `json:"highestBid"`
	// FinalPrice 僅在拍賣結束後由推播事件填入，為權威的最終成交價
	FinalPrice *int64 `json:"finalPrice,omitempty"`

	// Registration 僅在目前使用者有報名紀錄時存在
	Registration *Registration `json:"registration"`
	IsPrivate    bool          `json:"isPrivate"`

	AgentEmail string   `json:"agentEmail"`
	AgentPhone string   `json:"agentPhone"`
	Currency   Currency `json:"currency"`
}

// HasGenuineHighestBid 判斷是否存在真正的最高出價
// 空的 ParticipantID 視為哨兵值，不算真正的出價
func (a Auction) HasGenuineHighestBid() bool {
	return a.HighestBid != nil && a.HighestBid.ParticipantID != ""
}

// FinalDisplayPrice 取得拍賣結束後應顯示的價格
// 優先順序: FinalPrice > 真正的最高出價金額 > 起標價
func (a Auction) FinalDisplayPrice() int64 {
	if a.FinalPrice != nil {
		return *a.FinalPrice
	}
	if a.HasGenuineHighestBid() {
		return a.HighestBid.Amount
	}
	return a.StartingPrice
}

// SortedBids 回傳依金額由高至低排序的出價副本
// 使用穩定排序，同額出價保持到達順序
func (a Auction) SortedBids() []Bid {
	sorted := make([]Bid, len(a.Bids))
	copy(sorted, a.Bids)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})
	return sorted
}

// Clone 回傳快照的深層副本，避免呼叫端持有內部切片
func (a Auction) Clone() Auction {
	dup := a
	dup.Bids = make([]Bid, len(a.Bids))
	copy(dup.Bids, a.Bids)
	if a.HighestBid != nil {
		hb := *a.HighestBid
		dup.HighestBid = &hb
	}
	if a.FinalPrice != nil {
		fp := *a.FinalPrice
		dup.FinalPrice = &fp
	}
	if a.ReservePrice != nil {
		rp := *a.ReservePrice
		dup.ReservePrice = &rp
	}
	if a.Registration != nil {
		reg := *a.Registration
		dup.Registration = &reg
	}
	return dup
}
