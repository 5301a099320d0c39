package engine

import (
	"errors"
	"strconv"
	"strings"

	"enchere/models"
)

// ErrInvalidAmount 表示輸入的金額不是有效的非負整數
var ErrInvalidAmount = errors.New("invalid bid amount")

// Offer 為快速出價按鈕的建議金額
type Offer struct {
	// Display 為按鈕上顯示的增額（"+ X" 的 X）
	Display int64
	// Submit 為確認後實際送出的出價金額
	Submit int64
}

// StepOffer 計算級距倍數 m（1~3）對應的快速出價。
//
// 已有出價（或呼叫端標記剛出價完）時: 顯示 m 個級距，
// 送出金額為最高出價加 m 個級距。
// 尚無出價時: 倍數 1 即為起標價（顯示 "+0"），
// 之後每個倍數多一個級距。
func StepOffer(m int64, afterBid bool, a models.Auction) Offer {
	if afterBid || len(a.Bids) > 0 {
		base := a.StartingPrice
		if a.HighestBid != nil {
			base = a.HighestBid.Amount
		}
		return Offer{
			Display: m * a.Step,
			Submit:  base + m*a.Step,
		}
	}
	return Offer{
		Display: (m - 1) * a.Step,
		Submit:  a.StartingPrice + (m-1)*a.Step,
	}
}

// BaseAmount 取得本地驗證的基準金額:
// 已有真正的最高出價時為最高出價加一個級距，否則為起標價
func BaseAmount(a models.Auction) int64 {
	if a.HasGenuineHighestBid() {
		return a.HighestBid.Amount + a.Step
	}
	return a.StartingPrice
}

// IsAmountTooHigh 判斷金額是否明顯過高（超過基準金額加兩個級距）
// 僅作為確認視窗中的提醒，不阻擋出價
func IsAmountTooHigh(a models.Auction, amount int64) bool {
	return amount > BaseAmount(a)+2*a.Step
}

// IsAmountTooLow 判斷金額是否低於本地基準金額
// 僅為事前提醒，權威的下限檢查在伺服器端
func IsAmountTooLow(a models.Auction, amount int64) bool {
	return amount < BaseAmount(a)
}

// ValidateAmount 解析自由輸入的金額字串
// 只接受非負整數，其餘一律回傳 ErrInvalidAmount
func ValidateAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount < 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}
