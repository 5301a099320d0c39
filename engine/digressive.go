package engine

import (
	"math"
	"time"

	"enchere/models"
)

// defaultStepInterval 為快照未提供降價週期時的預設值（秒）
const defaultStepInterval = 60

// warningThreshold 降價倒數小於等於此秒數時進入警告狀態
const warningThreshold = 10

// Price 為 PriceAt 的輸出: 遞減式拍賣的即時價格狀態
type Price struct {
	// CurrentPrice 為目前的即時價格
	CurrentPrice int64
	// SecondsToNextStep 為距離下一次降價的秒數
	SecondsToNextStep int64
	// IsWarning 表示降價在即（剩餘 <= 10 秒），供 UI 提示
	IsWarning bool
	// HasBid 表示已有人接受價格，價格已凍結
	HasBid bool
}

// PriceAt 計算遞減式拍賣在指定時刻的即時價格。
// 價格自起標價開始，每經過一個降價週期下降一個級距，
// 出現真正的出價後凍結在該出價金額，本地下限為 0
// （真正的底價由伺服器強制執行，客戶端不得而知）。
//
// 非遞減式拍賣一律回傳起標價，此元件對其為 no-op。
func PriceAt(a models.Auction, now time.Time) Price {
	if a.Kind != models.KindDigressive {
		return Price{CurrentPrice: a.StartingPrice}
	}

	// 尚未開始: 顯示起標價與完整的降價週期
	if !a.Status.InProgress() || now.UnixMilli() < a.StartDate {
		return Price{
			CurrentPrice:      a.StartingPrice,
			SecondsToNextStep: a.StepIntervalSeconds,
		}
	}

	// 已有真正的出價: 接受價格的瞬間時鐘停止
	if a.HasGenuineHighestBid() {
		return Price{
			CurrentPrice: a.HighestBid.Amount,
			HasBid:       true,
		}
	}

	interval := a.StepIntervalSeconds
	if interval <= 0 {
		interval = defaultStepInterval
	}

	elapsedSeconds := math.Max(0, float64(now.UnixMilli()-a.StartDate)/1000)
	stepsPassed := int64(math.Floor(elapsedSeconds / float64(interval)))
	secondsInCurrentStep := math.Mod(elapsedSeconds, float64(interval))
	// 無條件進位，避免仍在週期內卻顯示剩餘 0 秒
	secondsToNextStep := int64(math.Ceil(float64(interval) - secondsInCurrentStep))

	price := a.StartingPrice - stepsPassed*a.Step
	if price < 0 {
		price = 0
	}

	return Price{
		CurrentPrice:      price,
		SecondsToNextStep: secondsToNextStep,
		IsWarning:         secondsToNextStep <= warningThreshold,
	}
}
