package restapi

import (
	"errors"
	"fmt"
)

// ErrUnauthorized 表示 token 缺失或已失效
// 呼叫端應回到認證流程重新取得 token，客戶端不自動重試
var ErrUnauthorized = errors.New("unauthorized")

// BidTooLowError 表示伺服器以 422 拒絕了過低的出價
// Min 為伺服器計算的最低可接受金額，本地的事前檢查僅為參考
type BidTooLowError struct {
	Code string `json:"code"`
	Min  int64  `json:"min"`
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount too low, min=%d", e.Min)
}

// bidTooLowCode 為伺服器回應中結構化錯誤的代碼
const bidTooLowCode = "bid_amount_too_low"
