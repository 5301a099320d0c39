package models

import (
	"strconv"
	"time"
)

// Currency 描述出價與起標價使用的貨幣單位
type Currency struct {
	// IsBefore 為真時符號置於金額之前，否則置於金額之後
	IsBefore bool   `json:"isBefore"`
	Symbol   string `json:"symbol"`
	Code     string `json:"code"`
}

// DisplaySymbol 取得顯示用的貨幣符號，優先使用符號，其次 ISO 代碼
func (c Currency) DisplaySymbol() string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return c.Code
}

// IsZero 判斷是否未提供貨幣資訊
func (c Currency) IsZero() bool {
	return c.Symbol == "" && c.Code == ""
}

// DisplayAmount 將金額與貨幣組合為顯示字串
// 金額為 nil 時顯示 "--"，未提供貨幣時預設為歐元後綴
func DisplayAmount(amount *int64, currency Currency) string {
	amountStr := "--"
	if amount != nil {
		amountStr = strconv.FormatInt(*amount, 10)
	}
	if currency.IsZero() {
		return amountStr + " €"
	}
	if currency.IsBefore {
		return currency.DisplaySymbol() + " " + amountStr
	}
	return amountStr + " " + currency.DisplaySymbol()
}

// Ptr 將金額轉為指標，方便搭配 DisplayAmount 使用
func Ptr(amount int64) *int64 {
	return &amount
}

// FormatDate 將 epoch 毫秒轉為本地時間的顯示字串
func FormatDate(ms int64) string {
	return time.UnixMilli(ms).Local().Format("02/01/2006 15:04:05")
}
