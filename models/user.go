package models

// User 代表與拍賣平台互動的使用者
// 主要為仲介與拍賣參與者（出價者與觀察者）
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IsAuthenticated 判斷使用者資料是否有效
// 缺少 ID 的使用者一律視為未登入，而非錯誤
func (u User) IsAuthenticated() bool {
	return u.ID != ""
}
