package models

// Bid 代表一筆針對拍賣物件的出價
// 由伺服器建立後經 REST 回應或推播事件送達客戶端
type Bid struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	CreatedAt int64  `json:"createdAt"`
	// NewEndDate 非零時表示此出價觸發了反狙擊延長，拍賣結束時間被推遲
	NewEndDate int64 `json:"newEndDate"`
	// UserAnonymousId 為僅供顯示的匿名代稱
	UserAnonymousId string `json:"userAnonymousId"`
	// ParticipantID 為穩定的參與者身份，用於判斷出價是否屬於目前使用者
	ParticipantID string `json:"participantId"`
}

// IsMine 判斷此出價是否由指定使用者做出
func (b Bid) IsMine(user User) bool {
	return b.ParticipantID != "" && b.ParticipantID == user.ID
}
