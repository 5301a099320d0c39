package models

// Registration 代表使用者對單場拍賣的報名紀錄
// 報名需經仲介審核，審核結果決定使用者能否出價或觀看
type Registration struct {
	// IsUserAllowed 為真時，使用者可在私人拍賣中檢視出價紀錄與最高出價
	IsUserAllowed bool `json:"isUserAllowed"`
	// IsRegistrationAccepted 為三態: true=已接受、false=已拒絕、nil=審核中
	IsRegistrationAccepted *bool `json:"isRegistrationAccepted"`
	// IsParticipant 為真時可出價，為假時僅能觀察
	IsParticipant bool `json:"isParticipant"`
}

// Accepted 判斷報名是否已被接受
func (r *Registration) Accepted() bool {
	return r != nil && r.IsRegistrationAccepted != nil && *r.IsRegistrationAccepted
}

// Refused 判斷報名是否已被拒絕
func (r *Registration) Refused() bool {
	return r != nil && r.IsRegistrationAccepted != nil && !*r.IsRegistrationAccepted
}

// Pending 判斷報名是否仍在審核中
func (r *Registration) Pending() bool {
	return r != nil && r.IsRegistrationAccepted == nil
}

// CanBid 判斷報名者是否具出價資格
func (r *Registration) CanBid() bool {
	return r.Accepted() && r.IsParticipant
}
