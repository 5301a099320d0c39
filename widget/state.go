package widget

import (
	"enchere/engine"
	"enchere/models"
)

// RegistrationStatus 彙總目前使用者對這場拍賣的報名處境，
// 供宿主 UI 決定顯示哪一段說明文字
type RegistrationStatus int

const (
	// RegistrationNone 使用者尚未報名
	RegistrationNone RegistrationStatus = iota
	// RegistrationPending 報名已送出，等待仲介審核
	RegistrationPending
	// RegistrationRefused 報名已被拒絕
	RegistrationRefused
	// RegistrationObserver 已被接受為觀察者，不能出價
	RegistrationObserver
	// RegistrationParticipant 已被接受為參與者，可在拍賣進行中出價
	RegistrationParticipant
)

// Snapshot 為某一時刻的完整元件狀態:
// 拍賣快照的副本加上所有純推導結果。
// 推導一律在讀取當下以整份快照原子性地重新計算
type Snapshot struct {
	Auction  models.Auction
	User     models.User
	IsLogged bool

	// State 為生命週期解析結果（階段與倒數）
	State engine.State
	// Price 為遞減式拍賣的即時價格狀態
	Price engine.Price

	// FastBids 為三個快速出價建議（級距倍數 1~3）
	FastBids [3]engine.Offer

	RegistrationStatus RegistrationStatus
	// CanBid 為出價介面的總閘門
	CanBid bool
	// CanViewBids 決定出價紀錄與最高出價是否可見
	CanViewBids bool
}

// State 取得目前的完整元件狀態
func (w *Widget) State() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.deriveLocked()
}

// deriveLocked 在持鎖狀態下推導快照，呼叫端負責持有讀鎖
func (w *Widget) deriveLocked() Snapshot {
	now := w.clock()
	auction := w.auction.Clone()
	state := engine.Resolve(auction, now)

	var fastBids [3]engine.Offer
	for m := int64(1); m <= 3; m++ {
		fastBids[m-1] = engine.StepOffer(m, w.afterBid, auction)
	}

	registrationStatus := deriveRegistrationStatus(auction.Registration)

	return Snapshot{
		Auction:            auction,
		User:               w.user,
		IsLogged:           w.isLogged,
		State:              state,
		Price:              engine.PriceAt(auction, now),
		FastBids:           fastBids,
		RegistrationStatus: registrationStatus,
		CanBid: w.isLogged &&
			registrationStatus == RegistrationParticipant &&
			state.Phase == engine.PhaseInProgress,
		CanViewBids: canViewBids(auction),
	}
}

// deriveRegistrationStatus 將三態報名紀錄轉換為單一狀態
func deriveRegistrationStatus(reg *models.Registration) RegistrationStatus {
	switch {
	case reg == nil:
		return RegistrationNone
	case reg.Pending():
		return RegistrationPending
	case reg.Refused():
		return RegistrationRefused
	case reg.IsParticipant:
		return RegistrationParticipant
	default:
		return RegistrationObserver
	}
}

// canViewBids 判斷出價資訊的可見性
// 公開拍賣一律可見；私人拍賣僅限已接受且獲准的報名者
func canViewBids(a models.Auction) bool {
	if !a.IsPrivate {
		return true
	}
	return a.Registration.Accepted() && a.Registration.IsUserAllowed
}
