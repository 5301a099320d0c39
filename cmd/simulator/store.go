package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"enchere/models"
)

// snipingWindow 為反狙擊窗口:
// 結束前這段時間內的出價會把結束時間推遲到出價後一個窗口
const snipingWindow = 60 * time.Second

// ErrAuctionNotFound 表示查無這個不動產的拍賣
var ErrAuctionNotFound = errors.New("auction not found")

// ErrAuctionNotInProgress 表示拍賣不在進行中，拒絕出價
var ErrAuctionNotInProgress = errors.New("auction not in progress")

// BidTooLowError 攜帶伺服器計算的最低可出價金額
type BidTooLowError struct {
	Min int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount too low, min=%d", e.Min)
}

// Seed 為模擬器啟動時播種的拍賣設定
type Seed struct {
	PropertyID          string
	Kind                models.Kind
	StartingPrice       int64
	Step                int64
	StepIntervalSeconds int64
	LeadTime            time.Duration
	Duration            time.Duration
	Private             bool
}

// registration 為單一使用者的報名紀錄
// 模擬器一律立即接受報名並授予參與者身份
type registration struct {
	participantID string
	accepted      bool
}

// Store 以記憶體保存唯一一場拍賣與所有報名紀錄
type Store struct {
	mu sync.Mutex

	propertyID string
	auction    models.Auction
	// registrations 以使用者 id 為鍵
	registrations map[string]*registration

	hub      *Hub
	endTimer *time.Timer
	closed   bool
	logger   *slog.Logger
}

// NewStore 播種一場拍賣並排程結束事件
func NewStore(seed Seed, hub *Hub, logger *slog.Logger) *Store {
	now := time.Now()
	start := now.Add(seed.LeadTime)
	end := start.Add(seed.Duration)

	status := models.StatusScheduled
	if seed.LeadTime <= 0 {
		status = models.StatusStarted
	}

	s := &Store{
		propertyID: seed.PropertyID,
		auction: models.Auction{
			ID:                  uuid.NewString(),
			Kind:                seed.Kind,
			Status:              status,
			StartDate:           start.UnixMilli(),
			EndDate:             end.UnixMilli(),
			StartingPrice:       seed.StartingPrice,
			Step:                seed.Step,
			StepIntervalSeconds: seed.StepIntervalSeconds,
			Bids:                []models.Bid{},
			IsPrivate:           seed.Private,
			AgentEmail:          "agent@simulator.local",
			AgentPhone:          "+33 1 23 45 67 89",
			Currency:            models.Currency{Symbol: "€", Code: "EUR"},
		},
		registrations: make(map[string]*registration),
		hub:           hub,
		logger:        logger.With(slog.String("caller", "Store")),
	}
	s.endTimer = time.AfterFunc(time.Until(end), s.endAuction)
	return s
}

// Close 取消排程中的結束事件
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.endTimer.Stop()
}

// ViewFor 建立指定使用者視角的拍賣快照
// 報名紀錄只包含該使用者自己的，未登入時 userID 為空字串
func (s *Store) ViewFor(propertyID, userID string) (models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if propertyID != s.propertyID {
		return models.Auction{}, ErrAuctionNotFound
	}

	view := s.auction.Clone()
	if reg, ok := s.registrations[userID]; ok {
		accepted := reg.accepted
		view.Registration = &models.Registration{
			IsUserAllowed:          true,
			IsRegistrationAccepted: &accepted,
			IsParticipant:          true,
		}
	}
	return view, nil
}

// Register 替使用者建立報名紀錄並立即接受
// 重複報名回傳既有的紀錄，不報錯
func (s *Store) Register(userID string) models.Auction {
	s.mu.Lock()
	if _, ok := s.registrations[userID]; !ok {
		s.registrations[userID] = &registration{
			participantID: uuid.NewString(),
			accepted:      true,
		}
		s.logger.Info("user registered", slog.String("userId", userID))
	}
	s.mu.Unlock()

	view, _ := s.ViewFor(s.propertyID, userID)
	return view
}

// PlaceBid 驗證並套用一筆出價。
// 金額必須至少為目前最高出價加一個級距（無出價時為起標價），
// 否則以 BidTooLowError 回傳伺服器計算的下限。
// 結束前 snipingWindow 內的出價觸發反狙擊延長。
func (s *Store) PlaceBid(userID string, amount int64) (models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	nowMs := now.UnixMilli()
	inProgress := s.auction.Status.InProgress() ||
		(s.auction.Status == models.StatusScheduled && nowMs >= s.auction.StartDate)
	if !inProgress || nowMs >= s.auction.EndDate {
		return models.Bid{}, ErrAuctionNotInProgress
	}
	s.auction.Status = models.StatusStarted

	reg, ok := s.registrations[userID]
	if !ok || !reg.accepted {
		return models.Bid{}, ErrAuctionNotInProgress
	}

	min := s.auction.StartingPrice
	if s.auction.HighestBid != nil {
		min = s.auction.HighestBid.Amount + s.auction.Step
	}
	// 遞減式拍賣接受任何不低於即時價格的金額，此處簡化為不低於 0
	if s.auction.Kind == models.KindDigressive {
		min = 0
	}
	if amount < min {
		return models.Bid{}, &BidTooLowError{Min: min}
	}

	bid := models.Bid{
		ID:              uuid.NewString(),
		Amount:          amount,
		CreatedAt:       nowMs,
		UserAnonymousId: anonymousName(reg.participantID),
		ParticipantID:   reg.participantID,
	}

	// anti-sniping
	if remaining := s.auction.EndDate - nowMs; remaining < snipingWindow.Milliseconds() {
		newEnd := now.Add(snipingWindow)
		bid.NewEndDate = newEnd.UnixMilli()
		s.auction.EndDate = bid.NewEndDate
		s.endTimer.Reset(time.Until(newEnd))
		s.logger.Info("anti-sniping extension", slog.Int64("newEndDate", bid.NewEndDate))
	}

	s.auction.Bids = append(s.auction.Bids, bid)
	s.auction.HighestBid = &bid

	s.hub.Broadcast("auction:"+s.auction.ID, eventOutbid, map[string]any{"bid": bid})
	return bid, nil
}

// endAuction 將拍賣標記為結束並廣播最終成交價
// 無任何出價時 finalPrice 為 null
func (s *Store) endAuction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.auction.Status.Ended() {
		return
	}
	s.auction.Status = models.StatusCompleted

	var finalPrice *int64
	if s.auction.HighestBid != nil {
		amount := s.auction.HighestBid.Amount
		finalPrice = &amount
		s.auction.FinalPrice = finalPrice
	}
	s.logger.Info("auction ended", slog.Any("finalPrice", finalPrice))

	s.hub.Broadcast("auction:"+s.auction.ID, eventAuctionEnded, map[string]any{
		"auctionId":  s.auction.ID,
		"finalPrice": finalPrice,
	})
}

// anonymousName 從參與者 id 產生顯示用的匿名代稱
func anonymousName(participantID string) string {
	if len(participantID) < 8 {
		return "Enchérisseur"
	}
	return "Enchérisseur " + participantID[:8]
}
