package widget

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"enchere/adapters/notify"
	"enchere/adapters/restapi"
	"enchere/engine"
	"enchere/models"
)

// ErrBiddingNotAllowed 表示出價介面目前不開放
// （未登入、報名未通過、非參與者，或拍賣不在進行中）
var ErrBiddingNotAllowed = errors.New("bidding not allowed")

// Proposal 為等待使用者確認的出價提案
// 對應確認視窗的內容: 候選金額、前一個最高出價與兩種提醒
type Proposal struct {
	Amount int64
	// PreviousHighest 為確認視窗中顯示的前一個最高出價，無出價時為 nil
	PreviousHighest *int64
	// TooHigh 提醒金額明顯高於行情，不阻擋確認
	TooHigh bool
	// TooLow 為本地的事前提醒，權威檢查在伺服器端
	TooLow bool
}

// PrepareBid 驗證自由輸入的金額並建立出價提案
// 金額不是有效的非負整數時回傳 engine.ErrInvalidAmount，不開啟確認
func (w *Widget) PrepareBid(raw string) (Proposal, error) {
	amount, err := engine.ValidateAmount(raw)
	if err != nil {
		return Proposal{}, err
	}
	return w.propose(amount), nil
}

// PrepareFastBid 建立級距倍數 m（1~3）的快速出價提案
func (w *Widget) PrepareFastBid(m int64) Proposal {
	w.mu.RLock()
	offer := engine.StepOffer(m, w.afterBid, w.auction)
	w.mu.RUnlock()
	return w.propose(offer.Submit)
}

// propose 以候選金額建立提案並附上提醒
func (w *Widget) propose(amount int64) Proposal {
	w.mu.RLock()
	defer w.mu.RUnlock()

	proposal := Proposal{
		Amount:  amount,
		TooHigh: engine.IsAmountTooHigh(w.auction, amount),
		TooLow:  engine.IsAmountTooLow(w.auction, amount),
	}
	if w.auction.HasGenuineHighestBid() {
		previous := w.auction.HighestBid.Amount
		proposal.PreviousHighest = &previous
	}
	return proposal
}

// ConfirmBid 在使用者明確確認後送出出價。
// 成功時: 快照直接套用新出價、清除提醒狀態、
// 快速出價標籤切換為出價後算法，並發出 bid_placed 宿主通知。
// 伺服器以金額過低拒絕時回傳 *restapi.BidTooLowError，
// 呼叫端以伺服器計算的下限重新顯示提醒（本地檢查可能已過時）。
// 其他失敗記錄後原樣回傳，不自動重試，需使用者重新發起。
func (w *Widget) ConfirmBid(ctx context.Context, proposal Proposal) (models.Bid, error) {
	const op = "Widget.ConfirmBid"

	snapshot := w.State()
	if !snapshot.CanBid {
		return models.Bid{}, fmt.Errorf("[%s] %w", op, ErrBiddingNotAllowed)
	}

	bid, err := w.api.PlaceBid(ctx, snapshot.Auction.ID, proposal.Amount)
	if err != nil {
		var tooLow *restapi.BidTooLowError
		if errors.As(err, &tooLow) {
			w.logger.Info("bid rejected as too low", slog.Int64("min", tooLow.Min))
			return models.Bid{}, err
		}
		w.logger.Error("failed to place bid", slog.Any("error", err))
		return models.Bid{}, fmt.Errorf("[%s] Fail to place bid, err=%w", op, err)
	}

	w.mu.Lock()
	w.auction.Bids = append(w.auction.Bids, bid)
	w.auction.HighestBid = &bid
	if bid.NewEndDate != 0 {
		w.auction.EndDate = bid.NewEndDate
	}
	w.afterBid = true
	w.mu.Unlock()

	w.bidPlaced.Emit(notify.BidPlacedEvent{Amount: bid.Amount, Date: bid.CreatedAt})
	w.notifyChange()
	return bid, nil
}

// AcceptCurrentPrice 為遞減式拍賣的單鍵出價:
// 以當下的即時價格作為候選金額直接送出，
// 成功後價格由定價引擎的凍結分支固定，不重算快速出價標籤
func (w *Widget) AcceptCurrentPrice(ctx context.Context) (models.Bid, error) {
	w.mu.RLock()
	price := engine.PriceAt(w.auction, w.clock())
	w.mu.RUnlock()

	return w.ConfirmBid(ctx, Proposal{Amount: price.CurrentPrice})
}

// TooLowMessage 組出伺服器拒絕後顯示的下限提示文字
func TooLowMessage(min int64, currency models.Currency) string {
	return "Vous devez au moins enchérir " + models.DisplayAmount(models.Ptr(min), currency) + "."
}

// Register 替目前使用者報名這場拍賣
// 成功時以回應中的最新拍賣（含報名狀態）取代快照，並發出 register 通知
func (w *Widget) Register(ctx context.Context) error {
	const op = "Widget.Register"

	w.mu.RLock()
	auctionID := w.auction.ID
	isLogged := w.isLogged
	w.mu.RUnlock()

	if !isLogged {
		return fmt.Errorf("[%s] %w", op, restapi.ErrUnauthorized)
	}

	auction, err := w.api.RegisterUser(ctx, auctionID)
	if err != nil {
		w.logger.Error("failed to register", slog.Any("error", err))
		return fmt.Errorf("[%s] Fail to register, err=%w", op, err)
	}

	w.mu.Lock()
	w.auction = auction
	w.mu.Unlock()

	w.register.Emit(notify.RegisterEvent{AuctionID: auctionID})
	w.notifyChange()
	return nil
}
