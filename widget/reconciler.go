package widget

import (
	"log/slog"

	"enchere/adapters/notify"
	"enchere/adapters/phoenix"
	"enchere/models"
)

// reconcile 將推播事件合併進拍賣快照
// 快照的非同步改寫只發生在這裡，採 last-write-wins:
// 推播來源保證只送出真正刷新紀錄的出價，且單一邏輯頻道
// 維持伺服器發送順序，此處不做金額比較防禦亂序
//（已知的信任邊界，改變需要產品確認）
func (w *Widget) reconcile(event phoenix.Event) {
	switch event.Type {
	case phoenix.EventNewBid:
		w.applyNewBid(event)
	case phoenix.EventAuctionEnded:
		w.applyAuctionEnded(event)
	default:
		w.logger.Debug("ignoring unknown event type")
		return
	}
	w.notifyChange()
}

// applyNewBid 追加出價並更新最高出價
// 出價攜帶 NewEndDate 時表示反狙擊延長生效，結束時間一併推遲
func (w *Widget) applyNewBid(event phoenix.Event) {
	bid := event.Bid

	w.mu.Lock()
	w.auction.Bids = append(w.auction.Bids, bid)
	w.auction.HighestBid = &bid
	if bid.NewEndDate != 0 {
		w.auction.EndDate = bid.NewEndDate
	}
	w.mu.Unlock()

	w.logger.Info("new bid received",
		slog.Int64("amount", bid.Amount),
		slog.String("bidder", bid.UserAnonymousId))

	w.newBid.Emit(notify.NewBidEvent{
		Amount: bid.Amount,
		Bidder: bid.UserAnonymousId,
		Date:   bid.CreatedAt,
	})
}

// applyAuctionEnded 將拍賣標記為已結束並記錄權威的最終成交價
// FinalPrice 可為 nil（無合格得標者的流拍），顯示層優先採用此值
func (w *Widget) applyAuctionEnded(event phoenix.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if event.AuctionID != "" && event.AuctionID != w.auction.ID {
		w.logger.Warn("ended event for another auction, ignoring",
			slog.String("auctionId", event.AuctionID))
		return
	}
	w.auction.Status = models.StatusCompleted
	w.auction.FinalPrice = event.FinalPrice
}
