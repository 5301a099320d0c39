package widget_test

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"enchere/adapters/phoenix"
	"enchere/adapters/restapi"
	"enchere/models"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	log.SetOutput(io.Discard)
}

// fakeClock 為可手動推進的時間來源
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAPI 為 restapi.IClient 的測試替身
type fakeAPI struct {
	mu sync.Mutex

	user    models.User
	userErr error

	auction models.Auction
	// auctions 非空時依序逐一交出，供重複掛載的測試使用
	auctions   []models.Auction
	auctionErr error

	bid    models.Bid
	bidErr error

	registered models.Auction

	placeBidCalls []int64
}

func (f *fakeAPI) Me(context.Context) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.userErr
}

func (f *fakeAPI) NextAuction(context.Context, restapi.PropertyInfo) (models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auctions) > 0 {
		auction := f.auctions[0]
		f.auctions = f.auctions[1:]
		return auction, f.auctionErr
	}
	return f.auction, f.auctionErr
}

func (f *fakeAPI) RegisterUser(context.Context, string) (models.Auction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered, nil
}

func (f *fakeAPI) PlaceBid(_ context.Context, _ string, amount int64) (models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeBidCalls = append(f.placeBidCalls, amount)
	return f.bid, f.bidErr
}

// fakeHandle 為可手動推送事件的訂閱替身
type fakeHandle struct {
	events chan phoenix.Event
	once   sync.Once

	mu       sync.Mutex
	isClosed bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{events: make(chan phoenix.Event, 16)}
}

func (h *fakeHandle) Events() <-chan phoenix.Event {
	return h.events
}

func (h *fakeHandle) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.isClosed = true
		h.mu.Unlock()
		close(h.events)
	})
}

func (h *fakeHandle) closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isClosed
}

func (h *fakeHandle) push(event phoenix.Event) {
	h.events <- event
}

// fakeSubscriber 記錄訂閱請求，每場拍賣交出獨立的 handle
// 重複掛載的測試才能區分新舊訂閱
type fakeSubscriber struct {
	mu      sync.Mutex
	handles map[string]*fakeHandle
	topics  []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handles: make(map[string]*fakeHandle)}
}

// handleFor 取得指定拍賣的 handle，不存在時建立
func (s *fakeSubscriber) handleFor(auctionID string) *fakeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.handles[auctionID]
	if !ok {
		handle = newFakeHandle()
		s.handles[auctionID] = handle
	}
	return handle
}

func (s *fakeSubscriber) Subscribe(_ context.Context, auctionID string) (phoenix.IHandle, error) {
	s.mu.Lock()
	s.topics = append(s.topics, auctionID)
	s.mu.Unlock()
	return s.handleFor(auctionID), nil
}

func (s *fakeSubscriber) subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.topics...)
}
