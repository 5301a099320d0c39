// Package widget 實作拍賣出價元件的核心:
// 持有拍賣快照、調和推播事件、驅動每秒一次的重新推導，
// 並對外提供出價與報名的操作介面。
//
// 每個實例自行持有全部狀態，同一頁面掛載多個元件不會互相干擾。
// 快照只由調和器（推播事件）與確認成功後的直接更新兩處改寫，
// 解析器與定價引擎永遠只讀。
package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"enchere/adapters/notify"
	"enchere/adapters/phoenix"
	"enchere/adapters/restapi"
	"enchere/models"
)

type widgetOptions struct {
	logger       *slog.Logger
	api          restapi.IClient
	subscriber   phoenix.ISubscriber
	clock        func() time.Time
	tickInterval time.Duration
}

type Option func(*widgetOptions)

// WithOptionLogger 設置日誌記錄器
func WithOptionLogger(logger *slog.Logger) Option {
	return func(o *widgetOptions) {
		o.logger = logger
	}
}

// WithAPIClient 設置 REST 邊界客戶端，供測試注入
func WithAPIClient(api restapi.IClient) Option {
	return func(o *widgetOptions) {
		o.api = api
	}
}

// WithSubscriber 設置推播頻道訂閱器，供測試注入
func WithSubscriber(subscriber phoenix.ISubscriber) Option {
	return func(o *widgetOptions) {
		o.subscriber = subscriber
	}
}

// WithClock 設置時間來源，供測試控制時鐘
func WithClock(clock func() time.Time) Option {
	return func(o *widgetOptions) {
		o.clock = clock
	}
}

// WithTickInterval 設置重新推導的週期，預設為一秒
func WithTickInterval(d time.Duration) Option {
	return func(o *widgetOptions) {
		o.tickInterval = d
	}
}

// Widget 為一個已設定的元件實例
type Widget struct {
	id     uuid.UUID
	config Config

	api        restapi.IClient
	subscriber phoenix.ISubscriber
	clock      func() time.Time

	mu       sync.RWMutex
	auction  models.Auction
	user     models.User
	isLogged bool
	// afterBid 記錄目前使用者已成功出價，快速出價標籤切換為出價後的算法
	afterBid bool
	mounted  bool

	sub          phoenix.IHandle
	subAuctionID string

	listenersMu sync.Mutex
	listeners   []func(Snapshot)

	// 宿主頁面通知（fire-and-forget）
	newBid    *notify.Emitter[notify.NewBidEvent]
	bidPlaced *notify.Emitter[notify.BidPlacedEvent]
	register  *notify.Emitter[notify.RegisterEvent]

	tickInterval time.Duration
	cancelFunc   context.CancelFunc
	wg           sync.WaitGroup

	logger *slog.Logger
}

// New 建立元件實例，尚未載入任何拍賣
func New(config Config, opts ...Option) *Widget {
	options := widgetOptions{
		logger:       slog.Default(),
		clock:        time.Now,
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	id := uuid.New()
	logger := options.logger.With(
		slog.String("caller", "Widget"), slog.String("widgetId", id.String()))
	config.resolveURLs(logger)

	api := options.api
	if api == nil {
		api = restapi.NewClient(
			config.BaseURL,
			restapi.StaticTokenSource(config.AccessToken),
			restapi.WithLogger(options.logger),
		)
	}
	subscriber := options.subscriber
	if subscriber == nil {
		subscriber = phoenix.NewSubscriber(
			config.WSURL, config.AccessToken, phoenix.WithLogger(options.logger))
	}

	return &Widget{
		id:           id,
		config:       config,
		api:          api,
		subscriber:   subscriber,
		clock:        options.clock,
		newBid:       notify.NewEmitter[notify.NewBidEvent](),
		bidPlaced:    notify.NewEmitter[notify.BidPlacedEvent](),
		register:     notify.NewEmitter[notify.RegisterEvent](),
		tickInterval: options.tickInterval,
		logger:       logger,
	}
}

// Mount 載入指定不動產的下一場拍賣並開始運作:
// 取得使用者與拍賣快照、訂閱推播頻道、啟動每秒的重新推導。
// 對不同拍賣重複掛載時，先拆除前一個訂閱再建立新的，
// 一個實例同時間最多一個有效訂閱。
func (w *Widget) Mount(ctx context.Context, property restapi.PropertyInfo) error {
	const op = "Widget.Mount"

	// 查詢目前使用者，401 或資料缺漏一律視為未登入
	user, err := w.api.Me(ctx)
	isLogged := err == nil && user.IsAuthenticated()
	if err != nil {
		w.logger.Info("not authenticated", slog.Any("error", err))
	}

	auction, err := w.api.NextAuction(ctx, property)
	if err != nil {
		return fmt.Errorf("[%s] Fail to fetch auction, err=%w", op, err)
	}

	w.mu.Lock()
	w.user = user
	w.isLogged = isLogged
	w.auction = auction
	w.afterBid = false
	previousSub := w.sub
	previousID := w.subAuctionID
	w.mu.Unlock()

	// 換訂其他拍賣前必須先拆除舊訂閱
	if previousSub != nil && previousID != auction.ID {
		previousSub.Close()
		w.mu.Lock()
		w.sub = nil
		w.subAuctionID = ""
		w.mu.Unlock()
	}

	if err := w.subscribe(ctx, auction); err != nil {
		return fmt.Errorf("[%s] %w", op, err)
	}

	w.mu.Lock()
	if !w.mounted {
		w.mounted = true
		loopCtx, cancel := context.WithCancel(context.Background())
		w.cancelFunc = cancel
		w.wg.Add(1)
		go w.loop(loopCtx)
	}
	w.mu.Unlock()

	w.notifyChange()
	return nil
}

// subscribe 加入拍賣的推播頻道
// 私人拍賣僅在使用者為已接受且獲准的報名者時訂閱，
// 不具資格的訂閱伺服器端只會默默失敗，客戶端不該嘗試
func (w *Widget) subscribe(ctx context.Context, auction models.Auction) error {
	const op = "Widget.subscribe"

	w.mu.RLock()
	alreadySubscribed := w.sub != nil && w.subAuctionID == auction.ID
	w.mu.RUnlock()
	if alreadySubscribed {
		return nil
	}

	if auction.IsPrivate {
		if !auction.Registration.Accepted() || !auction.Registration.IsUserAllowed {
			w.logger.Info("skipping subscription to private auction",
				slog.String("auctionId", auction.ID))
			return nil
		}
	}

	sub, err := w.subscriber.Subscribe(ctx, auction.ID)
	if err != nil {
		return fmt.Errorf("[%s] Fail to subscribe, err=%w", op, err)
	}

	w.mu.Lock()
	w.sub = sub
	w.subAuctionID = auction.ID
	w.mu.Unlock()
	return nil
}

// loop 為元件唯一的背景 goroutine:
// 每秒重新推導一次，並調和頻道推播事件。
// 除了這兩個觸發之外沒有其他輪詢，初次載入後不再呼叫 REST 查詢狀態。
func (w *Widget) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		w.mu.RLock()
		sub := w.sub
		var events <-chan phoenix.Event
		if sub != nil {
			events = sub.Events()
		}
		w.mu.RUnlock()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.notifyChange()
		case event, ok := <-events:
			if !ok {
				// 訂閱結束，之後僅剩時鐘驅動
				// 換訂其他拍賣時可能已掛上新訂閱，只清除自己讀到的那一個
				w.mu.Lock()
				if w.sub == sub {
					w.sub = nil
				}
				w.mu.Unlock()
				continue
			}
			w.reconcile(event)
		}
	}
}

// Close 停止計時器、拆除訂閱並等待背景 goroutine 結束
// 未呼叫 Close 的實例會洩漏計時器，卸載時必須呼叫
func (w *Widget) Close() {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.mounted = false
	sub := w.sub
	w.sub = nil
	w.subAuctionID = ""
	cancel := w.cancelFunc
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Close()
	}
	w.wg.Wait()

	w.newBid.UnsubscribeAll()
	w.bidPlaced.UnsubscribeAll()
	w.register.UnsubscribeAll()
	w.logger.Info("widget closed")
}

// OnChange 註冊快照變更的觀察者
// 每次時鐘推進與每次快照改寫後都會以最新快照呼叫
func (w *Widget) OnChange(fn func(Snapshot)) {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// NewBidEvents 回傳 "new_bid" 宿主通知的發射器
func (w *Widget) NewBidEvents() notify.IEmitter[notify.NewBidEvent] {
	return w.newBid
}

// BidPlacedEvents 回傳 "bid_placed" 宿主通知的發射器
func (w *Widget) BidPlacedEvents() notify.IEmitter[notify.BidPlacedEvent] {
	return w.bidPlaced
}

// RegisterEvents 回傳 "register" 宿主通知的發射器
func (w *Widget) RegisterEvents() notify.IEmitter[notify.RegisterEvent] {
	return w.register
}

// notifyChange 以最新快照呼叫所有觀察者
func (w *Widget) notifyChange() {
	snapshot := w.State()

	w.listenersMu.Lock()
	listeners := make([]func(Snapshot), len(w.listeners))
	copy(listeners, w.listeners)
	w.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
