package widget_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"enchere/adapters/phoenix"
	"enchere/adapters/restapi"
	"enchere/engine"
	"enchere/models"
	"enchere/widget"
)

var (
	baseTime  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trueValue = true
)

func inProgressAuction() models.Auction {
	return models.Auction{
		ID:            "auction-1",
		Kind:          models.KindProgressive,
		Status:        models.StatusStarted,
		StartDate:     baseTime.Add(-time.Hour).UnixMilli(),
		EndDate:       baseTime.Add(time.Hour).UnixMilli(),
		StartingPrice: 500000,
		Step:          5000,
		Bids:          []models.Bid{},
		Registration: &models.Registration{
			IsUserAllowed:          true,
			IsRegistrationAccepted: &trueValue,
			IsParticipant:          true,
		},
		Currency: models.Currency{Symbol: "€", Code: "EUR"},
	}
}

type fixture struct {
	widget     *widget.Widget
	api        *fakeAPI
	subscriber *fakeSubscriber
	clock      *fakeClock
}

// mountedWidget 以測試替身組裝並掛載一個元件
func mountedWidget(t *testing.T, api *fakeAPI) fixture {
	t.Helper()

	clock := newFakeClock(baseTime)
	subscriber := newFakeSubscriber()
	w := widget.New(
		widget.Config{ClientID: "client-1", Environment: widget.EnvLocal},
		widget.WithAPIClient(api),
		widget.WithSubscriber(subscriber),
		widget.WithClock(clock.Now),
		widget.WithTickInterval(10*time.Millisecond),
	)
	t.Cleanup(w.Close)

	err := w.Mount(context.Background(), restapi.PropertyInfo{PropertyID: "prop-1"})
	require.NoError(t, err)
	return fixture{widget: w, api: api, subscriber: subscriber, clock: clock}
}

func TestMount(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{
		user:    models.User{ID: "user-1", Email: "user@example.com"},
		auction: inProgressAuction(),
	}
	f := mountedWidget(t, api)

	snapshot := f.widget.State()
	assert.True(t, snapshot.IsLogged)
	assert.Equal(t, engine.PhaseInProgress, snapshot.State.Phase)
	assert.Equal(t, widget.RegistrationParticipant, snapshot.RegistrationStatus)
	assert.True(t, snapshot.CanBid)
	assert.True(t, snapshot.CanViewBids)

	// 尚無出價: 快速出價從 "+0" 開始
	assert.Equal(t, int64(0), snapshot.FastBids[0].Display)
	assert.Equal(t, int64(500000), snapshot.FastBids[0].Submit)
	assert.Equal(t, int64(10000), snapshot.FastBids[2].Display)
	assert.Equal(t, int64(510000), snapshot.FastBids[2].Submit)

	assert.Equal(t, []string{"auction-1"}, f.subscriber.subscribed())

	f.widget.Close()
}

func TestMountAnonymous(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{
		userErr: restapi.ErrUnauthorized,
		auction: inProgressAuction(),
	}
	f := mountedWidget(t, api)

	// 未登入仍可瀏覽公開拍賣，但不得出價
	snapshot := f.widget.State()
	assert.False(t, snapshot.IsLogged)
	assert.False(t, snapshot.CanBid)
	assert.True(t, snapshot.CanViewBids)
	assert.Equal(t, []string{"auction-1"}, f.subscriber.subscribed())

	f.widget.Close()
}

func TestMountSkipsPrivateAuctionSubscription(t *testing.T) {
	defer goleak.VerifyNone(t)

	auction := inProgressAuction()
	auction.IsPrivate = true
	auction.Registration = nil
	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: auction}
	f := mountedWidget(t, api)

	// 不具資格的私人拍賣不訂閱，出價資訊也不可見
	assert.Empty(t, f.subscriber.subscribed())
	assert.False(t, f.widget.State().CanViewBids)

	f.widget.Close()
}

func TestRemountSwitchesSubscription(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := inProgressAuction()
	second := inProgressAuction()
	second.ID = "auction-2"
	api := &fakeAPI{
		user:     models.User{ID: "user-1"},
		auctions: []models.Auction{first, second},
	}
	f := mountedWidget(t, api)

	// 讓背景迴圈先消化一個第一場拍賣的事件
	f.subscriber.handleFor("auction-1").push(phoenix.Event{
		Type: phoenix.EventNewBid,
		Bid:  models.Bid{ID: "bid-1", Amount: 505000, ParticipantID: "p-1"},
	})
	assert.Eventually(t, func() bool {
		return f.widget.State().Auction.HighestBid != nil
	}, time.Second, 5*time.Millisecond)

	// 重新掛載到另一場拍賣: 舊訂閱拆除，新訂閱生效
	err := f.widget.Mount(context.Background(), restapi.PropertyInfo{PropertyID: "prop-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"auction-1", "auction-2"}, f.subscriber.subscribed())
	assert.True(t, f.subscriber.handleFor("auction-1").closed())

	// 舊訂閱的通道關閉後，新訂閱的推播仍然要被調和
	f.subscriber.handleFor("auction-2").push(phoenix.Event{
		Type: phoenix.EventNewBid,
		Bid:  models.Bid{ID: "bid-2", Amount: 510000, ParticipantID: "p-2"},
	})
	assert.Eventually(t, func() bool {
		snapshot := f.widget.State()
		return snapshot.Auction.ID == "auction-2" &&
			snapshot.Auction.HighestBid != nil &&
			snapshot.Auction.HighestBid.ID == "bid-2"
	}, time.Second, 5*time.Millisecond)

	// 卸載時新訂閱一併拆除，不遺留孤兒連線
	f.widget.Close()
	assert.True(t, f.subscriber.handleFor("auction-2").closed())
}

func TestScheduledAuctionStartsWithClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	auction := inProgressAuction()
	auction.Status = models.StatusScheduled
	auction.StartDate = baseTime.Add(time.Minute).UnixMilli()
	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: auction}
	f := mountedWidget(t, api)

	// 開始前: 倒數到開始時間，出價介面關閉
	snapshot := f.widget.State()
	assert.Equal(t, engine.PhaseNotStarted, snapshot.State.Phase)
	assert.Equal(t, "0j 0h 1m 0s", snapshot.State.Countdown.Formatted)
	assert.False(t, snapshot.CanBid)

	// 時鐘越過開始時間後，不需伺服器推播也切換為進行中
	f.clock.Advance(2 * time.Minute)
	snapshot = f.widget.State()
	assert.Equal(t, engine.PhaseInProgress, snapshot.State.Phase)
	assert.True(t, snapshot.CanBid)

	f.widget.Close()
}

func TestNewBidReconciliation(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: inProgressAuction()}
	f := mountedWidget(t, api)

	notifications := f.widget.NewBidEvents().Subscribe()

	newEnd := baseTime.Add(2 * time.Hour).UnixMilli()
	f.subscriber.handleFor("auction-1").push(phoenix.Event{
		Type: phoenix.EventNewBid,
		Bid: models.Bid{
			ID:              "bid-1",
			Amount:          505000,
			CreatedAt:       baseTime.UnixMilli(),
			NewEndDate:      newEnd,
			UserAnonymousId: "Enchérisseur 1",
			ParticipantID:   "p-1",
		},
	})

	// 推播套用後: 最高出價更新、反狙擊延長推遲結束時間
	assert.Eventually(t, func() bool {
		snapshot := f.widget.State()
		return snapshot.Auction.HighestBid != nil &&
			snapshot.Auction.HighestBid.ID == "bid-1" &&
			snapshot.Auction.EndDate == newEnd
	}, time.Second, 5*time.Millisecond)

	// 快速出價改以最高出價為基準
	snapshot := f.widget.State()
	assert.Equal(t, int64(5000), snapshot.FastBids[0].Display)
	assert.Equal(t, int64(510000), snapshot.FastBids[0].Submit)

	select {
	case event := <-notifications:
		assert.Equal(t, int64(505000), event.Amount)
		assert.Equal(t, "Enchérisseur 1", event.Bidder)
	case <-time.After(time.Second):
		t.Fatal("did not receive new_bid notification")
	}

	f.widget.Close()
}

func TestAuctionEndedReconciliation(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: inProgressAuction()}
	f := mountedWidget(t, api)

	f.subscriber.handleFor("auction-1").push(phoenix.Event{
		Type:       phoenix.EventAuctionEnded,
		AuctionID:  "auction-1",
		FinalPrice: models.Ptr(515000),
	})

	// 結束推播具權威性，本地時鐘尚未到結束時間也切換為已結束
	assert.Eventually(t, func() bool {
		snapshot := f.widget.State()
		return snapshot.State.Phase == engine.PhaseEnded &&
			snapshot.Auction.FinalDisplayPrice() == 515000
	}, time.Second, 5*time.Millisecond)

	assert.False(t, f.widget.State().CanBid)
	f.widget.Close()
}

func TestAuctionEndedForAnotherAuctionIsIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: inProgressAuction()}
	f := mountedWidget(t, api)

	f.subscriber.handleFor("auction-1").push(phoenix.Event{
		Type:       phoenix.EventAuctionEnded,
		AuctionID:  "auction-other",
		FinalPrice: models.Ptr(1),
	})

	assert.Never(t, func() bool {
		return f.widget.State().State.Phase == engine.PhaseEnded
	}, 100*time.Millisecond, 10*time.Millisecond)

	f.widget.Close()
}

func TestPrepareBid(t *testing.T) {
	defer goleak.VerifyNone(t)

	auction := inProgressAuction()
	bid := models.Bid{ID: "bid-1", Amount: 505000, ParticipantID: "p-1"}
	auction.Bids = append(auction.Bids, bid)
	auction.HighestBid = &bid
	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: auction}
	f := mountedWidget(t, api)

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := f.widget.PrepareBid("abc")
		assert.ErrorIs(t, err, engine.ErrInvalidAmount)
	})

	t.Run("flags a low amount", func(t *testing.T) {
		// 基準為 510000
		proposal, err := f.widget.PrepareBid("505000")
		require.NoError(t, err)
		assert.True(t, proposal.TooLow)
		assert.False(t, proposal.TooHigh)
		require.NotNil(t, proposal.PreviousHighest)
		assert.Equal(t, int64(505000), *proposal.PreviousHighest)
	})

	t.Run("flags a suspiciously high amount", func(t *testing.T) {
		proposal, err := f.widget.PrepareBid("600000")
		require.NoError(t, err)
		assert.True(t, proposal.TooHigh)
		assert.False(t, proposal.TooLow)
	})

	t.Run("fast bid proposal", func(t *testing.T) {
		proposal := f.widget.PrepareFastBid(2)
		assert.Equal(t, int64(515000), proposal.Amount)
		assert.False(t, proposal.TooLow)
		assert.False(t, proposal.TooHigh)
	})

	f.widget.Close()
}

func TestConfirmBid(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{
		user:    models.User{ID: "user-1"},
		auction: inProgressAuction(),
		bid: models.Bid{
			ID:            "bid-own",
			Amount:        505000,
			CreatedAt:     baseTime.UnixMilli(),
			ParticipantID: "p-me",
		},
	}
	f := mountedWidget(t, api)

	notifications := f.widget.BidPlacedEvents().Subscribe()

	bid, err := f.widget.ConfirmBid(context.Background(), widget.Proposal{Amount: 505000})
	require.NoError(t, err)
	assert.Equal(t, "bid-own", bid.ID)
	assert.Equal(t, []int64{505000}, api.placeBidCalls)

	// 出價成功後快照直接套用，快速出價切換為出價後的算法
	snapshot := f.widget.State()
	require.NotNil(t, snapshot.Auction.HighestBid)
	assert.Equal(t, "bid-own", snapshot.Auction.HighestBid.ID)
	assert.Equal(t, int64(5000), snapshot.FastBids[0].Display)
	assert.Equal(t, int64(510000), snapshot.FastBids[0].Submit)

	select {
	case event := <-notifications:
		assert.Equal(t, int64(505000), event.Amount)
	case <-time.After(time.Second):
		t.Fatal("did not receive bid_placed notification")
	}

	f.widget.Close()
}

func TestConfirmBidNotAllowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{
		userErr: restapi.ErrUnauthorized,
		auction: inProgressAuction(),
	}
	f := mountedWidget(t, api)

	_, err := f.widget.ConfirmBid(context.Background(), widget.Proposal{Amount: 505000})
	assert.ErrorIs(t, err, widget.ErrBiddingNotAllowed)
	assert.Empty(t, api.placeBidCalls)

	f.widget.Close()
}

func TestConfirmBidTooLow(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{
		user:    models.User{ID: "user-1"},
		auction: inProgressAuction(),
		bidErr:  &restapi.BidTooLowError{Code: "bid_amount_too_low", Min: 510000},
	}
	f := mountedWidget(t, api)

	_, err := f.widget.ConfirmBid(context.Background(), widget.Proposal{Amount: 500000})

	var tooLow *restapi.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, int64(510000), tooLow.Min)
	assert.Equal(t,
		"Vous devez au moins enchérir 510000 €.",
		widget.TooLowMessage(tooLow.Min, f.widget.State().Auction.Currency))

	// 被拒絕的出價不得套用到快照
	snapshot := f.widget.State()
	assert.Nil(t, snapshot.Auction.HighestBid)
	assert.Equal(t, int64(0), snapshot.FastBids[0].Display)

	f.widget.Close()
}

func TestAcceptCurrentPrice(t *testing.T) {
	defer goleak.VerifyNone(t)

	auction := inProgressAuction()
	auction.Kind = models.KindDigressive
	auction.StepIntervalSeconds = 60
	auction.StartDate = baseTime.UnixMilli()
	api := &fakeAPI{
		user:    models.User{ID: "user-1"},
		auction: auction,
		bid: models.Bid{
			ID:            "bid-own",
			Amount:        495000,
			ParticipantID: "p-me",
		},
	}
	f := mountedWidget(t, api)

	// 開始 60 秒後價格已降一個級距，接受的就是當下的即時價格
	f.clock.Advance(time.Minute)
	_, err := f.widget.AcceptCurrentPrice(context.Background())
	require.NoError(t, err)

	want := engine.PriceAt(auction, f.clock.Now())
	require.Len(t, api.placeBidCalls, 1)
	assert.Equal(t, want.CurrentPrice, api.placeBidCalls[0])

	// 接受後價格凍結
	snapshot := f.widget.State()
	assert.True(t, snapshot.Price.HasBid)
	assert.Equal(t, int64(495000), snapshot.Price.CurrentPrice)

	f.widget.Close()
}

func TestRegister(t *testing.T) {
	defer goleak.VerifyNone(t)

	auction := inProgressAuction()
	auction.Registration = nil
	registered := inProgressAuction()

	api := &fakeAPI{
		user:       models.User{ID: "user-1"},
		auction:    auction,
		registered: registered,
	}
	f := mountedWidget(t, api)
	assert.Equal(t, widget.RegistrationNone, f.widget.State().RegistrationStatus)

	notifications := f.widget.RegisterEvents().Subscribe()

	require.NoError(t, f.widget.Register(context.Background()))
	assert.Equal(t, widget.RegistrationParticipant, f.widget.State().RegistrationStatus)

	select {
	case event := <-notifications:
		assert.Equal(t, "auction-1", event.AuctionID)
	case <-time.After(time.Second):
		t.Fatal("did not receive register notification")
	}

	f.widget.Close()
}

func TestOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: inProgressAuction()}

	clock := newFakeClock(baseTime)
	subscriber := newFakeSubscriber()
	w := widget.New(
		widget.Config{ClientID: "client-1", Environment: widget.EnvLocal},
		widget.WithAPIClient(api),
		widget.WithSubscriber(subscriber),
		widget.WithClock(clock.Now),
		widget.WithTickInterval(10*time.Millisecond),
	)
	defer w.Close()

	changes := make(chan widget.Snapshot, 64)
	w.OnChange(func(s widget.Snapshot) {
		select {
		case changes <- s:
		default:
		}
	})

	require.NoError(t, w.Mount(context.Background(), restapi.PropertyInfo{PropertyID: "prop-1"}))

	// 掛載後的每個時鐘週期都會以最新快照通知觀察者
	for i := 0; i < 3; i++ {
		select {
		case snapshot := <-changes:
			assert.Equal(t, "auction-1", snapshot.Auction.ID)
		case <-time.After(time.Second):
			t.Fatal("observer was not notified")
		}
	}

	w.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{user: models.User{ID: "user-1"}, auction: inProgressAuction()}
	f := mountedWidget(t, api)

	f.widget.Close()
	f.widget.Close()

	// 關閉前未掛載的實例也可以安全關閉
	idle := widget.New(widget.Config{ClientID: "client-1", Environment: widget.EnvLocal},
		widget.WithAPIClient(api), widget.WithSubscriber(newFakeSubscriber()))
	idle.Close()
}
