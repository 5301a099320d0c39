// enchere 的示範宿主:
// 掛載一個出價元件到指定的不動產，將快照與通知寫到日誌，
// 收到 SIGINT 後卸載並結束。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"enchere/adapters/tokenstore"
	"enchere/widget"
)

func main() {
	args := ParseArgs()
	if !args.Validate() {
		panic("missing arguments")
	}

	logger := slog.Default()

	// access token 未由參數提供時，回退為上次儲存的 token
	store, err := tokenstore.NewFileStore("")
	if err != nil {
		panic(err)
	}
	tokens := tokenstore.NewTokenStore(context.Background(), args.Config.ClientID, store)
	if args.Config.AccessToken == "" {
		if err := tokens.Load(); err != nil {
			logger.Warn("failed to load saved access token", slog.Any("error", err))
		}
		args.Config.AccessToken = tokens.Token()
	} else {
		tokens.Set(args.Config.AccessToken)
		if err := tokens.Save(); err != nil {
			logger.Warn("failed to persist access token", slog.Any("error", err))
		}
	}

	w := widget.New(args.Config)
	defer w.Close()

	w.OnChange(func(s widget.Snapshot) {
		logger.Info("snapshot",
			slog.String("phase", s.State.Phase.String()),
			slog.String("countdown", s.State.Countdown.Formatted),
			slog.Int64("price", s.Price.CurrentPrice),
			slog.Bool("canBid", s.CanBid))
	})
	newBids := w.NewBidEvents().Subscribe()
	ended := make(chan struct{})
	go func() {
		defer close(ended)
		for event := range newBids {
			logger.Info("new bid",
				slog.Int64("amount", event.Amount),
				slog.String("bidder", event.Bidder))
		}
	}()

	ctx := context.Background()
	if err := w.Mount(ctx, args.Property); err != nil {
		panic(err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	w.Close()
	<-ended
}
