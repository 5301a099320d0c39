// simulator 為本地開發用的後端模擬器:
// 提供元件需要的 REST 端點與 Phoenix 頻道子集，
// 以記憶體保存一場拍賣，無需連上正式後端即可開發與展示。
package main

import (
	"strings"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"enchere/models"
)

func ParseArgs() Args {
	// server config
	pflag.String("listen-addr", "0.0.0.0:4000", "")
	pflag.String("jwt-secret", "simulator-secret", "")

	// seeded auction config
	pflag.String("property-id", "prop-1", "")
	pflag.String("kind", string(models.KindProgressive), "")
	pflag.Int64("starting-price", 500000, "")
	pflag.Int64("step", 5000, "")
	pflag.Int64("step-interval-seconds", 60, "")
	pflag.Duration("lead-time", 10*time.Second, "")
	pflag.Duration("duration", 10*time.Minute, "")
	pflag.Bool("private", false, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ENCHERE_SIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return Args{
		ListenAddr: viper.GetString("listen-addr"),
		JWTSecret:  viper.GetString("jwt-secret"),
		Seed: Seed{
			PropertyID:          viper.GetString("property-id"),
			Kind:                models.ParseKind(viper.GetString("kind")),
			StartingPrice:       viper.GetInt64("starting-price"),
			Step:                viper.GetInt64("step"),
			StepIntervalSeconds: viper.GetInt64("step-interval-seconds"),
			LeadTime:            viper.GetDuration("lead-time"),
			Duration:            viper.GetDuration("duration"),
			Private:             viper.GetBool("private"),
		},
	}
}

type Args struct {
	ListenAddr string
	JWTSecret  string
	Seed       Seed
}

func (args Args) Validate() bool {
	return args.ListenAddr != "" && args.JWTSecret != "" &&
		args.Seed.StartingPrice > 0 && args.Seed.Step > 0
}

func main() {
	args := ParseArgs()
	if !args.Validate() {
		panic("missing arguments")
	}
	logger := slog.Default().With(slog.String("caller", "simulator"))

	hub := NewHub(logger)
	store := NewStore(args.Seed, hub, logger)
	defer store.Close()

	server := &Server{
		store:  store,
		hub:    hub,
		secret: []byte(args.JWTSecret),
		logger: logger,
	}

	router := gin.Default()
	router.POST("/oauth/token", server.handleToken)

	authed := router.Group("/api/v1", server.authMiddleware())
	authed.GET("/me", server.handleMe)
	authed.POST("/auction_registration", server.handleRegister)
	authed.POST("/bid", server.handleBid)

	// next_auction 不強制認證，未登入的訪客同樣可以瀏覽
	// 第一段同名以避免 gin 的萬用字元衝突，三段式查詢由後兩段參數區分
	router.GET("/api/v1/next_auction/:propertyId", server.optionalAuth(), server.handleNextAuction)
	router.GET("/api/v1/next_auction/:propertyId/:agency/:id", server.optionalAuth(), server.handleNextAuction)

	router.GET("/api/socket/websocket", server.handleSocket)

	logger.Info("simulator listening", slog.String("addr", args.ListenAddr))
	if err := router.Run(args.ListenAddr); err != nil {
		panic(err)
	}
}
