package widget

import (
	"log/slog"
)

// Environment 列舉可用的後端環境
// local 與 staging 僅供內部使用
const (
	EnvLocal      = "local"
	EnvStaging    = "staging"
	EnvProduction = "production"
)

// Config 為單一元件實例的設定
type Config struct {
	// ClientID 為核發給宿主網站的 API 金鑰
	ClientID string
	// Environment 決定預設的後端位址，未知值回退為 production
	Environment string
	// BaseURL/WSURL 非空時覆寫環境推導出的位址
	BaseURL string
	WSURL   string
	// AccessToken 為認證協作者取得的 bearer token
	// 認證流程（OAuth2/PKCE）不在元件範圍內
	AccessToken string
}

// resolveURLs 依環境推導後端位址，已明確設定者不覆寫
func (c *Config) resolveURLs(logger *slog.Logger) {
	var domain string
	var scheme, wsScheme = "https", "wss"
	switch c.Environment {
	case EnvLocal:
		domain = "localhost:4000"
		scheme, wsScheme = "http", "ws"
	case EnvStaging:
		domain = "staging.encheres-immo.com"
	case EnvProduction:
		domain = "encheres-immo.com"
	default:
		logger.Warn("unknown environment, defaulting to production",
			slog.String("environment", c.Environment))
		domain = "encheres-immo.com"
	}
	if c.BaseURL == "" {
		c.BaseURL = scheme + "://" + domain
	}
	if c.WSURL == "" {
		c.WSURL = wsScheme + "://" + domain + "/api/socket"
	}
}
