// Package restapi 實作遠端拍賣後端的 REST 邊界客戶端。
// 所有失敗都以錯誤值傳回呼叫端，不在此層重試；
// 401 以 ErrUnauthorized 區別於其他失敗，
// 出價金額過低以 BidTooLowError 攜帶伺服器計算的下限。
package restapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/oauth2"

	"enchere/models"
)

type clientOptions struct {
	logger     *slog.Logger
	httpClient *http.Client
	timeout    time.Duration
}

type ClientOption func(*clientOptions)

// WithLogger 設置日誌記錄器
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHTTPClient 設置底層的 http.Client，供測試注入
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithTimeout 設置單一請求的超時時間
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// Client 為 IClient 的 resty 實作
type Client struct {
	rest      *resty.Client
	tokens    oauth2.TokenSource
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewClient 建立 REST 客戶端
// baseURL: 後端的基底網址，例如 https://encheres-immo.com
// tokens: 認證協作者提供的 token 來源，認證流程本身不在此層處理
func NewClient(baseURL string, tokens oauth2.TokenSource, opts ...ClientOption) *Client {
	options := clientOptions{
		logger:  slog.Default(),
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	var rest *resty.Client
	if options.httpClient != nil {
		rest = resty.NewWithClient(options.httpClient)
	} else {
		rest = resty.New()
	}
	rest.SetBaseURL(baseURL)
	rest.SetTimeout(options.timeout)

	return &Client{
		rest:   rest,
		tokens: tokens,
		// 伺服器字串僅供顯示，進入快照前先剝除任何標記
		sanitizer: bluemonday.StrictPolicy(),
		logger:    options.logger.With(slog.String("caller", "restapi.Client")),
	}
}

// StaticTokenSource 以固定的 access token 建立 token 來源
// 供宿主頁面已自行完成認證流程的情境使用
func StaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
}

// request 建立帶有認證標頭的請求
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	req := c.rest.R().SetContext(ctx)
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}
		req.SetAuthToken(token.AccessToken)
	}
	return req, nil
}

// NextAuction 取得指定不動產的下一場拍賣
func (c *Client) NextAuction(ctx context.Context, property PropertyInfo) (models.Auction, error) {
	const op = "Client.NextAuction"

	url := "/api/v1/next_auction/" + property.PropertyID
	if property.PropertyID == "" {
		url = fmt.Sprintf("/api/v1/next_auction/%s/%s/%s",
			property.Source, property.SourceAgencyID, property.SourceID)
	}

	req, err := c.request(ctx)
	if err != nil {
		return models.Auction{}, fmt.Errorf("[%s] %w", op, err)
	}

	var raw rawAuction
	resp, err := req.SetResult(&raw).Get(url)
	if err != nil {
		return models.Auction{}, fmt.Errorf("[%s] Fail to fetch auction, err=%w", op, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		c.logger.Error("unauthorized request", slog.String("url", url))
		return models.Auction{}, fmt.Errorf("[%s] %w", op, ErrUnauthorized)
	}
	if resp.IsError() {
		return models.Auction{}, fmt.Errorf("[%s] Fail to fetch auction, status=%d", op, resp.StatusCode())
	}

	return c.formatAuction(raw), nil
}

// RegisterUser 替目前使用者報名指定拍賣
// 報名後仍需仲介審核，審核通過前使用者無法出價
func (c *Client) RegisterUser(ctx context.Context, auctionID string) (models.Auction, error) {
	const op = "Client.RegisterUser"

	req, err := c.request(ctx)
	if err != nil {
		return models.Auction{}, fmt.Errorf("[%s] %w", op, err)
	}

	var raw rawAuction
	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"auctionId": auctionID}).
		SetResult(&raw).
		Post("/api/v1/auction_registration")
	if err != nil {
		return models.Auction{}, fmt.Errorf("[%s] Fail to register, err=%w", op, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		c.logger.Error("unauthorized request", slog.String("auctionId", auctionID))
		return models.Auction{}, fmt.Errorf("[%s] %w", op, ErrUnauthorized)
	}
	if resp.IsError() {
		return models.Auction{}, fmt.Errorf("[%s] Fail to register, status=%d", op, resp.StatusCode())
	}

	return c.formatAuction(raw), nil
}

// PlaceBid 對指定拍賣出價
func (c *Client) PlaceBid(ctx context.Context, auctionID string, amount int64) (models.Bid, error) {
	const op = "Client.PlaceBid"

	req, err := c.request(ctx)
	if err != nil {
		return models.Bid{}, fmt.Errorf("[%s] %w", op, err)
	}

	var raw rawBid
	var tooLow BidTooLowError
	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"auctionId": auctionID, "amount": amount}).
		SetResult(&raw).
		SetError(&tooLow).
		Post("/api/v1/bid")
	if err != nil {
		return models.Bid{}, fmt.Errorf("[%s] Fail to place bid, err=%w", op, err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		c.logger.Error("unauthorized request", slog.String("auctionId", auctionID))
		return models.Bid{}, fmt.Errorf("[%s] %w", op, ErrUnauthorized)
	case resp.StatusCode() == http.StatusUnprocessableEntity && tooLow.Code == bidTooLowCode:
		return models.Bid{}, &tooLow
	case resp.IsError():
		return models.Bid{}, fmt.Errorf("[%s] Fail to place bid, status=%d", op, resp.StatusCode())
	}

	return c.formatBid(raw), nil
}

// Me 取得目前已認證使用者的資料
// 401 或缺少 id 的回應一律視為未登入
func (c *Client) Me(ctx context.Context) (models.User, error) {
	const op = "Client.Me"

	req, err := c.request(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("[%s] %w", op, err)
	}

	var raw struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	resp, err := req.SetResult(&raw).Get("/api/v1/me")
	if err != nil {
		return models.User{}, fmt.Errorf("[%s] Fail to fetch user, err=%w", op, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return models.User{}, fmt.Errorf("[%s] %w", op, ErrUnauthorized)
	}
	if resp.IsError() {
		return models.User{}, fmt.Errorf("[%s] Fail to fetch user, status=%d", op, resp.StatusCode())
	}
	if raw.ID == "" {
		// 沒有 id 的使用者資料視為未認證，而非硬性錯誤
		return models.User{}, fmt.Errorf("[%s] %w", op, ErrUnauthorized)
	}

	return models.User{ID: raw.ID, Email: raw.Email}, nil
}
