package restapi

import (
	"context"

	"enchere/models"
)

// PropertyInfo 指定要查詢拍賣的不動產
// 可用平台的 propertyId，或以 CRM 來源三元組定位
type PropertyInfo struct {
	PropertyID     string `json:"propertyId,omitempty"`
	Source         string `json:"source,omitempty"`
	SourceAgencyID string `json:"sourceAgencyId,omitempty"`
	SourceID       string `json:"sourceId,omitempty"`
}

// IClient 定義了遠端拍賣後端 REST 邊界的介面
type IClient interface {
	// NextAuction 取得指定不動產的下一場拍賣
	NextAuction(ctx context.Context, property PropertyInfo) (models.Auction, error)
	// RegisterUser 替目前使用者報名指定拍賣，回傳帶有最新報名狀態的拍賣
	RegisterUser(ctx context.Context, auctionID string) (models.Auction, error)
	// PlaceBid 對指定拍賣出價
	PlaceBid(ctx context.Context, auctionID string, amount int64) (models.Bid, error)
	// Me 取得目前已認證使用者的資料
	Me(ctx context.Context) (models.User, error)
}
