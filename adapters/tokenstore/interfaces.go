package tokenstore

import "context"

// IStore 定義 access token 的持久化介面
// token 不存在時 Load 回傳空字串而非錯誤
type IStore interface {
	Load(ctx context.Context, name string) (string, error)
	Save(ctx context.Context, name string, token string) error
	Delete(ctx context.Context, name string) error
}

// ITokenStore 定義單一 token 的存取介面，對儲存層做惰性載入
type ITokenStore interface {
	Load() error
	Token() string
	Set(token string)
	Clear() error
	Save() error
}
