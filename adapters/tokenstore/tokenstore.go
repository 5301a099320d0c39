// Package tokenstore 負責保存認證流程取得的 access token，
// 讓使用者在下次掛載元件時不需重新登入。
// 對應瀏覽器版本以 localStorage 保存 token 的行為。
package tokenstore

import (
	"context"
	"fmt"
)

// tokenStoreImpl 實作 ITokenStore 介面，用於管理單一 access token
type tokenStoreImpl struct {
	name   string          // token 的識別名稱（依 client id 區分）
	ctx    context.Context // 操作上下文
	token  string          // token 內容
	loaded bool            // 是否已從儲存層載入
	store  IStore          // token 儲存接口
}

// NewTokenStore 建立新的 token store 實例
func NewTokenStore(ctx context.Context, name string, store IStore) ITokenStore {
	if ctx == nil {
		ctx = context.Background()
	}
	return &tokenStoreImpl{
		name:  name,
		ctx:   ctx,
		store: store,
	}
}

// Load 從儲存層載入 token
func (s *tokenStoreImpl) Load() error {
	const op = "tokenStoreImpl.Load"
	// 如果已經載入過，則直接返回
	if s.loaded {
		return nil
	}

	token, err := s.store.Load(s.ctx, s.name)
	if err != nil {
		return fmt.Errorf("%s: failed to load token: %w", op, err)
	}

	s.token = token
	s.loaded = true
	return nil
}

// Token 取得目前的 token，尚未載入或不存在時為空字串
func (s *tokenStoreImpl) Token() string {
	return s.token
}

// Set 設定 token 內容
func (s *tokenStoreImpl) Set(token string) {
	s.token = token
	s.loaded = true
}

// Clear 清除 token 並從儲存層刪除
// 供 401 回應後丟棄失效 token 使用
func (s *tokenStoreImpl) Clear() error {
	const op = "tokenStoreImpl.Clear"
	s.token = ""
	s.loaded = true
	if err := s.store.Delete(s.ctx, s.name); err != nil {
		return fmt.Errorf("%s: failed to delete token: %w", op, err)
	}
	return nil
}

// Save 保存 token 到儲存層
func (s *tokenStoreImpl) Save() error {
	const op = "tokenStoreImpl.Save"
	if s.token == "" {
		return nil
	}
	if err := s.store.Save(s.ctx, s.name, s.token); err != nil {
		return fmt.Errorf("%s: failed to save token: %w", op, err)
	}
	return nil
}
