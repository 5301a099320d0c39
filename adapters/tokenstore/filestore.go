package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore 以本地檔案保存 token，每個名稱對應一個檔案
type FileStore struct {
	dir string
}

// NewFileStore 建立以指定目錄為根的檔案儲存
// dir 為空時使用使用者快取目錄下的 enchere 子目錄
func NewFileStore(dir string) (*FileStore, error) {
	const op = "NewFileStore"
	if dir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to resolve cache dir: %w", op, err)
		}
		dir = filepath.Join(cacheDir, "enchere")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%s: failed to create dir: %w", op, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".token")
}

// Load 讀取指定名稱的 token，檔案不存在時回傳空字串
func (s *FileStore) Load(_ context.Context, name string) (string, error) {
	const op = "FileStore.Load"
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%s: failed to read token file: %w", op, err)
	}
	return string(data), nil
}

// Save 寫入指定名稱的 token
func (s *FileStore) Save(_ context.Context, name string, token string) error {
	const op = "FileStore.Save"
	if err := os.WriteFile(s.path(name), []byte(token), 0o600); err != nil {
		return fmt.Errorf("%s: failed to write token file: %w", op, err)
	}
	return nil
}

// Delete 刪除指定名稱的 token，不存在時視為成功
func (s *FileStore) Delete(_ context.Context, name string) error {
	const op = "FileStore.Delete"
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: failed to remove token file: %w", op, err)
	}
	return nil
}

// MemoryStore 以記憶體保存 token，供測試與不需持久化的宿主使用
type MemoryStore struct {
	tokens map[string]string
}

// NewMemoryStore 建立記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

// Load 讀取指定名稱的 token，不存在時回傳空字串
func (s *MemoryStore) Load(_ context.Context, name string) (string, error) {
	return s.tokens[name], nil
}

// Save 寫入指定名稱的 token
func (s *MemoryStore) Save(_ context.Context, name string, token string) error {
	s.tokens[name] = token
	return nil
}

// Delete 刪除指定名稱的 token
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	delete(s.tokens, name)
	return nil
}
