package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// fileName はストレージファイル名。
const fileName = "storage.json"

// FileStorage は単一のJSONファイルに全キーを保存するStorage。
// 書き込みは一時ファイルへの出力とリネームで行い、途中状態のファイルを残さない。
type FileStorage struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileStorage はdir配下のJSONファイルを使うFileStorageを生成する。
// ディレクトリが存在しない場合は作成する。
func NewFileStorage(dir string, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		path:   filepath.Join(dir, fileName),
		logger: logger,
	}, nil
}

// Path はストレージファイルのパスを返す。
func (s *FileStorage) Path() string {
	return s.path
}

// Get はキーの値を返す。
func (s *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set はキーに値を保存する。
func (s *FileStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Remove はキーを削除する。
func (s *FileStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// load はファイルから全キーを読み込む。
// ファイルが存在しない、または壊れている場合は空のマップを返す。
func (s *FileStorage) load() (map[string]string, error) {
	content, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(content, &values); err != nil {
		s.logger.Warn("ストレージファイルが破損しているため空として扱います",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return make(map[string]string), nil
	}
	return values, nil
}

// save は全キーをファイルに書き込む。
func (s *FileStorage) save(values map[string]string) error {
	content, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

var _ Storage = (*FileStorage)(nil)
