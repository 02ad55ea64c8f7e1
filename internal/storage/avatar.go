// Package storage 把头像保存在本地磁盘，对外只暴露文件名和 URL。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge 文件超过大小限制
var ErrTooLarge = errors.New("file too large")

// LocalAvatars 本地头像存储
type LocalAvatars struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

// NewLocalAvatars 创建存储目录
func NewLocalAvatars(dir, urlPrefix string, maxBytes int64) (*LocalAvatars, error) {
	if dir == "" {
		return nil, errors.New("upload dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &LocalAvatars{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		maxBytes:  maxBytes,
	}, nil
}

// Dir 存储目录，用于挂载静态文件
func (s *LocalAvatars) Dir() string { return s.dir }

// Prefix URL 前缀
func (s *LocalAvatars) Prefix() string { return s.urlPrefix }

// Save 以随机文件名写入，超过大小限制时删除半成品
func (s *LocalAvatars) Save(ctx context.Context, r io.Reader, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := "profile-" + uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return name, nil
}

// Delete 删除文件；文件不存在不算错误
func (s *LocalAvatars) Delete(filename string) error {
	base := filepath.Base(filename)
	if base != filename || base == "." || base == string(filepath.Separator) {
		return fmt.Errorf("invalid filename %q", filename)
	}
	err := os.Remove(filepath.Join(s.dir, base))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// URL 文件名对应的访问地址
func (s *LocalAvatars) URL(filename string) string {
	if filename == "" {
		return ""
	}
	return s.urlPrefix + "/" + filename
}
