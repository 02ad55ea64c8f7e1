package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate 唯一索引冲突
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound 按 ID 写入时目标不存在或已停用
	ErrNotFound = errors.New("record not found")
)

// translate 把不同驱动的唯一约束错误统一为 ErrDuplicate
func translate(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// sqlite3: "UNIQUE constraint failed: list_items.list_id, list_items.catalog_id"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
