// Package token 签发和校验 Bearer 令牌。令牌无状态：刷新不会吊销旧令牌，
// 旧令牌在自然过期前一直有效。
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiry 默认有效期 7 天
const DefaultExpiry = 7 * 24 * time.Hour

var (
	ErrInvalid = errors.New("token invalid")
	ErrExpired = errors.New("token expired")
)

// Claims 令牌载荷，只包含用户 ID（sub）与时间信息，绝不包含密码哈希
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer 令牌签发器
type Issuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// Option 签发器配置项
type Option func(*Issuer)

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer 创建签发器
func NewIssuer(secret string, expiry time.Duration, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret required")
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	i := &Issuer{secret: []byte(secret), expiry: expiry, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue 为用户签发新令牌
func (i *Issuer) Issue(userID uint) (string, time.Time, error) {
	if userID == 0 {
		return "", time.Time{}, errors.New("token subject required")
	}
	now := i.now()
	expiresAt := now.Add(i.expiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate 先校验签名与结构，再校验过期时间，返回用户 ID
func (i *Issuer) Validate(tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, ErrInvalid
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalid
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalid
	}
	return uint(id), nil
}
