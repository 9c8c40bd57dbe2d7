package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"fintrack/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ResetTokenTTL 密码重置令牌有效期
const ResetTokenTTL = time.Hour

// TokenKind 令牌类型
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Identity 令牌中携带的身份
type Identity struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Claims JWT 载荷
type Claims struct {
	Identity
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair access + refresh
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService 签发与校验令牌
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService 创建令牌服务
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessExpire,
		refreshTTL:    cfg.RefreshExpire,
		now:           time.Now,
	}
}

// IssuePair 签发一对令牌。refresh token 的持久化由调用方负责
func (s *TokenService) IssuePair(id Identity) (TokenPair, error) {
	access, err := s.sign(id, AccessToken)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(id, RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) sign(id Identity, kind TokenKind) (string, error) {
	secret, ttl := s.keyFor(kind)
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := s.now()
	claims := Claims{
		Identity: id,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify 校验令牌签名、过期时间与类型。任何失败都只返回 false
func (s *TokenService) Verify(tokenString string, kind TokenKind) (*Identity, bool) {
	if tokenString == "" {
		return nil, false
	}
	secret, _ := s.keyFor(kind)
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, false
	}
	if claims.Kind != kind || claims.UserID == 0 {
		return nil, false
	}
	id := claims.Identity
	return &id, true
}

func (s *TokenService) keyFor(kind TokenKind) ([]byte, time.Duration) {
	if kind == RefreshToken {
		return s.refreshSecret, s.refreshTTL
	}
	return s.accessSecret, s.accessTTL
}

// IssueResetToken 生成重置令牌：明文发给用户，只保存哈希
func IssueResetToken() (plain, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(buf)
	return plain, HashResetToken(plain), nil
}

// HashResetToken 重置令牌的 SHA-256
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// HashRefreshToken 保存在用户记录上的 refresh token 摘要
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
