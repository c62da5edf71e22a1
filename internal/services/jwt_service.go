package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-supa-todo/backend/internal/models"
)

// ErrInvalidToken はトークンが無効・期限切れの場合のエラーです。
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenVerifier はベアラートークンを検証し、ユーザー情報を返します。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.AuthUser, error)
}

// AccessClaims は ID プロバイダが発行するアクセストークンのクレームです。
type AccessClaims struct {
	Email            string         `json:"email,omitempty"`
	Role             string         `json:"role,omitempty"`
	EmailConfirmedAt string         `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier はプロジェクトの JWT シークレット (HS256) でアクセストークンを検証します。
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier は新しいJWTVerifierを作成します。
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

// GenerateToken はユーザーのアクセストークンを生成します。ローカル開発とテスト用。
func (v *JWTVerifier) GenerateToken(u models.AuthUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: u.Email,
		Role:  "authenticated",
		UserMetadata: map[string]any{
			"full_name":      u.FullName,
			"email_verified": u.EmailConfirmed,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if u.EmailConfirmed {
		claims.EmailConfirmedAt = now.UTC().Format(time.RFC3339)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, nil
}

// Verify はトークンを検証し、クレームからユーザー情報を組み立てます。
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*models.AuthUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		// anon キーなど、ユーザーに紐付かないトークン
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &models.AuthUser{
		ID:             claims.Subject,
		Email:          claims.Email,
		FullName:       metadataString(claims.UserMetadata, "full_name"),
		EmailConfirmed: claims.EmailConfirmedAt != "" || metadataBool(claims.UserMetadata, "email_verified"),
		Token:          tokenString,
	}, nil
}

func metadataString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func metadataBool(m map[string]any, key string) bool {
	b, ok := m[key].(bool)
	return ok && b
}
