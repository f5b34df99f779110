// Package security はアプリケーションのセキュリティ機能を提供する。
// Bearerクレデンシャルの署名・検証、パスワードハッシュ、自由記述テキストの
// サニタイズを含む。
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/takumi/hiretrack/internal/model"
)

// ErrInvalidToken はトークンの構造または署名が不正な場合のエラー。
var ErrInvalidToken = errors.New("invalid token")

// ErrTokenExpired はトークンの有効期限が切れている場合のエラー。
var ErrTokenExpired = errors.New("token expired")

// TokenProvider はHS256署名のBearerクレデンシャルを発行・検証する。
// クレデンシャルにはユーザーIDとセッショントークンが埋め込まれ、
// 検証後さらにセッションストアの行と突き合わせる前提で使用する。
type TokenProvider struct {
	secret []byte
}

// NewTokenProvider はTokenProviderを生成する。
func NewTokenProvider(secret string) *TokenProvider {
	return &TokenProvider{secret: []byte(secret)}
}

// Claims はBearerクレデンシャルに埋め込まれる情報。
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	Exp       int64  `json:"exp"`
	Iat       int64  `json:"iat"`
}

// Generate はユーザーとセッショントークンからBearerクレデンシャルを発行する。
// 有効期限はセッションと同じttlを設定する。
func (p *TokenProvider) Generate(user *model.User, sessionToken string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: sessionToken,
		Exp:       now.Add(ttl).Unix(),
		Iat:       now.Unix(),
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	headerEnc := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadEnc := base64.RawURLEncoding.EncodeToString(payloadJSON)
	signingInput := headerEnc + "." + payloadEnc
	sig := signHS256(signingInput, p.secret)

	return signingInput + "." + sig, nil
}

// Parse はBearerクレデンシャルを検証し、Claimsを返す。
// 構造不正・署名不一致はErrInvalidToken、期限切れはErrTokenExpiredを返す。
func (p *TokenProvider) Parse(tokenString string) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	signingInput := parts[0] + "." + parts[1]
	if !verifyHS256(signingInput, parts[2], p.secret) {
		return nil, ErrInvalidToken
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Exp > 0 && time.Now().UTC().Unix() > claims.Exp {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}

func signHS256(input string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func verifyHS256(input, signature string, secret []byte) bool {
	expected := signHS256(input, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
