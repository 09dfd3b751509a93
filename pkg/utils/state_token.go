package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OAuth state 参数：不透明且防篡改
// 绑定发起授权的用户/商家/平台，回调时校验，拒绝伪造和重放

// StateClaims 授权流程声明
type StateClaims struct {
	UserID     int64  `json:"user_id"`
	BusinessID int64  `json:"business_id"`
	Provider   string `json:"provider"`
	Nonce      string `json:"nonce"`
	jwt.RegisteredClaims
}

var (
	ErrStateInvalid = errors.New("state 无效或已过期，请重新发起授权")
)

// SignState 签发 state 令牌，10 分钟有效
func SignState(secret string, userID, businessID int64, provider string) (string, error) {
	nonce, err := GenerateRandomString(16)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &StateClaims{
		UserID:     userID,
		BusinessID: businessID,
		Provider:   provider,
		Nonce:      nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "oauth_state",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseState 校验并解析 state 令牌
func ParseState(secret, tokenString string) (*StateClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrStateInvalid
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid || claims.Subject != "oauth_state" {
		return nil, ErrStateInvalid
	}

	return claims, nil
}
