package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// TokenCipher 令牌加解密器 (AES-256-GCM)
// Integration 的 access_token/refresh_token 落库前必须经过它
type TokenCipher struct {
	key []byte
}

var ErrEmptyKey = errors.New("加密密钥不能为空")

// NewTokenCipher 创建加解密器，key 不足 32 字节时补零
func NewTokenCipher(key string) (*TokenCipher, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	finalKey := make([]byte, 32) // AES-256
	copy(finalKey, []byte(key))
	return &TokenCipher{key: finalKey}, nil
}

// Encrypt 加密明文，返回 base64 编码的密文 (nonce 前置)
func (c *TokenCipher) Encrypt(plainText string) (string, error) {
	if plainText == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	cipherText := gcm.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// Decrypt 解密 base64 编码的密文
func (c *TokenCipher) Decrypt(cipherText string) (string, error) {
	if cipherText == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("密文长度不足")
	}

	nonce, body := data[:nonceSize], data[nonceSize:]
	plainText, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", err
	}

	return string(plainText), nil
}
