package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestTokenCipher_Roundtrip(t *testing.T) {
	cipher, err := NewTokenCipher("short-key")
	if err != nil {
		t.Fatalf("NewTokenCipher() error = %v", err)
	}

	plain := "EAABsbCS1iHgBO7vZCZBvK-access-token"
	enc, err := cipher.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if enc == plain {
		t.Fatal("密文不应等于明文")
	}
	if strings.Contains(enc, plain) {
		t.Fatal("密文泄露明文")
	}

	dec, err := cipher.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if dec != plain {
		t.Errorf("Decrypt() = %q, want %q", dec, plain)
	}
}

func TestTokenCipher_EmptyStringPassthrough(t *testing.T) {
	cipher, _ := NewTokenCipher("key")

	enc, err := cipher.Encrypt("")
	if err != nil || enc != "" {
		t.Errorf("Encrypt(\"\") = %q, %v", enc, err)
	}
	dec, err := cipher.Decrypt("")
	if err != nil || dec != "" {
		t.Errorf("Decrypt(\"\") = %q, %v", dec, err)
	}
}

func TestTokenCipher_EmptyKeyRejected(t *testing.T) {
	if _, err := NewTokenCipher(""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("NewTokenCipher(\"\") error = %v, want ErrEmptyKey", err)
	}
}

func TestTokenCipher_TamperedCiphertext(t *testing.T) {
	cipher, _ := NewTokenCipher("tamper-test-key")
	enc, err := cipher.Encrypt("secret-token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// 翻转一个字符模拟密文被改
	tampered := []byte(enc)
	if tampered[len(tampered)-5] == 'A' {
		tampered[len(tampered)-5] = 'B'
	} else {
		tampered[len(tampered)-5] = 'A'
	}
	if _, err := cipher.Decrypt(string(tampered)); err == nil {
		t.Error("被篡改的密文应解密失败")
	}

	// 非 base64 的输入
	if _, err := cipher.Decrypt("not-base64!!!"); err == nil {
		t.Error("非法编码应解密失败")
	}

	// 长度不足 nonce 的输入
	if _, err := cipher.Decrypt("QUJD"); err == nil {
		t.Error("过短密文应解密失败")
	}
}

func TestTokenCipher_WrongKey(t *testing.T) {
	c1, _ := NewTokenCipher("key-one")
	c2, _ := NewTokenCipher("key-two")

	enc, err := c1.Encrypt("cross-key-token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := c2.Decrypt(enc); err == nil {
		t.Error("换钥解密应失败")
	}
}

func TestTokenCipher_NonceUniqueness(t *testing.T) {
	cipher, _ := NewTokenCipher("nonce-test-key")

	a, _ := cipher.Encrypt("same-plaintext")
	b, _ := cipher.Encrypt("same-plaintext")
	if a == b {
		t.Error("同一明文两次加密不应产出相同密文")
	}
}
