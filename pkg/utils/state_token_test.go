package utils

import (
	"errors"
	"testing"
)

func TestSignState_Roundtrip(t *testing.T) {
	token, err := SignState("state-secret", 7, 42, "facebook")
	if err != nil {
		t.Fatalf("SignState() error = %v", err)
	}

	claims, err := ParseState("state-secret", token)
	if err != nil {
		t.Fatalf("ParseState() error = %v", err)
	}
	if claims.UserID != 7 || claims.BusinessID != 42 || claims.Provider != "facebook" {
		t.Errorf("claims = %d/%d/%s", claims.UserID, claims.BusinessID, claims.Provider)
	}
	if claims.Nonce == "" {
		t.Error("Nonce 不应为空")
	}
}

func TestParseState_WrongSecret(t *testing.T) {
	token, err := SignState("secret-a", 1, 1, "tiktok")
	if err != nil {
		t.Fatalf("SignState() error = %v", err)
	}
	if _, err := ParseState("secret-b", token); !errors.Is(err, ErrStateInvalid) {
		t.Errorf("换钥解析 error = %v, want ErrStateInvalid", err)
	}
}

func TestParseState_Garbage(t *testing.T) {
	for _, input := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := ParseState("secret", input); !errors.Is(err, ErrStateInvalid) {
			t.Errorf("ParseState(%q) error = %v, want ErrStateInvalid", input, err)
		}
	}
}

func TestSignState_NonceVaries(t *testing.T) {
	a, _ := SignState("secret", 1, 1, "facebook")
	b, _ := SignState("secret", 1, 1, "facebook")
	if a == b {
		t.Error("两次签发的 state 不应相同")
	}
}
