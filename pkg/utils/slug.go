package utils

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// GenerateSlug 根据商家名生成 URL-safe slug
// 重名时由调用方追加随机后缀
func GenerateSlug(seed string) string {
	base := strings.ToLower(strings.TrimSpace(seed))

	var sb strings.Builder
	lastDash := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastDash = false
		case !lastDash:
			sb.WriteByte('-')
			lastDash = true
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = "biz"
	}
	return slug
}

// GenerateUniqueSlug 追加 uuid 前 8 位，保证唯一
func GenerateUniqueSlug(seed string) string {
	return GenerateSlug(seed) + "-" + uuid.NewString()[:8]
}
