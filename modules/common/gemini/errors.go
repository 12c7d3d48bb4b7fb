package gemini

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// IsRateLimit - 429 Rate Limit 에러인지 확인
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota")
}
