package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"log"
	"strings"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// ErrNotDataURL - base64 data URL 형식이 아님
var ErrNotDataURL = errors.New("not a base64 data URL")

// ConvertImageToBase64 - 이미지 바이너리를 base64로 변환
func ConvertImageToBase64(imageData []byte) string {
	return base64.StdEncoding.EncodeToString(imageData)
}

// DataURL - "data:<mime>;base64,<payload>" 생성
func DataURL(mimeType, base64Data string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}

// ParseDataURL - data URL에서 MIME 타입과 base64 payload 분리
func ParseDataURL(dataURL string) (mimeType string, payload string, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", "", ErrNotDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", ErrNotDataURL
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", "", ErrNotDataURL
	}
	return mimeType, payload, nil
}

// ExtensionFromMIME - "image/png" → "png", 서브타입이 없으면 fallback
func ExtensionFromMIME(mimeType, fallback string) string {
	_, sub, ok := strings.Cut(mimeType, "/")
	if !ok || sub == "" {
		return fallback
	}
	return sub
}

// ConvertToWebP - PNG/JPEG 바이너리를 WebP로 변환
func ConvertToWebP(imageData []byte, quality float32) ([]byte, error) {
	log.Printf("🔄 Converting image to WebP (quality: %.1f)", quality)

	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// 이미 WebP면 원본 그대로
	if format == "webp" {
		return imageData, nil
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	if err := webp.Encode(&webpBuffer, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	webpData := webpBuffer.Bytes()
	log.Printf("✅ %s converted to WebP: %d bytes → %d bytes", format, len(imageData), len(webpData))
	return webpData, nil
}
