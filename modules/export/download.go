package export

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"adstudio-server/modules/common/utils"
	"adstudio-server/modules/generation"
)

const (
	compositeStem = "mazylab-composite"
	adStem        = "mazylab-ad"

	KindImage = "image"
	KindVideo = "video"
)

// ErrUnknownKind - image / video 외의 아티팩트
var ErrUnknownKind = errors.New("unknown artifact kind")

// Opener - 리소스 핸들 조회 (Registry)
type Opener interface {
	Open(handle string) ([]byte, string, error)
}

// Artifact - 미리보기 중인 광고 결과물
type Artifact struct {
	Kind string  // "image" | "video"
	URL  string  // 이미지: data URL, 비디오: blob 핸들
	Text *string // 캡션
}

// Download - 다운로드 대상
// Data가 비어 있으면 URL을 그대로 내려받는 fallback 경로
type Download struct {
	Filename string
	MIMEType string
	Data     []byte
	URL      string
}

// IsFallback - 디코딩 실패로 URL 다운로드로 대체되었는지
func (d Download) IsFallback() bool {
	return d.Data == nil && d.URL != ""
}

// ResourceCleanupError - 바이너리 변환 실패 (사용자에게 노출하지 않음)
type ResourceCleanupError struct {
	Op  string
	Err error
}

func (e *ResourceCleanupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceCleanupError) Unwrap() error {
	return e.Err
}

// CompositeDownload - 합성 이미지 → mazylab-composite.<ext>
func CompositeDownload(img generation.Image) Download {
	filename := fmt.Sprintf("%s.%s", compositeStem, utils.ExtensionFromMIME(img.MIMEType, "png"))

	data, err := base64.StdEncoding.DecodeString(img.Base64)
	if err != nil {
		logCleanup(&ResourceCleanupError{Op: "decode composite image", Err: err})
		return Download{Filename: filename, MIMEType: img.MIMEType, URL: img.URL()}
	}

	return Download{
		Filename: filename,
		MIMEType: img.MIMEType,
		Data:     data,
	}
}

// AdDownload - 광고 결과물 → mazylab-ad.<png|mp4>
func AdDownload(a Artifact, opener Opener) (Download, error) {
	switch a.Kind {
	case KindImage:
		filename := adStem + ".png"
		mimeType, payload, err := utils.ParseDataURL(a.URL)
		if err != nil {
			logCleanup(&ResourceCleanupError{Op: "parse ad data url", Err: err})
			return Download{Filename: filename, URL: a.URL}, nil
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			logCleanup(&ResourceCleanupError{Op: "decode ad image", Err: err})
			return Download{Filename: filename, MIMEType: mimeType, URL: a.URL}, nil
		}
		return Download{Filename: filename, MIMEType: mimeType, Data: data}, nil

	case KindVideo:
		data, mimeType, err := opener.Open(a.URL)
		if err != nil {
			return Download{}, fmt.Errorf("open video resource: %w", err)
		}
		return Download{Filename: adStem + ".mp4", MIMEType: mimeType, Data: data}, nil

	default:
		return Download{}, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

func logCleanup(err *ResourceCleanupError) {
	log.Printf("⚠️  [Export] %v, falling back to direct URL download", err)
}
