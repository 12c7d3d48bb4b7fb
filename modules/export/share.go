package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"adstudio-server/modules/common/storage"
	"adstudio-server/modules/common/utils"
)

// ErrShareCancelled - 사용자가 공유를 취소함 (조용히 무시)
var ErrShareCancelled = errors.New("share cancelled")

const maxShareBytes = 100 * 1024 * 1024

// ShareFile - 공유할 파일
type ShareFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Sharer - 네이티브 공유 기능
type Sharer interface {
	CanShareFiles(files []ShareFile) bool
	ShareFiles(ctx context.Context, files []ShareFile, title, text string) (string, error)
	ShareText(ctx context.Context, title, text string) (string, error)
}

// ShareResult - 공유 결과
type ShareResult struct {
	Mode      string `json:"mode"` // "files" | "text" | "none"
	Link      string `json:"link,omitempty"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
}

// Share - 아티팩트를 다시 읽어 파일 공유, 불가하면 텍스트 공유
// 취소는 무시하고 그 외 실패는 로그만 남김
func Share(ctx context.Context, sharer Sharer, a Artifact, opener Opener, title, text string) ShareResult {
	result := ShareResult{Mode: "none", Title: title, Text: text}
	if sharer == nil || a.URL == "" {
		return result
	}

	file, err := shareFile(a, opener)
	if err != nil {
		log.Printf("❌ [Export] Share failed: %v", err)
		result.Failed = true
		return result
	}

	var link string
	files := []ShareFile{file}
	if sharer.CanShareFiles(files) {
		result.Mode = "files"
		link, err = sharer.ShareFiles(ctx, files, title, text)
	} else {
		result.Mode = "text"
		link, err = sharer.ShareText(ctx, title, text)
	}

	if err != nil {
		if errors.Is(err, ErrShareCancelled) {
			result.Cancelled = true
			return result
		}
		log.Printf("❌ [Export] Share failed: %v", err)
		result.Failed = true
		return result
	}

	result.Link = link
	log.Printf("✅ [Export] Shared %s (%s)", file.Name, result.Mode)
	return result
}

// shareFile - mazylab-ad.<ext> (비디오는 항상 mp4)
func shareFile(a Artifact, opener Opener) (ShareFile, error) {
	var (
		data     []byte
		mimeType string
	)

	switch a.Kind {
	case KindImage:
		mime, payload, err := utils.ParseDataURL(a.URL)
		if err != nil {
			return ShareFile{}, fmt.Errorf("read image artifact: %w", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return ShareFile{}, fmt.Errorf("decode image artifact: %w", err)
		}
		data, mimeType = decoded, mime
	case KindVideo:
		if opener == nil {
			return ShareFile{}, ErrHandleNotFound
		}
		opened, mime, err := opener.Open(a.URL)
		if err != nil {
			return ShareFile{}, fmt.Errorf("read video artifact: %w", err)
		}
		data, mimeType = opened, mime
	default:
		return ShareFile{}, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}

	ext := "mp4"
	if a.Kind != KindVideo {
		ext = utils.ExtensionFromMIME(mimeType, "png")
	}

	return ShareFile{
		Name:     fmt.Sprintf("%s.%s", adStem, ext),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

// PublishSharer - 스토리지에 업로드 후 공개 링크를 공유
type PublishSharer struct {
	publisher   storage.Publisher
	webpQuality float32
	convert     func([]byte, float32) ([]byte, error)
}

// NewPublishSharer - PublishSharer 생성
func NewPublishSharer(publisher storage.Publisher) *PublishSharer {
	return &PublishSharer{
		publisher:   publisher,
		webpQuality: 90.0,
		convert:     utils.ConvertToWebP,
	}
}

// CanShareFiles - 이미지 / 비디오이고 크기 제한 이내인지
func (s *PublishSharer) CanShareFiles(files []ShareFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if len(f.Data) == 0 || len(f.Data) > maxShareBytes {
			return false
		}
		if !strings.HasPrefix(f.MIMEType, "image/") && !strings.HasPrefix(f.MIMEType, "video/") {
			return false
		}
	}
	return true
}

// ShareFiles - 첫 파일을 업로드하고 공개 URL 반환 (이미지는 WebP 변환)
func (s *PublishSharer) ShareFiles(ctx context.Context, files []ShareFile, title, text string) (string, error) {
	var links []string
	for _, f := range files {
		name, data, mimeType := f.Name, f.Data, f.MIMEType

		if strings.HasPrefix(mimeType, "image/") && mimeType != "image/webp" {
			webpData, err := s.convert(data, s.webpQuality)
			if err != nil {
				log.Printf("⚠️  [Export] WebP conversion failed, publishing original: %v", err)
			} else {
				data, mimeType = webpData, "image/webp"
				name = strings.TrimSuffix(name, "."+utils.ExtensionFromMIME(f.MIMEType, "png")) + ".webp"
			}
		}

		link, err := s.publisher.Publish(ctx, name, data, mimeType)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return "", ErrShareCancelled
			}
			return "", err
		}
		links = append(links, link)
	}

	log.Printf("🔗 [Export] Published %d file(s) for share: %s", len(links), title)
	return links[0], nil
}

// ShareText - 업로드할 파일이 없으면 링크 없이 텍스트만 공유
func (s *PublishSharer) ShareText(ctx context.Context, title, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrShareCancelled
	}
	log.Printf("🔗 [Export] Text-only share: %s", title)
	return "", nil
}
