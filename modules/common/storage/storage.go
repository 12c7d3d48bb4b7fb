package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"adstudio-server/modules/common/config"
)

const shareFolder = "shared-ads"

// Publisher - 공유용 아티팩트 업로드 후 공개 URL 반환
type Publisher interface {
	Publish(ctx context.Context, filename string, data []byte, mimeType string) (string, error)
}

// ObjectKey - shared-ads/<yyyy/mm/dd>/<uuid>-<filename>
func ObjectKey(filename string, now time.Time) string {
	name := path.Base(filename)
	if name == "." || name == "/" {
		name = "artifact"
	}
	return path.Join(shareFolder, now.UTC().Format("2006/01/02"), uuid.NewString()+"-"+name)
}

// SupabasePublisher - Supabase Storage REST API 업로드
type SupabasePublisher struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// NewSupabasePublisher - SupabasePublisher 생성
func NewSupabasePublisher(cfg *config.Config, httpClient *http.Client) *SupabasePublisher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &SupabasePublisher{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/"),
		serviceKey: cfg.SupabaseServiceKey,
		bucket:     cfg.SupabaseStorageBucket,
		httpClient: httpClient,
	}
}

// Publish - Supabase Storage에 업로드
func (p *SupabasePublisher) Publish(ctx context.Context, filename string, data []byte, mimeType string) (string, error) {
	filePath := ObjectKey(filename, time.Now())

	log.Printf("📤 [Storage] Uploading %s to supabase: %s", mimeType, filePath)

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", p.baseURL, p.bucket, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", p.baseURL, p.bucket, filePath)
	log.Printf("✅ [Storage] Artifact uploaded: %s (%d bytes)", filePath, len(data))
	return publicURL, nil
}
