package generation

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"

	"adstudio-server/modules/common/gemini"
)

const (
	defaultCompositeInstruction = "Combine these images into a single, cohesive product shot."
	defaultVideoMIMEType        = "video/mp4"
)

// Options - 모델 및 HTTP 설정
type Options struct {
	ImageModel     string
	CompositeModel string
	VideoModel     string
	APIKey         string // 비디오 파일 다운로드 시 key 쿼리로 사용
	HTTPClient     *http.Client
}

// Service - 생성형 AI 서비스 클라이언트
type Service struct {
	backend    Backend
	opts       Options
	httpClient *http.Client
}

// NewService - Service 생성
func NewService(backend Backend, opts Options) *Service {
	if opts.ImageModel == "" {
		opts.ImageModel = "imagen-4.0-generate-001"
	}
	if opts.CompositeModel == "" {
		opts.CompositeModel = "gemini-2.5-flash-image-preview"
	}
	if opts.VideoModel == "" {
		opts.VideoModel = "veo-2.0-generate-001"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &Service{
		backend:    backend,
		opts:       opts,
		httpClient: httpClient,
	}
}

// TextToImage - 텍스트 프롬프트로 이미지 1장 생성
func (s *Service) TextToImage(ctx context.Context, prompt string) (Image, error) {
	log.Printf("🎨 [Generation] Text to image - model: %s, prompt: %s", s.opts.ImageModel, truncateString(prompt, 50))

	resp, err := s.backend.GenerateImages(ctx, s.opts.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
		AspectRatio:    "1:1",
	})
	if err != nil {
		return Image{}, s.transportError("generate images", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return Image{}, ErrEmptyResult
	}
	generated := resp.GeneratedImages[0]
	if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		return Image{}, ErrEmptyResult
	}

	log.Printf("✅ [Generation] Image generated: %d bytes", len(generated.Image.ImageBytes))
	return NewImage(generated.Image.ImageBytes, "image/png"), nil
}

// CompositeImages - 2장 이상의 이미지를 하나의 제품 이미지로 합성
// 응답 파트 중 첫 번째 이미지 파트만 사용
func (s *Service) CompositeImages(ctx context.Context, images []Image, prompt string) (Image, error) {
	if len(images) < 2 {
		return Image{}, ErrTooFewImages
	}

	parts := make([]*genai.Part, 0, len(images)+1)
	for i, img := range images {
		data, err := img.Bytes()
		if err != nil {
			return Image{}, fmt.Errorf("image %d: %w", i+1, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, img.MIMEType))
	}

	instruction := prompt
	if strings.TrimSpace(instruction) == "" {
		instruction = defaultCompositeInstruction
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	log.Printf("🧩 [Generation] Compositing %d images - model: %s", len(images), s.opts.CompositeModel)

	resp, err := s.generateContent(ctx, parts)
	if err != nil {
		return Image{}, err
	}

	for _, part := range responseParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Printf("✅ [Generation] Composite image: %s, %d bytes", part.InlineData.MIMEType, len(part.InlineData.Data))
			return NewImage(part.InlineData.Data, part.InlineData.MIMEType), nil
		}
	}

	return Image{}, noImagePart("Image composition failed.")
}

// RenderAd - 합성 이미지를 광고로 변환
// 비율은 구조화된 파라미터가 없어 프롬프트 문장으로 전달
// 응답 파트 중 마지막 이미지 / 마지막 텍스트를 사용
func (s *Service) RenderAd(ctx context.Context, image Image, prompt, aspectRatio string) (AdResult, error) {
	data, err := image.Bytes()
	if err != nil {
		return AdResult{}, err
	}

	text := fmt.Sprintf("%s The final image must have an aspect ratio of %s.", prompt, aspectRatio)
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, image.MIMEType),
		genai.NewPartFromText(text),
	}

	log.Printf("🖼️  [Generation] Rendering ad - ratio: %s, prompt: %s", aspectRatio, truncateString(prompt, 50))

	resp, err := s.generateContent(ctx, parts)
	if err != nil {
		return AdResult{}, err
	}

	var (
		result   AdResult
		hasImage bool
	)
	for _, part := range responseParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			result.Image = NewImage(part.InlineData.Data, part.InlineData.MIMEType)
			hasImage = true
		} else if part.Text != "" {
			caption := part.Text
			result.Caption = &caption
		}
	}

	if !hasImage {
		return AdResult{}, noImagePart("Ad generation failed.")
	}

	log.Printf("✅ [Generation] Ad rendered (caption: %v)", result.Caption != nil)
	return result, nil
}

// SubmitVideoJob - 이미지 → 비디오 작업 제출
// 출력 비율은 입력 이미지에서 결정됨
func (s *Service) SubmitVideoJob(ctx context.Context, image Image, prompt string) (JobHandle, error) {
	data, err := image.Bytes()
	if err != nil {
		return JobHandle{}, err
	}

	log.Printf("🎬 [Generation] Submitting video job - model: %s, prompt: %s", s.opts.VideoModel, truncateString(prompt, 50))

	op, err := s.backend.GenerateVideos(ctx, s.opts.VideoModel, prompt, &genai.Image{
		ImageBytes: data,
		MIMEType:   image.MIMEType,
	}, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
	})
	if err != nil {
		return JobHandle{}, s.transportError("generate videos", err)
	}
	if op == nil {
		return JobHandle{}, ErrMissingJobHandle
	}

	log.Printf("✅ [Generation] Video job submitted: %s", op.Name)
	return NewJobHandle(op), nil
}

// PollVideoJob - 작업 상태 갱신
func (s *Service) PollVideoJob(ctx context.Context, handle JobHandle) (JobHandle, error) {
	if handle.op == nil {
		return JobHandle{}, ErrMissingJobHandle
	}

	op, err := s.backend.GetVideosOperation(ctx, handle.op)
	if err != nil {
		return JobHandle{}, s.transportError("get videos operation", err)
	}
	if op == nil {
		return JobHandle{}, ErrMissingJobHandle
	}

	log.Printf("📊 [Generation] Video job %s - done: %v", op.Name, op.Done)
	return NewJobHandle(op), nil
}

// FetchVideo - 완성된 비디오 다운로드
func (s *Service) FetchVideo(ctx context.Context, videoURI string) (Video, error) {
	u, err := url.Parse(videoURI)
	if err != nil || videoURI == "" {
		return Video{}, ErrNoVideoURI
	}
	if s.opts.APIKey != "" {
		q := u.Query()
		q.Set("key", s.opts.APIKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Video{}, fmt.Errorf("failed to create request: %w", err)
	}

	log.Printf("📥 [Generation] Fetching video: %s", videoURI)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Video{}, s.transportError("fetch video", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("❌ [Generation] Failed to fetch video - Status: %d, Body: %s", resp.StatusCode, truncateString(string(body), 200))
		return Video{}, &FetchError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Video{}, s.transportError("read video", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "video/") {
		mimeType = defaultVideoMIMEType
	}

	log.Printf("✅ [Generation] Video fetched: %d bytes (%s)", len(data), mimeType)
	return Video{Data: data, MIMEType: mimeType}, nil
}

func (s *Service) generateContent(ctx context.Context, parts []*genai.Part) (*genai.GenerateContentResponse, error) {
	resp, err := s.backend.GenerateContent(
		ctx,
		s.opts.CompositeModel,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	)
	if err != nil {
		return nil, s.transportError("generate content", err)
	}
	return resp, nil
}

func (s *Service) transportError(op string, err error) error {
	if gemini.IsRateLimit(err) {
		log.Printf("⚠️  [Generation] %s hit rate limit: %v", op, err)
	} else {
		log.Printf("❌ [Generation] %s failed: %v", op, err)
	}
	return &TransportError{Op: op, Err: err}
}

// responseParts - 첫 번째 candidate의 파트 목록
func responseParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	return candidate.Content.Parts
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
