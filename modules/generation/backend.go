package generation

import (
	"context"

	"google.golang.org/genai"
)

// Backend - 외부 생성형 AI 서비스 호출 (테스트에서 교체 가능)
type Backend interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

type genaiBackend struct {
	client *genai.Client
}

// NewGenaiBackend - genai.Client 기반 Backend
func NewGenaiBackend(client *genai.Client) Backend {
	return &genaiBackend{client: client}
}

func (b *genaiBackend) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return b.client.Models.GenerateImages(ctx, model, prompt, config)
}

func (b *genaiBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, model, contents, config)
}

func (b *genaiBackend) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, image, config)
}

func (b *genaiBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}
