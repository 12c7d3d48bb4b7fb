package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"adstudio-server/modules/common/config"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewClient - 설정에 따라 Gemini API 또는 Vertex AI 백엔드 genai 클라이언트 생성
func NewClient(ctx context.Context, cfg *config.Config, httpClient *http.Client) (*genai.Client, error) {
	switch cfg.GeminiBackend {
	case "vertex":
		return newVertexClient(ctx, cfg, httpClient)
	default:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     cfg.GeminiAPIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Genai client: %w", err)
		}
		log.Println("✅ [Gemini] Client initialized (Gemini API)")
		return client, nil
	}
}

// newVertexClient - Vertex AI 클라이언트 생성 (환경 변수 자동 처리)
func newVertexClient(ctx context.Context, cfg *config.Config, httpClient *http.Client) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		Project:    cfg.VertexProject,
		Location:   cfg.VertexLocation,
		Backend:    genai.BackendVertexAI,
		HTTPClient: httpClient,
	}

	// 1. VERTEXAI_CREDENTIALS_JSON (배포용)
	if cfg.VertexCredentialsJSON != "" {
		var probe map[string]interface{}
		if err := json.Unmarshal([]byte(cfg.VertexCredentialsJSON), &probe); err != nil {
			return nil, fmt.Errorf("invalid JSON credentials: %w", err)
		}
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes:          []string{cloudPlatformScope},
			CredentialsJSON: []byte(cfg.VertexCredentialsJSON),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load Vertex AI credentials: %w", err)
		}
		log.Println("✅ [VertexAI] Using VERTEXAI_CREDENTIALS_JSON from environment")
		clientCfg.Credentials = creds
	} else {
		// 2. Application Default Credentials (ADC)
		log.Println("⚠️  [VertexAI] No explicit credentials found, using Application Default Credentials")
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	log.Printf("✅ [VertexAI] Client initialized for project=%s, location=%s", cfg.VertexProject, cfg.VertexLocation)
	return client, nil
}
