package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"

	"adstudio-server/modules/common/config"
	"adstudio-server/modules/common/model"
)

const generationsTable = "ad_generations"

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database 클라이언트 생성 (Supabase 미설정 시 nil)
func NewClient(cfg *config.Config) *Client {
	if !cfg.HasSupabase() {
		log.Println("⚠️  Supabase not configured, generation history disabled")
		return nil
	}

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// RecordGeneration - ad_generations 테이블에 레코드 생성
func (c *Client) RecordGeneration(ctx context.Context, rec *model.GenerationRecord) error {
	log.Printf("💾 Recording %s ad generation %s (session: %s)", rec.AdType, rec.GenerationID, rec.SessionID)

	insertData := map[string]interface{}{
		"generation_id":  rec.GenerationID,
		"session_id":     rec.SessionID,
		"user_email":     rec.UserEmail,
		"ad_type":        rec.AdType,
		"aspect_ratio":   rec.AspectRatio,
		"category_id":    rec.CategoryID,
		"template_id":    rec.TemplateID,
		"video_style_id": rec.VideoStyleID,
		"language":       rec.Language,
		"prompt":         rec.Prompt,
		"caption":        rec.Caption,
		"status":         rec.Status,
		"error_message":  rec.ErrorMessage,
		"created_at":     rec.CreatedAt,
	}

	_, _, err := c.supabase.From(generationsTable).
		Insert(insertData, false, "", "", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to insert generation record: %w", err)
	}

	log.Printf("✅ Generation %s recorded", rec.GenerationID)
	return nil
}

// MarkShared - 공유된 광고의 share_url 업데이트
func (c *Client) MarkShared(ctx context.Context, generationID string, shareURL string) error {
	log.Printf("📝 Updating generation %s share_url", generationID)

	updateData := map[string]interface{}{
		"status":    model.StatusShared,
		"share_url": shareURL,
	}

	_, _, err := c.supabase.From(generationsTable).
		Update(updateData, "", "").
		Eq("generation_id", generationID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update share url: %w", err)
	}

	log.Printf("✅ Generation %s marked as shared", generationID)
	return nil
}

// ListBySession - 세션의 생성 이력 조회
func (c *Client) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.GenerationRecord, error) {
	log.Printf("🔍 Fetching generation history for session: %s", sessionID)

	var records []model.GenerationRecord

	data, _, err := c.supabase.From(generationsTable).
		Select("*", "exact", false).
		Eq("session_id", sessionID).
		Limit(limit, "").
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", generationsTable, err)
	}

	// JSON 파싱
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	log.Printf("✅ Fetched %d generation records (session: %s, limit: %d)", len(records), sessionID, limit)
	return records, nil
}
