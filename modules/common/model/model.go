package model

import "time"

// GenerationRecord - ad_generations 테이블 구조
type GenerationRecord struct {
	GenerationID string    `json:"generation_id"`
	SessionID    string    `json:"session_id"`
	UserEmail    *string   `json:"user_email"`
	AdType       string    `json:"ad_type"` // "image", "video"
	AspectRatio  string    `json:"aspect_ratio"`
	CategoryID   *string   `json:"category_id"`
	TemplateID   *string   `json:"template_id"`    // 이미지 광고
	VideoStyleID *string   `json:"video_style_id"` // 비디오 광고
	Language     string    `json:"language"`
	Prompt       string    `json:"prompt"`
	Caption      *string   `json:"caption"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	ShareURL     *string   `json:"share_url"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusShared    = "shared"
)
