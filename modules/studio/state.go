package studio

import (
	"adstudio-server/modules/generation"
)

// SlotCount - 업로드 슬롯 수
const SlotCount = 3

// AdType - 광고 출력 형식
type AdType string

const (
	AdTypeImage AdType = "image"
	AdTypeVideo AdType = "video"
)

// ParseAdType - image / video 외에는 false
func ParseAdType(s string) (AdType, bool) {
	switch AdType(s) {
	case AdTypeImage, AdTypeVideo:
		return AdType(s), true
	}
	return "", false
}

// UploadSlot - 업로드된 제품 사진
type UploadSlot struct {
	Filename string
	Image    generation.Image
}

// GeneratedAd - 미리보기 중인 결과물
// 이미지: data URL, 비디오: 리소스 핸들 (닫을 때 해제)
type GeneratedAd struct {
	ID   string  `json:"id"` // 생성 이력 ID
	Type AdType  `json:"type"`
	URL  string  `json:"url"`
	Text *string `json:"text"`
}

// VideoJob - 비디오 작업 상태 (JobSubmitted | JobPolling | JobDone | JobFailed)
type VideoJob interface {
	jobState() string
}

// JobSubmitted - 제출 요청 중
type JobSubmitted struct{}

// JobPolling - 완료 대기 중
type JobPolling struct {
	Handle generation.JobHandle
}

// JobDone - 완료, 비디오 URI 확보
type JobDone struct {
	URI string
}

// JobFailed - 실패
type JobFailed struct {
	Reason string
}

func (JobSubmitted) jobState() string { return "submitted" }
func (JobPolling) jobState() string   { return "polling" }
func (JobDone) jobState() string      { return "done" }
func (JobFailed) jobState() string    { return "failed" }

// jobStateName - nil이면 빈 문자열
func jobStateName(job VideoJob) string {
	if job == nil {
		return ""
	}
	return job.jobState()
}

// ErrorView - 사용자에게 보여줄 단일 에러 메시지
type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SlotView - 슬롯 미리보기
type SlotView struct {
	Index    int    `json:"index"`
	Filled   bool   `json:"filled"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
}

// CompositeView - 합성 이미지 미리보기
type CompositeView struct {
	URL      string `json:"url"`
	MIMEType string `json:"mime_type"`
}

// Snapshot - 세션 상태 (JSON 응답 / WebSocket push)
type Snapshot struct {
	SessionID       string         `json:"session_id"`
	Language        Language       `json:"language"`
	Slots           []SlotView     `json:"slots"`
	UploadedCount   int            `json:"uploaded_count"`
	CompositePrompt string         `json:"composite_prompt"`
	Composite       *CompositeView `json:"composite"`
	AdType          *AdType        `json:"ad_type"`
	AspectRatio     *string        `json:"aspect_ratio"`
	CategoryID      *string        `json:"category_id"`
	Loading         bool           `json:"loading"`
	LoadingMessage  string         `json:"loading_message,omitempty"`
	Error           *ErrorView     `json:"error"`
	GeneratedAd     *GeneratedAd   `json:"generated_ad"`
	EditedCaption   *string        `json:"edited_caption"`
	VideoJob        string         `json:"video_job,omitempty"`
	CanRegenerate   bool           `json:"can_regenerate"`
}

// ShowPreview - 로딩 / 에러 / 결과 중 하나라도 있으면 모달 표시
func (s Snapshot) ShowPreview() bool {
	return s.Loading || s.Error != nil || s.GeneratedAd != nil
}
