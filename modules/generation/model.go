package generation

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"

	"adstudio-server/modules/common/utils"
)

// Image - base64 payload + MIME 타입 (업로드, 합성, 광고 결과 공통)
type Image struct {
	Base64   string `json:"base64"`
	MIMEType string `json:"mime_type"`
}

// NewImage - raw bytes로 Image 생성
func NewImage(data []byte, mimeType string) Image {
	return Image{
		Base64:   utils.ConvertImageToBase64(data),
		MIMEType: mimeType,
	}
}

// URL - 렌더링 가능한 data URL
func (img Image) URL() string {
	return utils.DataURL(img.MIMEType, img.Base64)
}

// Bytes - base64 디코딩
func (img Image) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(img.Base64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return data, nil
}

// AdResult - renderAd 결과 (이미지 + 선택적 캡션)
type AdResult struct {
	Image   Image
	Caption *string
}

// Video - 다운로드된 비디오 바이너리
type Video struct {
	Data     []byte
	MIMEType string
}

// JobHandle - 진행 중인 비디오 생성 작업의 opaque 토큰
type JobHandle struct {
	Name string
	Done bool

	op *genai.GenerateVideosOperation
}

// NewJobHandle - genai operation을 JobHandle로 감싸기
func NewJobHandle(op *genai.GenerateVideosOperation) JobHandle {
	if op == nil {
		return JobHandle{}
	}
	return JobHandle{
		Name: op.Name,
		Done: op.Done,
		op:   op,
	}
}

// VideoURI - 완료된 작업에서 response.generatedVideos[0].video.uri 추출
func (h JobHandle) VideoURI() (string, error) {
	if !h.Done {
		return "", ErrJobNotDone
	}
	if h.op == nil {
		return "", ErrNoVideoURI
	}
	if len(h.op.Error) > 0 {
		msg, _ := h.op.Error["message"].(string)
		if msg == "" {
			msg = "Video generation failed."
		}
		return "", &ServiceError{Message: msg}
	}

	resp := h.op.Response
	if resp == nil || len(resp.GeneratedVideos) == 0 {
		return "", ErrNoVideoURI
	}
	first := resp.GeneratedVideos[0]
	if first == nil || first.Video == nil || first.Video.URI == "" {
		return "", ErrNoVideoURI
	}
	return first.Video.URI, nil
}
