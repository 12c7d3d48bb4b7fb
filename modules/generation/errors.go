package generation

import (
	"errors"
	"fmt"
)

// ServiceError - 생성 서비스가 기대한 결과를 돌려주지 않음 (이미지/비디오 없음, 잘못된 응답)
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

var (
	ErrEmptyResult = &ServiceError{Message: "Image generation failed to produce an image."}
	ErrNoImagePart = &ServiceError{Message: "The model did not return an image."}
	ErrNoVideoURI  = &ServiceError{Message: "Video generation finished, but no video URL was found."}

	ErrJobNotDone       = errors.New("video job is not done yet")
	ErrTooFewImages     = errors.New("compositing requires at least 2 images")
	ErrMissingJobHandle = errors.New("video job handle is empty")
)

// noImagePart - 호출별 메시지를 가진 ErrNoImagePart
func noImagePart(message string) error {
	return fmt.Errorf("%s %w", message, ErrNoImagePart)
}

// FetchError - 비디오 다운로드 HTTP 실패
type FetchError struct {
	Status     int
	StatusText string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch video file: %s", e.StatusText)
}

// TransportError - 네트워크 / API 호출 실패
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
