package studio

import (
	"errors"
	"fmt"
)

// FallbackErrorMessage - 메시지가 없는 실패
const FallbackErrorMessage = "Generation failed. Please try again."

var (
	// ErrBusy - 생성 작업 진행 중
	ErrBusy = errors.New("a generation is already in progress")
	// ErrClosed - 종료된 세션
	ErrClosed = errors.New("studio session is closed")
)

// ValidationError - 외부 호출 전에 걸러지는 입력 오류
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrPromptRequired = &ValidationError{
		Code:    "prompt_required",
		Message: "Please enter a prompt to generate an image, or upload at least 2 images to composite.",
	}
	ErrNoAspectRatio = &ValidationError{
		Code:    "no_aspect_ratio",
		Message: "Please select an aspect ratio first.",
	}
	ErrNoComposite = &ValidationError{
		Code:    "no_composite",
		Message: "Please create a composite image first.",
	}
	ErrNoCategory = &ValidationError{
		Code:    "no_category",
		Message: "Please select a category first.",
	}
	ErrRegenerationUnavailable = &ValidationError{
		Code:    "regeneration_failed",
		Message: "Cannot regenerate. Missing image, aspect ratio, or ad text.",
	}
	ErrCaptionReadOnly = &ValidationError{
		Code:    "caption_read_only",
		Message: "Video ad text cannot be edited.",
	}
	ErrNoPreview = &ValidationError{
		Code:    "no_preview",
		Message: "There is no ad preview to edit.",
	}
	ErrNothingToExport = &ValidationError{
		Code:    "nothing_to_export",
		Message: "There is nothing to export yet.",
	}
)

func invalidSlot(index int) *ValidationError {
	return &ValidationError{
		Code:    "invalid_slot",
		Message: fmt.Sprintf("Upload slot %d does not exist.", index+1),
	}
}

func unknownOption(kind, id string) *ValidationError {
	return &ValidationError{
		Code:    "unknown_" + kind,
		Message: fmt.Sprintf("Unknown %s: %s", kind, id),
	}
}

// errorView - 에러를 사용자 메시지로 변환
func errorView(err error) *ErrorView {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return &ErrorView{Code: vErr.Code, Message: vErr.Message}
	}

	msg := err.Error()
	if msg == "" {
		msg = FallbackErrorMessage
	}
	return &ErrorView{Code: "generation_failed", Message: msg}
}
