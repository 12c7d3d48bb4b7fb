package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"adstudio-server/modules/common/model"
	"adstudio-server/modules/export"
)

const (
	maxUploadBytes  = 20 << 20
	maxMultipartMem = 32 << 20
	historyLimit    = 50

	defaultShareTitle = "MazyLab Ad"
	defaultShareText  = "Created with MazyLab Ad Studio"
)

// History - 생성 이력 조회 / 공유 표시 (database.Client)
type History interface {
	MarkShared(ctx context.Context, generationID string, shareURL string) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]model.GenerationRecord, error)
}

// HandlerOptions - 선택 의존성
type HandlerOptions struct {
	Sharer      export.Sharer
	History     History
	CurrentUser func(r *http.Request) string
}

// Handler - 스튜디오 HTTP API
type Handler struct {
	manager     *Manager
	registry    *export.Registry
	sharer      export.Sharer
	history     History
	currentUser func(r *http.Request) string
}

// NewHandler - Handler 생성
func NewHandler(manager *Manager, registry *export.Registry, opts HandlerOptions) *Handler {
	if opts.CurrentUser == nil {
		opts.CurrentUser = func(*http.Request) string { return "" }
	}
	return &Handler{
		manager:     manager,
		registry:    registry,
		sharer:      opts.Sharer,
		history:     opts.History,
		currentUser: opts.CurrentUser,
	}
}

// RegisterRoutes - 라우터에 스튜디오 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/catalog", h.GetCatalog).Methods("GET", "OPTIONS")

	s := r.PathPrefix("/api/studio/sessions").Subrouter()
	s.HandleFunc("", h.CreateSession).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}", h.GetSession).Methods("GET", "OPTIONS")
	s.HandleFunc("/{id}", h.DeleteSession).Methods("DELETE")
	s.HandleFunc("/{id}/slots", h.UploadSlots).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/slots/{index}", h.UploadSlot).Methods("PUT", "OPTIONS")
	s.HandleFunc("/{id}/slots/{index}", h.ClearSlot).Methods("DELETE")
	s.HandleFunc("/{id}/prompt", h.SetPrompt).Methods("PUT", "OPTIONS")
	s.HandleFunc("/{id}/composite", h.Composite).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/composite/download", h.DownloadComposite).Methods("GET")
	s.HandleFunc("/{id}/ad-type", h.ChooseAdType).Methods("PUT", "OPTIONS")
	s.HandleFunc("/{id}/aspect-ratio", h.ChooseAspectRatio).Methods("PUT", "OPTIONS")
	s.HandleFunc("/{id}/category", h.ChooseCategory).Methods("PUT", "OPTIONS")
	s.HandleFunc("/{id}/language", h.SwitchLanguage).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/template", h.SelectTemplate).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/video-style", h.SelectVideoStyle).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/caption", h.EditCaption).Methods("PUT", "OPTIONS")
	s.HandleFunc("/{id}/regenerate", h.Regenerate).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/close-preview", h.ClosePreview).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/ad/download", h.DownloadAd).Methods("GET")
	s.HandleFunc("/{id}/share", h.Share).Methods("POST", "OPTIONS")
	s.HandleFunc("/{id}/history", h.GetHistory).Methods("GET", "OPTIONS")

	log.Println("✅ Studio routes registered: /api/catalog, /api/studio/sessions/...")
}

// GetCatalog - 비율 / 카테고리 / 템플릿 / 비디오 스타일 목록
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"language":      ParseLanguage(r.URL.Query().Get("lang")),
		"aspect_ratios": AspectRatios(),
		"categories":    Categories(),
		"video_styles":  VideoStyles(),
	})
}

// CreateSession - 새 스튜디오 세션
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	var req struct {
		Language string `json:"language"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request format", nil)
			return
		}
	}

	session := h.manager.Create(h.currentUser(r), ParseLanguage(req.Language))
	snap := session.Orchestrator().Snapshot()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"session_id": snap.SessionID,
		"state":      snap,
	})
}

// GetSession - 현재 상태
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	orch, ok := h.session(w, r)
	if !ok {
		return
	}
	writeState(w, orch)
}

// DeleteSession - 세션 종료
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Remove(mux.Vars(r)["id"]); err != nil {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type upload struct {
	index    int
	filename string
	data     []byte
	mimeType string
}

// UploadSlots - multipart slot1..slot3 동시 등록
func (h *Handler) UploadSlots(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	orch, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", nil)
		return
	}

	var headers [SlotCount]*multipart.FileHeader
	found := 0
	for i := 0; i < SlotCount; i++ {
		if files := r.MultipartForm.File[fmt.Sprintf("slot%d", i+1)]; len(files) > 0 {
			headers[i] = files[0]
			found++
		}
	}
	if found == 0 {
		writeError(w, http.StatusBadRequest, "No image files in slot1..slot3", nil)
		return
	}

	uploads := make([]*upload, SlotCount)
	g, _ := errgroup.WithContext(r.Context())
	for i, header := range headers {
		if header == nil {
			continue
		}
		i, header := i, header
		g.Go(func() error {
			u, err := readUpload(header)
			if err != nil {
				return fmt.Errorf("slot %d: %w", i+1, err)
			}
			u.index = i
			uploads[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("❌ [Studio] Upload failed: %v", err)
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	for _, u := range uploads {
		if u == nil {
			continue
		}
		if err := orch.SetSlot(u.index, u.filename, u.data, u.mimeType); err != nil {
			h.fail(w, orch, err)
			return
		}
	}
	writeState(w, orch)
}

// UploadSlot - 단일 슬롯 등록 (multipart "image")
func (h *Handler) UploadSlot(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	orch, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := slotIndex(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", nil)
		return
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "Missing image file", nil)
		return
	}

	u, err := readUpload(files[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := orch.SetSlot(index, u.filename, u.data, u.mimeType); err != nil {
		h.fail(w, orch, err)
		return
	}
	writeState(w, orch)
}

// ClearSlot - 슬롯 비우기
func (h *Handler) ClearSlot(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := slotIndex(w, r)
	if !ok {
		return
	}

	if err := orch.RemoveSlot(index); err != nil {
		h.fail(w, orch, err)
		return
	}
	writeState(w, orch)
}

// SetPrompt - 합성 지시문
func (h *Handler) SetPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		return orch.SetCompositePrompt(req.Prompt)
	})
}

// Composite - 합성 / 텍스트→이미지 (완료까지 대기)
func (h *Handler) Composite(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(orch *Orchestrator) error {
		return orch.Composite(context.WithoutCancel(r.Context()))
	})
}

// ChooseAdType - image / video
func (h *Handler) ChooseAdType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdType string `json:"ad_type"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		adType, ok := ParseAdType(req.AdType)
		if !ok {
			return unknownOption("ad_type", req.AdType)
		}
		return orch.ChooseAdType(adType)
	})
}

// ChooseAspectRatio - 출력 비율
func (h *Handler) ChooseAspectRatio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AspectRatio string `json:"aspect_ratio"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		return orch.ChooseAspectRatio(req.AspectRatio)
	})
}

// ChooseCategory - 템플릿 카테고리
func (h *Handler) ChooseCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID string `json:"category_id"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		return orch.ChooseCategory(req.CategoryID)
	})
}

// SwitchLanguage - language 미지정 시 en ↔ zh 전환
func (h *Handler) SwitchLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		if req.Language == "" {
			orch.SwitchLanguage()
			return nil
		}
		orch.SetLanguage(ParseLanguage(req.Language))
		return nil
	})
}

// SelectTemplate - 템플릿으로 이미지 광고 생성 (완료까지 대기)
func (h *Handler) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string `json:"template_id"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		return orch.SelectTemplate(context.WithoutCancel(r.Context()), req.TemplateID)
	})
}

// SelectVideoStyle - 비디오 작업 제출 (폴링은 백그라운드, 진행 상황은 WebSocket)
func (h *Handler) SelectVideoStyle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StyleID string `json:"style_id"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		return orch.SelectVideoStyle(context.WithoutCancel(r.Context()), req.StyleID)
	})
}

// EditCaption - 이미지 광고 캡션 수정
func (h *Handler) EditCaption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	h.withBody(w, r, &req, func(orch *Orchestrator) error {
		return orch.EditCaption(req.Text)
	})
}

// Regenerate - 수정된 캡션으로 재생성
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(orch *Orchestrator) error {
		return orch.Regenerate(context.WithoutCancel(r.Context()))
	})
}

// ClosePreview - 미리보기 닫기
func (h *Handler) ClosePreview(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(orch *Orchestrator) error {
		return orch.ClosePreview()
	})
}

// DownloadComposite - mazylab-composite.<ext>
func (h *Handler) DownloadComposite(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.session(w, r)
	if !ok {
		return
	}

	img, ok := orch.CompositeImage()
	if !ok {
		writeError(w, http.StatusBadRequest, ErrNothingToExport.Message, nil)
		return
	}
	writeDownload(w, export.CompositeDownload(img))
}

// DownloadAd - mazylab-ad.<png|mp4>
func (h *Handler) DownloadAd(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.session(w, r)
	if !ok {
		return
	}

	ad, _, ok := orch.CurrentAd()
	if !ok {
		writeError(w, http.StatusBadRequest, ErrNothingToExport.Message, nil)
		return
	}

	dl, err := export.AdDownload(artifactOf(ad), h.registry)
	if err != nil {
		log.Printf("❌ [Studio] Ad download failed: %v", err)
		writeError(w, http.StatusGone, "The ad is no longer available", nil)
		return
	}
	writeDownload(w, dl)
}

// Share - 파일 공유 (불가하면 텍스트)
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	orch, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request format", nil)
			return
		}
	}

	ad, caption, ok := orch.CurrentAd()
	if !ok {
		writeError(w, http.StatusBadRequest, ErrNothingToExport.Message, nil)
		return
	}

	title := req.Title
	if title == "" {
		title = defaultShareTitle
	}
	text := req.Text
	if text == "" {
		text = defaultShareText
		if caption != nil && *caption != "" {
			text = *caption
		}
	}

	result := export.Share(r.Context(), h.sharer, artifactOf(ad), h.registry, title, text)

	if result.Link != "" && h.history != nil && ad.ID != "" {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
		defer cancel()
		if err := h.history.MarkShared(ctx, ad.ID, result.Link); err != nil {
			log.Printf("⚠️  [Studio] Failed to mark generation %s shared: %v", ad.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"share":   result,
	})
}

// GetHistory - 세션 생성 이력
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	orch, ok := h.session(w, r)
	if !ok {
		return
	}

	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"records": []model.GenerationRecord{},
		})
		return
	}

	records, err := h.history.ListBySession(r.Context(), orch.ID(), historyLimit)
	if err != nil {
		log.Printf("❌ [Studio] Failed to fetch history: %v", err)
		writeError(w, http.StatusBadGateway, "Failed to fetch generation history", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"records": records,
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Orchestrator, bool) {
	session, err := h.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return nil, false
	}
	return session.Orchestrator(), true
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, op func(*Orchestrator) error) {
	if preflight(w, r) {
		return
	}
	orch, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := op(orch); err != nil {
		h.fail(w, orch, err)
		return
	}
	writeState(w, orch)
}

func (h *Handler) withBody(w http.ResponseWriter, r *http.Request, req interface{}, op func(*Orchestrator) error) {
	if preflight(w, r) {
		return
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Printf("❌ Failed to parse request: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}
	h.withSession(w, r, op)
}

func (h *Handler) fail(w http.ResponseWriter, orch *Orchestrator, err error) {
	snap := orch.Snapshot()
	writeError(w, statusFor(err), err.Error(), &snap)
}

// statusFor - 에러 → HTTP 상태 코드
func statusFor(err error) int {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrClosed), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func artifactOf(ad GeneratedAd) export.Artifact {
	return export.Artifact{Kind: string(ad.Type), URL: ad.URL, Text: ad.Text}
}

func slotIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || n < 1 || n > SlotCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Slot index must be between 1 and %d", SlotCount), nil)
		return 0, false
	}
	return n - 1, true
}

// readUpload - 업로드 파일 읽기 (이미지만 허용)
func readUpload(header *multipart.FileHeader) (*upload, error) {
	if header.Size > maxUploadBytes {
		return nil, fmt.Errorf("%s is larger than %d MB", header.Filename, maxUploadBytes>>20)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", header.Filename)
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s is not an image (%s)", header.Filename, mimeType)
	}

	return &upload{filename: header.Filename, data: data, mimeType: mimeType}, nil
}

func preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func writeState(w http.ResponseWriter, orch *Orchestrator) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"state":   orch.Snapshot(),
	})
}

func writeError(w http.ResponseWriter, status int, message string, snap *Snapshot) {
	body := map[string]interface{}{
		"success":       false,
		"error_message": message,
	}
	if snap != nil {
		body["state"] = snap
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

// writeDownload - 첨부 파일 응답, 디코딩 실패 시 URL 반환
func writeDownload(w http.ResponseWriter, dl export.Download) {
	if dl.IsFallback() {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"filename": dl.Filename,
			"url":      dl.URL,
		})
		return
	}

	w.Header().Set("Content-Type", dl.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dl.Data); err != nil {
		log.Printf("❌ Failed to write download: %v", err)
	}
}
