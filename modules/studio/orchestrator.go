package studio

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"adstudio-server/modules/common/model"
	"adstudio-server/modules/generation"
)

const (
	msgCompositing     = "Compositing your images..."
	msgGeneratingImage = "Generating an image from your prompt..."
	msgGeneratingAd    = "Generating your ad..."
	msgGeneratingVideo = "Generating your video... This may take a few minutes."
	msgFetchingVideo   = "Almost there! Fetching your video..."

	defaultPollInterval = 10 * time.Second
)

// Generator - 생성 클라이언트 (generation.Service)
type Generator interface {
	TextToImage(ctx context.Context, prompt string) (generation.Image, error)
	CompositeImages(ctx context.Context, images []generation.Image, prompt string) (generation.Image, error)
	RenderAd(ctx context.Context, image generation.Image, prompt, aspectRatio string) (generation.AdResult, error)
	SubmitVideoJob(ctx context.Context, image generation.Image, prompt string) (generation.JobHandle, error)
	PollVideoJob(ctx context.Context, handle generation.JobHandle) (generation.JobHandle, error)
	FetchVideo(ctx context.Context, videoURI string) (generation.Video, error)
}

// Resources - 비디오 리소스 핸들 생성 / 해제 (export.Registry)
type Resources interface {
	Create(data []byte, mimeType string) string
	Revoke(handle string)
}

// Recorder - 생성 이력 저장 (database.Client)
type Recorder interface {
	RecordGeneration(ctx context.Context, rec *model.GenerationRecord) error
}

// Options - Orchestrator 옵션
type Options struct {
	SessionID    string
	UserEmail    string
	Language     Language
	PollInterval time.Duration
	Recorder     Recorder
	OnChange     func(Snapshot)
}

// Orchestrator - 스튜디오 세션 하나의 상태 머신
// 업로드 → 합성 → 광고 형식 / 비율 → 템플릿 / 스타일 → 생성 → 미리보기 → 내보내기
type Orchestrator struct {
	id           string
	userEmail    string
	gen          Generator
	resources    Resources
	recorder     Recorder
	pollInterval time.Duration
	onChange     func(Snapshot)

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu              sync.Mutex
	slots           [SlotCount]*UploadSlot
	compositePrompt string
	composite       *generation.Image
	adType          *AdType
	aspectRatio     *string
	category        *Category
	language        Language
	loading         bool
	loadingMessage  string
	err             *ErrorView
	ad              *GeneratedAd
	editedCaption   *string
	videoJob        VideoJob
	cancelPoll      context.CancelFunc
	epoch           uint64
	closed          bool
	lastActivity    time.Time
}

// NewOrchestrator - 세션 상태 생성
func NewOrchestrator(gen Generator, resources Resources, opts Options) *Orchestrator {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Language == "" {
		opts.Language = LangEN
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		id:           opts.SessionID,
		userEmail:    opts.UserEmail,
		gen:          gen,
		resources:    resources,
		recorder:     opts.Recorder,
		pollInterval: opts.PollInterval,
		onChange:     opts.OnChange,
		baseCtx:      ctx,
		baseCancel:   cancel,
		language:     opts.Language,
		lastActivity: time.Now(),
	}
}

// ID - 세션 ID
func (o *Orchestrator) ID() string {
	return o.id
}

// UserEmail - 세션 소유자
func (o *Orchestrator) UserEmail() string {
	return o.userEmail
}

// SetSlot - 슬롯에 이미지 등록 (하위 선택 초기화)
func (o *Orchestrator) SetSlot(index int, filename string, data []byte, mimeType string) error {
	if index < 0 || index >= SlotCount {
		return invalidSlot(index)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.slots[index] = &UploadSlot{
		Filename: filename,
		Image:    generation.NewImage(data, mimeType),
	}
	o.resetFlowLocked(true)
	o.mu.Unlock()

	log.Printf("🖼️  [Studio] Session %s: slot %d set (%s, %d bytes)", o.id, index+1, mimeType, len(data))
	o.notify()
	return nil
}

// RemoveSlot - 슬롯 비우기 (하위 선택 초기화)
func (o *Orchestrator) RemoveSlot(index int) error {
	if index < 0 || index >= SlotCount {
		return invalidSlot(index)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.slots[index] = nil
	o.resetFlowLocked(true)
	o.mu.Unlock()

	log.Printf("🗑️  [Studio] Session %s: slot %d cleared", o.id, index+1)
	o.notify()
	return nil
}

// SetCompositePrompt - 합성 지시문 / 텍스트→이미지 프롬프트
func (o *Orchestrator) SetCompositePrompt(prompt string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.compositePrompt = prompt
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// Composite - 이미지 2장 이상이면 합성, 아니면 프롬프트로 이미지 생성
func (o *Orchestrator) Composite(ctx context.Context) error {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}

	images := o.uploadedImagesLocked()
	prompt := o.compositePrompt
	useComposite := len(images) >= 2

	if !useComposite && strings.TrimSpace(prompt) == "" {
		o.discardAdLocked()
		o.failLocked(ErrPromptRequired)
		o.mu.Unlock()
		o.notify()
		return ErrPromptRequired
	}

	message := msgGeneratingImage
	if useComposite {
		message = msgCompositing
	}
	epoch := o.startLoadingLocked(message)
	o.mu.Unlock()
	o.notify()

	var (
		result generation.Image
		err    error
	)
	if useComposite {
		log.Printf("🧩 [Studio] Session %s: compositing %d images", o.id, len(images))
		result, err = o.gen.CompositeImages(ctx, images, prompt)
	} else {
		log.Printf("🎨 [Studio] Session %s: text to image", o.id)
		result, err = o.gen.TextToImage(ctx, prompt)
	}

	o.finish(epoch, func() {
		if err != nil {
			o.failLocked(err)
			return
		}
		o.composite = &result
		o.resetFlowLocked(false)
	})
	return err
}

// ChooseAdType - image / video 선택 (비율 초기화)
func (o *Orchestrator) ChooseAdType(adType AdType) error {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.composite == nil {
		o.mu.Unlock()
		return ErrNoComposite
	}
	o.adType = &adType
	o.aspectRatio = nil
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// ChooseAspectRatio - 출력 비율 선택
func (o *Orchestrator) ChooseAspectRatio(value string) error {
	if !IsAspectRatio(value) {
		return unknownOption("aspect_ratio", value)
	}

	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.composite == nil {
		o.mu.Unlock()
		return ErrNoComposite
	}
	o.aspectRatio = &value
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// ChooseCategory - 템플릿 카테고리 선택
func (o *Orchestrator) ChooseCategory(categoryID string) error {
	category, ok := FindCategory(categoryID)
	if !ok {
		return unknownOption("category", categoryID)
	}

	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.category = &category
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// SwitchLanguage - en ↔ zh (카테고리 선택 해제)
func (o *Orchestrator) SwitchLanguage() Language {
	o.mu.Lock()
	o.language = o.language.Toggle()
	o.category = nil
	lang := o.language
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return lang
}

// SetLanguage - 지정 언어로 전환 (바뀔 때만 카테고리 해제)
func (o *Orchestrator) SetLanguage(lang Language) Language {
	o.mu.Lock()
	if o.language == lang {
		o.mu.Unlock()
		return lang
	}
	o.language = lang
	o.category = nil
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return lang
}

// SelectTemplate - 선택된 카테고리의 템플릿으로 이미지 광고 생성
func (o *Orchestrator) SelectTemplate(ctx context.Context, templateID string) error {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.composite == nil || o.aspectRatio == nil {
		return o.rejectLocked(ErrNoAspectRatio)
	}
	if o.category == nil {
		return o.rejectLocked(ErrNoCategory)
	}
	template, ok := o.category.FindTemplate(templateID)
	if !ok {
		return o.rejectLocked(unknownOption("template", templateID))
	}

	prompt := template.Prompt(o.language)
	image := *o.composite
	ratio := *o.aspectRatio
	rec := o.recordLocked(AdTypeImage, prompt)
	rec.TemplateID = &template.ID
	epoch := o.startLoadingLocked(msgGeneratingAd)
	o.mu.Unlock()
	o.notify()

	log.Printf("🖼️  [Studio] Session %s: template %s (%s, %s)", o.id, template.ID, ratio, o.language)
	return o.renderImageAd(ctx, epoch, image, prompt, ratio, rec)
}

// Regenerate - 수정된 캡션을 지시문으로 이미지 광고 재생성
func (o *Orchestrator) Regenerate(ctx context.Context) error {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if !o.canRegenerateLocked() {
		return o.rejectLocked(ErrRegenerationUnavailable)
	}

	prompt := *o.editedCaption
	image := *o.composite
	ratio := *o.aspectRatio
	rec := o.recordLocked(AdTypeImage, prompt)
	epoch := o.startLoadingLocked(msgGeneratingAd)
	o.mu.Unlock()
	o.notify()

	log.Printf("🔁 [Studio] Session %s: regenerating image ad (%s)", o.id, ratio)
	return o.renderImageAd(ctx, epoch, image, prompt, ratio, rec)
}

func (o *Orchestrator) renderImageAd(ctx context.Context, epoch uint64, image generation.Image, prompt, ratio string, rec *model.GenerationRecord) error {
	result, err := o.gen.RenderAd(ctx, image, prompt, ratio)

	o.finish(epoch, func() {
		if err != nil {
			o.failLocked(err)
			o.recordAsyncLocked(rec, err)
			return
		}
		o.ad = &GeneratedAd{
			ID:   rec.GenerationID,
			Type: AdTypeImage,
			URL:  result.Image.URL(),
			Text: cloneString(result.Caption),
		}
		o.editedCaption = cloneString(result.Caption)
		rec.Caption = cloneString(result.Caption)
		o.recordAsyncLocked(rec, nil)
	})
	return err
}

// SelectVideoStyle - 비디오 작업 제출 후 폴링 시작
func (o *Orchestrator) SelectVideoStyle(ctx context.Context, styleID string) error {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.composite == nil || o.aspectRatio == nil {
		return o.rejectLocked(ErrNoAspectRatio)
	}
	style, ok := FindVideoStyle(styleID)
	if !ok {
		return o.rejectLocked(unknownOption("video_style", styleID))
	}

	prompt := style.Prompt(o.language)
	image := *o.composite
	rec := o.recordLocked(AdTypeVideo, prompt)
	rec.VideoStyleID = &style.ID
	epoch := o.startLoadingLocked(msgGeneratingVideo)
	o.editedCaption = &prompt
	o.videoJob = JobSubmitted{}
	o.mu.Unlock()
	o.notify()

	log.Printf("🎬 [Studio] Session %s: video style %s", o.id, style.ID)
	handle, err := o.gen.SubmitVideoJob(ctx, image, prompt)

	o.mu.Lock()
	if o.closed || epoch != o.epoch {
		o.mu.Unlock()
		log.Printf("⏭️  [Studio] Session %s: video submission superseded, dropping job", o.id)
		return nil
	}
	if err != nil {
		o.videoJob = JobFailed{Reason: err.Error()}
		o.failLocked(err)
		o.stopLoadingLocked()
		o.recordAsyncLocked(rec, err)
		o.mu.Unlock()
		o.notify()
		return err
	}

	o.videoJob = JobPolling{Handle: handle}
	o.startPollingLocked(epoch, handle, rec)
	o.mu.Unlock()
	o.notify()
	return nil
}

// startPollingLocked - 폴링 고루틴 시작 (한 번에 하나의 요청만 진행)
func (o *Orchestrator) startPollingLocked(epoch uint64, handle generation.JobHandle, rec *model.GenerationRecord) {
	pollCtx, cancel := context.WithCancel(o.baseCtx)
	o.cancelPoll = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.pollLoop(pollCtx, epoch, handle, rec)
	}()
}

func (o *Orchestrator) pollLoop(ctx context.Context, epoch uint64, handle generation.JobHandle, rec *model.GenerationRecord) {
	log.Printf("⏳ [Studio] Session %s: polling video job %s every %v", o.id, handle.Name, o.pollInterval)

	timer := time.NewTimer(o.pollInterval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			log.Printf("🛑 [Studio] Session %s: polling cancelled", o.id)
			return
		case <-timer.C:
		}

		updated, err := o.gen.PollVideoJob(ctx, handle)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			o.failVideo(epoch, err, rec)
			return
		}

		if !updated.Done {
			log.Printf("📊 [Studio] Session %s: attempt %d, video job still running", o.id, attempt)
			handle = updated
			if !o.update(epoch, func() { o.videoJob = JobPolling{Handle: updated} }) {
				return
			}
			timer.Reset(o.pollInterval)
			continue
		}

		uri, err := updated.VideoURI()
		if err != nil {
			o.failVideo(epoch, err, rec)
			return
		}

		if !o.update(epoch, func() {
			o.videoJob = JobDone{URI: uri}
			o.loadingMessage = msgFetchingVideo
		}) {
			return
		}

		video, err := o.gen.FetchVideo(ctx, uri)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			o.failVideo(epoch, err, rec)
			return
		}

		handleURL := o.resources.Create(video.Data, video.MIMEType)
		applied := o.finish(epoch, func() {
			o.ad = &GeneratedAd{
				ID:   rec.GenerationID,
				Type: AdTypeVideo,
				URL:  handleURL,
				Text: cloneString(o.editedCaption),
			}
			o.cancelPoll = nil
			rec.Caption = cloneString(o.editedCaption)
			o.recordAsyncLocked(rec, nil)
		})
		if !applied {
			o.resources.Revoke(handleURL)
			return
		}

		log.Printf("✅ [Studio] Session %s: video ready after %d poll(s)", o.id, attempt)
		return
	}
}

func (o *Orchestrator) failVideo(epoch uint64, err error, rec *model.GenerationRecord) {
	o.finish(epoch, func() {
		o.videoJob = JobFailed{Reason: err.Error()}
		o.cancelPoll = nil
		o.failLocked(err)
		o.recordAsyncLocked(rec, err)
	})
}

// EditCaption - 이미지 광고 캡션 수정 (재생성 지시문)
func (o *Orchestrator) EditCaption(text string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.ad == nil {
		o.mu.Unlock()
		return ErrNoPreview
	}
	if o.ad.Type == AdTypeVideo {
		o.mu.Unlock()
		return ErrCaptionReadOnly
	}
	o.editedCaption = &text
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// ClosePreview - 미리보기 / 에러 닫기 (비디오 리소스 해제)
func (o *Orchestrator) ClosePreview() error {
	o.mu.Lock()
	if err := o.readyLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.discardAdLocked()
	o.err = nil
	o.videoJob = nil
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// CompositeImage - 현재 합성 이미지
func (o *Orchestrator) CompositeImage() (generation.Image, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.composite == nil {
		return generation.Image{}, false
	}
	return *o.composite, true
}

// CurrentAd - 미리보기 중인 광고와 수정된 캡션
func (o *Orchestrator) CurrentAd() (GeneratedAd, *string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ad == nil {
		return GeneratedAd{}, nil, false
	}
	return *o.ad, cloneString(o.editedCaption), true
}

// IsLoading - 생성 작업 진행 여부
func (o *Orchestrator) IsLoading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// LastActivity - 마지막 활동 시각
func (o *Orchestrator) LastActivity() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastActivity
}

// Close - 폴링 중단, 리소스 해제 후 고루틴 종료 대기
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.epoch++
	if o.cancelPoll != nil {
		o.cancelPoll()
		o.cancelPoll = nil
	}
	o.discardAdLocked()
	o.loading = false
	o.mu.Unlock()

	o.baseCancel()
	o.wg.Wait()
	log.Printf("🔒 [Studio] Session %s closed", o.id)
}

// Snapshot - 현재 상태 복사본
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:       o.id,
		Language:        o.language,
		Slots:           make([]SlotView, SlotCount),
		CompositePrompt: o.compositePrompt,
		AdType:          o.adType,
		AspectRatio:     o.aspectRatio,
		Loading:         o.loading,
		LoadingMessage:  o.loadingMessage,
		Error:           o.err,
		EditedCaption:   cloneString(o.editedCaption),
		VideoJob:        jobStateName(o.videoJob),
		CanRegenerate:   o.canRegenerateLocked(),
	}

	for i, slot := range o.slots {
		view := SlotView{Index: i}
		if slot != nil {
			view.Filled = true
			view.Filename = slot.Filename
			view.URL = slot.Image.URL()
			view.MIMEType = slot.Image.MIMEType
			snap.UploadedCount++
		}
		snap.Slots[i] = view
	}
	if o.composite != nil {
		snap.Composite = &CompositeView{URL: o.composite.URL(), MIMEType: o.composite.MIMEType}
	}
	if o.category != nil {
		id := o.category.ID
		snap.CategoryID = &id
	}
	if o.ad != nil {
		ad := *o.ad
		ad.Text = cloneString(o.ad.Text)
		snap.GeneratedAd = &ad
	}
	return snap
}

// readyLocked - 종료 / 진행 중 확인
func (o *Orchestrator) readyLocked() error {
	if o.closed {
		return ErrClosed
	}
	if o.loading {
		return ErrBusy
	}
	return nil
}

// resetFlowLocked - 하위 선택 초기화 (진행 중 작업과 폴링 중단)
func (o *Orchestrator) resetFlowLocked(clearComposite bool) {
	o.epoch++
	if o.cancelPoll != nil {
		o.cancelPoll()
		o.cancelPoll = nil
	}
	if clearComposite {
		o.composite = nil
	}
	o.adType = nil
	o.aspectRatio = nil
	o.category = nil
	o.discardAdLocked()
	o.err = nil
	o.videoJob = nil
	o.stopLoadingLocked()
	o.touchLocked()
}

// startLoadingLocked - 로딩 시작, 이전 결과 / 에러 제거
func (o *Orchestrator) startLoadingLocked(message string) uint64 {
	o.epoch++
	o.loading = true
	o.loadingMessage = message
	o.err = nil
	o.discardAdLocked()
	o.touchLocked()
	return o.epoch
}

func (o *Orchestrator) stopLoadingLocked() {
	o.loading = false
	o.loadingMessage = ""
}

// discardAdLocked - 비디오 핸들은 정확히 한 번 해제
func (o *Orchestrator) discardAdLocked() {
	if o.ad != nil && o.ad.Type == AdTypeVideo && o.ad.URL != "" {
		o.resources.Revoke(o.ad.URL)
	}
	o.ad = nil
}

func (o *Orchestrator) failLocked(err error) {
	o.err = errorView(err)
	log.Printf("❌ [Studio] Session %s: %s", o.id, o.err.Message)
}

// rejectLocked - 검증 실패를 상태에 기록하고 잠금 해제
func (o *Orchestrator) rejectLocked(vErr *ValidationError) error {
	o.failLocked(vErr)
	o.mu.Unlock()
	o.notify()
	return vErr
}

func (o *Orchestrator) canRegenerateLocked() bool {
	return o.composite != nil &&
		o.aspectRatio != nil &&
		o.ad != nil && o.ad.Type == AdTypeImage &&
		o.editedCaption != nil
}

func (o *Orchestrator) uploadedImagesLocked() []generation.Image {
	images := make([]generation.Image, 0, SlotCount)
	for _, slot := range o.slots {
		if slot != nil {
			images = append(images, slot.Image)
		}
	}
	return images
}

func (o *Orchestrator) touchLocked() {
	o.lastActivity = time.Now()
}

// update - epoch가 유지될 때만 상태 변경
func (o *Orchestrator) update(epoch uint64, apply func()) bool {
	o.mu.Lock()
	if o.closed || epoch != o.epoch {
		o.mu.Unlock()
		return false
	}
	apply()
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return true
}

// finish - 작업 결과 반영 후 로딩 종료 (초기화된 세션이면 버림)
func (o *Orchestrator) finish(epoch uint64, apply func()) bool {
	o.mu.Lock()
	if o.closed || epoch != o.epoch {
		o.mu.Unlock()
		log.Printf("⏭️  [Studio] Session %s: result superseded, discarding", o.id)
		return false
	}
	apply()
	o.stopLoadingLocked()
	o.touchLocked()
	o.mu.Unlock()

	o.notify()
	return true
}

func (o *Orchestrator) notify() {
	if o.onChange == nil {
		return
	}
	o.onChange(o.Snapshot())
}

// recordLocked - 이력 레코드 초안
func (o *Orchestrator) recordLocked(adType AdType, prompt string) *model.GenerationRecord {
	rec := &model.GenerationRecord{
		GenerationID: uuid.NewString(),
		SessionID:    o.id,
		AdType:       string(adType),
		Language:     string(o.language),
		Prompt:       prompt,
		CreatedAt:    time.Now().UTC(),
	}
	if o.userEmail != "" {
		email := o.userEmail
		rec.UserEmail = &email
	}
	if o.aspectRatio != nil {
		rec.AspectRatio = *o.aspectRatio
	}
	if o.category != nil {
		id := o.category.ID
		rec.CategoryID = &id
	}
	return rec
}

// recordAsyncLocked - 이력 저장 (실패는 로그만)
func (o *Orchestrator) recordAsyncLocked(rec *model.GenerationRecord, genErr error) {
	if o.recorder == nil || o.closed {
		return
	}

	rec.Status = model.StatusCompleted
	if genErr != nil {
		msg := genErr.Error()
		rec.Status = model.StatusFailed
		rec.ErrorMessage = &msg
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.recorder.RecordGeneration(ctx, rec); err != nil {
			log.Printf("⚠️  [Studio] Session %s: failed to record generation: %v", o.id, err)
		}
	}()
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
