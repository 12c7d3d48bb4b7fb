package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"adstudio-server/modules/common/model"
	"adstudio-server/modules/generation"
)

type fakeGenerator struct {
	mu sync.Mutex

	textCalls      int
	compositeCalls int
	renderCalls    int
	submitCalls    int
	pollCalls      int
	fetchCalls     int

	lastPrompt      string
	lastRatio       string
	lastImageCount  int
	pendingPolls    int // 완료 전 반환할 미완료 응답 수
	renderErr       error
	submitErr       error
	fetchErr        error
	doneWithoutURI  bool
	caption         *string
	renderGate      chan struct{}
	renderStarted   chan struct{}
	fetchedVideoURI string
}

func (f *fakeGenerator) TextToImage(_ context.Context, prompt string) (generation.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	f.lastPrompt = prompt
	return generation.NewImage([]byte("text-image"), "image/png"), nil
}

func (f *fakeGenerator) CompositeImages(_ context.Context, images []generation.Image, prompt string) (generation.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compositeCalls++
	f.lastPrompt = prompt
	f.lastImageCount = len(images)
	return generation.NewImage([]byte("composite"), "image/png"), nil
}

func (f *fakeGenerator) RenderAd(_ context.Context, _ generation.Image, prompt, aspectRatio string) (generation.AdResult, error) {
	f.mu.Lock()
	f.renderCalls++
	f.lastPrompt = prompt
	f.lastRatio = aspectRatio
	gate, started := f.renderGate, f.renderStarted
	err, caption := f.renderErr, f.caption
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return generation.AdResult{}, err
	}
	return generation.AdResult{
		Image:   generation.NewImage([]byte("ad"), "image/png"),
		Caption: caption,
	}, nil
}

func (f *fakeGenerator) SubmitVideoJob(_ context.Context, _ generation.Image, prompt string) (generation.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.lastPrompt = prompt
	if f.submitErr != nil {
		return generation.JobHandle{}, f.submitErr
	}
	return generation.NewJobHandle(&genai.GenerateVideosOperation{Name: "operations/video-1"}), nil
}

func (f *fakeGenerator) PollVideoJob(_ context.Context, handle generation.JobHandle) (generation.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.pendingPolls > 0 {
		f.pendingPolls--
		return handle, nil
	}
	if f.doneWithoutURI {
		return generation.NewJobHandle(&genai.GenerateVideosOperation{Name: handle.Name, Done: true}), nil
	}
	return generation.NewJobHandle(&genai.GenerateVideosOperation{
		Name: handle.Name,
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{
				{Video: &genai.Video{URI: "https://example.com/video.mp4"}},
			},
		},
	}), nil
}

func (f *fakeGenerator) FetchVideo(_ context.Context, videoURI string) (generation.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.fetchedVideoURI = videoURI
	if f.fetchErr != nil {
		return generation.Video{}, f.fetchErr
	}
	return generation.Video{Data: []byte("mp4"), MIMEType: "video/mp4"}, nil
}

func (f *fakeGenerator) counts() (text, composite, render, submit, poll, fetch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textCalls, f.compositeCalls, f.renderCalls, f.submitCalls, f.pollCalls, f.fetchCalls
}

type fakeResources struct {
	mu      sync.Mutex
	next    int
	created []string
	revoked map[string]int
}

func newFakeResources() *fakeResources {
	return &fakeResources{revoked: make(map[string]int)}
}

func (r *fakeResources) Create(_ []byte, _ string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	handle := fmt.Sprintf("blob:video-%d", r.next)
	r.created = append(r.created, handle)
	return handle
}

func (r *fakeResources) Revoke(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[handle]++
}

func (r *fakeResources) revokeCount(handle string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[handle]
}

func (r *fakeResources) totalRevokes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.revoked {
		total += n
	}
	return total
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []model.GenerationRecord
}

func (r *fakeRecorder) RecordGeneration(_ context.Context, rec *model.GenerationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func newTestOrchestrator(gen Generator, res Resources, rec Recorder) *Orchestrator {
	return NewOrchestrator(gen, res, Options{
		SessionID:    "test-session",
		PollInterval: 5 * time.Millisecond,
		Recorder:     rec,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// readyForAd - 합성 완료 + 광고 형식 + 비율 선택까지 진행
func readyForAd(t *testing.T, o *Orchestrator, adType AdType) {
	t.Helper()
	if err := o.SetSlot(0, "a.png", []byte("a"), "image/png"); err != nil {
		t.Fatalf("SetSlot(0) error = %v", err)
	}
	if err := o.SetSlot(1, "b.png", []byte("b"), "image/png"); err != nil {
		t.Fatalf("SetSlot(1) error = %v", err)
	}
	if err := o.Composite(context.Background()); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if err := o.ChooseAdType(adType); err != nil {
		t.Fatalf("ChooseAdType() error = %v", err)
	}
	if err := o.ChooseAspectRatio("16:9"); err != nil {
		t.Fatalf("ChooseAspectRatio() error = %v", err)
	}
}

func TestCompositeRequiresPromptOrTwoImages(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	if err := o.SetSlot(0, "only.png", []byte("x"), "image/png"); err != nil {
		t.Fatalf("SetSlot() error = %v", err)
	}

	err := o.Composite(context.Background())
	if !errors.Is(err, ErrPromptRequired) {
		t.Fatalf("Composite() error = %v, want %v", err, ErrPromptRequired)
	}

	text, composite, _, _, _, _ := gen.counts()
	if text != 0 || composite != 0 {
		t.Fatalf("generator calls = (%d, %d), want none", text, composite)
	}

	snap := o.Snapshot()
	if snap.Error == nil || snap.Error.Code != "prompt_required" {
		t.Fatalf("Error = %+v, want prompt_required", snap.Error)
	}
	if snap.Loading {
		t.Fatalf("Loading = true, want false")
	}
}

func TestCompositeChoosesOperationByUploadCount(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	_ = o.SetSlot(2, "c.png", []byte("c"), "image/png")
	_ = o.SetCompositePrompt("a red sneaker on a beach")
	if err := o.Composite(context.Background()); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	text, composite, _, _, _, _ := gen.counts()
	if text != 1 || composite != 0 {
		t.Fatalf("calls = (text %d, composite %d), want (1, 0)", text, composite)
	}

	_ = o.SetSlot(0, "a.png", []byte("a"), "image/png")
	if err := o.Composite(context.Background()); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	text, composite, _, _, _, _ = gen.counts()
	if text != 1 || composite != 1 {
		t.Fatalf("calls = (text %d, composite %d), want (1, 1)", text, composite)
	}
	if gen.lastImageCount != 2 {
		t.Fatalf("composited images = %d, want 2", gen.lastImageCount)
	}

	snap := o.Snapshot()
	if snap.Composite == nil {
		t.Fatalf("Composite = nil after success")
	}
	if snap.UploadedCount != 2 {
		t.Fatalf("UploadedCount = %d, want 2", snap.UploadedCount)
	}
}

func TestSlotChangeResetsDownstreamSelections(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeImage)
	if err := o.ChooseCategory("sports"); err != nil {
		t.Fatalf("ChooseCategory() error = %v", err)
	}

	if err := o.RemoveSlot(1); err != nil {
		t.Fatalf("RemoveSlot() error = %v", err)
	}

	snap := o.Snapshot()
	if snap.Composite != nil || snap.AdType != nil || snap.AspectRatio != nil || snap.CategoryID != nil {
		t.Fatalf("downstream state not reset: %+v", snap)
	}
	if snap.UploadedCount != 1 {
		t.Fatalf("UploadedCount = %d, want 1", snap.UploadedCount)
	}
}

func TestInvalidSlotIndex(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, newFakeResources(), nil)
	defer o.Close()

	for _, index := range []int{-1, SlotCount} {
		err := o.SetSlot(index, "x.png", []byte("x"), "image/png")
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Code != "invalid_slot" {
			t.Fatalf("SetSlot(%d) error = %v, want invalid_slot", index, err)
		}
	}
}

func TestChooseAdTypeClearsAspectRatio(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeImage)
	if err := o.ChooseAdType(AdTypeVideo); err != nil {
		t.Fatalf("ChooseAdType() error = %v", err)
	}
	snap := o.Snapshot()
	if snap.AspectRatio != nil {
		t.Fatalf("AspectRatio = %v, want nil", *snap.AspectRatio)
	}
	if snap.AdType == nil || *snap.AdType != AdTypeVideo {
		t.Fatalf("AdType = %v, want video", snap.AdType)
	}
}

func TestChooseBeforeCompositeFails(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, newFakeResources(), nil)
	defer o.Close()

	if err := o.ChooseAdType(AdTypeImage); !errors.Is(err, ErrNoComposite) {
		t.Fatalf("ChooseAdType() error = %v, want %v", err, ErrNoComposite)
	}
	if err := o.ChooseAspectRatio("1:1"); !errors.Is(err, ErrNoComposite) {
		t.Fatalf("ChooseAspectRatio() error = %v, want %v", err, ErrNoComposite)
	}
	if err := o.ChooseAspectRatio("2:1"); err == nil {
		t.Fatalf("ChooseAspectRatio(2:1) error = nil, want unknown option")
	}
}

func TestSwitchLanguageClearsCategory(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, newFakeResources(), nil)
	defer o.Close()

	if err := o.ChooseCategory("anime"); err != nil {
		t.Fatalf("ChooseCategory() error = %v", err)
	}
	if got := o.SwitchLanguage(); got != LangZH {
		t.Fatalf("SwitchLanguage() = %v, want %v", got, LangZH)
	}
	if snap := o.Snapshot(); snap.CategoryID != nil {
		t.Fatalf("CategoryID = %v, want nil", *snap.CategoryID)
	}

	_ = o.ChooseCategory("anime")
	if got := o.SetLanguage(LangZH); got != LangZH {
		t.Fatalf("SetLanguage(zh) = %v, want %v", got, LangZH)
	}
	if snap := o.Snapshot(); snap.CategoryID == nil {
		t.Fatalf("CategoryID cleared by no-op language change")
	}
}

func TestSelectTemplateRequiresAspectRatio(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	err := o.SelectTemplate(context.Background(), "sports_1")
	if !errors.Is(err, ErrNoAspectRatio) {
		t.Fatalf("SelectTemplate() error = %v, want %v", err, ErrNoAspectRatio)
	}
	if _, _, render, _, _, _ := gen.counts(); render != 0 {
		t.Fatalf("RenderAd calls = %d, want 0", render)
	}
	if snap := o.Snapshot(); snap.Error == nil || snap.Error.Code != "no_aspect_ratio" {
		t.Fatalf("Error = %+v, want no_aspect_ratio", snap.Error)
	}
}

func TestSelectTemplateRendersImageAd(t *testing.T) {
	caption := "Step into summer."
	gen := &fakeGenerator{caption: &caption}
	rec := &fakeRecorder{}
	o := newTestOrchestrator(gen, newFakeResources(), rec)

	readyForAd(t, o, AdTypeImage)
	_ = o.ChooseCategory("sports")
	category, _ := FindCategory("sports")
	template := category.Templates[0]

	if err := o.SelectTemplate(context.Background(), template.ID); err != nil {
		t.Fatalf("SelectTemplate() error = %v", err)
	}
	if gen.lastPrompt != template.Prompt(LangEN) {
		t.Fatalf("prompt = %q, want %q", gen.lastPrompt, template.Prompt(LangEN))
	}
	if gen.lastRatio != "16:9" {
		t.Fatalf("aspect ratio = %q, want 16:9", gen.lastRatio)
	}

	snap := o.Snapshot()
	if snap.GeneratedAd == nil || snap.GeneratedAd.Type != AdTypeImage {
		t.Fatalf("GeneratedAd = %+v, want image ad", snap.GeneratedAd)
	}
	if snap.EditedCaption == nil || *snap.EditedCaption != caption {
		t.Fatalf("EditedCaption = %v, want %q", snap.EditedCaption, caption)
	}
	if !snap.CanRegenerate {
		t.Fatalf("CanRegenerate = false, want true")
	}

	o.Close()
	if len(rec.records) != 1 || rec.records[0].Status != model.StatusCompleted {
		t.Fatalf("records = %+v, want one completed record", rec.records)
	}
	if rec.records[0].GenerationID != snap.GeneratedAd.ID {
		t.Fatalf("record id = %q, want %q", rec.records[0].GenerationID, snap.GeneratedAd.ID)
	}
}

func TestRenderFailureSetsErrorAndStopsLoading(t *testing.T) {
	gen := &fakeGenerator{renderErr: errors.New("The model did not return an image.")}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeImage)
	_ = o.ChooseCategory("transport")
	category, _ := FindCategory("transport")

	err := o.SelectTemplate(context.Background(), category.Templates[3].ID)
	if err == nil {
		t.Fatalf("SelectTemplate() error = nil, want failure")
	}

	snap := o.Snapshot()
	if snap.Loading {
		t.Fatalf("Loading = true after failure")
	}
	if snap.Error == nil || snap.Error.Message != "The model did not return an image." {
		t.Fatalf("Error = %+v", snap.Error)
	}
	if snap.GeneratedAd != nil {
		t.Fatalf("GeneratedAd = %+v, want nil", snap.GeneratedAd)
	}
}

func TestEmptyErrorUsesFallbackMessage(t *testing.T) {
	gen := &fakeGenerator{renderErr: errors.New("")}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeImage)
	_ = o.ChooseCategory("transport")
	_ = o.SelectTemplate(context.Background(), "transport_1")

	if snap := o.Snapshot(); snap.Error == nil || snap.Error.Message != FallbackErrorMessage {
		t.Fatalf("Error = %+v, want %q", snap.Error, FallbackErrorMessage)
	}
}

func TestRegenerateUsesEditedCaption(t *testing.T) {
	caption := "Original caption"
	gen := &fakeGenerator{caption: &caption}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	if err := o.Regenerate(context.Background()); !errors.Is(err, ErrRegenerationUnavailable) {
		t.Fatalf("Regenerate() error = %v, want %v", err, ErrRegenerationUnavailable)
	}

	readyForAd(t, o, AdTypeImage)
	_ = o.ChooseCategory("magazine")
	if err := o.SelectTemplate(context.Background(), "magazine_1"); err != nil {
		t.Fatalf("SelectTemplate() error = %v", err)
	}
	if err := o.EditCaption("Make the background blue"); err != nil {
		t.Fatalf("EditCaption() error = %v", err)
	}
	if err := o.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if gen.lastPrompt != "Make the background blue" {
		t.Fatalf("prompt = %q, want edited caption", gen.lastPrompt)
	}
	if _, _, render, _, _, _ := gen.counts(); render != 2 {
		t.Fatalf("RenderAd calls = %d, want 2", render)
	}
}

func TestRegenerateRequiresImageAdWithCaption(t *testing.T) {
	caption := "Original caption"

	tests := []struct {
		name    string
		caption *string
		adType  AdType
		setup   func(t *testing.T, o *Orchestrator)
	}{
		{
			name:    "aspect ratio cleared",
			caption: &caption,
			adType:  AdTypeImage,
			setup: func(t *testing.T, o *Orchestrator) {
				if err := o.ChooseAdType(AdTypeImage); err != nil {
					t.Fatalf("ChooseAdType() error = %v", err)
				}
			},
		},
		{
			name:    "video ad",
			caption: &caption,
			adType:  AdTypeVideo,
		},
		{
			name:   "ad without caption",
			adType: AdTypeImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{caption: tt.caption}
			o := newTestOrchestrator(gen, newFakeResources(), nil)
			defer o.Close()

			readyForAd(t, o, tt.adType)
			if tt.adType == AdTypeVideo {
				if err := o.SelectVideoStyle(context.Background(), "cinematic"); err != nil {
					t.Fatalf("SelectVideoStyle() error = %v", err)
				}
				waitFor(t, "video ad", func() bool {
					return o.Snapshot().GeneratedAd != nil
				})
			} else {
				_ = o.ChooseCategory("magazine")
				if err := o.SelectTemplate(context.Background(), "magazine_1"); err != nil {
					t.Fatalf("SelectTemplate() error = %v", err)
				}
			}
			if tt.setup != nil {
				tt.setup(t, o)
			}

			_, _, before, _, _, _ := gen.counts()
			if err := o.Regenerate(context.Background()); !errors.Is(err, ErrRegenerationUnavailable) {
				t.Fatalf("Regenerate() error = %v, want %v", err, ErrRegenerationUnavailable)
			}
			if _, _, after, _, _, _ := gen.counts(); after != before {
				t.Fatalf("RenderAd calls = %d, want %d", after, before)
			}
			if o.Snapshot().CanRegenerate {
				t.Fatalf("CanRegenerate = true, want false")
			}
		})
	}
}

func TestVideoMissingURIStopsPolling(t *testing.T) {
	gen := &fakeGenerator{doneWithoutURI: true}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeVideo)
	if err := o.SelectVideoStyle(context.Background(), "cinematic"); err != nil {
		t.Fatalf("SelectVideoStyle() error = %v", err)
	}
	waitFor(t, "video failure", func() bool {
		return o.Snapshot().VideoJob == "failed"
	})

	_, _, _, _, polls, _ := gen.counts()
	time.Sleep(30 * time.Millisecond)
	_, _, _, _, pollsAfter, fetch := gen.counts()
	if pollsAfter != polls || fetch != 0 {
		t.Fatalf("calls = (poll %d -> %d, fetch %d), want polling stopped and no fetch", polls, pollsAfter, fetch)
	}

	snap := o.Snapshot()
	if snap.Loading {
		t.Fatalf("Loading = true, want false")
	}
	if snap.Error == nil || snap.Error.Message != "Video generation finished, but no video URL was found." {
		t.Fatalf("Error = %+v", snap.Error)
	}
	if snap.GeneratedAd != nil {
		t.Fatalf("GeneratedAd = %+v, want nil", snap.GeneratedAd)
	}
}

func TestVideoFetchFailureStopsPolling(t *testing.T) {
	gen := &fakeGenerator{fetchErr: &generation.FetchError{Status: 403, StatusText: "Forbidden"}}
	res := newFakeResources()
	o := newTestOrchestrator(gen, res, nil)
	defer o.Close()

	readyForAd(t, o, AdTypeVideo)
	if err := o.SelectVideoStyle(context.Background(), "cinematic"); err != nil {
		t.Fatalf("SelectVideoStyle() error = %v", err)
	}
	waitFor(t, "video failure", func() bool {
		return o.Snapshot().VideoJob == "failed"
	})

	_, _, _, _, polls, _ := gen.counts()
	time.Sleep(30 * time.Millisecond)
	_, _, _, _, pollsAfter, fetch := gen.counts()
	if pollsAfter != polls || fetch != 1 {
		t.Fatalf("calls = (poll %d -> %d, fetch %d), want polling stopped after one fetch", polls, pollsAfter, fetch)
	}

	snap := o.Snapshot()
	if snap.Loading {
		t.Fatalf("Loading = true, want false")
	}
	if snap.Error == nil || snap.Error.Message != "Failed to fetch video file: Forbidden" {
		t.Fatalf("Error = %+v", snap.Error)
	}
	if len(res.created) != 0 {
		t.Fatalf("resources created = %v, want none", res.created)
	}
}

func TestSetLanguageIsIdempotentUnderConcurrency(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{}, newFakeResources(), nil)
	defer o.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.SetLanguage(LangZH)
		}()
	}
	wg.Wait()

	if got := o.Snapshot().Language; got != LangZH {
		t.Fatalf("Language = %v, want %v", got, LangZH)
	}
	if got := o.SetLanguage(LangZH); got != LangZH {
		t.Fatalf("SetLanguage() = %v, want %v", got, LangZH)
	}
}

func TestVideoPollsUntilDoneThenFetchesOnce(t *testing.T) {
	gen := &fakeGenerator{pendingPolls: 2}
	res := newFakeResources()
	rec := &fakeRecorder{}
	o := newTestOrchestrator(gen, res, rec)
	defer o.Close()

	readyForAd(t, o, AdTypeVideo)
	style := VideoStyles()[0]
	if err := o.SelectVideoStyle(context.Background(), style.ID); err != nil {
		t.Fatalf("SelectVideoStyle() error = %v", err)
	}

	waitFor(t, "video ad", func() bool {
		return o.Snapshot().GeneratedAd != nil
	})

	// 완료 이후 추가 폴링이 없어야 함
	time.Sleep(30 * time.Millisecond)
	_, _, _, submit, poll, fetch := gen.counts()
	if submit != 1 || poll != 3 || fetch != 1 {
		t.Fatalf("calls = (submit %d, poll %d, fetch %d), want (1, 3, 1)", submit, poll, fetch)
	}
	if gen.fetchedVideoURI != "https://example.com/video.mp4" {
		t.Fatalf("fetched uri = %q", gen.fetchedVideoURI)
	}

	snap := o.Snapshot()
	if snap.Loading {
		t.Fatalf("Loading = true after video ready")
	}
	if snap.GeneratedAd.Type != AdTypeVideo || snap.GeneratedAd.URL != "blob:video-1" {
		t.Fatalf("GeneratedAd = %+v", snap.GeneratedAd)
	}
	if snap.GeneratedAd.Text == nil || *snap.GeneratedAd.Text != style.Prompt(LangEN) {
		t.Fatalf("video text = %v, want style prompt", snap.GeneratedAd.Text)
	}
	if snap.VideoJob != "done" {
		t.Fatalf("VideoJob = %q, want done", snap.VideoJob)
	}
	if snap.CanRegenerate {
		t.Fatalf("CanRegenerate = true for video ad")
	}
	if err := o.EditCaption("new text"); !errors.Is(err, ErrCaptionReadOnly) {
		t.Fatalf("EditCaption() error = %v, want %v", err, ErrCaptionReadOnly)
	}
}

func TestVideoSubmitFailure(t *testing.T) {
	gen := &fakeGenerator{submitErr: errors.New("quota exceeded")}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeVideo)
	if err := o.SelectVideoStyle(context.Background(), "cinematic"); err == nil {
		t.Fatalf("SelectVideoStyle() error = nil, want failure")
	}

	snap := o.Snapshot()
	if snap.Loading || snap.VideoJob != "failed" {
		t.Fatalf("state = (loading %v, job %q), want (false, failed)", snap.Loading, snap.VideoJob)
	}
	if _, _, _, _, poll, _ := gen.counts(); poll != 0 {
		t.Fatalf("poll calls = %d, want 0", poll)
	}
}

func TestClosePreviewRevokesVideoOnce(t *testing.T) {
	gen := &fakeGenerator{}
	res := newFakeResources()
	o := newTestOrchestrator(gen, res, nil)
	defer o.Close()

	readyForAd(t, o, AdTypeVideo)
	_ = o.SelectVideoStyle(context.Background(), "fast_paced")
	waitFor(t, "video ad", func() bool { return o.Snapshot().GeneratedAd != nil })

	if err := o.ClosePreview(); err != nil {
		t.Fatalf("ClosePreview() error = %v", err)
	}
	if err := o.ClosePreview(); err != nil {
		t.Fatalf("second ClosePreview() error = %v", err)
	}
	if got := res.revokeCount("blob:video-1"); got != 1 {
		t.Fatalf("revokes = %d, want 1", got)
	}
	if snap := o.Snapshot(); snap.ShowPreview() {
		t.Fatalf("ShowPreview() = true after close")
	}
}

func TestClosePreviewNeverRevokesImage(t *testing.T) {
	res := newFakeResources()
	o := newTestOrchestrator(&fakeGenerator{}, res, nil)
	defer o.Close()

	readyForAd(t, o, AdTypeImage)
	_ = o.ChooseCategory("anime")
	_ = o.SelectTemplate(context.Background(), "anime_2")
	_ = o.ClosePreview()

	if got := res.totalRevokes(); got != 0 {
		t.Fatalf("revokes = %d, want 0", got)
	}
}

func TestCloseStopsPolling(t *testing.T) {
	gen := &fakeGenerator{pendingPolls: 1 << 30}
	o := newTestOrchestrator(gen, newFakeResources(), nil)

	readyForAd(t, o, AdTypeVideo)
	_ = o.SelectVideoStyle(context.Background(), "minimalist")
	waitFor(t, "first poll", func() bool {
		_, _, _, _, poll, _ := gen.counts()
		return poll > 0
	})

	o.Close()
	_, _, _, _, after, _ := gen.counts()
	time.Sleep(30 * time.Millisecond)
	_, _, _, _, later, _ := gen.counts()
	if later != after {
		t.Fatalf("polls after Close = %d, want %d", later, after)
	}
	if err := o.SetSlot(0, "x.png", []byte("x"), "image/png"); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetSlot() after Close error = %v, want %v", err, ErrClosed)
	}
}

func TestSlotChangeDuringVideoCancelsPolling(t *testing.T) {
	gen := &fakeGenerator{pendingPolls: 1 << 30}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeVideo)
	_ = o.SelectVideoStyle(context.Background(), "vintage")
	waitFor(t, "first poll", func() bool {
		_, _, _, _, poll, _ := gen.counts()
		return poll > 0
	})

	if err := o.SetSlot(2, "c.png", []byte("c"), "image/png"); err != nil {
		t.Fatalf("SetSlot() while polling error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	_, _, _, _, after, _ := gen.counts()
	time.Sleep(30 * time.Millisecond)
	_, _, _, _, later, _ := gen.counts()
	if later != after {
		t.Fatalf("polling continued after reset: %d -> %d", after, later)
	}
	if snap := o.Snapshot(); snap.Loading || snap.VideoJob != "" {
		t.Fatalf("state = (loading %v, job %q), want reset", snap.Loading, snap.VideoJob)
	}
}

func TestSupersededRenderIsDiscarded(t *testing.T) {
	gen := &fakeGenerator{
		renderGate:    make(chan struct{}),
		renderStarted: make(chan struct{}, 1),
	}
	o := newTestOrchestrator(gen, newFakeResources(), nil)
	defer o.Close()

	readyForAd(t, o, AdTypeImage)
	_ = o.ChooseCategory("interior")

	done := make(chan error, 1)
	go func() {
		done <- o.SelectTemplate(context.Background(), "interior_1")
	}()
	<-gen.renderStarted

	if err := o.ChooseAdType(AdTypeImage); !errors.Is(err, ErrBusy) {
		t.Fatalf("ChooseAdType() while loading error = %v, want %v", err, ErrBusy)
	}
	if err := o.RemoveSlot(0); err != nil {
		t.Fatalf("RemoveSlot() while loading error = %v", err)
	}

	close(gen.renderGate)
	<-done

	snap := o.Snapshot()
	if snap.GeneratedAd != nil {
		t.Fatalf("GeneratedAd = %+v, want superseded result dropped", snap.GeneratedAd)
	}
	if snap.Loading {
		t.Fatalf("Loading = true after reset")
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	o := NewOrchestrator(&fakeGenerator{}, newFakeResources(), Options{
		OnChange: func(s Snapshot) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		},
	})
	defer o.Close()

	_ = o.SetCompositePrompt("hello")

	mu.Lock()
	defer mu.Unlock()
	if len(snaps) != 1 || snaps[0].CompositePrompt != "hello" {
		t.Fatalf("snapshots = %+v, want one with prompt", snaps)
	}
	if snaps[0].Language != LangEN {
		t.Fatalf("default language = %v, want %v", snaps[0].Language, LangEN)
	}
}
