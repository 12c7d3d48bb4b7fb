package generation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeBackend struct {
	imagesResp  *genai.GenerateImagesResponse
	contentResp *genai.GenerateContentResponse
	videosOp    *genai.GenerateVideosOperation
	pollOps     []*genai.GenerateVideosOperation
	err         error

	imagesCalls  int
	contentCalls int
	lastContents []*genai.Content
	lastImages   *genai.GenerateImagesConfig
	lastConfig   *genai.GenerateContentConfig
	pollCalls    int
}

func (f *fakeBackend) GenerateImages(_ context.Context, _, _ string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.imagesCalls++
	f.lastImages = config
	return f.imagesResp, f.err
}

func (f *fakeBackend) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contentCalls++
	f.lastContents = contents
	f.lastConfig = config
	return f.contentResp, f.err
}

func (f *fakeBackend) GenerateVideos(_ context.Context, _, _ string, _ *genai.Image, _ *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return f.videosOp, f.err
}

func (f *fakeBackend) GetVideosOperation(_ context.Context, _ *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := f.pollCalls
	f.pollCalls++
	if idx >= len(f.pollOps) {
		idx = len(f.pollOps) - 1
	}
	return f.pollOps[idx], nil
}

func contentResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func imagePart(data, mime string) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: []byte(data), MIMEType: mime}}
}

func testImage(data string) Image {
	return NewImage([]byte(data), "image/png")
}

func TestTextToImageReturnsFirstImage(t *testing.T) {
	backend := &fakeBackend{
		imagesResp: &genai.GenerateImagesResponse{
			GeneratedImages: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: []byte("png-bytes")}}},
		},
	}
	svc := NewService(backend, Options{})

	img, err := svc.TextToImage(context.Background(), "a red sneaker")
	if err != nil {
		t.Fatalf("TextToImage returned error: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Fatalf("MIMEType = %q, want %q", img.MIMEType, "image/png")
	}
	data, _ := img.Bytes()
	if string(data) != "png-bytes" {
		t.Fatalf("data = %q, want %q", data, "png-bytes")
	}
	if backend.lastImages.NumberOfImages != 1 || backend.lastImages.AspectRatio != "1:1" {
		t.Fatalf("unexpected image config: %+v", backend.lastImages)
	}
}

func TestTextToImageEmptyResult(t *testing.T) {
	svc := NewService(&fakeBackend{imagesResp: &genai.GenerateImagesResponse{}}, Options{})

	_, err := svc.TextToImage(context.Background(), "nothing")
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestTextToImageTransportError(t *testing.T) {
	svc := NewService(&fakeBackend{err: errors.New("connection reset")}, Options{})

	_, err := svc.TextToImage(context.Background(), "boom")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %T, want *TransportError", err)
	}
	if err.Error() != "connection reset" {
		t.Fatalf("err = %q, want %q", err.Error(), "connection reset")
	}
}

func TestCompositeImagesRequiresTwoImages(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, Options{})

	_, err := svc.CompositeImages(context.Background(), []Image{testImage("a")}, "")
	if !errors.Is(err, ErrTooFewImages) {
		t.Fatalf("err = %v, want ErrTooFewImages", err)
	}
	if backend.contentCalls != 0 {
		t.Fatalf("contentCalls = %d, want 0", backend.contentCalls)
	}
}

func TestCompositeImagesUsesFallbackInstruction(t *testing.T) {
	backend := &fakeBackend{
		contentResp: contentResponse(
			&genai.Part{Text: "here you go"},
			imagePart("first", "image/jpeg"),
			imagePart("second", "image/png"),
		),
	}
	svc := NewService(backend, Options{})

	img, err := svc.CompositeImages(context.Background(), []Image{testImage("a"), testImage("b")}, "   ")
	if err != nil {
		t.Fatalf("CompositeImages returned error: %v", err)
	}
	data, _ := img.Bytes()
	if string(data) != "first" || img.MIMEType != "image/jpeg" {
		t.Fatalf("got %q (%s), want first image part", data, img.MIMEType)
	}

	parts := backend.lastContents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("len(parts) = %d, want 3", len(parts))
	}
	if parts[2].Text != defaultCompositeInstruction {
		t.Fatalf("instruction = %q, want %q", parts[2].Text, defaultCompositeInstruction)
	}
	modalities := backend.lastConfig.ResponseModalities
	if len(modalities) != 2 || modalities[0] != "IMAGE" || modalities[1] != "TEXT" {
		t.Fatalf("ResponseModalities = %v", modalities)
	}
}

func TestCompositeImagesNoImagePart(t *testing.T) {
	svc := NewService(&fakeBackend{contentResp: contentResponse(&genai.Part{Text: "sorry"})}, Options{})

	_, err := svc.CompositeImages(context.Background(), []Image{testImage("a"), testImage("b")}, "merge")
	if !errors.Is(err, ErrNoImagePart) {
		t.Fatalf("err = %v, want ErrNoImagePart", err)
	}
	if !strings.HasPrefix(err.Error(), "Image composition failed.") {
		t.Fatalf("err = %q, want composition prefix", err.Error())
	}
}

func TestRenderAdKeepsLastImageAndCaption(t *testing.T) {
	backend := &fakeBackend{
		contentResp: contentResponse(
			imagePart("draft", "image/png"),
			&genai.Part{Text: "first caption"},
			imagePart("final", "image/webp"),
			&genai.Part{Text: "Buy now!"},
		),
	}
	svc := NewService(backend, Options{})

	ad, err := svc.RenderAd(context.Background(), testImage("composite"), "Make it pop.", "16:9")
	if err != nil {
		t.Fatalf("RenderAd returned error: %v", err)
	}
	data, _ := ad.Image.Bytes()
	if string(data) != "final" || ad.Image.MIMEType != "image/webp" {
		t.Fatalf("image = %q (%s), want last image part", data, ad.Image.MIMEType)
	}
	if ad.Caption == nil || *ad.Caption != "Buy now!" {
		t.Fatalf("caption = %v, want %q", ad.Caption, "Buy now!")
	}

	want := "Make it pop. The final image must have an aspect ratio of 16:9."
	if got := backend.lastContents[0].Parts[1].Text; got != want {
		t.Fatalf("prompt = %q, want %q", got, want)
	}
}

func TestRenderAdWithoutCaption(t *testing.T) {
	svc := NewService(&fakeBackend{contentResp: contentResponse(imagePart("ad", "image/png"))}, Options{})

	ad, err := svc.RenderAd(context.Background(), testImage("composite"), "p", "1:1")
	if err != nil {
		t.Fatalf("RenderAd returned error: %v", err)
	}
	if ad.Caption != nil {
		t.Fatalf("caption = %q, want nil", *ad.Caption)
	}
}

func TestRenderAdNoImagePart(t *testing.T) {
	svc := NewService(&fakeBackend{contentResp: contentResponse(&genai.Part{Text: "text only"})}, Options{})

	_, err := svc.RenderAd(context.Background(), testImage("composite"), "p", "1:1")
	if !errors.Is(err, ErrNoImagePart) {
		t.Fatalf("err = %v, want ErrNoImagePart", err)
	}
	if !strings.HasPrefix(err.Error(), "Ad generation failed.") {
		t.Fatalf("err = %q, want ad prefix", err.Error())
	}
}

func TestVideoJobLifecycle(t *testing.T) {
	backend := &fakeBackend{
		videosOp: &genai.GenerateVideosOperation{Name: "operations/1"},
		pollOps: []*genai.GenerateVideosOperation{
			{Name: "operations/1"},
			{
				Name: "operations/1",
				Done: true,
				Response: &genai.GenerateVideosResponse{
					GeneratedVideos: []*genai.GeneratedVideo{{Video: &genai.Video{URI: "https://example.com/v.mp4"}}},
				},
			},
		},
	}
	svc := NewService(backend, Options{})
	ctx := context.Background()

	handle, err := svc.SubmitVideoJob(ctx, testImage("ad"), "cinematic")
	if err != nil {
		t.Fatalf("SubmitVideoJob returned error: %v", err)
	}
	if handle.Done {
		t.Fatal("new job should not be done")
	}
	if _, err := handle.VideoURI(); !errors.Is(err, ErrJobNotDone) {
		t.Fatalf("VideoURI err = %v, want ErrJobNotDone", err)
	}

	handle, err = svc.PollVideoJob(ctx, handle)
	if err != nil || handle.Done {
		t.Fatalf("first poll: done=%v err=%v, want pending", handle.Done, err)
	}

	handle, err = svc.PollVideoJob(ctx, handle)
	if err != nil || !handle.Done {
		t.Fatalf("second poll: done=%v err=%v, want done", handle.Done, err)
	}
	uri, err := handle.VideoURI()
	if err != nil {
		t.Fatalf("VideoURI returned error: %v", err)
	}
	if uri != "https://example.com/v.mp4" {
		t.Fatalf("uri = %q", uri)
	}
}

func TestVideoURIMissing(t *testing.T) {
	handle := NewJobHandle(&genai.GenerateVideosOperation{Name: "op", Done: true, Response: &genai.GenerateVideosResponse{}})

	if _, err := handle.VideoURI(); !errors.Is(err, ErrNoVideoURI) {
		t.Fatalf("err = %v, want ErrNoVideoURI", err)
	}
}

func TestVideoURIOperationError(t *testing.T) {
	handle := NewJobHandle(&genai.GenerateVideosOperation{
		Name:  "op",
		Done:  true,
		Error: map[string]any{"message": "safety filter"},
	})

	_, err := handle.VideoURI()
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Message != "safety filter" {
		t.Fatalf("err = %v, want ServiceError(safety filter)", err)
	}
}

func TestPollVideoJobRequiresHandle(t *testing.T) {
	svc := NewService(&fakeBackend{}, Options{})

	if _, err := svc.PollVideoJob(context.Background(), JobHandle{}); !errors.Is(err, ErrMissingJobHandle) {
		t.Fatalf("err = %v, want ErrMissingJobHandle", err)
	}
}

func TestFetchVideoAppendsKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	defer server.Close()

	svc := NewService(&fakeBackend{}, Options{APIKey: "secret", HTTPClient: server.Client()})

	video, err := svc.FetchVideo(context.Background(), server.URL+"/files/abc?alt=media")
	if err != nil {
		t.Fatalf("FetchVideo returned error: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("key = %q, want %q", gotKey, "secret")
	}
	if string(video.Data) != "mp4-bytes" || video.MIMEType != "video/mp4" {
		t.Fatalf("video = %q (%s)", video.Data, video.MIMEType)
	}
}

func TestFetchVideoNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewService(&fakeBackend{}, Options{HTTPClient: server.Client()})

	_, err := svc.FetchVideo(context.Background(), server.URL+"/missing")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %T, want *FetchError", err)
	}
	if fetchErr.Status != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", fetchErr.Status)
	}
	if err.Error() != "Failed to fetch video file: Not Found" {
		t.Fatalf("err = %q", err.Error())
	}
}

func TestFetchVideoDefaultsMIMEType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("raw"))
	}))
	defer server.Close()

	svc := NewService(&fakeBackend{}, Options{HTTPClient: server.Client()})

	video, err := svc.FetchVideo(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchVideo returned error: %v", err)
	}
	if video.MIMEType != "video/mp4" {
		t.Fatalf("MIMEType = %q, want video/mp4", video.MIMEType)
	}
}
