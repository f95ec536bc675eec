package tryon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/raushankrgupta/fitly-tryon/models"
)

type fakeSessions struct {
	session *Session
	err     error
	calls   int
}

func (f *fakeSessions) CurrentSession(ctx context.Context) (*Session, error) {
	f.calls++
	return f.session, f.err
}

type fakeSynth struct {
	mu sync.Mutex

	requestID string
	submitErr error
	submitted []SubmitRequest

	statuses    []string
	statusErr   error
	statusCalls int

	result    *JobResult
	resultErr error

	data        []byte
	contentType string
	downloadErr error
	downloaded  []string
}

func (f *fakeSynth) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.requestID, nil
}

func (f *fakeSynth) Status(ctx context.Context, requestID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return "", f.statusErr
	}
	if len(f.statuses) == 0 {
		return StatusCompleted, nil
	}
	i := f.statusCalls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeSynth) Result(ctx context.Context, requestID string) (*JobResult, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return f.result, nil
}

func (f *fakeSynth) Download(ctx context.Context, url string) ([]byte, string, error) {
	f.downloaded = append(f.downloaded, url)
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return f.data, f.contentType, nil
}

type storedObject struct {
	Bucket      string
	Key         string
	Size        int
	ContentType string
}

type fakeObjects struct {
	mu         sync.Mutex
	failBucket string
	objects    []storedObject
}

func (f *fakeObjects) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bucket == f.failBucket {
		return "", errors.New("bucket unavailable")
	}
	f.objects = append(f.objects, storedObject{Bucket: bucket, Key: key, Size: len(data), ContentType: contentType})
	return key, nil
}

func (f *fakeObjects) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.test/%s/%s", bucket, key)
}

func (f *fakeObjects) inBucket(bucket string) []storedObject {
	var out []storedObject
	for _, o := range f.objects {
		if o.Bucket == bucket {
			out = append(out, o)
		}
	}
	return out
}

type fakeRecords struct {
	insertErr error
	updateErr error

	records map[string]*models.TryOn
	updates []models.TryOnUpdate
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[string]*models.TryOn)}
}

func (f *fakeRecords) Insert(ctx context.Context, rec *models.TryOn) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	rec.ID = fmt.Sprintf("rec-%d", len(f.records)+1)
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeRecords) Update(ctx context.Context, id string, upd models.TryOnUpdate) error {
	f.updates = append(f.updates, upd)
	if f.updateErr != nil {
		return f.updateErr
	}
	rec, ok := f.records[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	if upd.Status != "" {
		rec.Status = upd.Status
	}
	if upd.RequestID != "" {
		rec.RequestID = upd.RequestID
	}
	if upd.ResultImagePath != "" {
		rec.ResultImagePath = upd.ResultImagePath
	}
	if upd.ErrorMessage != "" {
		rec.ErrorMessage = upd.ErrorMessage
	}
	return nil
}

func (f *fakeRecords) only(t *testing.T) *models.TryOn {
	t.Helper()
	if len(f.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(f.records))
	}
	for _, rec := range f.records {
		return rec
	}
	return nil
}

type fakeClock struct {
	sleeps []time.Duration
	err    error
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	return f.err
}

type fakeEvents struct {
	events []models.TryOnEvent
}

func (f *fakeEvents) Publish(ctx context.Context, evt models.TryOnEvent) error {
	f.events = append(f.events, evt)
	return nil
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 200, G: 100, B: 50, A: 255}}, image.Point{}, draw.Src)
	return img
}

func pngImage(t *testing.T, name string, w, h int) Image {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return Image{Filename: name, ContentType: "image/png", Data: buf.Bytes()}
}

func jpegImage(t *testing.T, name string, w, h int) Image {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return Image{Filename: name, ContentType: "image/jpeg", Data: buf.Bytes()}
}
