package tryon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raushankrgupta/fitly-tryon/models"
)

// Fixed inference parameters sent with every job.
const (
	numSamples    = 1
	guidanceScale = 2.0
	timesteps     = 50
)

// Session is the authenticated user a try-on runs for.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// SessionProvider resolves the acting user. A nil session with a nil error means nobody is signed in.
type SessionProvider interface {
	CurrentSession(ctx context.Context) (*Session, error)
}

// SubmitRequest is the payload enqueued on the synthesis API.
type SubmitRequest struct {
	ModelImage    string  `json:"model_image"`
	GarmentImage  string  `json:"garment_image"`
	Category      string  `json:"category"`
	NumSamples    int     `json:"num_samples"`
	GuidanceScale float64 `json:"guidance_scale"`
	Timesteps     int     `json:"timesteps"`
}

// ResultImage is one synthesized image reported by the API.
type ResultImage struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// JobResult is the detail of a completed synthesis job.
type JobResult struct {
	Images []ResultImage `json:"images"`
}

// Synthesizer is the queue based image synthesis API.
type Synthesizer interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Status(ctx context.Context, requestID string) (string, error)
	Result(ctx context.Context, requestID string) (*JobResult, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// ObjectStore persists image bytes and resolves public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	PublicURL(bucket, key string) string
}

// RecordStore is the try-on record table.
type RecordStore interface {
	Insert(ctx context.Context, rec *models.TryOn) error
	Update(ctx context.Context, id string, upd models.TryOnUpdate) error
}

// EventPublisher receives one event per terminal try-on.
type EventPublisher interface {
	Publish(ctx context.Context, evt models.TryOnEvent) error
}

// Buckets names the object store buckets used by the orchestrator.
type Buckets struct {
	Model   string
	Garment string
	Result  string
}

// DefaultBuckets returns the bucket names provisioned by utils.EnsureBuckets.
func DefaultBuckets() Buckets {
	return Buckets{Model: "model-images", Garment: "garment-images", Result: "result-images"}
}

// Deps are the external boundaries of the orchestrator.
type Deps struct {
	Sessions SessionProvider
	Synth    Synthesizer
	Objects  ObjectStore
	Records  RecordStore
}

// Result is returned by a successful try-on.
type Result struct {
	Image    string `json:"image"`
	RecordID string `json:"record_id"`
}

// Orchestrator runs try-ons end to end. It is safe for concurrent use.
type Orchestrator struct {
	sessions SessionProvider
	synth    Synthesizer
	objects  ObjectStore
	records  RecordStore
	events   EventPublisher

	buckets  Buckets
	maxWidth int
	policy   PollPolicy
	clock    Clock
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithPollPolicy(p PollPolicy) Option { return func(o *Orchestrator) { o.policy = p } }
func WithClock(c Clock) Option           { return func(o *Orchestrator) { o.clock = c } }
func WithLogger(l *slog.Logger) Option   { return func(o *Orchestrator) { o.logger = l } }
func WithBuckets(b Buckets) Option       { return func(o *Orchestrator) { o.buckets = b } }
func WithMaxWidth(w int) Option          { return func(o *Orchestrator) { o.maxWidth = w } }
func WithEvents(p EventPublisher) Option { return func(o *Orchestrator) { o.events = p } }
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New builds an Orchestrator over deps. Every field of deps is required.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions: deps.Sessions,
		synth:    deps.Synth,
		objects:  deps.Objects,
		records:  deps.Records,
		buckets:  DefaultBuckets(),
		maxWidth: DefaultMaxWidth,
		policy:   DefaultPollPolicy(),
		clock:    realClock{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TryOnClothing validates and compresses both images, submits a synthesis job for the current
// user, waits for it and returns the public URL of the stored result. Every failure is an *Error.
func (o *Orchestrator) TryOnClothing(ctx context.Context, model, garment Image, category models.Category) (*Result, error) {
	start := o.now()
	o.logger.Info("try-on started",
		"model_size", model.Size(), "model_type", model.ContentType,
		"garment_size", garment.Size(), "garment_type", garment.ContentType,
		"category", category)

	res, err := o.run(ctx, model, garment, category)
	if err != nil {
		te := AsError(err)
		o.logger.Error("try-on failed", "code", te.Code, "status_code", te.StatusCode, "detail", te.Detail, "err", te)
		return nil, te
	}

	o.logger.Info("try-on completed", "record_id", res.RecordID, "image", res.Image, "duration", o.now().Sub(start))
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, model, garment Image, category models.Category) (*Result, error) {
	if err := ValidateImages(model, garment); err != nil {
		return nil, err
	}
	apiCategory, err := APICategory(category)
	if err != nil {
		return nil, err
	}

	session, err := o.sessions.CurrentSession(ctx)
	if err != nil {
		return nil, NewError(CodeAuth, "could not read session", err)
	}
	if session == nil {
		return nil, NewError(CodeAuthRequired, "please sign in", nil)
	}
	logger := o.logger.With("user_id", session.UserID)

	modelC, garmentC, err := o.compressPair(model, garment)
	if err != nil {
		return nil, err
	}
	logger.Debug("images compressed",
		"model_width", modelC.Width, "model_height", modelC.Height,
		"garment_width", garmentC.Width, "garment_height", garmentC.Height)

	modelKey, err := o.storeInput(ctx, o.buckets.Model, session.UserID, model)
	if err != nil {
		return nil, err
	}
	garmentKey, err := o.storeInput(ctx, o.buckets.Garment, session.UserID, garment)
	if err != nil {
		return nil, err
	}

	now := o.now()
	rec := &models.TryOn{
		UserID:           session.UserID,
		ModelImagePath:   modelKey,
		GarmentImagePath: garmentKey,
		Category:         category,
		Status:           models.TryOnStatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := o.records.Insert(ctx, rec); err != nil {
		return nil, NewError(CodeDatabase, "could not create try-on record", err)
	}

	job := &jobRun{o: o, rec: rec, logger: logger.With("record_id", rec.ID)}
	job.logger.Info("try-on record created")

	url, err := job.execute(ctx, modelC, garmentC, apiCategory)
	if err != nil {
		job.fail(ctx, err)
		return nil, err
	}
	return &Result{Image: url, RecordID: rec.ID}, nil
}

// compressPair compresses both images concurrently and waits for both.
func (o *Orchestrator) compressPair(model, garment Image) (Compressed, Compressed, error) {
	var (
		wg                sync.WaitGroup
		modelC, garmentC  Compressed
		modelErr, garmErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		modelC, modelErr = CompressImage(model, o.maxWidth)
	}()
	go func() {
		defer wg.Done()
		garmentC, garmErr = CompressImage(garment, o.maxWidth)
	}()
	wg.Wait()

	if modelErr != nil {
		return Compressed{}, Compressed{}, modelErr
	}
	if garmErr != nil {
		return Compressed{}, Compressed{}, garmErr
	}
	return modelC, garmentC, nil
}

func (o *Orchestrator) storeInput(ctx context.Context, bucket, userID string, img Image) (string, error) {
	key := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), extensionFor(img.ContentType))
	path, err := o.objects.Upload(ctx, bucket, key, img.Data, img.ContentType)
	if err != nil {
		return "", NewError(CodeUpload, fmt.Sprintf("could not store %s", img.Filename), err)
	}
	return path, nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

// jobRun tracks one persisted try-on so its record is finalized exactly once.
type jobRun struct {
	o         *Orchestrator
	rec       *models.TryOn
	requestID string
	logger    *slog.Logger
	finalized bool
}

func (j *jobRun) execute(ctx context.Context, modelC, garmentC Compressed, apiCategory string) (string, error) {
	o := j.o

	requestID, err := o.synth.Submit(ctx, SubmitRequest{
		ModelImage:    modelC.DataURI(),
		GarmentImage:  garmentC.DataURI(),
		Category:      apiCategory,
		NumSamples:    numSamples,
		GuidanceScale: guidanceScale,
		Timesteps:     timesteps,
	})
	if err != nil {
		return "", err
	}
	if requestID == "" {
		return "", NewError(CodeInvalidResponse, "synthesis API returned no request id", nil)
	}
	j.requestID = requestID
	j.logger = j.logger.With("request_id", requestID)
	j.logger.Info("try-on submitted")

	if err := o.pollUntilDone(ctx, requestID); err != nil {
		return "", err
	}

	return j.materialize(ctx)
}

func (j *jobRun) materialize(ctx context.Context) (string, error) {
	o := j.o

	result, err := o.synth.Result(ctx, j.requestID)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Images) == 0 || result.Images[0].URL == "" {
		return "", NewError(CodeNoImageResult, "synthesis API returned no image", nil)
	}

	data, contentType, err := o.synth.Download(ctx, result.Images[0].URL)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "image/png"
	}

	filename := uuid.NewString() + ".png"
	path, err := o.objects.Upload(ctx, o.buckets.Result, filename, data, contentType)
	if err != nil {
		return "", NewError(CodeUpload, "could not store result image", err)
	}

	err = o.records.Update(ctx, j.rec.ID, models.TryOnUpdate{
		Status:          models.TryOnStatusCompleted,
		RequestID:       j.requestID,
		ResultImagePath: path,
	})
	if err != nil {
		j.logger.Error("result stored but record not updated, object is orphaned", "bucket", o.buckets.Result, "key", path, "err", err)
		return "", NewError(CodeDatabase, "could not update try-on record", err)
	}
	j.finalized = true
	j.rec.Status = models.TryOnStatusCompleted
	j.rec.ResultImagePath = path
	j.rec.RequestID = j.requestID

	url := o.objects.PublicURL(o.buckets.Result, filename)
	j.publish(ctx, models.TryOnEvent{Status: models.TryOnStatusCompleted, ResultURL: url})
	return url, nil
}

// fail marks the record failed. Errors here are logged so the original failure is returned.
func (j *jobRun) fail(ctx context.Context, cause error) {
	if j.finalized {
		return
	}
	j.finalized = true
	te := AsError(cause)

	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := j.o.records.Update(updateCtx, j.rec.ID, models.TryOnUpdate{
		Status:       models.TryOnStatusFailed,
		RequestID:    j.requestID,
		ErrorMessage: te.Message,
	})
	if err != nil {
		j.logger.Error("could not mark try-on record failed", "code", te.Code, "err", err)
	} else {
		j.rec.Status = models.TryOnStatusFailed
		j.rec.ErrorMessage = te.Message
	}

	j.publish(updateCtx, models.TryOnEvent{Status: models.TryOnStatusFailed, Code: string(te.Code), Error: te.Message})
}

func (j *jobRun) publish(ctx context.Context, evt models.TryOnEvent) {
	if j.o.events == nil {
		return
	}
	evt.RecordID = j.rec.ID
	evt.UserID = j.rec.UserID
	evt.Category = j.rec.Category
	evt.HappenedAt = j.o.now().Unix()
	if err := j.o.events.Publish(ctx, evt); err != nil {
		j.logger.Warn("could not publish try-on event", "status", evt.Status, "err", err)
	}
}
