// Package submit sequences a property submission: validate the form, verify
// the acting user, optionally re-encode photos, transfer them to object
// storage and persist the listing record. The outcome is all-or-nothing: a
// listing is never created referencing fewer photos than were submitted.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"homeportal/internal/util"
	"homeportal/pkg/domain"
	"homeportal/pkg/storage"
)

// Phase names one step of the submission state machine.
type Phase string

const (
	PhaseValidatingInput   Phase = "ValidatingInput"
	PhaseVerifyingIdentity Phase = "VerifyingIdentity"
	PhaseEncodingMedia     Phase = "EncodingMedia"
	PhaseUploadingMedia    Phase = "UploadingMedia"
	PhasePersistingListing Phase = "PersistingListing"
	PhaseCompleted         Phase = "Completed"
	PhaseFailed            Phase = "Failed"
)

const (
	// MaxPhotos caps the number of photos per listing.
	MaxPhotos = 10
	// MaxFileBytes caps one photo file (10 MiB).
	MaxFileBytes = 10 << 20
	// MinDescriptionLen is the minimum trimmed description length.
	MinDescriptionLen = 20

	// encodeWeight is the share of the progress bar spent on re-encoding
	// when the encoder is enabled; the remainder is upload transfer.
	encodeWeight = 20
)

// IdentityVerifier exchanges a bearer credential for a verified identity.
type IdentityVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// ListingWriter persists exactly one new listing record.
type ListingWriter interface {
	CreateListing(ctx context.Context, l domain.Listing) error
}

// Encoder re-encodes a photo and returns the new bytes and content type.
type Encoder interface {
	Encode(src []byte) ([]byte, string, error)
}

// Progress is one discrete update on the submission progress stream.
// Percent is monotonically non-decreasing and reaches 100 only when the
// final persistence step begins.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Request carries one submission attempt.
type Request struct {
	Form       domain.ListingForm
	Files      []storage.FileUpload
	Credential string
}

// Result is the outcome of a completed submission.
type Result struct {
	ListingID string
	Listing   domain.Listing
}

// Submitter runs the submission workflow against injected collaborators.
// Construct it once with New; the zero value is not usable.
type Submitter struct {
	verifier IdentityVerifier
	uploader storage.Uploader
	writer   ListingWriter
	encoder  Encoder

	persistTimeout time.Duration
	newID          func() string
	now            func() time.Time
	logger         *slog.Logger
}

// Option customizes a Submitter.
type Option func(*Submitter)

// WithEncoder enables photo re-encoding before upload. Encoding is an
// optimization: failures degrade to uploading the original bytes.
func WithEncoder(enc Encoder) Option {
	return func(s *Submitter) { s.encoder = enc }
}

// WithPersistTimeout bounds the final document write.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithLogger routes workflow logs to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func withIDFunc(fn func() string) Option {
	return func(s *Submitter) { s.newID = fn }
}

func withClock(fn func() time.Time) Option {
	return func(s *Submitter) { s.now = fn }
}

// New builds a Submitter. All three collaborators are required; a nil
// dependency is a configuration error, not a runtime surprise.
func New(verifier IdentityVerifier, uploader storage.Uploader, writer ListingWriter, opts ...Option) (*Submitter, error) {
	if verifier == nil {
		return nil, errors.New("submit: identity verifier required")
	}
	if uploader == nil {
		return nil, errors.New("submit: uploader required")
	}
	if writer == nil {
		return nil, errors.New("submit: listing writer required")
	}
	s := &Submitter{
		verifier:       verifier,
		uploader:       uploader,
		writer:         writer,
		persistTimeout: 15 * time.Second,
		newID:          util.NewID,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Task is one running submission. Progress yields discrete updates and is
// closed once the task reaches a terminal state; Wait blocks for the outcome.
type Task struct {
	progress chan Progress
	done     chan struct{}
	result   Result
	err      error
}

// Progress returns the update stream. The channel is buffered and never
// blocks the workflow; it is closed on completion or failure.
func (t *Task) Progress() <-chan Progress { return t.progress }

// Wait blocks until the submission reaches Completed or Failed.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.result, t.err
}

// Start launches the submission asynchronously. Cancelling ctx aborts
// in-flight transfers and fails the task.
func (s *Submitter) Start(ctx context.Context, req Request) *Task {
	t := &Task{
		progress: make(chan Progress, 64),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		defer close(t.progress)
		t.result, t.err = s.run(ctx, req, t)
	}()
	return t
}

// Submit runs the workflow synchronously, discarding progress updates.
func (s *Submitter) Submit(ctx context.Context, req Request) (Result, error) {
	task := s.Start(ctx, req)
	for range task.Progress() {
	}
	return task.Wait()
}

func (s *Submitter) run(ctx context.Context, req Request, t *Task) (Result, error) {
	// Upload progress callbacks arrive from concurrent transfers; the mutex
	// keeps the emitted percent monotonic.
	var mu sync.Mutex
	lastPercent := 0
	emit := func(phase Phase, percent int, message string) {
		mu.Lock()
		defer mu.Unlock()
		if percent < lastPercent {
			percent = lastPercent
		}
		lastPercent = percent
		select {
		case t.progress <- Progress{Phase: phase, Percent: percent, Message: message}:
		default:
		}
	}

	emit(PhaseValidatingInput, 0, "Checking listing details")
	files, err := validate(req)
	if err != nil {
		emit(PhaseFailed, -1, err.Error())
		return Result{}, err
	}

	emit(PhaseVerifyingIdentity, 0, "Verifying your account")
	identity, err := s.verifier.Verify(req.Credential)
	if err != nil {
		emit(PhaseFailed, -1, "Authentication failed")
		return Result{}, failure(KindAuthentication, err)
	}

	uploadStart := 0
	if s.encoder != nil {
		emit(PhaseEncodingMedia, 0, "Optimizing photos")
		files = s.encodeAll(files, emit)
		uploadStart = encodeWeight
	}

	// Fresh id per attempt: a retry after failure never reuses prior state.
	listingID := s.newID()

	emit(PhaseUploadingMedia, uploadStart, "Uploading photos")
	results, err := s.uploader.UploadAll(ctx, listingID, files, func(transferred, total int64) {
		percent := uploadStart
		if total > 0 {
			percent += int(transferred * int64(100-uploadStart) / total)
		}
		if percent > 100 {
			percent = 100
		}
		emit(PhaseUploadingMedia, percent, "Uploading photos")
	})
	if err != nil {
		s.logger.Warn("photo upload failed; uploaded objects left for cleanup",
			"listing_id", listingID, "error", err)
		emit(PhaseFailed, -1, "Photo upload failed")
		return Result{}, failure(KindUpload, err)
	}

	photos := make([]string, 0, len(results))
	for _, r := range results {
		photos = append(photos, r.URL)
	}

	listing := domain.Listing{
		ID:           listingID,
		Title:        strings.TrimSpace(req.Form.Title),
		Description:  strings.TrimSpace(req.Form.Description),
		PropertyType: req.Form.PropertyType,
		ListingType:  req.Form.ListingType,
		Price:        req.Form.Price,
		Area:         req.Form.Area,
		Bedrooms:     req.Form.Bedrooms,
		Bathrooms:    req.Form.Bathrooms,
		Location:     strings.TrimSpace(req.Form.Location),
		Photos:       photos,
		SellerID:     identity.UserID,
		SellerName:   sellerName(identity),
		SellerEmail:  identity.Email,
		CreatedAt:    s.now(),
		Featured:     false,
		Views:        0,
	}

	emit(PhasePersistingListing, 100, "Saving your listing")
	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.writer.CreateListing(pctx, listing); err != nil {
		s.logger.Error("listing persist failed after upload; orphaned media under prefix",
			"listing_id", listingID, "prefix", "listings/"+listingID, "error", err)
		emit(PhaseFailed, -1, "Could not save the listing, please try again")
		return Result{}, failure(KindPersistence, err)
	}

	emit(PhaseCompleted, 100, "Listing published")
	return Result{ListingID: listingID, Listing: listing}, nil
}

// encodeAll re-encodes each photo, keeping the original bytes when a photo
// cannot be decoded. Progress covers the encode share of the bar.
func (s *Submitter) encodeAll(files []storage.FileUpload, emit func(Phase, int, string)) []storage.FileUpload {
	out := make([]storage.FileUpload, len(files))
	for i, f := range files {
		data, contentType, err := s.encoder.Encode(f.Data)
		if err != nil {
			s.logger.Warn("photo encode failed, uploading original", "file", f.Name, "error", err)
			out[i] = f
		} else {
			out[i] = storage.FileUpload{Name: f.Name, ContentType: contentType, Data: data}
		}
		emit(PhaseEncodingMedia, (i+1)*encodeWeight/len(files), "Optimizing photos")
	}
	return out
}

// validate checks the form and files without touching any remote service.
// Zero-byte files are dropped silently; the survivors are returned.
func validate(req Request) ([]storage.FileUpload, error) {
	form := req.Form
	if strings.TrimSpace(req.Credential) == "" {
		return nil, failuref(KindValidation, "authentication token is missing")
	}
	if strings.TrimSpace(form.Title) == "" {
		return nil, failuref(KindValidation, "title is required")
	}
	if len(strings.TrimSpace(form.Description)) < MinDescriptionLen {
		return nil, failuref(KindValidation, "description must be at least %d characters", MinDescriptionLen)
	}
	if !domain.ValidPropertyType(form.PropertyType) {
		return nil, failuref(KindValidation, "unknown property type %q", form.PropertyType)
	}
	if !domain.ValidListingType(form.ListingType) {
		return nil, failuref(KindValidation, "unknown listing type %q", form.ListingType)
	}
	if form.Price <= 0 {
		return nil, failuref(KindValidation, "price must be greater than zero")
	}
	if form.Area <= 0 {
		return nil, failuref(KindValidation, "area must be greater than zero")
	}
	if form.Bedrooms < 0 || form.Bathrooms < 0 {
		return nil, failuref(KindValidation, "bedrooms and bathrooms cannot be negative")
	}
	if strings.TrimSpace(form.Location) == "" {
		return nil, failuref(KindValidation, "location is required")
	}

	files := make([]storage.FileUpload, 0, len(req.Files))
	for _, f := range req.Files {
		if len(f.Data) == 0 {
			continue
		}
		if len(f.Data) > MaxFileBytes {
			return nil, failuref(KindValidation, "photo %s exceeds the %d MB size limit", f.Name, MaxFileBytes>>20)
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, failuref(KindValidation, "at least one photo is required")
	}
	if len(files) > MaxPhotos {
		return nil, failuref(KindValidation, "at most %d photos are allowed", MaxPhotos)
	}
	return files, nil
}

func sellerName(id domain.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}
