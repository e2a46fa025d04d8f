package app

import (
	"context"
	"errors"
	"fmt"

	"homeportal/internal/usertoken"
	"homeportal/pkg/ai"
	"homeportal/pkg/domain"
	"homeportal/pkg/media"
	"homeportal/pkg/storage"
	"homeportal/pkg/store"
	"homeportal/pkg/submit"
)

// Config holds runtime configuration for the core application. The Store,
// Saved, Objects and Verifier fields override the connection settings when
// set; tests use them to inject fakes.
type Config struct {
	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWKSURL  string
	Issuer   string
	Audience string

	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string

	EncodePhotos      bool
	UploadConcurrency int

	Store    store.Store
	Saved    store.SavedStore
	Objects  storage.ObjectStore
	Verifier submit.IdentityVerifier
	Uploader storage.Uploader
}

// App is the core application service wiring the submission pipeline,
// listing store and assist features together.
type App struct {
	store     store.Store
	saved     store.SavedStore
	objects   storage.ObjectStore
	verifier  submit.IdentityVerifier
	submitter *submit.Submitter
	assist    *Assist
}

// New constructs the application and its backing connections.
func New(cfg Config) (*App, error) {
	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
	}

	dataStore := cfg.Store
	if dataStore == nil {
		var err error
		switch cfg.StoreDriver {
		case "postgres":
			dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		case "mongo":
			dataStore, err = store.NewMongoStore(cfg.MongoURI, cfg.MongoDatabase)
		default:
			err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
		}
		if err != nil {
			return nil, fmt.Errorf("init listing store: %w", err)
		}
	}

	saved := cfg.Saved
	if saved == nil {
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis addr required for saved listings")
		}
		saved = store.NewRedisSavedStore(cfg.RedisAddr, cfg.RedisPassword)
	}

	verifier := cfg.Verifier
	if verifier == nil {
		if cfg.JWKSURL == "" {
			return nil, errors.New("auth JWKS URL required")
		}
		v, err := usertoken.NewVerifier(usertoken.Config{
			JWKSURL:  cfg.JWKSURL,
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
		})
		if err != nil {
			return nil, fmt.Errorf("init token verifier: %w", err)
		}
		verifier = v
	}

	uploader := cfg.Uploader
	if uploader == nil {
		var opts []storage.BatchUploaderOption
		if cfg.UploadConcurrency > 0 {
			opts = append(opts, storage.WithConcurrency(cfg.UploadConcurrency))
		}
		uploader = storage.NewBatchUploader(objects, opts...)
	}

	var submitOpts []submit.Option
	if cfg.EncodePhotos {
		submitOpts = append(submitOpts, submit.WithEncoder(media.NewEncoder()))
	}
	submitter, err := submit.New(verifier, uploader, dataStore, submitOpts...)
	if err != nil {
		return nil, err
	}

	a := &App{
		store:     dataStore,
		saved:     saved,
		objects:   objects,
		verifier:  verifier,
		submitter: submitter,
	}
	if cfg.GeminiAPIKey != "" {
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		a.assist = NewAssist(client, dataStore, objects, cfg.GeminiTextModel, cfg.GeminiImageModel)
	}
	return a, nil
}

// SubmitListing runs the full submission pipeline synchronously.
func (a *App) SubmitListing(ctx context.Context, req submit.Request) (submit.Result, error) {
	return a.submitter.Submit(ctx, req)
}

// VerifyUser resolves a bearer credential to an identity, for routes that
// need the caller but do not go through the submission pipeline.
func (a *App) VerifyUser(token string) (domain.Identity, error) {
	return a.verifier.Verify(token)
}

// SearchListings returns listings matching the filter.
func (a *App) SearchListings(ctx context.Context, f store.Filter) ([]domain.Listing, error) {
	return a.store.SearchListings(ctx, f)
}

// GetListing fetches one listing. When countView is set the listing's view
// counter is incremented and the returned copy reflects the new count.
func (a *App) GetListing(ctx context.Context, id string, countView bool) (domain.Listing, bool, error) {
	l, ok, err := a.store.GetListing(ctx, id)
	if err != nil || !ok {
		return domain.Listing{}, ok, err
	}
	if countView {
		if err := a.store.IncrementViews(ctx, id); err == nil {
			l.Views++
		}
	}
	return l, true, nil
}

// MyListings returns the listings owned by the given user.
func (a *App) MyListings(ctx context.Context, userID string) ([]domain.Listing, error) {
	return a.store.ListByOwner(ctx, userID)
}

// SaveListing marks a listing as saved for the user. The listing must exist.
func (a *App) SaveListing(ctx context.Context, userID, listingID string) error {
	_, ok, err := a.store.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrListingNotFound
	}
	return a.saved.Save(ctx, userID, listingID)
}

// UnsaveListing removes a listing from the user's saved set.
func (a *App) UnsaveListing(ctx context.Context, userID, listingID string) error {
	return a.saved.Unsave(ctx, userID, listingID)
}

// SavedListings returns the user's saved listings, resolved against the
// store. Ids whose listing has since disappeared are dropped.
func (a *App) SavedListings(ctx context.Context, userID string) ([]domain.Listing, error) {
	ids, err := a.saved.ListSaved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Listing{}, nil
	}
	return a.store.ListByIDs(ctx, ids)
}

// Assist returns the AI assist features, or nil when not configured.
func (a *App) Assist() *Assist { return a.assist }

// Store exposes the listing store for maintenance commands.
func (a *App) Store() store.Store { return a.store }

// Objects exposes the object store for maintenance commands.
func (a *App) Objects() storage.ObjectStore { return a.objects }
