package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"homeportal/pkg/domain"
)

const migrateLockID int64 = 82314509

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ListingModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// CreateListing inserts exactly one new listing document.
func (s *GormStore) CreateListing(ctx context.Context, l domain.Listing) error {
	if len(l.Photos) == 0 {
		return ErrNoPhotos
	}
	model, err := listingToModel(l)
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// GetListing retrieves a listing by id.
func (s *GormStore) GetListing(ctx context.Context, id string) (domain.Listing, bool, error) {
	var model ListingModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, err
	}
	return listingFromModel(model), true, nil
}

// SearchListings applies the filter and returns matching listings.
func (s *GormStore) SearchListings(ctx context.Context, f Filter) ([]domain.Listing, error) {
	tx := s.db.WithContext(ctx).Model(&ListingModel{})
	if f.PropertyType != "" {
		tx = tx.Where("property_type = ?", string(f.PropertyType))
	}
	if f.ListingType != "" {
		tx = tx.Where("listing_type = ?", string(f.ListingType))
	}
	if f.MinPrice != nil {
		tx = tx.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		tx = tx.Where("price <= ?", *f.MaxPrice)
	}
	if f.Bedrooms != nil {
		if f.BedroomsAtLeast {
			tx = tx.Where("bedrooms >= ?", *f.Bedrooms)
		} else {
			tx = tx.Where("bedrooms = ?", *f.Bedrooms)
		}
	}
	if f.Keyword != "" {
		pattern := "%" + f.Keyword + "%"
		tx = tx.Where("title ILIKE ? OR location ILIKE ?", pattern, pattern)
	}
	if f.Featured != nil {
		tx = tx.Where("featured = ?", *f.Featured)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		tx = tx.Order("price ASC")
	} else {
		tx = tx.Order("created_at DESC")
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	if f.Offset > 0 {
		tx = tx.Offset(f.Offset)
	}
	var models []ListingModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// ListByOwner returns the seller's listings, newest first.
func (s *GormStore) ListByOwner(ctx context.Context, sellerID string) ([]domain.Listing, error) {
	var models []ListingModel
	if err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// ListByIDs returns the listings matching ids; missing ids are skipped.
func (s *GormStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []ListingModel
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

// IncrementViews bumps the view counter by one.
func (s *GormStore) IncrementViews(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&ListingModel{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// SetFeatured toggles the featured flag (administrative path).
func (s *GormStore) SetFeatured(ctx context.Context, id string, featured bool) error {
	return s.db.WithContext(ctx).Model(&ListingModel{}).
		Where("id = ?", id).
		UpdateColumn("featured", featured).Error
}

func fromModels(models []ListingModel) []domain.Listing {
	res := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		res = append(res, listingFromModel(m))
	}
	return res
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}
