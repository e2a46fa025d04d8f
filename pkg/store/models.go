package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"homeportal/pkg/domain"
)

// GORM model used for persistence. Photos are stored as a JSON array so the
// submitted order survives round-trips (first photo is the cover image).
type ListingModel struct {
	ID           string  `gorm:"primaryKey"`
	Title        string  `gorm:"not null"`
	Description  string  `gorm:"type:text;not null"`
	PropertyType string  `gorm:"not null;index"`
	ListingType  string  `gorm:"not null;index"`
	Price        float64 `gorm:"not null;index"`
	Area         float64 `gorm:"not null"`
	Bedrooms     int     `gorm:"not null"`
	Bathrooms    int     `gorm:"not null"`
	Location     string  `gorm:"not null"`
	Photos       datatypes.JSON `gorm:"type:jsonb;not null"`
	SellerID     string  `gorm:"not null;index"`
	SellerName   string
	SellerEmail  string
	CreatedAt    time.Time `gorm:"not null;index"`
	Featured     bool      `gorm:"not null;default:false;index"`
	Views        int64     `gorm:"not null;default:0"`
}

func listingToModel(l domain.Listing) (ListingModel, error) {
	photos, err := json.Marshal(l.Photos)
	if err != nil {
		return ListingModel{}, err
	}
	return ListingModel{
		ID:           l.ID,
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: string(l.PropertyType),
		ListingType:  string(l.ListingType),
		Price:        l.Price,
		Area:         l.Area,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		Location:     l.Location,
		Photos:       datatypes.JSON(photos),
		SellerID:     l.SellerID,
		SellerName:   l.SellerName,
		SellerEmail:  l.SellerEmail,
		CreatedAt:    l.CreatedAt,
		Featured:     l.Featured,
		Views:        l.Views,
	}, nil
}

func listingFromModel(m ListingModel) domain.Listing {
	var photos []string
	_ = json.Unmarshal(m.Photos, &photos)
	return domain.Listing{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		PropertyType: domain.PropertyType(m.PropertyType),
		ListingType:  domain.ListingType(m.ListingType),
		Price:        m.Price,
		Area:         m.Area,
		Bedrooms:     m.Bedrooms,
		Bathrooms:    m.Bathrooms,
		Location:     m.Location,
		Photos:       photos,
		SellerID:     m.SellerID,
		SellerName:   m.SellerName,
		SellerEmail:  m.SellerEmail,
		CreatedAt:    m.CreatedAt,
		Featured:     m.Featured,
		Views:        m.Views,
	}
}
