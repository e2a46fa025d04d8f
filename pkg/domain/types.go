package domain

import "time"

type PropertyType string

const (
	PropertyApartment PropertyType = "Apartment"
	PropertyHouse     PropertyType = "House"
	PropertyPlot      PropertyType = "Plot"
	PropertyShop      PropertyType = "Shop"
)

type ListingType string

const (
	ListingSell ListingType = "Sell"
	ListingRent ListingType = "Rent"
)

// Identity is a verified user identity obtained by exchanging a bearer token.
// Name and Email may be empty when the auth provider does not supply them.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Listing is a persisted property-for-sale-or-rent record.
// Seller fields always come from the verified identity, never from the client.
type Listing struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	PropertyType PropertyType `json:"propertyType"`
	ListingType  ListingType  `json:"listingType"`
	Price        float64      `json:"price"`
	Area         float64      `json:"area"`
	Bedrooms     int          `json:"bedrooms"`
	Bathrooms    int          `json:"bathrooms"`
	Location     string       `json:"location"`
	Photos       []string     `json:"photos"`
	SellerID     string       `json:"sellerId"`
	SellerName   string       `json:"sellerName,omitempty"`
	SellerEmail  string       `json:"sellerEmail,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	Featured     bool         `json:"featured"`
	Views        int64        `json:"views"`
}

// ListingForm holds the client-supplied scalar fields of a submission.
type ListingForm struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	PropertyType PropertyType `json:"propertyType"`
	ListingType  ListingType  `json:"listingType"`
	Price        float64      `json:"price"`
	Area         float64      `json:"area"`
	Bedrooms     int          `json:"bedrooms"`
	Bathrooms    int          `json:"bathrooms"`
	Location     string       `json:"location"`
}

// ValidPropertyType reports whether the value is a known property type.
func ValidPropertyType(t PropertyType) bool {
	switch t {
	case PropertyApartment, PropertyHouse, PropertyPlot, PropertyShop:
		return true
	}
	return false
}

// ValidListingType reports whether the value is a known listing type.
func ValidListingType(t ListingType) bool {
	switch t {
	case ListingSell, ListingRent:
		return true
	}
	return false
}
