package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homeportal/pkg/domain"
)

const listingsCollection = "properties"

// MongoStore implements Store on a MongoDB collection, mirroring the hosted
// document database the portal originally wrote listings into.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the listings collection.
func NewMongoStore(uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	col := client.Database(database).Collection(listingsCollection)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sellerId", Value: 1}}},
		{Keys: bson.D{{Key: "propertyType", Value: 1}, {Key: "listingType", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return &MongoStore{col: col}, nil
}

type listingDoc struct {
	ID           string    `bson:"_id"`
	Title        string    `bson:"title"`
	Description  string    `bson:"description"`
	PropertyType string    `bson:"propertyType"`
	ListingType  string    `bson:"listingType"`
	Price        float64   `bson:"price"`
	Area         float64   `bson:"area"`
	Bedrooms     int       `bson:"bedrooms"`
	Bathrooms    int       `bson:"bathrooms"`
	Location     string    `bson:"location"`
	Photos       []string  `bson:"photos"`
	SellerID     string    `bson:"sellerId"`
	SellerName   string    `bson:"sellerName,omitempty"`
	SellerEmail  string    `bson:"sellerEmail,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	Featured     bool      `bson:"featured"`
	Views        int64     `bson:"views"`
}

func listingToDoc(l domain.Listing) listingDoc {
	return listingDoc{
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
		Photos:       l.Photos,
		SellerID:     l.SellerID,
		SellerName:   l.SellerName,
		SellerEmail:  l.SellerEmail,
		CreatedAt:    l.CreatedAt,
		Featured:     l.Featured,
		Views:        l.Views,
	}
}

func listingFromDoc(d listingDoc) domain.Listing {
	return domain.Listing{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		PropertyType: domain.PropertyType(d.PropertyType),
		ListingType:  domain.ListingType(d.ListingType),
		Price:        d.Price,
		Area:         d.Area,
		Bedrooms:     d.Bedrooms,
		Bathrooms:    d.Bathrooms,
		Location:     d.Location,
		Photos:       d.Photos,
		SellerID:     d.SellerID,
		SellerName:   d.SellerName,
		SellerEmail:  d.SellerEmail,
		CreatedAt:    d.CreatedAt,
		Featured:     d.Featured,
		Views:        d.Views,
	}
}

// CreateListing inserts exactly one new listing document. Inserting an
// existing id fails; creation never updates.
func (s *MongoStore) CreateListing(ctx context.Context, l domain.Listing) error {
	if len(l.Photos) == 0 {
		return ErrNoPhotos
	}
	if _, err := s.col.InsertOne(ctx, listingToDoc(l)); err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// GetListing retrieves a listing by id.
func (s *MongoStore) GetListing(ctx context.Context, id string) (domain.Listing, bool, error) {
	var doc listingDoc
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.Listing{}, false, nil
	}
	if err != nil {
		return domain.Listing{}, false, err
	}
	return listingFromDoc(doc), true, nil
}

// SearchListings applies the filter and returns matching listings.
func (s *MongoStore) SearchListings(ctx context.Context, f Filter) ([]domain.Listing, error) {
	query := bson.M{}
	if f.PropertyType != "" {
		query["propertyType"] = string(f.PropertyType)
	}
	if f.ListingType != "" {
		query["listingType"] = string(f.ListingType)
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}
	if f.Bedrooms != nil {
		if f.BedroomsAtLeast {
			query["bedrooms"] = bson.M{"$gte": *f.Bedrooms}
		} else {
			query["bedrooms"] = *f.Bedrooms
		}
	}
	if f.Keyword != "" {
		pattern := bson.M{"$regex": f.Keyword, "$options": "i"}
		query["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"location": pattern}}
	}
	if f.Featured != nil {
		query["featured"] = *f.Featured
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	if f.MinPrice != nil || f.MaxPrice != nil {
		sort = bson.D{{Key: "price", Value: 1}}
	}
	opts := options.Find().SetSort(sort)
	if f.Limit > 0 {
		opts = opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts = opts.SetSkip(int64(f.Offset))
	}
	return s.find(ctx, query, opts)
}

// ListByOwner returns the seller's listings, newest first.
func (s *MongoStore) ListByOwner(ctx context.Context, sellerID string) ([]domain.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.find(ctx, bson.M{"sellerId": sellerID}, opts)
}

// ListByIDs returns the listings matching ids; missing ids are skipped.
func (s *MongoStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

// IncrementViews bumps the view counter by one.
func (s *MongoStore) IncrementViews(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"views": 1}})
	return err
}

// SetFeatured toggles the featured flag (administrative path).
func (s *MongoStore) SetFeatured(ctx context.Context, id string, featured bool) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"featured": featured}})
	return err
}

func (s *MongoStore) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]domain.Listing, error) {
	cur, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.Listing
	for cur.Next(ctx) {
		var doc listingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, listingFromDoc(doc))
	}
	return out, cur.Err()
}
