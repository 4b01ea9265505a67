// internal/models/listing.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// ModelListing is one entry in the marketplace ledger. IDs are allocated
// sequentially starting at 1 and are never reused; deletion only flips Exists.
type ModelListing struct {
	ID            uint64         `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name          string         `json:"name" gorm:"size:255;not null"`
	Description   string         `json:"description" gorm:"type:text;not null"`
	Price         uint64         `json:"price" gorm:"not null"`
	FileReference string         `json:"file_reference" gorm:"size:512;not null"`
	SellerAddress string         `json:"seller_address" gorm:"size:42;not null;index"`
	Tags          pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	Exists        bool           `json:"exists" gorm:"not null;default:true"`
	IsSold        bool           `json:"is_sold" gorm:"not null;default:false"`
	TotalRating   uint64         `json:"total_rating" gorm:"not null;default:0"`
	RatingCount   uint64         `json:"rating_count" gorm:"not null;default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (ModelListing) TableName() string {
	return "model_listings"
}

// AverageRating is computed on demand; zero while the listing has no ratings.
func (m *ModelListing) AverageRating() float64 {
	if m.RatingCount == 0 {
		return 0
	}
	return float64(m.TotalRating) / float64(m.RatingCount)
}

// Rating records that an account has rated a listing. The composite unique
// index is what enforces at-most-one rating per account per model.
type Rating struct {
	ID           uint64    `json:"id" gorm:"primaryKey"`
	ModelID      uint64    `json:"model_id" gorm:"not null;uniqueIndex:idx_ratings_model_rater"`
	RaterAddress string    `json:"rater_address" gorm:"size:42;not null;uniqueIndex:idx_ratings_model_rater"`
	Stars        uint8     `json:"stars" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Rating) TableName() string {
	return "ratings"
}

// SequenceCounter backs gapless id allocation for the listing ledger.
// It is bumped inside the same transaction that inserts the listing, so the
// sequence stays dense even across rollbacks and restarts.
type SequenceCounter struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value uint64 `gorm:"not null;default:0"`
}

func (SequenceCounter) TableName() string {
	return "sequence_counters"
}

const ListingCounterName = "model_listings"
