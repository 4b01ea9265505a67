// internal/services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/models"
	"github.com/aimodelmarket/marketplace-backend/internal/utils"
)

// LedgerService owns the marketplace listing ledger: id allocation, the
// purchase escrow flow, soft deletion and rating aggregation. Every mutation
// runs inside a single database transaction with the affected rows locked, so
// callers observe serializable behavior.
type LedgerService struct {
	db           *gorm.DB
	tokenService *TokenService
	receipts     *ReceiptService
	operator     string
}

type ListModelRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=255"`
	Description   string   `json:"description" validate:"required,min=1"`
	Price         uint64   `json:"price" validate:"required,min=1"`
	FileReference string   `json:"file_reference" validate:"required,max=512"`
	Tags          []string `json:"tags,omitempty"`
}

type RateModelRequest struct {
	Stars uint8 `json:"stars" validate:"required"`
}

func NewLedgerService(db *gorm.DB, tokenService *TokenService, receipts *ReceiptService, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:           db,
		tokenService: tokenService,
		receipts:     receipts,
		operator:     cfg.Token.OperatorAddress,
	}
}

// ListModel allocates the next sequential listing id and stores the record.
// Ids start at 1, never repeat and never leave gaps; the counter row is bumped
// in the same transaction as the insert.
func (s *LedgerService) ListModel(sellerAddress string, req *ListModelRequest) (*models.ModelListing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var listing *models.ModelListing

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var counter models.SequenceCounter
		if err := lockForUpdate(tx).
			Where(models.SequenceCounter{Name: models.ListingCounterName}).
			FirstOrCreate(&counter).Error; err != nil {
			return fmt.Errorf("failed to load listing counter: %w", err)
		}

		if counter.Value == math.MaxUint64 {
			return errors.New("listing id space exhausted")
		}

		nextID := counter.Value + 1
		if err := tx.Model(&counter).Update("value", nextID).Error; err != nil {
			return fmt.Errorf("failed to advance listing counter: %w", err)
		}

		listing = &models.ModelListing{
			ID:            nextID,
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			FileReference: req.FileReference,
			SellerAddress: sellerAddress,
			Tags:          req.Tags,
			Exists:        true,
			IsSold:        false,
		}

		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("failed to create listing: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return listing, nil
}

// GetModelCount returns the highest id ever allocated, not the number of
// currently existing listings. Clients enumerate 1..count and skip records
// with exists=false.
func (s *LedgerService) GetModelCount() (uint64, error) {
	var counter models.SequenceCounter
	err := s.db.First(&counter, "name = ?", models.ListingCounterName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	return counter.Value, nil
}

// GetModel returns the record for any allocated id, including soft-deleted
// ones (exists=false), so deleted ids stay distinguishable from never
// allocated ones. Unknown ids fail with ErrNotFound.
func (s *LedgerService) GetModel(id uint64) (*models.ModelListing, error) {
	var listing models.ModelListing
	if err := s.db.First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &listing, nil
}

// BuyModel performs the escrow flow: precondition checks, token transfer from
// buyer to seller through the marketplace operator's allowance, then the
// is_sold flip, all in one transaction. A failed transfer leaves every balance
// and the listing untouched; a successful one always marks the listing sold.
func (s *LedgerService) BuyModel(buyerAddress string, id uint64) (*models.Transaction, error) {
	var transaction *models.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var listing models.ModelListing
		if err := lockForUpdate(tx).
			First(&listing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		// Precondition order is part of the contract: first failure wins.
		if !listing.Exists {
			return ErrNotFound
		}
		if listing.IsSold {
			return ErrAlreadySold
		}
		if buyerAddress == listing.SellerAddress {
			return ErrSelfPurchase
		}

		allowance, err := s.tokenService.Allowance(tx, buyerAddress, s.operator)
		if err != nil {
			return err
		}
		balance, err := s.tokenService.BalanceOf(tx, buyerAddress)
		if err != nil {
			return err
		}
		if allowance < listing.Price || balance < listing.Price {
			return ErrInsufficientFunds
		}

		if err := s.tokenService.TransferFrom(tx, buyerAddress, s.operator, listing.SellerAddress, listing.Price); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}

		if err := tx.Model(&listing).Update("is_sold", true).Error; err != nil {
			return fmt.Errorf("failed to mark listing sold: %w", err)
		}

		receiptHash, err := s.receipts.PurchaseRecordHash(tx, listing.ID, buyerAddress, listing.SellerAddress, listing.Price)
		if err != nil {
			return fmt.Errorf("failed to generate receipt: %w", err)
		}

		now := time.Now()
		modelID := listing.ID
		transaction = &models.Transaction{
			TransactionType: models.TransactionTypeModelSale,
			BuyerAddress:    buyerAddress,
			SellerAddress:   listing.SellerAddress,
			ModelID:         &modelID,
			Amount:          listing.Price,
			ReceiptHash:     receiptHash,
			Status:          models.TransactionStatusCompleted,
			ProcessedAt:     &now,
		}

		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// DeleteModel soft-deletes an unsold listing. Only the seller may delete, and
// a sold listing can never be deleted; buyers keep their purchase history and
// rating eligibility.
func (s *LedgerService) DeleteModel(callerAddress string, id uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var listing models.ModelListing
		if err := lockForUpdate(tx).
			First(&listing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !listing.Exists {
			return ErrNotFound
		}
		if callerAddress != listing.SellerAddress {
			return ErrForbidden
		}
		if listing.IsSold {
			return ErrAlreadySold
		}

		if err := tx.Model(&listing).Update("exists", false).Error; err != nil {
			return fmt.Errorf("failed to delete listing: %w", err)
		}

		return nil
	})
}

// RateModel records a 1-5 star rating. A listing must be sold before it can be
// rated, and each account rates a listing at most once. Any account may rate
// once the listing is sold; only has_rated is checked, not buyer identity.
func (s *LedgerService) RateModel(raterAddress string, id uint64, stars uint8) error {
	if stars < 1 || stars > 5 {
		return ErrInvalidRating
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var listing models.ModelListing
		if err := lockForUpdate(tx).
			First(&listing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !listing.Exists {
			return ErrNotFound
		}
		if !listing.IsSold {
			return ErrNotYetPurchased
		}

		var existing int64
		if err := tx.Model(&models.Rating{}).
			Where("model_id = ? AND rater_address = ?", id, raterAddress).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyRated
		}

		rating := &models.Rating{
			ModelID:      id,
			RaterAddress: raterAddress,
			Stars:        stars,
		}
		if err := tx.Create(rating).Error; err != nil {
			return fmt.Errorf("failed to record rating: %w", err)
		}

		if err := tx.Model(&listing).Updates(map[string]interface{}{
			"total_rating": gorm.Expr("total_rating + ?", uint64(stars)),
			"rating_count": gorm.Expr("rating_count + 1"),
		}).Error; err != nil {
			return fmt.Errorf("failed to update rating aggregate: %w", err)
		}

		return nil
	})
}

// HasRated reports whether an account has already rated a listing. Pure
// membership query on the rating relation.
func (s *LedgerService) HasRated(id uint64, account string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Rating{}).
		Where("model_id = ? AND rater_address = ?", id, account).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	return count > 0, nil
}

// GetSellerListings returns a seller's own listings, deleted ones included.
func (s *LedgerService) GetSellerListings(sellerAddress string, params utils.PaginationParams) ([]models.ModelListing, int64, error) {
	query := s.db.Model(&models.ModelListing{}).Where("seller_address = ?", sellerAddress)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name", "price"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var listings []models.ModelListing
	if err := query.Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch listings: %w", err)
	}

	return listings, total, nil
}
