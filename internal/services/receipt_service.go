// internal/services/receipt_service.go
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aimodelmarket/marketplace-backend/internal/models"
)

// ReceiptService produces tamper-evident receipt hashes for completed
// purchases. Each receipt chains on the previous one, so rewriting any
// historical sale breaks every hash after it.
type ReceiptService struct {
	db *gorm.DB
}

func NewReceiptService(db *gorm.DB) *ReceiptService {
	return &ReceiptService{db: db}
}

// PurchaseRecordHash computes the receipt hash for a sale. Must be called
// inside the purchase transaction so the chain head cannot move underneath it.
func (s *ReceiptService) PurchaseRecordHash(tx *gorm.DB, modelID uint64, buyer, seller string, amount uint64) (string, error) {
	previousHash, err := s.latestHash(tx)
	if err != nil {
		return "", err
	}

	recordData := map[string]interface{}{
		"type":          "model_sale",
		"model_id":      modelID,
		"buyer":         buyer,
		"seller":        seller,
		"amount":        amount,
		"previous_hash": previousHash,
		"timestamp":     time.Now().Unix(),
	}

	return s.generateHash(recordData)
}

// VerifyReceipt resolves a receipt hash back to its transaction.
func (s *ReceiptService) VerifyReceipt(hash string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Model").
		First(&transaction, "receipt_hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("receipt not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &transaction, nil
}

func (s *ReceiptService) latestHash(tx *gorm.DB) (string, error) {
	var last models.Transaction
	err := tx.Where("receipt_hash <> ''").
		Order("created_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}
	return last.ReceiptHash, nil
}

func (s *ReceiptService) generateHash(data map[string]interface{}) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt record: %w", err)
	}

	sum := sha256.Sum256(encoded)
	return "0x" + hex.EncodeToString(sum[:]), nil
}
