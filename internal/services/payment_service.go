// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/models"
	"github.com/aimodelmarket/marketplace-backend/internal/utils"
)

// PaymentService handles fiat top-ups: a Stripe payment intent is created for
// a USD amount, and once Stripe confirms it the equivalent tokens are released
// from the treasury to the payer's wallet.
type PaymentService struct {
	db           *gorm.DB
	tokenService *TokenService
	cfg          *config.Config
}

type CreatePaymentIntentRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=50"`
	Currency    string `json:"currency,omitempty"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	TokenAmount  uint64 `json:"token_amount"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

func NewPaymentService(db *gorm.DB, tokenService *TokenService, cfg *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = cfg.Payment.StripeSecretKey

	return &PaymentService{
		db:           db,
		tokenService: tokenService,
		cfg:          cfg,
	}
}

func (s *PaymentService) CreatePaymentIntent(walletAddress string, req *CreatePaymentIntentRequest) (*PaymentIntentResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Set default currency
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	tokenAmount := uint64(req.AmountCents) * s.cfg.Payment.TokensPerUSDCent

	// Create Stripe PaymentIntent
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("wallet_address", walletAddress)
	params.AddMetadata("token_amount", fmt.Sprintf("%d", tokenAmount))

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
		TokenAmount:  tokenAmount,
	}, nil
}

// ConfirmPayment checks the payment intent with Stripe and, when it has
// succeeded, moves the purchased tokens from the treasury to the payer. A
// payment intent releases tokens at most once.
func (s *PaymentService) ConfirmPayment(walletAddress string, req *ConfirmPaymentRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	if pi.Metadata["wallet_address"] != walletAddress {
		return nil, errors.New("payment intent does not belong to this account")
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("payment not completed: status %s", pi.Status)
	}

	tokenAmount := uint64(pi.Amount) * s.cfg.Payment.TokensPerUSDCent

	var transaction *models.Transaction

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Reject replays of an already-credited payment intent
		var count int64
		if err := tx.Model(&models.Transaction{}).
			Where("payment_reference = ?", pi.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if count > 0 {
			return errors.New("payment has already been credited")
		}

		if err := s.tokenService.debit(tx, s.cfg.Token.TreasuryAddress, tokenAmount); err != nil {
			return err
		}
		if err := s.tokenService.credit(tx, walletAddress, tokenAmount); err != nil {
			return err
		}

		now := time.Now()
		transaction = &models.Transaction{
			TransactionType:  models.TransactionTypeTokenTopUp,
			BuyerAddress:     walletAddress,
			SellerAddress:    s.cfg.Token.TreasuryAddress,
			Amount:           tokenAmount,
			PaymentReference: pi.ID,
			Status:           models.TransactionStatusCompleted,
			ProcessedAt:      &now,
		}

		return tx.Create(transaction).Error
	})

	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *PaymentService) GetPaymentHistory(walletAddress string, params utils.PaginationParams) ([]models.Transaction, int64, error) {
	query := s.db.Model(&models.Transaction{}).
		Where("buyer_address = ? OR seller_address = ?", walletAddress, walletAddress)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var transactions []models.Transaction
	if err := query.Preload("Model").Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}
