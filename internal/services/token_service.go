// internal/services/token_service.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/models"
)

// TokenService is the fungible token ledger the marketplace settles purchases
// against. It exposes ERC-20-shaped operations: balanceOf, allowance, approve,
// transfer, transferFrom and mint. Mutations run inside the transaction handle
// they are given, so callers can make a token transfer and their own state
// change atomic by passing the same one.
type TokenService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewTokenService(db *gorm.DB, cfg *config.Config) *TokenService {
	return &TokenService{
		db:  db,
		cfg: cfg,
	}
}

// BalanceOf returns the balance for an address. Unknown addresses hold zero.
func (s *TokenService) BalanceOf(db *gorm.DB, address string) (uint64, error) {
	var account models.TokenAccount
	if err := db.First(&account, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("database error: %w", err)
	}
	return account.Balance, nil
}

// Allowance returns how much spender may move on owner's behalf.
func (s *TokenService) Allowance(db *gorm.DB, owner, spender string) (uint64, error) {
	var allowance models.TokenAllowance
	if err := db.First(&allowance, "owner = ? AND spender = ?", owner, spender).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("database error: %w", err)
	}
	return allowance.Amount, nil
}

// Approve sets (not increments) the allowance of spender over owner's funds.
func (s *TokenService) Approve(owner, spender string, amount uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var allowance models.TokenAllowance
		err := lockForUpdate(tx).
			First(&allowance, "owner = ? AND spender = ?", owner, spender).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			allowance = models.TokenAllowance{Owner: owner, Spender: spender, Amount: amount}
			return tx.Create(&allowance).Error
		}
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		return tx.Model(&allowance).Update("amount", amount).Error
	})
}

// Mint credits newly issued tokens to an address.
func (s *TokenService) Mint(db *gorm.DB, address string, amount uint64) error {
	return s.credit(db, address, amount)
}

// Transfer moves tokens directly between two addresses.
func (s *TokenService) Transfer(from, to string, amount uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.debit(tx, from, amount); err != nil {
			return err
		}
		return s.credit(tx, to, amount)
	})
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming allowance. Both the allowance and the balance must cover the
// amount or the call fails with ErrInsufficientFunds and no state changes.
func (s *TokenService) TransferFrom(tx *gorm.DB, owner, spender, recipient string, amount uint64) error {
	var allowance models.TokenAllowance
	err := lockForUpdate(tx).
		First(&allowance, "owner = ? AND spender = ?", owner, spender).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if allowance.Amount < amount {
		return ErrInsufficientFunds
	}

	if err := s.debit(tx, owner, amount); err != nil {
		return err
	}
	if err := s.credit(tx, recipient, amount); err != nil {
		return err
	}

	if err := tx.Model(&allowance).
		Update("amount", gorm.Expr("amount - ?", amount)).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	return nil
}

func (s *TokenService) debit(tx *gorm.DB, address string, amount uint64) error {
	var account models.TokenAccount
	err := lockForUpdate(tx).
		First(&account, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if account.Balance < amount {
		return ErrInsufficientFunds
	}

	if err := tx.Model(&account).
		Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

func (s *TokenService) credit(tx *gorm.DB, address string, amount uint64) error {
	var account models.TokenAccount
	err := lockForUpdate(tx).
		First(&account, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.TokenAccount{Address: address, Balance: amount}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if err := tx.Model(&account).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}
