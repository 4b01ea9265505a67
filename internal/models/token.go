// internal/models/token.go
package models

import "time"

// TokenAccount holds the fungible-token balance for one address, in the
// token's smallest unit.
type TokenAccount struct {
	Address   string    `json:"address" gorm:"primaryKey;size:42"`
	Balance   uint64    `json:"balance" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TokenAccount) TableName() string {
	return "token_accounts"
}

// TokenAllowance mirrors ERC-20 allowance semantics: Owner permits Spender to
// move up to Amount on its behalf.
type TokenAllowance struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Owner     string    `json:"owner" gorm:"size:42;not null;uniqueIndex:idx_allowances_owner_spender"`
	Spender   string    `json:"spender" gorm:"size:42;not null;uniqueIndex:idx_allowances_owner_spender"`
	Amount    uint64    `json:"amount" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TokenAllowance) TableName() string {
	return "token_allowances"
}
