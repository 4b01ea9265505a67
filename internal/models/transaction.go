// internal/models/transaction.go
package models

import (
	"time"
)

type Transaction struct {
	BaseModel
	TransactionType  TransactionType   `json:"transaction_type" gorm:"type:varchar(20);not null;index"`
	BuyerAddress     string            `json:"buyer_address" gorm:"size:42;not null;index"`
	SellerAddress    string            `json:"seller_address" gorm:"size:42;index"`
	ModelID          *uint64           `json:"model_id" gorm:"index"`
	Amount           uint64            `json:"amount" gorm:"not null"`
	PaymentReference string            `json:"payment_reference" gorm:"size:255"`
	ReceiptHash      string            `json:"receipt_hash" gorm:"size:66;index"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ProcessedAt      *time.Time        `json:"processed_at"`

	// Relationships
	Model *ModelListing `json:"model,omitempty" gorm:"foreignKey:ModelID"`
}
