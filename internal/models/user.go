// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username      string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string     `json:"-" gorm:"size:255;not null"`
	WalletAddress string     `json:"wallet_address" gorm:"uniqueIndex;size:42;not null"`
	UserType      UserType   `json:"user_type" gorm:"type:varchar(20);not null"`
	Status        UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	AvatarURL     string     `json:"avatar_url,omitempty" gorm:"size:512"`
	ProfileData   JSONB      `json:"profile_data" gorm:"type:jsonb"`
	LastLoginAt   *time.Time `json:"last_login_at"`

	// Relationships
	Listings []ModelListing `json:"listings,omitempty" gorm:"foreignKey:SellerAddress;references:WalletAddress"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
