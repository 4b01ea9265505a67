// internal/database/connection_test.go
package database

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/models"
)

func setupMigratedDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ModelListing{},
		&models.Rating{},
		&models.SequenceCounter{},
		&models.TokenAccount{},
		&models.TokenAllowance{},
		&models.Transaction{},
	))

	return db
}

func seedConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Token: config.TokenConfig{
			Symbol:          "AIM",
			OperatorAddress: "0x0000000000000000000000000000000000000001",
			TreasuryAddress: "0x0000000000000000000000000000000000000002",
			InitialSupply:   1_000_000,
		},
	}
}

func TestSeedInitialDataIdempotent(t *testing.T) {
	db := setupMigratedDB(t)
	cfg := seedConfig()

	require.NoError(t, SeedInitialData(db, cfg))
	// Second run must not duplicate anything or touch the treasury balance
	require.NoError(t, SeedInitialData(db, cfg))

	var counter models.SequenceCounter
	require.NoError(t, db.First(&counter, "name = ?", models.ListingCounterName).Error)
	assert.Equal(t, uint64(0), counter.Value)

	var treasury models.TokenAccount
	require.NoError(t, db.First(&treasury, "address = ?", cfg.Token.TreasuryAddress).Error)
	assert.Equal(t, cfg.Token.InitialSupply, treasury.Balance)

	var admins int64
	require.NoError(t, db.Model(&models.User{}).
		Where("user_type = ?", models.UserTypeAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := setupMigratedDB(t)
	boom := errors.New("seed step failed")

	err := WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.TokenAccount{
			Address: "0x00000000000000000000000000000000000000ff",
			Balance: 42,
		}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.TokenAccount{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
