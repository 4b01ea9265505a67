// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.ModelListing{},
		&models.Rating{},
		&models.SequenceCounter{},
		&models.TokenAccount{},
		&models.TokenAllowance{},
		&models.Transaction{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Listing indexes
		"CREATE INDEX IF NOT EXISTS idx_model_listings_seller ON model_listings(seller_address)",
		"CREATE INDEX IF NOT EXISTS idx_model_listings_flags ON model_listings(\"exists\", is_sold)",
		"CREATE INDEX IF NOT EXISTS idx_model_listings_created_at ON model_listings(created_at DESC)",

		// Rating indexes
		"CREATE INDEX IF NOT EXISTS idx_ratings_model ON ratings(model_id)",

		// Token indexes
		"CREATE INDEX IF NOT EXISTS idx_token_allowances_owner ON token_allowances(owner)",

		// Transaction indexes
		"CREATE INDEX IF NOT EXISTS idx_transactions_buyer ON transactions(buyer_address)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_seller ON transactions(seller_address)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_type_status ON transactions(transaction_type, status)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the listing counter, the treasury token account and
// the default admin user. Runs in one transaction so a partially seeded
// database cannot be observed; safe to call on every startup.
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	log.Println("Seeding initial data...")

	err := WithTransaction(db, func(tx *gorm.DB) error {
		// Listing id counter
		counter := models.SequenceCounter{Name: models.ListingCounterName, Value: 0}
		if err := tx.Where(models.SequenceCounter{Name: models.ListingCounterName}).
			FirstOrCreate(&counter).Error; err != nil {
			return fmt.Errorf("failed to seed listing counter: %w", err)
		}

		// Treasury account holds the initial token supply
		var treasuryCount int64
		tx.Model(&models.TokenAccount{}).Where("address = ?", cfg.Token.TreasuryAddress).Count(&treasuryCount)

		if treasuryCount == 0 {
			treasury := &models.TokenAccount{
				Address: cfg.Token.TreasuryAddress,
				Balance: cfg.Token.InitialSupply,
			}
			if err := tx.Create(treasury).Error; err != nil {
				return fmt.Errorf("failed to create treasury account: %w", err)
			}
			log.Println("Treasury token account created successfully")
		}

		// Default admin user
		var adminCount int64
		tx.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

		if adminCount == 0 {
			admin := &models.User{
				Username:      "admin",
				Email:         "admin@modelmarketplace.com",
				WalletAddress: cfg.Token.OperatorAddress,
				UserType:      models.UserTypeAdmin,
				Status:        models.UserStatusActive,
				ProfileData: models.JSONB{
					"first_name": "System",
					"last_name":  "Administrator",
					"role":       "super_admin",
				},
			}

			if err := admin.SetPassword("admin123!@#"); err != nil {
				return fmt.Errorf("failed to set admin password: %w", err)
			}

			if err := tx.Create(admin).Error; err != nil {
				return fmt.Errorf("failed to create admin user: %w", err)
			}

			log.Println("Default admin user created successfully")
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
