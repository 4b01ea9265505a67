// internal/services/ledger_service_test.go
package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/models"
)

const (
	operatorAddress = "0x0000000000000000000000000000000000000001"
	treasuryAddress = "0x0000000000000000000000000000000000000002"
	sellerAddress   = "0x00000000000000000000000000000000000000aa"
	aliceAddress    = "0x00000000000000000000000000000000000000bb"
	bobAddress      = "0x00000000000000000000000000000000000000cc"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Token: config.TokenConfig{
			Symbol:          "AIM",
			OperatorAddress: operatorAddress,
			TreasuryAddress: treasuryAddress,
			InitialSupply:   1_000_000,
		},
	}
}

type LedgerServiceTestSuite struct {
	suite.Suite
	db     *gorm.DB
	tokens *TokenService
	ledger *LedgerService
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	cfg := testConfig()
	suite.db = setupTestDB(suite.T())
	suite.tokens = NewTokenService(suite.db, cfg)
	suite.ledger = NewLedgerService(suite.db, suite.tokens, NewReceiptService(suite.db), cfg)
}

func (suite *LedgerServiceTestSuite) listModel(price uint64) *models.ModelListing {
	listing, err := suite.ledger.ListModel(sellerAddress, &ListModelRequest{
		Name:          "GPT Classifier",
		Description:   "A fine-tuned text classifier",
		Price:         price,
		FileReference: "ipfs://QmTestHash",
	})
	suite.Require().NoError(err)
	return listing
}

func (suite *LedgerServiceTestSuite) fund(address string, balance, allowance uint64) {
	suite.Require().NoError(suite.tokens.Mint(suite.db, address, balance))
	suite.Require().NoError(suite.tokens.Approve(address, operatorAddress, allowance))
}

func (suite *LedgerServiceTestSuite) balanceOf(address string) uint64 {
	balance, err := suite.tokens.BalanceOf(suite.db, address)
	suite.Require().NoError(err)
	return balance
}

func (suite *LedgerServiceTestSuite) TestListModelAssignsSequentialIDs() {
	for i := uint64(1); i <= 3; i++ {
		listing := suite.listModel(100)
		suite.Equal(i, listing.ID)
	}

	count, err := suite.ledger.GetModelCount()
	suite.NoError(err)
	suite.Equal(uint64(3), count)
}

func (suite *LedgerServiceTestSuite) TestDeletionDoesNotReuseIDs() {
	suite.listModel(100)
	second := suite.listModel(100)

	suite.NoError(suite.ledger.DeleteModel(sellerAddress, second.ID))

	third := suite.listModel(100)
	suite.Equal(uint64(3), third.ID)

	// Count reports the highest id ever allocated, not live listings
	count, err := suite.ledger.GetModelCount()
	suite.NoError(err)
	suite.Equal(uint64(3), count)
}

func (suite *LedgerServiceTestSuite) TestListModelValidation() {
	_, err := suite.ledger.ListModel(sellerAddress, &ListModelRequest{
		Name:          "",
		Description:   "desc",
		Price:         100,
		FileReference: "ref",
	})
	suite.Error(err)

	_, err = suite.ledger.ListModel(sellerAddress, &ListModelRequest{
		Name:          "Model",
		Description:   "desc",
		Price:         0,
		FileReference: "ref",
	})
	suite.Error(err)
}

func (suite *LedgerServiceTestSuite) TestGetModelUnknownID() {
	_, err := suite.ledger.GetModel(42)
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestBuyModelSuccess() {
	listing := suite.listModel(100)
	suite.fund(aliceAddress, 100, 100)

	transaction, err := suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.Require().NoError(err)

	suite.Equal(uint64(0), suite.balanceOf(aliceAddress))
	suite.Equal(uint64(100), suite.balanceOf(sellerAddress))
	suite.Equal(models.TransactionStatusCompleted, transaction.Status)
	suite.NotEmpty(transaction.ReceiptHash)

	reloaded, err := suite.ledger.GetModel(listing.ID)
	suite.Require().NoError(err)
	suite.True(reloaded.IsSold)

	// Allowance was consumed by the transfer
	allowance, err := suite.tokens.Allowance(suite.db, aliceAddress, operatorAddress)
	suite.NoError(err)
	suite.Equal(uint64(0), allowance)
}

func (suite *LedgerServiceTestSuite) TestBuyModelSoldIsSticky() {
	listing := suite.listModel(100)
	suite.fund(aliceAddress, 200, 200)
	suite.fund(bobAddress, 200, 200)

	_, err := suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.Require().NoError(err)

	_, err = suite.ledger.BuyModel(bobAddress, listing.ID)
	suite.ErrorIs(err, ErrAlreadySold)

	// A sold listing can never be deleted
	suite.ErrorIs(suite.ledger.DeleteModel(sellerAddress, listing.ID), ErrAlreadySold)
}

func (suite *LedgerServiceTestSuite) TestBuyModelSelfPurchaseRejected() {
	listing := suite.listModel(100)
	suite.fund(sellerAddress, 1000, 1000)

	_, err := suite.ledger.BuyModel(sellerAddress, listing.ID)
	suite.ErrorIs(err, ErrSelfPurchase)
}

func (suite *LedgerServiceTestSuite) TestBuyModelInsufficientBalance() {
	listing := suite.listModel(100)
	suite.fund(aliceAddress, 50, 100)

	_, err := suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.ErrorIs(err, ErrInsufficientFunds)

	// Escrow atomicity: nothing moved, nothing flipped
	suite.Equal(uint64(50), suite.balanceOf(aliceAddress))
	suite.Equal(uint64(0), suite.balanceOf(sellerAddress))

	reloaded, err := suite.ledger.GetModel(listing.ID)
	suite.Require().NoError(err)
	suite.False(reloaded.IsSold)
}

func (suite *LedgerServiceTestSuite) TestBuyModelInsufficientAllowance() {
	listing := suite.listModel(100)
	suite.fund(aliceAddress, 100, 50)

	_, err := suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.ErrorIs(err, ErrInsufficientFunds)

	suite.Equal(uint64(100), suite.balanceOf(aliceAddress))

	reloaded, err := suite.ledger.GetModel(listing.ID)
	suite.Require().NoError(err)
	suite.False(reloaded.IsSold)
}

func (suite *LedgerServiceTestSuite) TestDeleteModel() {
	listing := suite.listModel(100)

	suite.NoError(suite.ledger.DeleteModel(sellerAddress, listing.ID))

	// Historical record survives with exists=false
	reloaded, err := suite.ledger.GetModel(listing.ID)
	suite.Require().NoError(err)
	suite.False(reloaded.Exists)

	// Every further mutation fails with NotFound
	suite.ErrorIs(suite.ledger.DeleteModel(sellerAddress, listing.ID), ErrNotFound)
	_, err = suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.ErrorIs(err, ErrNotFound)
	suite.ErrorIs(suite.ledger.RateModel(aliceAddress, listing.ID, 5), ErrNotFound)
}

func (suite *LedgerServiceTestSuite) TestDeleteModelForbiddenForNonSeller() {
	listing := suite.listModel(100)
	suite.ErrorIs(suite.ledger.DeleteModel(aliceAddress, listing.ID), ErrForbidden)
}

func (suite *LedgerServiceTestSuite) TestRateModelRequiresSale() {
	listing := suite.listModel(100)
	suite.ErrorIs(suite.ledger.RateModel(aliceAddress, listing.ID, 5), ErrNotYetPurchased)
}

func (suite *LedgerServiceTestSuite) TestRateModelStarsRange() {
	listing := suite.listModel(100)
	suite.ErrorIs(suite.ledger.RateModel(aliceAddress, listing.ID, 0), ErrInvalidRating)
	suite.ErrorIs(suite.ledger.RateModel(aliceAddress, listing.ID, 6), ErrInvalidRating)
}

func (suite *LedgerServiceTestSuite) TestRateModelAggregation() {
	listing := suite.listModel(100)
	suite.fund(aliceAddress, 100, 100)
	_, err := suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.Require().NoError(err)

	suite.NoError(suite.ledger.RateModel(aliceAddress, listing.ID, 5))
	suite.NoError(suite.ledger.RateModel(bobAddress, listing.ID, 4))

	reloaded, err := suite.ledger.GetModel(listing.ID)
	suite.Require().NoError(err)
	suite.Equal(uint64(9), reloaded.TotalRating)
	suite.Equal(uint64(2), reloaded.RatingCount)
	suite.InDelta(4.5, reloaded.AverageRating(), 0.0001)
}

func (suite *LedgerServiceTestSuite) TestRateModelOncePerAccount() {
	listing := suite.listModel(100)
	suite.fund(aliceAddress, 100, 100)
	_, err := suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.Require().NoError(err)

	suite.NoError(suite.ledger.RateModel(aliceAddress, listing.ID, 5))
	suite.ErrorIs(suite.ledger.RateModel(aliceAddress, listing.ID, 4), ErrAlreadyRated)

	rated, err := suite.ledger.HasRated(listing.ID, aliceAddress)
	suite.NoError(err)
	suite.True(rated)

	rated, err = suite.ledger.HasRated(listing.ID, bobAddress)
	suite.NoError(err)
	suite.False(rated)
}

// Full walk through the purchase and rating lifecycle.
func (suite *LedgerServiceTestSuite) TestMarketplaceLifecycle() {
	listing, err := suite.ledger.ListModel(sellerAddress, &ListModelRequest{
		Name:          "M1",
		Description:   "d",
		Price:         100,
		FileReference: "ref",
	})
	suite.Require().NoError(err)
	suite.Equal(uint64(1), listing.ID)

	suite.fund(aliceAddress, 100, 100)

	_, err = suite.ledger.BuyModel(aliceAddress, listing.ID)
	suite.Require().NoError(err)
	suite.Equal(uint64(100), suite.balanceOf(sellerAddress))

	suite.NoError(suite.ledger.RateModel(aliceAddress, listing.ID, 5))

	reloaded, err := suite.ledger.GetModel(listing.ID)
	suite.Require().NoError(err)
	suite.Equal(uint64(5), reloaded.TotalRating)
	suite.Equal(uint64(1), reloaded.RatingCount)
	suite.InDelta(5.0, reloaded.AverageRating(), 0.0001)

	suite.ErrorIs(suite.ledger.RateModel(aliceAddress, listing.ID, 4), ErrAlreadyRated)
	suite.ErrorIs(suite.ledger.DeleteModel(sellerAddress, listing.ID), ErrAlreadySold)
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func TestAverageRatingEmpty(t *testing.T) {
	listing := &models.ModelListing{}
	assert.Equal(t, 0.0, listing.AverageRating())
}
