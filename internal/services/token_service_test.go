// internal/services/token_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type TokenServiceTestSuite struct {
	suite.Suite
	db     *gorm.DB
	tokens *TokenService
}

func (suite *TokenServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.tokens = NewTokenService(suite.db, testConfig())
}

func (suite *TokenServiceTestSuite) TestBalanceOfUnknownAddress() {
	balance, err := suite.tokens.BalanceOf(suite.db, aliceAddress)
	suite.NoError(err)
	suite.Equal(uint64(0), balance)
}

func (suite *TokenServiceTestSuite) TestMintAndTransfer() {
	suite.Require().NoError(suite.tokens.Mint(suite.db, aliceAddress, 500))

	suite.NoError(suite.tokens.Transfer(aliceAddress, bobAddress, 200))

	aliceBalance, err := suite.tokens.BalanceOf(suite.db, aliceAddress)
	suite.NoError(err)
	suite.Equal(uint64(300), aliceBalance)

	bobBalance, err := suite.tokens.BalanceOf(suite.db, bobAddress)
	suite.NoError(err)
	suite.Equal(uint64(200), bobBalance)
}

func (suite *TokenServiceTestSuite) TestTransferInsufficientBalance() {
	suite.Require().NoError(suite.tokens.Mint(suite.db, aliceAddress, 100))

	err := suite.tokens.Transfer(aliceAddress, bobAddress, 200)
	suite.ErrorIs(err, ErrInsufficientFunds)

	// Nothing moved
	aliceBalance, _ := suite.tokens.BalanceOf(suite.db, aliceAddress)
	suite.Equal(uint64(100), aliceBalance)

	bobBalance, _ := suite.tokens.BalanceOf(suite.db, bobAddress)
	suite.Equal(uint64(0), bobBalance)
}

func (suite *TokenServiceTestSuite) TestApproveOverwritesAllowance() {
	suite.Require().NoError(suite.tokens.Approve(aliceAddress, operatorAddress, 100))
	suite.Require().NoError(suite.tokens.Approve(aliceAddress, operatorAddress, 40))

	allowance, err := suite.tokens.Allowance(suite.db, aliceAddress, operatorAddress)
	suite.NoError(err)
	suite.Equal(uint64(40), allowance)
}

func (suite *TokenServiceTestSuite) TestTransferFromConsumesAllowance() {
	suite.Require().NoError(suite.tokens.Mint(suite.db, aliceAddress, 500))
	suite.Require().NoError(suite.tokens.Approve(aliceAddress, operatorAddress, 300))

	err := suite.db.Transaction(func(tx *gorm.DB) error {
		return suite.tokens.TransferFrom(tx, aliceAddress, operatorAddress, bobAddress, 200)
	})
	suite.Require().NoError(err)

	allowance, _ := suite.tokens.Allowance(suite.db, aliceAddress, operatorAddress)
	suite.Equal(uint64(100), allowance)

	aliceBalance, _ := suite.tokens.BalanceOf(suite.db, aliceAddress)
	suite.Equal(uint64(300), aliceBalance)

	bobBalance, _ := suite.tokens.BalanceOf(suite.db, bobAddress)
	suite.Equal(uint64(200), bobBalance)
}

func (suite *TokenServiceTestSuite) TestTransferFromWithoutApproval() {
	suite.Require().NoError(suite.tokens.Mint(suite.db, aliceAddress, 500))

	err := suite.db.Transaction(func(tx *gorm.DB) error {
		return suite.tokens.TransferFrom(tx, aliceAddress, operatorAddress, bobAddress, 100)
	})
	suite.ErrorIs(err, ErrInsufficientFunds)

	aliceBalance, _ := suite.tokens.BalanceOf(suite.db, aliceAddress)
	suite.Equal(uint64(500), aliceBalance)
}

func (suite *TokenServiceTestSuite) TestTransferFromAllowanceBelowAmount() {
	suite.Require().NoError(suite.tokens.Mint(suite.db, aliceAddress, 500))
	suite.Require().NoError(suite.tokens.Approve(aliceAddress, operatorAddress, 50))

	err := suite.db.Transaction(func(tx *gorm.DB) error {
		return suite.tokens.TransferFrom(tx, aliceAddress, operatorAddress, bobAddress, 100)
	})
	suite.ErrorIs(err, ErrInsufficientFunds)

	allowance, _ := suite.tokens.Allowance(suite.db, aliceAddress, operatorAddress)
	suite.Equal(uint64(50), allowance)
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}
