// internal/handlers/model_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/middleware"
	"github.com/aimodelmarket/marketplace-backend/internal/models"
	"github.com/aimodelmarket/marketplace-backend/internal/services"
	"github.com/aimodelmarket/marketplace-backend/internal/utils"
)

const (
	testOperatorAddress = "0x0000000000000000000000000000000000000001"
	testSellerAddress   = "0x00000000000000000000000000000000000000aa"
	testBuyerAddress    = "0x00000000000000000000000000000000000000bb"
)

type ModelHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	router      *gin.Engine
	tokens      *services.TokenService
	sellerToken string
	buyerToken  string
}

func (suite *ModelHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{},
		&models.ModelListing{},
		&models.Rating{},
		&models.SequenceCounter{},
		&models.TokenAccount{},
		&models.TokenAllowance{},
		&models.Transaction{},
	))
	suite.db = db

	cfg := &config.Config{
		Environment: "test",
		Token: config.TokenConfig{
			Symbol:          "AIM",
			OperatorAddress: testOperatorAddress,
			TreasuryAddress: "0x0000000000000000000000000000000000000002",
		},
	}

	suite.tokens = services.NewTokenService(db, cfg)
	ledgerService := services.NewLedgerService(db, suite.tokens, services.NewReceiptService(db), cfg)
	handler := NewModelHandler(ledgerService)

	r := gin.New()
	v1 := r.Group("/v1")
	modelRoutes := v1.Group("/models")
	{
		modelRoutes.GET("/count", handler.GetModelCount)
		modelRoutes.GET("/:id", handler.GetModel)
		modelRoutes.GET("/:id/rated", middleware.OptionalAuth(), handler.HasRated)

		protected := modelRoutes.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.POST("", handler.ListModel)
			protected.DELETE("/:id", handler.DeleteModel)
			protected.POST("/:id/purchase", handler.PurchaseModel)
			protected.POST("/:id/rate", handler.RateModel)
		}
	}
	suite.router = r

	suite.sellerToken = suite.issueToken("seller1", testSellerAddress)
	suite.buyerToken = suite.issueToken("buyer1", testBuyerAddress)
}

func (suite *ModelHandlerTestSuite) issueToken(username, walletAddress string) string {
	token, err := utils.GenerateJWT(uuid.New(), username, "buyer", walletAddress, 1)
	suite.Require().NoError(err)
	return token
}

func (suite *ModelHandlerTestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ModelHandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (suite *ModelHandlerTestSuite) listModel(price uint64) uint64 {
	w := suite.request(http.MethodPost, "/v1/models", suite.sellerToken, gin.H{
		"name":           "Sentiment Analyzer",
		"description":    "Binary sentiment classifier",
		"price":          price,
		"file_reference": "ipfs://QmModel",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	resp := suite.decode(w)
	model := resp["data"].(map[string]interface{})["model"].(map[string]interface{})
	return uint64(model["id"].(float64))
}

func (suite *ModelHandlerTestSuite) fundBuyer(balance, allowance uint64) {
	suite.Require().NoError(suite.tokens.Mint(suite.db, testBuyerAddress, balance))
	suite.Require().NoError(suite.tokens.Approve(testBuyerAddress, testOperatorAddress, allowance))
}

func (suite *ModelHandlerTestSuite) TestListModelRequiresAuth() {
	w := suite.request(http.MethodPost, "/v1/models", "", gin.H{
		"name":           "M",
		"description":    "d",
		"price":          100,
		"file_reference": "ref",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *ModelHandlerTestSuite) TestListModelValidationError() {
	w := suite.request(http.MethodPost, "/v1/models", suite.sellerToken, gin.H{
		"name":           "",
		"description":    "d",
		"price":          100,
		"file_reference": "ref",
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *ModelHandlerTestSuite) TestGetModelCount() {
	suite.listModel(100)
	suite.listModel(200)

	w := suite.request(http.MethodGet, "/v1/models/count", "", nil)
	suite.Equal(http.StatusOK, w.Code)

	resp := suite.decode(w)
	suite.Equal(float64(2), resp["data"].(map[string]interface{})["count"])
}

func (suite *ModelHandlerTestSuite) TestGetModelNotFound() {
	w := suite.request(http.MethodGet, "/v1/models/42", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *ModelHandlerTestSuite) TestGetModelInvalidID() {
	w := suite.request(http.MethodGet, "/v1/models/abc", "", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, "/v1/models/0", "", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *ModelHandlerTestSuite) TestPurchaseWithoutFunds() {
	id := suite.listModel(100)

	w := suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/purchase", id), suite.buyerToken, nil)
	suite.Equal(http.StatusPaymentRequired, w.Code)

	resp := suite.decode(w)
	suite.Equal("INSUFFICIENT_FUNDS", resp["error"].(map[string]interface{})["code"])
}

func (suite *ModelHandlerTestSuite) TestPurchaseFlow() {
	id := suite.listModel(100)
	suite.fundBuyer(100, 100)

	w := suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/purchase", id), suite.buyerToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// Second purchase of a sold model conflicts
	w = suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/purchase", id), suite.buyerToken, nil)
	suite.Equal(http.StatusConflict, w.Code)

	resp := suite.decode(w)
	suite.Equal("ALREADY_SOLD", resp["error"].(map[string]interface{})["code"])
}

func (suite *ModelHandlerTestSuite) TestSelfPurchaseRejected() {
	id := suite.listModel(100)
	suite.Require().NoError(suite.tokens.Mint(suite.db, testSellerAddress, 1000))
	suite.Require().NoError(suite.tokens.Approve(testSellerAddress, testOperatorAddress, 1000))

	w := suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/purchase", id), suite.sellerToken, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	resp := suite.decode(w)
	suite.Equal("SELF_PURCHASE_REJECTED", resp["error"].(map[string]interface{})["code"])
}

func (suite *ModelHandlerTestSuite) TestDeleteForbiddenForNonSeller() {
	id := suite.listModel(100)

	w := suite.request(http.MethodDelete, fmt.Sprintf("/v1/models/%d", id), suite.buyerToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *ModelHandlerTestSuite) TestDeleteThenGone() {
	id := suite.listModel(100)

	w := suite.request(http.MethodDelete, fmt.Sprintf("/v1/models/%d", id), suite.sellerToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	// Record remains readable with exists=false
	w = suite.request(http.MethodGet, fmt.Sprintf("/v1/models/%d", id), "", nil)
	suite.Equal(http.StatusOK, w.Code)
	resp := suite.decode(w)
	model := resp["data"].(map[string]interface{})["model"].(map[string]interface{})
	suite.Equal(false, model["exists"])

	// But every mutation reports not found
	w = suite.request(http.MethodDelete, fmt.Sprintf("/v1/models/%d", id), suite.sellerToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *ModelHandlerTestSuite) TestRatingLifecycle() {
	id := suite.listModel(100)

	// Unsold models cannot be rated
	w := suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/rate", id), suite.buyerToken, gin.H{"stars": 5})
	suite.Equal(http.StatusConflict, w.Code)
	resp := suite.decode(w)
	suite.Equal("NOT_YET_PURCHASED", resp["error"].(map[string]interface{})["code"])

	suite.fundBuyer(100, 100)
	w = suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/purchase", id), suite.buyerToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	// Out-of-range stars
	w = suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/rate", id), suite.buyerToken, gin.H{"stars": 6})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/rate", id), suite.buyerToken, gin.H{"stars": 5})
	suite.Equal(http.StatusOK, w.Code)

	// One rating per account
	w = suite.request(http.MethodPost, fmt.Sprintf("/v1/models/%d/rate", id), suite.buyerToken, gin.H{"stars": 4})
	suite.Equal(http.StatusConflict, w.Code)
	resp = suite.decode(w)
	suite.Equal("ALREADY_RATED", resp["error"].(map[string]interface{})["code"])

	// Membership check for the rater and a stranger
	w = suite.request(http.MethodGet, fmt.Sprintf("/v1/models/%d/rated", id), suite.buyerToken, nil)
	suite.Equal(http.StatusOK, w.Code)
	resp = suite.decode(w)
	suite.Equal(true, resp["data"].(map[string]interface{})["has_rated"])

	w = suite.request(http.MethodGet, fmt.Sprintf("/v1/models/%d/rated?account=%s", id, testSellerAddress), "", nil)
	suite.Equal(http.StatusOK, w.Code)
	resp = suite.decode(w)
	suite.Equal(false, resp["data"].(map[string]interface{})["has_rated"])

	// Average rating surfaces on the read path
	w = suite.request(http.MethodGet, fmt.Sprintf("/v1/models/%d", id), "", nil)
	suite.Equal(http.StatusOK, w.Code)
	resp = suite.decode(w)
	suite.Equal(float64(5), resp["data"].(map[string]interface{})["average_rating"])
}

func TestModelHandlerSuite(t *testing.T) {
	suite.Run(t, new(ModelHandlerTestSuite))
}
