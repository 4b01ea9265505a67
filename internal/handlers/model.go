// internal/handlers/model.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aimodelmarket/marketplace-backend/internal/i18n"
	"github.com/aimodelmarket/marketplace-backend/internal/services"
	"github.com/aimodelmarket/marketplace-backend/internal/utils"
)

type ModelHandler struct {
	ledgerService *services.LedgerService
}

func NewModelHandler(ledgerService *services.LedgerService) *ModelHandler {
	return &ModelHandler{
		ledgerService: ledgerService,
	}
}

// POST /models
func (h *ModelHandler) ListModel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sellerAddress, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.ListModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	listing, err := h.ledgerService.ListModel(sellerAddress, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyModelListed),
		"model":   listing,
	})
}

// GET /models/count
func (h *ModelHandler) GetModelCount(c *gin.Context) {
	count, err := h.ledgerService.GetModelCount()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"count": count,
	})
}

// GET /models/:id
func (h *ModelHandler) GetModel(c *gin.Context) {
	id, ok := parseModelID(c)
	if !ok {
		return
	}

	listing, err := h.ledgerService.GetModel(id)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"model":          listing,
		"average_rating": listing.AverageRating(),
	})
}

// GET /models/mine
func (h *ModelHandler) GetMyModels(c *gin.Context) {
	sellerAddress, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	listings, total, err := h.ledgerService.GetSellerListings(sellerAddress, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(listings, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /models/:id/purchase
func (h *ModelHandler) PurchaseModel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	buyerAddress, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, ok := parseModelID(c)
	if !ok {
		return
	}

	transaction, err := h.ledgerService.BuyModel(buyerAddress, id)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyModelPurchased),
		"transaction": transaction,
	})
}

// DELETE /models/:id
func (h *ModelHandler) DeleteModel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	callerAddress, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, ok := parseModelID(c)
	if !ok {
		return
	}

	if err := h.ledgerService.DeleteModel(callerAddress, id); err != nil {
		h.respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyModelDeleted),
	})
}

// POST /models/:id/rate
func (h *ModelHandler) RateModel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	raterAddress, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, ok := parseModelID(c)
	if !ok {
		return
	}

	var req services.RateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if err := h.ledgerService.RateModel(raterAddress, id, req.Stars); err != nil {
		h.respondLedgerError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyModelRated),
	})
}

// GET /models/:id/rated
func (h *ModelHandler) HasRated(c *gin.Context) {
	id, ok := parseModelID(c)
	if !ok {
		return
	}

	account := c.Query("account")
	if account == "" {
		// Default to the authenticated caller
		if address, exists := utils.GetWalletAddressFromContext(c); exists {
			account = address
		}
	}
	if account == "" {
		utils.BadRequestResponse(c, "account is required", nil)
		return
	}

	rated, err := h.ledgerService.HasRated(id, account)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"model_id":  id,
		"account":   account,
		"has_rated": rated,
	})
}

func parseModelID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequestResponse(c, "Invalid model ID", nil)
		return 0, false
	}
	return id, true
}

func (h *ModelHandler) respondLedgerError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "model")
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyModelForbidden))
	case errors.Is(err, services.ErrAlreadySold):
		utils.ConflictResponse(c, "ALREADY_SOLD", i18n.T(lang, i18n.KeyModelAlreadySold))
	case errors.Is(err, services.ErrAlreadyRated):
		utils.ConflictResponse(c, "ALREADY_RATED", i18n.T(lang, i18n.KeyModelAlreadyRated))
	case errors.Is(err, services.ErrNotYetPurchased):
		utils.ConflictResponse(c, "NOT_YET_PURCHASED", i18n.T(lang, i18n.KeyModelNotPurchased))
	case errors.Is(err, services.ErrSelfPurchase):
		utils.ErrorResponse(c, 400, "SELF_PURCHASE_REJECTED", i18n.T(lang, i18n.KeyModelSelfPurchase), nil)
	case errors.Is(err, services.ErrInvalidRating):
		utils.ErrorResponse(c, 400, "INVALID_RATING", i18n.T(lang, i18n.KeyModelInvalidRating), nil)
	case errors.Is(err, services.ErrInsufficientFunds):
		utils.PaymentRequiredResponse(c, i18n.T(lang, i18n.KeyTokenInsufficientFunds))
	case errors.Is(err, services.ErrTransferFailed):
		utils.BadGatewayResponse(c, "TRANSFER_FAILED", i18n.T(lang, i18n.KeyTokenTransferFailed))
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
