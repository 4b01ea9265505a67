// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/aimodelmarket/marketplace-backend/internal/i18n"
	"github.com/aimodelmarket/marketplace-backend/internal/services"
	"github.com/aimodelmarket/marketplace-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	receiptService *services.ReceiptService
}

func NewPaymentHandler(paymentService *services.PaymentService, receiptService *services.ReceiptService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		receiptService: receiptService,
	}
}

// POST /payments/intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	address, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	response, err := h.paymentService.CreatePaymentIntent(address, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payment_intent": response,
	})
}

// POST /payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	address, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	transaction, err := h.paymentService.ConfirmPayment(address, &req)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentFailed)+": "+err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyPaymentSuccess),
		"transaction": transaction,
	})
}

// GET /payments/history
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	address, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	transactions, total, err := h.paymentService.GetPaymentHistory(address, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(transactions, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /verify/:hash
func (h *PaymentHandler) VerifyReceipt(c *gin.Context) {
	hash := c.Param("hash")
	if hash == "" {
		utils.BadRequestResponse(c, "receipt hash is required", nil)
		return
	}

	transaction, err := h.receiptService.VerifyReceipt(hash)
	if err != nil {
		utils.NotFoundResponse(c, "receipt")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"transaction": transaction,
	})
}
