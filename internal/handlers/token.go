// internal/handlers/token.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aimodelmarket/marketplace-backend/internal/config"
	"github.com/aimodelmarket/marketplace-backend/internal/i18n"
	"github.com/aimodelmarket/marketplace-backend/internal/services"
	"github.com/aimodelmarket/marketplace-backend/internal/utils"
)

type TokenHandler struct {
	db           *gorm.DB
	tokenService *services.TokenService
	cfg          *config.Config
}

type ApproveRequest struct {
	Spender string `json:"spender" validate:"required,wallet_address"`
	Amount  uint64 `json:"amount"`
}

type TransferRequest struct {
	To     string `json:"to" validate:"required,wallet_address"`
	Amount uint64 `json:"amount" validate:"required,min=1"`
}

type MintRequest struct {
	Address string `json:"address" validate:"required,wallet_address"`
	Amount  uint64 `json:"amount" validate:"required,min=1"`
}

func NewTokenHandler(db *gorm.DB, tokenService *services.TokenService, cfg *config.Config) *TokenHandler {
	return &TokenHandler{
		db:           db,
		tokenService: tokenService,
		cfg:          cfg,
	}
}

// GET /token/balance
func (h *TokenHandler) GetBalance(c *gin.Context) {
	address, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	balance, err := h.tokenService.BalanceOf(h.db, address)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"address": address,
		"balance": balance,
		"symbol":  h.cfg.Token.Symbol,
	})
}

// GET /token/allowance
func (h *TokenHandler) GetAllowance(c *gin.Context) {
	owner, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	spender := c.DefaultQuery("spender", h.cfg.Token.OperatorAddress)

	amount, err := h.tokenService.Allowance(h.db, owner, spender)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"owner":     owner,
		"spender":   spender,
		"allowance": amount,
	})
}

// POST /token/approve
func (h *TokenHandler) Approve(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	owner, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.tokenService.Approve(owner, req.Spender, req.Amount); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyTokenApproved),
		"owner":     owner,
		"spender":   req.Spender,
		"allowance": req.Amount,
	})
}

// POST /token/transfer
func (h *TokenHandler) Transfer(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	from, exists := utils.GetWalletAddressFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.tokenService.Transfer(from, req.To, req.Amount); err != nil {
		if errors.Is(err, services.ErrInsufficientFunds) {
			utils.PaymentRequiredResponse(c, i18n.T(lang, i18n.KeyTokenInsufficientFunds))
			return
		}
		utils.BadGatewayResponse(c, "TRANSFER_FAILED", i18n.T(lang, i18n.KeyTokenTransferFailed))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTokenTransferred),
		"from":    from,
		"to":      req.To,
		"amount":  req.Amount,
	})
}

// POST /token/mint (admin only)
func (h *TokenHandler) Mint(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.tokenService.Mint(h.db, req.Address, req.Amount); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTokenMinted),
		"address": req.Address,
		"amount":  req.Amount,
	})
}
