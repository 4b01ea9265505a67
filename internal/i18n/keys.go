// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserNotFound       = "auth.user_not_found"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// User Management
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserNotFound       = "user.not_found"
	KeyUserAvatarUpdated  = "user.avatar_updated"

	// Model listings
	KeyModelListed        = "model.listed"
	KeyModelDeleted       = "model.deleted"
	KeyModelNotFound      = "model.not_found"
	KeyModelPurchased     = "model.purchased"
	KeyModelAlreadySold   = "model.already_sold"
	KeyModelForbidden     = "model.forbidden"
	KeyModelSelfPurchase  = "model.self_purchase"
	KeyModelNotPurchased  = "model.not_purchased"
	KeyModelRated         = "model.rated"
	KeyModelAlreadyRated  = "model.already_rated"
	KeyModelInvalidRating = "model.invalid_rating"

	// Token ledger
	KeyTokenApproved          = "token.approved"
	KeyTokenTransferred       = "token.transferred"
	KeyTokenMinted            = "token.minted"
	KeyTokenInsufficientFunds = "token.insufficient_funds"
	KeyTokenTransferFailed    = "token.transfer_failed"

	// Payments
	KeyPaymentSuccess = "payment.success"
	KeyPaymentFailed  = "payment.failed"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"
)
