package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. The site maps them to its own texts.

const (
	// ==================== Session (SESSION_) ====================
	SessionInvalid = "SESSION_INVALID" // token could not be issued or read

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // malformed body or fields
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // bad id or slug
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // bad date or month format
	ValidationRequired      = "VALIDATION_REQUIRED"       // required field missing

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND"
	ResourceConflict = "RESOURCE_CONFLICT"

	// ==================== Cars (CAR_) ====================
	CarNotFound = "CAR_NOT_FOUND"

	// ==================== Cart (CART_) ====================
	CartItemNotFound  = "CART_ITEM_NOT_FOUND"
	CartDuplicateItem = "CART_DUPLICATE_ITEM"
	CartEmpty         = "CART_EMPTY"

	// ==================== Checkout (CHECKOUT_) ====================
	CheckoutNotConfirmed = "CHECKOUT_NOT_CONFIRMED"
	CheckoutInProgress   = "CHECKOUT_IN_PROGRESS"
	CheckoutSubmitted    = "CHECKOUT_ALREADY_SUBMITTED"
	CheckoutRejected     = "CHECKOUT_REJECTED" // booking API refused the cart

	// ==================== QR codes (QR_) ====================
	QRInvalid     = "QR_INVALID"
	QRAlreadyUsed = "QR_ALREADY_USED"

	// ==================== Server (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR"
	InternalExternalAPI = "INTERNAL_EXTERNAL_API" // booking API unreachable or failing
	InternalCanceled    = "INTERNAL_CANCELED"     // request superseded or aborted
)
