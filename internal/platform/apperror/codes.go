package apperror

const (
	// Client errors (4xx)
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	CodeOverlappingRequest   = "OVERLAPPING_REQUEST"
	CodeDuplicatePerDay      = "DUPLICATE_PER_DAY"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeMissingPriorApproval = "MISSING_PRIOR_APPROVAL"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeStore = "STORE_ERROR"
)
