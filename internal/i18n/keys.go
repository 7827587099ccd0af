package i18n

// Message keys.
const (
	KeyEmailAlreadyExists   = "users.errors.email_already_exists"
	KeyInvalidOldPassword   = "users.errors.invalid_old_password"
	KeyUpdatePasswordFailed = "users.errors.update_password_failed"
	KeyUserNotFound         = "users.errors.user_not_found"
	KeyPasswordUpdated      = "users.messages.password_updated"

	KeyInvalidCredentials = "auth.errors.invalid_credentials"
	KeyUnauthorized       = "auth.errors.unauthorized"

	KeyInvalidRequestBody = "errors.invalid_request_body"
	KeyValidationFailed   = "errors.validation_failed" // args: field, rule
	KeyRateLimitExceeded  = "errors.rate_limit_exceeded"
	KeyNotFound           = "errors.not_found"          // args: path
	KeyMethodNotAllowed   = "errors.method_not_allowed" // args: method
	KeyInternal           = "errors.internal"
)
