package i18n

var messagesEN = map[string]string{
	KeyEmailAlreadyExists:   "A user with this email already exists.",
	KeyInvalidOldPassword:   "The old password is incorrect.",
	KeyUpdatePasswordFailed: "The password could not be updated. Please try again.",
	KeyUserNotFound:         "User not found.",
	KeyPasswordUpdated:      "Password updated successfully.",

	KeyInvalidCredentials: "Invalid email or password.",
	KeyUnauthorized:       "Authentication is required.",

	KeyInvalidRequestBody: "Invalid request body.",
	KeyValidationFailed:   "Field %s failed validation rule %q.",
	KeyRateLimitExceeded:  "Rate limit exceeded. Please try again later.",
	KeyNotFound:           "No route matches %s.",
	KeyMethodNotAllowed:   "Method %s is not allowed for this route.",
	KeyInternal:           "Something went wrong on our side.",
}
