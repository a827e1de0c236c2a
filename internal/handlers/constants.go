package handlers

const (
	bearerPrefix = "Bearer "

	maxAuthBodyBytes    = 4 << 10
	maxCommandBodyBytes = 8 << 20 // photo and icon data URLs

	ErrInvalidRequestBody  = "Invalid request body"
	ErrIncorrectPassword   = "Incorrect password"
	ErrUnauthorized        = "Unauthorized"
	ErrNotFound            = "Not found"
	ErrTooManyRequests     = "Too many login attempts, try again later"
	ErrServiceUnavailable  = "Service temporarily unavailable"
	ErrInternalServerError = "Internal server error"
	ErrServerNotReady      = "Server is starting"
)
