package handlers

// ErrorResponse is the JSON error body returned by the HTTP handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}
