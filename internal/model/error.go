package model

// ErrorResponse is the single JSON shape every failed API call returns.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
