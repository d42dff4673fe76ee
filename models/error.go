package models

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthCheckResponse returns the health check response duh
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
