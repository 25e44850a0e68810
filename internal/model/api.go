package model

import "time"

// APIResponse is the standard success envelope.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// EvaluateRequest is the request body for POST /v1/quality/evaluate.
type EvaluateRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Language string `json:"language"`
}

// EvaluateResponse reports the quality gate decision for one issue text.
type EvaluateResponse struct {
	QScore float64 `json:"q_score"`
	Passes bool    `json:"passes"`
}

// SurvivalResponse reports a standalone survival score computation.
type SurvivalResponse struct {
	SurvivalScore float64 `json:"survival_score"`
}

// FeedRequest is the request body for POST /v1/feed. The profile comes
// from the profile service; this API trusts its caller. CombinedVector
// rides separately because Profile strips its vector from JSON.
type FeedRequest struct {
	Profile        Profile   `json:"profile"`
	CombinedVector []float32 `json:"combined_vector,omitempty"`
	Page           int       `json:"page"`
	PageSize       int       `json:"page_size"`
}
