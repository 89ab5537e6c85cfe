package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/tinyurl/internal/entity"
)

const statusError = "error"

// createURLRequest is the payload for shortening a URL. A missing or zero
// expiry_days falls back to the configured default expiry.
type createURLRequest struct {
	LongURL    string `json:"long_url" validate:"required,url,max=2048"`
	ExpiryDays *int   `json:"expiry_days" validate:"omitempty,min=0,max=36500"`
}

type createURLResponse struct {
	Code      string     `json:"code"`
	ShortURL  string     `json:"short_url"`
	LongURL   string     `json:"long_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func toCreateURLResponse(url *entity.URL, shortURL string) createURLResponse {
	return createURLResponse{
		Code:      url.Code,
		ShortURL:  shortURL,
		LongURL:   url.LongURL,
		CreatedAt: url.CreatedAt,
		ExpiresAt: url.ExpiresAt,
	}
}

type metadataResponse struct {
	Code      string     `json:"code"`
	LongURL   string     `json:"long_url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	HitCount  int64      `json:"hit_count"`
}

func toMetadataResponse(url *entity.URL) metadataResponse {
	return metadataResponse{
		Code:      url.Code,
		LongURL:   url.LongURL,
		CreatedAt: url.CreatedAt,
		ExpiresAt: url.ExpiresAt,
		HitCount:  url.HitCount,
	}
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "short url not found",
	}

	urlExpiredResponse = errorResponse{
		Status:  statusError,
		Message: "short url has expired",
	}

	rateLimitExceededResponse = errorResponse{
		Status:  statusError,
		Message: "rate limit exceeded, try again later",
	}

	codeAllocationFailedResponse = errorResponse{
		Status:  statusError,
		Message: "could not allocate a short code, try again later",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "max":
		return "value is too large"
	case "min":
		return "value must not be negative"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
