package endpoints

import (
	"errors"
)

const (
	API_SUCCESS      = iota + 303000 // 303000
	API_FAILURE                      // 303001 - Generic API failure
	API_UNAUTHORIZED                 // 303002 - Authentication/Authorization failure
)

const (
	INVALID_REQUEST_BODY = iota + 101 // 101 - Error parsing request body
	METHOD_NOT_ALLOWED                // 102 - Endpoint called with the wrong HTTP method
	EXPOSITION_FAILED                 // 103 - Could not render the exposition format
)

var (
	ErrInvalidRequestBody = errors.New("invalid request body format or missing fields")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrExpositionFailed   = errors.New("failed to render metrics exposition")
)

func GetErrorCode(err error) int {
	if err == nil {
		return API_SUCCESS
	}

	switch {
	case errors.Is(err, ErrInvalidRequestBody):
		return INVALID_REQUEST_BODY
	case errors.Is(err, ErrMethodNotAllowed):
		return METHOD_NOT_ALLOWED
	case errors.Is(err, ErrUnauthorized):
		return API_UNAUTHORIZED
	case errors.Is(err, ErrExpositionFailed):
		return EXPOSITION_FAILED
	default:
		return API_FAILURE // Default for any unhandled error
	}
}
