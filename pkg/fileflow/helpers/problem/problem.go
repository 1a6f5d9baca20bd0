package problem

import (
	"net/http"
	"strconv"
)

type InvalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// APIError implements error as a Problem Details body (RFC 7807).
type APIError struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Status        int            `json:"status"`
	Detail        string         `json:"detail"`
	Instance      string         `json:"instance,omitempty"`
	InvalidParams []InvalidParam `json:"invalidParams,omitempty"`
}

func (e APIError) Error() string { return e.Detail }

func newAPIError(status int, detail string, params []InvalidParam) APIError {
	return APIError{
		Type:          "https://developer.mozilla.org/en-US/docs/Web/HTTP/Reference/Status/" + strconv.Itoa(status),
		Title:         http.StatusText(status),
		Status:        status,
		Detail:        detail,
		InvalidParams: params,
	}
}

func NewBadRequest(detail string, params ...InvalidParam) APIError {
	return newAPIError(http.StatusBadRequest, detail, params)
}

func NewUnauthorized(detail string) APIError {
	return newAPIError(http.StatusUnauthorized, detail, nil)
}

func NewForbidden(detail string) APIError {
	return newAPIError(http.StatusForbidden, detail, nil)
}

func NewNotFound(detail string, params ...InvalidParam) APIError {
	return newAPIError(http.StatusNotFound, detail, params)
}

func NewTooManyRequests(detail string) APIError {
	return newAPIError(http.StatusTooManyRequests, detail, nil)
}

func NewInternalServerError(detail string) APIError {
	return newAPIError(http.StatusInternalServerError, detail, nil)
}
