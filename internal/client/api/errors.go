package api

import (
	"errors"
	"fmt"
	"net/http"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"
)

// Code классифицирует нормализованную ошибку API
type Code string

// Error taxonomy: connectivity, invalid credentials, access denied, validation,
// not found, server, generic. Session-invalidating conditions are not a code -
// they are handled centrally in the transport and the refresh path.
const (
	CodeUnavailable        Code = "unavailable"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeAccessDenied       Code = "access_denied"
	CodeValidation         Code = "validation"
	CodeNotFound           Code = "not_found"
	CodeServer             Code = "server_error"
	CodeGeneric            Code = "error"
)

// Error представляет нормализованную ошибку удаленного API
// Транспортные сбои имеют Status 0 и код CodeUnavailable
type Error struct {
	Code    Code
	Message string
	Details string
	Status  int
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	return false
}

// IsCode reports whether err is an API error with the given code.
func IsCode(err error, code Code) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// transportError нормализует сбой сети/транспорта (аналог status 0)
func transportError(err error) *Error {
	return &Error{
		Status:  0,
		Code:    CodeUnavailable,
		Message: "cannot reach the server",
		Details: err.Error(),
	}
}

// statusError нормализует HTTP статус в единую форму ошибки
// 400 отдает сообщение сервера дословно, остальные - фиксированный текст
func statusError(status int, body *pkgapi.ErrorResponse) *Error {
	e := &Error{Status: status}
	if body != nil {
		e.Details = body.Details
	}

	message := ""
	if body != nil {
		if body.Message != "" {
			message = body.Message
		} else {
			message = body.Error
		}
	}

	switch {
	case status == http.StatusBadRequest:
		e.Code = CodeValidation
		if message == "" {
			message = "invalid request"
		}
		e.Message = message
	case status == http.StatusUnauthorized:
		e.Code = CodeInvalidCredentials
		e.Message = "invalid credentials"
	case status == http.StatusForbidden:
		e.Code = CodeAccessDenied
		e.Message = "access denied"
	case status == http.StatusNotFound:
		e.Code = CodeNotFound
		e.Message = "resource not found"
	case status >= 500:
		e.Code = CodeServer
		e.Message = "server error, please try again later"
	default:
		e.Code = CodeGeneric
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", status)
		}
		e.Message = message
	}

	if e.Details == "" && message != "" && e.Message != message {
		e.Details = message
	}
	return e
}
