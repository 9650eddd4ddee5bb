package api

import (
	"net/http"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/protocol"
)

// CustomError carries the status and body for a failed request.
type CustomError struct {
	StatusCode int
	Kind       string
	Message    string
	Details    string
}

func NewCError(statusCode int, kind, message string) CustomError {
	return CustomError{StatusCode: statusCode, Kind: kind, Message: message}
}

func (err CustomError) Error() string {
	return err.Message
}

func (err CustomError) WithDetails(details string) CustomError {
	err.Details = details
	return err
}

var (
	ErrNoSymbol = NewCError(http.StatusBadRequest, protocol.KindBadRequest, "symbol required")
	ErrNoIDs    = NewCError(http.StatusBadRequest, protocol.KindBadRequest, "ids must name at least one coin")
)
