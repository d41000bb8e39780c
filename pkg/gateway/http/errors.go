package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/samsamfire/sdosync/pkg/gateway"
	"github.com/samsamfire/sdosync/pkg/network"
	"github.com/samsamfire/sdosync/pkg/sdo"
	"github.com/samsamfire/sdosync/pkg/sdosync"
)

var (
	ErrGwSyntaxError = errors.New("syntax error")
	ErrGwNotFound    = errors.New("no such route")
)

// GatewayError is the error returned by the gateway, as seen by a client
type GatewayError struct {
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("ERROR:%d : %v", e.Status, e.Message)
}

// Map an error to the HTTP status sent back to the client
func statusFromError(err error) int {
	switch {
	case errors.Is(err, ErrGwSyntaxError),
		errors.Is(err, gateway.ErrNodeParam),
		errors.Is(err, network.ErrDatatype),
		errors.Is(err, network.ErrValue),
		errors.Is(err, sdo.ErrInvalidArgs):
		return http.StatusBadRequest
	case errors.Is(err, ErrGwNotFound), errors.Is(err, sdosync.ErrTransfer):
		return http.StatusNotFound
	case errors.Is(err, sdosync.ErrRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sdosync.ErrSubmission), errors.Is(err, sdosync.ErrAllocation):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
