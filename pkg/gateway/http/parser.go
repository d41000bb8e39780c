package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// Entry addressed by a request path
type sdoEntry struct {
	nodeId   uint8
	index    uint16
	subindex uint8
}

// Gets index and subindex from the route variables, decimal or hexadecimal
func parseEntry(vars map[string]string) (index uint16, subindex uint8, err error) {
	idx, err := strconv.ParseUint(vars["index"], 0, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w : index %q", ErrGwSyntaxError, vars["index"])
	}
	sub, err := strconv.ParseUint(vars["subindex"], 0, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("%w : subindex %q", ErrGwSyntaxError, vars["subindex"])
	}
	return uint16(idx), uint8(sub), nil
}

func (g *GatewayServer) parseSdoRequest(r *http.Request) (*sdoEntry, error) {
	vars := mux.Vars(r)
	nodeId, err := g.NodeId(vars["node"])
	if err != nil {
		return nil, err
	}
	index, subindex, err := parseEntry(vars)
	if err != nil {
		return nil, err
	}
	return &sdoEntry{nodeId: nodeId, index: index, subindex: subindex}, nil
}

// Unmarshal request body into v, an empty body is a syntax error
func parseBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return fmt.Errorf("%w : empty body", ErrGwSyntaxError)
	}
	if err != nil {
		return fmt.Errorf("%w : %v", ErrGwSyntaxError, err)
	}
	return nil
}

// Timeout in ms, decimal or hexadecimal
func parseTimeout(value string) (time.Duration, error) {
	timeoutMs, err := strconv.ParseUint(value, 0, 32)
	if err != nil || timeoutMs == 0 {
		return 0, fmt.Errorf("%w : timeout %q", ErrGwSyntaxError, value)
	}
	return time.Duration(timeoutMs) * time.Millisecond, nil
}
