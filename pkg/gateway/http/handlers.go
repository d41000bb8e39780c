package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap a handler returning an error, errors are sent back as JSON
// with the corresponding HTTP status
func handleError(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("[HTTP][SERVER] %v %v", r.Method, r.URL)
		if err := h(w, r); err != nil {
			status := statusFromError(err)
			log.Warnf("[HTTP][SERVER] %v %v failed (%v) : %v", r.Method, r.URL.Path, status, err)
			writeJSON(w, status, ErrorResponse{Error: err.Error()})
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[HTTP][SERVER] failed to encode response : %v", err)
	}
}

func (g *GatewayServer) handleSDORead(w http.ResponseWriter, r *http.Request) error {
	entry, err := g.parseSdoRequest(r)
	if err != nil {
		return err
	}
	datatype := r.URL.Query().Get("datatype")
	if datatype == "" {
		return fmt.Errorf("%w : missing datatype", ErrGwSyntaxError)
	}
	value, err := g.ReadSDO(entry.nodeId, entry.index, entry.subindex, datatype)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, SDOValue{
		Node:     entry.nodeId,
		Index:    entry.index,
		Subindex: entry.subindex,
		Datatype: datatype,
		Value:    fmt.Sprint(value),
	})
	return nil
}

func (g *GatewayServer) handleSDOWrite(w http.ResponseWriter, r *http.Request) error {
	entry, err := g.parseSdoRequest(r)
	if err != nil {
		return err
	}
	var sdoWrite SDOWriteRequest
	if err := parseBody(r, &sdoWrite); err != nil {
		return err
	}
	err = g.WriteSDO(entry.nodeId, entry.index, entry.subindex, sdoWrite.Datatype, sdoWrite.Value)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, SDOValue{
		Node:     entry.nodeId,
		Index:    entry.index,
		Subindex: entry.subindex,
		Datatype: sdoWrite.Datatype,
		Value:    sdoWrite.Value,
	})
	return nil
}

func (g *GatewayServer) handleIdentity(w http.ResponseWriter, r *http.Request) error {
	nodeId, err := g.NodeId(mux.Vars(r)["node"])
	if err != nil {
		return err
	}
	identity, err := g.Configurator(nodeId).ReadIdentity()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, IdentityResponse{
		Node:           nodeId,
		VendorId:       identity.VendorId,
		ProductCode:    identity.ProductCode,
		RevisionNumber: identity.RevisionNumber,
		SerialNumber:   identity.SerialNumber,
	})
	return nil
}

// Update SDO client timeout
func (g *GatewayServer) handleSDOTimeout(w http.ResponseWriter, r *http.Request) error {
	var req ValueRequest
	if err := parseBody(r, &req); err != nil {
		return err
	}
	timeout, err := parseTimeout(req.Value)
	if err != nil {
		return err
	}
	g.SetSDOTimeout(timeout)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (g *GatewayServer) handleSetDefaultNode(w http.ResponseWriter, r *http.Request) error {
	var req ValueRequest
	if err := parseBody(r, &req); err != nil {
		return err
	}
	nodeId, err := g.NodeId(req.Value)
	if err != nil {
		return err
	}
	if err := g.SetDefaultNodeId(nodeId); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (g *GatewayServer) handleVersion(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, g.GetVersion())
	return nil
}
