package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samsamfire/sdosync/pkg/gateway"
	"github.com/samsamfire/sdosync/pkg/network"
	log "github.com/sirupsen/logrus"
)

// GatewayServer exposes synchronous SDO accesses over HTTP
//
//	GET /nodes/{node}/sdo/{index}/{subindex}?datatype=u16
//	PUT /nodes/{node}/sdo/{index}/{subindex} {"datatype":"u16","value":"1000"}
//
// node can be "default" to address the default node.
type GatewayServer struct {
	*gateway.BaseGateway
	router *mux.Router
}

// Create a new gateway
func NewGatewayServer(network *network.Network, defaultNodeId uint8) *GatewayServer {
	gw := &GatewayServer{BaseGateway: gateway.NewBaseGateway(network, defaultNodeId)}
	router := mux.NewRouter().StrictSlash(true)
	f := handleError

	router.Methods("GET").Path("/version").Handler(f(gw.handleVersion))
	router.Methods("PUT").Path("/sdo-timeout").Handler(f(gw.handleSDOTimeout))
	router.Methods("PUT").Path("/default-node").Handler(f(gw.handleSetDefaultNode))

	router.Methods("GET").Path("/nodes/{node}/identity").Handler(f(gw.handleIdentity))
	router.Methods("GET").Path("/nodes/{node}/sdo/{index}/{subindex}").Handler(f(gw.handleSDORead))
	router.Methods("PUT").Path("/nodes/{node}/sdo/{index}/{subindex}").Handler(f(gw.handleSDOWrite))

	router.NotFoundHandler = f(func(w http.ResponseWriter, r *http.Request) error {
		return ErrGwNotFound
	})
	gw.router = router
	return gw
}

func (g *GatewayServer) Handler() http.Handler {
	return g.router
}

// Process server, blocking
func (g *GatewayServer) ListenAndServe(addr string) error {
	log.Infof("[HTTP][SERVER] listening on %v", addr)
	return http.ListenAndServe(addr, g.router)
}
