package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/samsamfire/sdosync/pkg/gateway"
	log "github.com/sirupsen/logrus"
)

// GatewayClient is a client of a [GatewayServer]
type GatewayClient struct {
	http.Client
	baseURL string
}

func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{Client: http.Client{}, baseURL: baseURL}
}

// HTTP request to the gateway
// Does error checking : http related errors, json decode errors
// or actual gateway errors returned as [GatewayError]
func (client *GatewayClient) Do(method string, uri string, request any, response any) error {
	var body io.Reader
	if request != nil {
		encoded, err := json.Marshal(request)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(encoded)
	}
	req, err := http.NewRequest(method, client.baseURL+uri, body)
	if err != nil {
		log.Errorf("[HTTP][CLIENT] failed to create request : %v", err)
		return err
	}
	httpResp, err := client.Client.Do(req)
	if err != nil {
		log.Errorf("[HTTP][CLIENT] failed request : %v", err)
		return err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= http.StatusBadRequest {
		errResp := ErrorResponse{}
		_ = json.NewDecoder(httpResp.Body).Decode(&errResp)
		return &GatewayError{Status: httpResp.StatusCode, Message: errResp.Error}
	}
	if response == nil || httpResp.StatusCode == http.StatusNoContent {
		return nil
	}
	err = json.NewDecoder(httpResp.Body).Decode(response)
	if err != nil {
		log.Errorf("[HTTP][CLIENT] failed to decode response : %v", err)
	}
	return err
}

// Read an entry of a node as the given datatype
func (client *GatewayClient) Read(node string, index uint16, subindex uint8, datatype string) (*SDOValue, error) {
	resp := new(SDOValue)
	uri := fmt.Sprintf("/nodes/%s/sdo/0x%x/%d?datatype=%s", node, index, subindex, url.QueryEscape(datatype))
	err := client.Do(http.MethodGet, uri, nil, resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Write an entry of a node as the given datatype
func (client *GatewayClient) Write(node string, index uint16, subindex uint8, datatype string, value string) error {
	uri := fmt.Sprintf("/nodes/%s/sdo/0x%x/%d", node, index, subindex)
	return client.Do(http.MethodPut, uri, SDOWriteRequest{Datatype: datatype, Value: value}, nil)
}

func (client *GatewayClient) Identity(node string) (*IdentityResponse, error) {
	resp := new(IdentityResponse)
	err := client.Do(http.MethodGet, fmt.Sprintf("/nodes/%s/identity", node), nil, resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Update SDO client timeout
func (client *GatewayClient) SetSDOTimeout(timeoutMs uint32) error {
	return client.Do(http.MethodPut, "/sdo-timeout", ValueRequest{Value: fmt.Sprintf("0x%x", timeoutMs)}, nil)
}

func (client *GatewayClient) SetDefaultNode(nodeId uint8) error {
	return client.Do(http.MethodPut, "/default-node", ValueRequest{Value: fmt.Sprint(nodeId)}, nil)
}

// Read gateway version
func (client *GatewayClient) GetVersion() (*gateway.GatewayVersion, error) {
	version := new(gateway.GatewayVersion)
	err := client.Do(http.MethodGet, "/version", nil, version)
	return version, err
}
