package http

// Value of an SDO entry, returned by reads
type SDOValue struct {
	Node     uint8  `json:"node"`
	Index    uint16 `json:"index"`
	Subindex uint8  `json:"subindex"`
	Datatype string `json:"datatype"`
	Value    string `json:"value"`
}

type SDOWriteRequest struct {
	Datatype string `json:"datatype"`
	Value    string `json:"value"`
}

// Generic single value request, e.g. timeout in ms or default node
type ValueRequest struct {
	Value string `json:"value"`
}

type IdentityResponse struct {
	Node           uint8  `json:"node"`
	VendorId       uint32 `json:"vendor_id"`
	ProductCode    uint32 `json:"product_code"`
	RevisionNumber uint32 `json:"revision_number"`
	SerialNumber   uint32 `json:"serial_number"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
