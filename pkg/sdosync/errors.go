package sdosync

import "errors"

var (
	ErrAllocation = errors.New("sdo request could not be allocated")
	ErrSubmission = errors.New("sdo request could not be submitted")
	ErrTransfer   = errors.New("sdo transfer failed")
	ErrRange      = errors.New("sdo transfer is larger than the destination type")
)
