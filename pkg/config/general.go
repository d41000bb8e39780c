package config

import (
	"errors"

	"github.com/samsamfire/sdosync/pkg/od"
	"github.com/samsamfire/sdosync/pkg/sdosync"
)

type Identity struct {
	VendorId       uint32
	ProductCode    uint32
	RevisionNumber uint32
	SerialNumber   uint32
}

type ManufacturerInformation struct {
	ManufacturerDeviceName      string
	ManufacturerHardwareVersion string
	ManufacturerSoftwareVersion string
}

// Read identity object (0x1018, mandatory)
// Only the vendor id is mandatory, other sub entries that the node
// does not answer are left to 0. Any other error is returned.
func (config *NodeConfigurator) ReadIdentity() (*Identity, error) {
	vendorId, err := config.client.ReadUint32(config.nodeId, od.EntryIdentityObject, 1)
	if err != nil {
		return nil, err
	}
	identity := &Identity{VendorId: vendorId}
	optional := []*uint32{&identity.ProductCode, &identity.RevisionNumber, &identity.SerialNumber}
	for i, field := range optional {
		*field, err = config.client.ReadUint32(config.nodeId, od.EntryIdentityObject, uint8(i+2))
		if err != nil && !errors.Is(err, sdosync.ErrTransfer) {
			return nil, err
		}
	}
	return identity, nil
}

func (config *NodeConfigurator) ReadDeviceType() (uint32, error) {
	return config.client.ReadUint32(config.nodeId, od.EntryDeviceType, 0)
}

func (config *NodeConfigurator) ReadManufacturerDeviceName() (string, error) {
	return config.readString(od.EntryManufacturerDeviceName, 0)
}

func (config *NodeConfigurator) ReadManufacturerHardwareVersion() (string, error) {
	return config.readString(od.EntryManufacturerHardwareVer, 0)
}

func (config *NodeConfigurator) ReadManufacturerSoftwareVersion() (string, error) {
	return config.readString(od.EntryManufacturerSoftwareVer, 0)
}

// Read manufacturer objects (0x1008,0x1009,0x100A, these are all optional)
func (config *NodeConfigurator) ReadManufacturerInformation() ManufacturerInformation {
	info := ManufacturerInformation{}
	info.ManufacturerDeviceName, _ = config.ReadManufacturerDeviceName()
	info.ManufacturerHardwareVersion, _ = config.ReadManufacturerHardwareVersion()
	info.ManufacturerSoftwareVersion, _ = config.ReadManufacturerSoftwareVersion()
	return info
}
