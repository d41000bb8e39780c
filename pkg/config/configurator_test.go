package config

import (
	"testing"
	"time"

	"github.com/samsamfire/sdosync/pkg/can"
	"github.com/samsamfire/sdosync/pkg/can/virtual"
	"github.com/samsamfire/sdosync/pkg/od"
	"github.com/samsamfire/sdosync/pkg/sdo"
	"github.com/samsamfire/sdosync/pkg/sdosync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const NODE_ID_TEST uint8 = 0x30

func createDictionaryTest(t *testing.T) *od.ObjectDictionary {
	dictionary := od.NewOD()
	add := func(index uint16, subindex uint8, datatype uint8, attribute uint8, value string) {
		_, err := dictionary.AddVariableType(index, subindex, "", datatype, attribute, value)
		require.Nil(t, err)
	}
	add(od.EntryDeviceType, 0, od.UNSIGNED32, od.AttributeSdoR, "0x191")
	add(od.EntryCobIdSYNC, 0, od.UNSIGNED32, od.AttributeSdoRw, "0x80")
	add(od.EntryCommunicationCyclePeriod, 0, od.UNSIGNED32, od.AttributeSdoRw, "0")
	add(od.EntrySynchronousWindowLength, 0, od.UNSIGNED32, od.AttributeSdoRw, "0")
	add(od.EntryManufacturerDeviceName, 0, od.VISIBLE_STRING, od.AttributeSdoR|od.AttributeStr, "sdosync test node")
	add(od.EntryCobIdTIME, 0, od.UNSIGNED32, od.AttributeSdoRw, "0x100")
	add(od.EntryConsumerHeartbeatTime, 0, od.UNSIGNED8, od.AttributeSdoR, "2")
	add(od.EntryConsumerHeartbeatTime, 1, od.UNSIGNED32, od.AttributeSdoRw, "0")
	add(od.EntryConsumerHeartbeatTime, 2, od.UNSIGNED32, od.AttributeSdoRw, "0")
	add(od.EntryProducerHeartbeatTime, 0, od.UNSIGNED16, od.AttributeSdoRw, "1000")
	add(od.EntryIdentityObject, 1, od.UNSIGNED32, od.AttributeSdoR, "0x1234")
	add(od.EntryIdentityObject, 2, od.UNSIGNED32, od.AttributeSdoR, "0x5678")
	add(od.EntrySynchronousCounterOverflow, 0, od.UNSIGNED8, od.AttributeSdoRw, "0")
	// A single TPDO
	add(od.EntryTPDOCommunicationStart, 1, od.UNSIGNED32, od.AttributeSdoRw, "0x800001B0")
	add(od.EntryTPDOCommunicationStart, 2, od.UNSIGNED8, od.AttributeSdoRw, "0xFF")
	add(od.EntryTPDOCommunicationStart, 3, od.UNSIGNED16, od.AttributeSdoRw, "0")
	add(od.EntryTPDOCommunicationStart, 5, od.UNSIGNED16, od.AttributeSdoRw, "0")
	add(od.EntryTPDOMappingStart, 0, od.UNSIGNED8, od.AttributeSdoRw, "0")
	for i := uint8(1); i <= od.MaxMappedEntriesPdo; i++ {
		add(od.EntryTPDOMappingStart, i, od.UNSIGNED32, od.AttributeSdoRw, "0")
	}
	return dictionary
}

func createConfiguratorTest(t *testing.T) (*NodeConfigurator, *od.ObjectDictionary) {
	canBus, err := virtual.NewVirtualCanBus(t.Name())
	require.Nil(t, err)
	bus := canBus.(*virtual.Bus)
	bus.SetReceiveOwn(true)
	require.Nil(t, bus.Connect())
	bm := can.NewBusManager(bus)
	require.Nil(t, bus.Subscribe(bm))
	t.Cleanup(func() { _ = bus.Disconnect() })

	dictionary := createDictionaryTest(t)
	server, err := sdo.NewServer(bm, NODE_ID_TEST, dictionary)
	require.Nil(t, err)
	t.Cleanup(server.Close)
	client, err := sdo.NewClient(bm, NODE_ID_TEST, 200*time.Millisecond)
	require.Nil(t, err)
	t.Cleanup(client.Close)

	manager := sdo.NewManager(sdo.DefaultMaxRequests, sdo.DefaultQueueDepth)
	_, err = manager.AddNode(NODE_ID_TEST, client)
	require.Nil(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return NewNodeConfigurator(NODE_ID_TEST, sdosync.NewManagerClient(manager)), dictionary
}

func TestGeneral(t *testing.T) {
	config, dictionary := createConfiguratorTest(t)
	assert.Equal(t, NODE_ID_TEST, config.NodeId())
	identity, err := config.ReadIdentity()
	assert.Nil(t, err)
	assert.EqualValues(t, 0x1234, identity.VendorId)
	assert.EqualValues(t, 0x5678, identity.ProductCode)
	// Optional entries that don't exist are left empty
	assert.EqualValues(t, 0, identity.SerialNumber)
	deviceType, err := config.ReadDeviceType()
	assert.Nil(t, err)
	assert.EqualValues(t, 0x191, deviceType)
	info := config.ReadManufacturerInformation()
	assert.Equal(t, "sdosync test node", info.ManufacturerDeviceName)
	assert.Equal(t, "", info.ManufacturerHardwareVersion)

	// Optional entries are still decoded and checked
	_, err = dictionary.AddVariableType(od.EntryIdentityObject, 3, "", od.UNSIGNED64, od.AttributeSdoR, "1")
	require.Nil(t, err)
	identity, err = config.ReadIdentity()
	assert.ErrorIs(t, err, sdosync.ErrRange)
	assert.Nil(t, identity)
}

func TestHeartbeat(t *testing.T) {
	config, _ := createConfiguratorTest(t)
	period, err := config.ReadHeartbeatPeriod()
	assert.Nil(t, err)
	assert.EqualValues(t, 1000, period)
	assert.Nil(t, config.WriteHeartbeatPeriod(250))
	period, err = config.ReadHeartbeatPeriod()
	assert.Nil(t, err)
	assert.EqualValues(t, 250, period)

	max, err := config.ReadMaxMonitorable()
	assert.Nil(t, err)
	assert.EqualValues(t, 2, max)
	assert.Nil(t, config.WriteMonitoredNode(2, 0x10, 500))
	monitored, err := config.ReadMonitoredNodes()
	assert.Nil(t, err)
	assert.Equal(t, []MonitoredNode{{0, 0}, {0x10, 500}}, monitored)
	assert.ErrorIs(t, config.WriteMonitoredNode(3, 0x10, 500), sdosync.ErrTransfer)
}

func TestSync(t *testing.T) {
	config, _ := createConfiguratorTest(t)
	cobId, err := config.ReadCobIdSYNC()
	assert.Nil(t, err)
	assert.EqualValues(t, 0x80, cobId)

	assert.Nil(t, config.ProducerEnableSYNC())
	cobId, _ = config.ReadCobIdSYNC()
	assert.EqualValues(t, 0x40000080, cobId)
	assert.Nil(t, config.ProducerDisableSYNC())
	cobId, _ = config.ReadCobIdSYNC()
	assert.EqualValues(t, 0x80, cobId)

	assert.Nil(t, config.WriteCanIdSYNC(0x81))
	cobId, _ = config.ReadCobIdSYNC()
	assert.EqualValues(t, 0x81, cobId)

	assert.Nil(t, config.WriteCounterOverflow(10))
	counter, err := config.ReadCounterOverflow()
	assert.Nil(t, err)
	assert.EqualValues(t, 10, counter)

	assert.Nil(t, config.WriteCommunicationPeriod(100*time.Millisecond))
	period, err := config.ReadCommunicationPeriod()
	assert.Nil(t, err)
	assert.Equal(t, 100*time.Millisecond, period)

	assert.Nil(t, config.WriteWindowLengthPdos(1500*time.Microsecond))
	window, err := config.ReadWindowLengthPdos()
	assert.Nil(t, err)
	assert.Equal(t, 1500*time.Microsecond, window)
}

func TestTime(t *testing.T) {
	config, dictionary := createConfiguratorTest(t)
	assert.Nil(t, config.ProducerEnableTIME())
	assert.Nil(t, config.ConsumerEnableTIME())
	cobId, err := config.ReadCobIdTIME()
	assert.Nil(t, err)
	assert.EqualValues(t, 0xC0000100, cobId)
	assert.Nil(t, config.ProducerDisableTIME())
	assert.Nil(t, config.ConsumerDisableTIME())
	raw, err := dictionary.Get(od.EntryCobIdTIME, 0)
	assert.Nil(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00}, raw)
}

func TestPDO(t *testing.T) {
	config, _ := createConfiguratorTest(t)
	enabled, err := config.ReadEnabledPDO(MinTpdoNumber)
	assert.Nil(t, err)
	assert.False(t, enabled)
	assert.Nil(t, config.EnablePDO(MinTpdoNumber))
	enabled, _ = config.ReadEnabledPDO(MinTpdoNumber)
	assert.True(t, enabled)
	assert.Nil(t, config.DisablePDO(MinTpdoNumber))

	conf := PDOConfigurationParameter{
		CanId:            0x1B5,
		TransmissionType: 1,
		InhibitTime:      10,
		EventTimer:       100,
		Mappings: []PDOMappingParameter{
			{Index: 0x2001, Subindex: 0, LengthBits: 8},
			{Index: 0x2002, Subindex: 1, LengthBits: 16},
		},
	}
	assert.Nil(t, config.WriteConfigurationPDO(MinTpdoNumber, conf))
	read, err := config.ReadConfigurationPDO(MinTpdoNumber)
	assert.Nil(t, err)
	assert.Equal(t, conf, read)

	rpdos, tpdos, err := config.ReadConfigurationAllPDO()
	assert.Nil(t, err)
	assert.Len(t, rpdos, 0)
	assert.Len(t, tpdos, 1)

	_, err = config.ReadCobIdPDO(0)
	assert.ErrorIs(t, err, ErrPdoNumber)
	_, err = config.ReadConfigurationRangePDO(10, 2)
	assert.ErrorIs(t, err, ErrPdoNumber)
	assert.ErrorIs(t, config.WriteMappings(MinTpdoNumber, make([]PDOMappingParameter, 9)), ErrPdoNumber)
}
