package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/samsamfire/sdosync/pkg/can/virtual"
	"github.com/samsamfire/sdosync/pkg/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const testEds = `
[1017]
ParameterName=Producer heartbeat time
ObjectType=0x7
DataType=0x0006
AccessType=rw
DefaultValue=1000

[1018sub1]
ParameterName=Vendor-ID
ObjectType=0x7
DataType=0x0007
AccessType=ro
DefaultValue=0x12345678
`

// Simulated device on its own bus, and a config file pointing to the same channel
func createDeviceTest(t *testing.T) string {
	dir := t.TempDir()
	edsPath := filepath.Join(dir, "device.eds")
	require.Nil(t, os.WriteFile(edsPath, []byte(testEds), 0o644))

	canBus, err := virtual.NewVirtualCanBus(t.Name())
	require.Nil(t, err)
	device := network.NewNetwork(canBus, nil)
	require.Nil(t, device.Connect())
	t.Cleanup(func() { _ = device.Disconnect() })
	_, err = device.AddLocalNode(0x10, edsPath)
	require.Nil(t, err)

	configPath := filepath.Join(dir, "network.ini")
	config := "[bus]\ninterface = virtual\nchannel = " + t.Name() + "\n[sdo]\ntimeout = 200\n"
	require.Nil(t, os.WriteFile(configPath, []byte(config), 0o644))
	return configPath
}

func runApp(args ...string) (string, error) {
	app := newApp()
	out := new(bytes.Buffer)
	app.Writer = out
	err := app.Run(append([]string{"sdosync"}, args...))
	return out.String(), err
}

func TestParseEntryArgs(t *testing.T) {
	nodeId, index, subindex, err := parseEntryArgs(cli.Args{"0x10", "0x1017", "2", "u16"})
	assert.Nil(t, err)
	assert.EqualValues(t, 0x10, nodeId)
	assert.EqualValues(t, 0x1017, index)
	assert.EqualValues(t, 2, subindex)

	_, _, _, err = parseEntryArgs(cli.Args{"0x10", "0x1017"})
	assert.ErrorIs(t, err, ErrUsage)
	_, _, _, err = parseEntryArgs(cli.Args{"0", "0x1017", "0", "u8"})
	assert.ErrorIs(t, err, ErrUsage)
	_, _, _, err = parseEntryArgs(cli.Args{"0x10", "0x10170", "0", "u8"})
	assert.ErrorIs(t, err, ErrUsage)
	_, _, _, err = parseEntryArgs(cli.Args{"0x10", "0x1017", "256", "u8"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestIdentityWithNoArgs(t *testing.T) {
	app := cli.NewApp()
	ctx := cli.NewContext(app, flag.NewFlagSet("test", flag.ContinueOnError), nil)
	assert.ErrorIs(t, identity(ctx), ErrUsage)
	assert.ErrorIs(t, write(ctx), ErrUsage)
	assert.ErrorIs(t, simulate(ctx), ErrUsage)
}

func TestVirtualBusNote(t *testing.T) {
	app := newApp()
	for _, name := range []string{"serve", "simulate"} {
		cmd := app.Command(name)
		if assert.NotNil(t, cmd) {
			assert.Contains(t, cmd.Description, "socketcan")
		}
	}
}

func TestReadWrite(t *testing.T) {
	configPath := createDeviceTest(t)
	out, err := runApp("--config", configPath, "read", "0x10", "0x1017", "0", "u16")
	assert.Nil(t, err)
	assert.Equal(t, "1000\n", out)

	_, err = runApp("--config", configPath, "write", "0x10", "0x1017", "0", "u16", "250")
	assert.Nil(t, err)
	out, err = runApp("--config", configPath, "read", "0x10", "0x1017", "0", "u16")
	assert.Nil(t, err)
	assert.Equal(t, "250\n", out)

	out, err = runApp("--config", configPath, "identity", "0x10")
	assert.Nil(t, err)
	assert.Contains(t, out, "vendor x12345678")

	_, err = runApp("--config", configPath, "read", "0x10", "0x3000", "0", "u16")
	assert.NotNil(t, err)
	_, err = runApp("--config", filepath.Join(t.TempDir(), "missing.ini"), "read", "0x10", "0x1017", "0", "u16")
	assert.ErrorIs(t, err, network.ErrConfig)
}
