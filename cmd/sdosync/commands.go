package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/samsamfire/sdosync/pkg/gateway/http"
	"github.com/samsamfire/sdosync/pkg/network"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var ErrUsage = errors.New("invalid arguments")

// The virtual interface only connects buses of the same process
const virtualBusNote = `With the default "virtual" interface, only nodes created by this same
   process can be reached: a "simulate" process cannot be read from another
   "sdosync" process. Use interface = socketcan (or socketcanraw) in the
   [bus] section of the config file to reach other processes and real devices.`

func ReadCmd() cli.Command {
	return cli.Command{
		Name:      "read",
		Usage:     "read an entry of a remote node",
		ArgsUsage: "<node> <index> <subindex> <datatype>",
		Action:    read,
	}
}

func WriteCmd() cli.Command {
	return cli.Command{
		Name:      "write",
		Usage:     "write an entry of a remote node",
		ArgsUsage: "<node> <index> <subindex> <datatype> <value>",
		Action:    write,
	}
}

func IdentityCmd() cli.Command {
	return cli.Command{
		Name:      "identity",
		Usage:     "read the identity object of a remote node",
		ArgsUsage: "<node>",
		Action:    identity,
	}
}

func ServeCmd() cli.Command {
	return cli.Command{
		Name:        "serve",
		Usage:       "serve SDO accesses over HTTP",
		Description: virtualBusNote,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "listen",
				Value: "localhost:8090",
			},
			cli.StringFlag{
				Name:  "default-node",
				Value: "0",
				Usage: "node used for requests addressed to 'default'",
			},
		},
		Action: serve,
	}
}

func SimulateCmd() cli.Command {
	return cli.Command{
		Name:        "simulate",
		Usage:       "answer SDO requests from an EDS file, until interrupted",
		ArgsUsage:   "<eds>",
		Description: virtualBusNote,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "node",
				Value: "0x10",
			},
		},
		Action: simulate,
	}
}

// Create and connect the network described by the global config flag
func openNetwork(c *cli.Context) (*network.Network, error) {
	cfg := network.DefaultConfig()
	if path := c.GlobalString("config"); path != "" {
		var err error
		cfg, err = network.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Interface == "virtual" {
		log.Warnf("[CLI] using the virtual interface, only nodes of this process are reachable")
	}
	net := network.NewNetwork(nil, cfg)
	if err := net.Connect(); err != nil {
		return nil, err
	}
	return net, nil
}

// Open the network and make sure nodeId is reachable
func openRemote(c *cli.Context, nodeId uint8) (*network.Network, error) {
	net, err := openNetwork(c)
	if err != nil {
		return nil, err
	}
	err = net.AddRemoteNode(nodeId)
	if err != nil && !errors.Is(err, network.ErrIdConflict) {
		_ = net.Disconnect()
		return nil, err
	}
	return net, nil
}

func parseUint(arg string, name string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(arg, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%w : %v %q", ErrUsage, name, arg)
	}
	return v, nil
}

func parseNodeId(arg string) (uint8, error) {
	v, err := parseUint(arg, "node", 8)
	if err != nil {
		return 0, err
	}
	if v < 1 || v > 127 {
		return 0, fmt.Errorf("%w : node should be between 1 and 127, got %v", ErrUsage, v)
	}
	return uint8(v), nil
}

// Parse "<node> <index> <subindex> <datatype>" arguments
func parseEntryArgs(args cli.Args) (nodeId uint8, index uint16, subindex uint8, err error) {
	if len(args) < 4 {
		return 0, 0, 0, fmt.Errorf("%w : expecting node, index, subindex and datatype", ErrUsage)
	}
	nodeId, err = parseNodeId(args.Get(0))
	if err != nil {
		return
	}
	idx, err := parseUint(args.Get(1), "index", 16)
	if err != nil {
		return
	}
	sub, err := parseUint(args.Get(2), "subindex", 8)
	if err != nil {
		return
	}
	return nodeId, uint16(idx), uint8(sub), nil
}

func read(c *cli.Context) error {
	nodeId, index, subindex, err := parseEntryArgs(c.Args())
	if err != nil {
		return err
	}
	net, err := openRemote(c, nodeId)
	if err != nil {
		return err
	}
	defer net.Disconnect()
	value, err := net.ReadValue(nodeId, index, subindex, c.Args().Get(3))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, value)
	return nil
}

func write(c *cli.Context) error {
	if c.NArg() != 5 {
		return fmt.Errorf("%w : expecting node, index, subindex, datatype and value", ErrUsage)
	}
	nodeId, index, subindex, err := parseEntryArgs(c.Args())
	if err != nil {
		return err
	}
	net, err := openRemote(c, nodeId)
	if err != nil {
		return err
	}
	defer net.Disconnect()
	return net.WriteValue(nodeId, index, subindex, c.Args().Get(3), c.Args().Get(4))
}

func identity(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w : expecting node", ErrUsage)
	}
	nodeId, err := parseNodeId(c.Args().First())
	if err != nil {
		return err
	}
	net, err := openRemote(c, nodeId)
	if err != nil {
		return err
	}
	defer net.Disconnect()
	id, err := net.Configurator(nodeId).ReadIdentity()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "vendor x%x product x%x revision x%x serial x%x\n",
		id.VendorId, id.ProductCode, id.RevisionNumber, id.SerialNumber)
	return nil
}

func serve(c *cli.Context) error {
	defaultNode, err := parseUint(c.String("default-node"), "default-node", 8)
	if err != nil {
		return err
	}
	net, err := openNetwork(c)
	if err != nil {
		return err
	}
	defer net.Disconnect()
	return http.NewGatewayServer(net, uint8(defaultNode)).ListenAndServe(c.String("listen"))
}

func simulate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w : expecting eds file", ErrUsage)
	}
	nodeId, err := parseNodeId(c.String("node"))
	if err != nil {
		return err
	}
	net, err := openNetwork(c)
	if err != nil {
		return err
	}
	defer net.Disconnect()
	if _, err := net.AddLocalNode(nodeId, c.Args().First()); err != nil {
		return err
	}
	log.Infof("[SIMULATE][x%x] answering SDO requests, interrupt to exit", nodeId)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	return nil
}
