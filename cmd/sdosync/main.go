package main

import (
	"os"

	_ "github.com/samsamfire/sdosync/pkg/can/socketcan"
	_ "github.com/samsamfire/sdosync/pkg/can/virtual"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func newApp() *cli.App {
	a := cli.NewApp()
	a.Name = "sdosync"
	a.Usage = "blocking SDO accesses to CANopen nodes"
	a.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "network configuration file (ini)",
		},
		cli.BoolFlag{
			Name: "debug",
		},
	}
	a.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}
	a.Commands = []cli.Command{
		ReadCmd(),
		WriteCmd(),
		IdentityCmd(),
		ServeCmd(),
		SimulateCmd(),
	}
	return a
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal("Error when executing command: ", err)
	}
}
