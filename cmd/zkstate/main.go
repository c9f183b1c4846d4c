package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/config"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/node"
	"tokamak-zkrollup/operation"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli"
)

const (
	flagCfg     = "cfg"
	flagEnvFile = "envfile"
)

var (
	// Version represents the program based on the git tag
	Version = "v0.1.0"
)

// decodedOp is the printed form of an operation read from block pubdata
type decodedOp struct {
	Type       string             `json:"type"`
	Chunks     int                `json:"chunks"`
	AccountIDs []common.AccountID `json:"accountIds"`
	Op         operation.Op       `json:"op"`
	Withdrawal hexutil.Bytes      `json:"withdrawal,omitempty"`
}

func decodePubData(pubdata []byte) ([]decodedOp, error) {
	parts, err := operation.SplitPublicData(pubdata)
	if err != nil {
		return nil, common.Wrap(err)
	}
	ops := make([]decodedOp, 0, len(parts))
	for _, part := range parts {
		op, err := operation.FromPublicData(part)
		if err != nil {
			return nil, common.Wrap(err)
		}
		d := decodedOp{
			Type:       op.Type().String(),
			Chunks:     op.Chunks(),
			AccountIDs: op.AccountIDs(),
			Op:         op,
		}
		if w, ok := operation.WithdrawalData(op); ok {
			d.Withdrawal = w
		}
		ops = append(ops, d)
	}
	return ops, nil
}

func cmdDecode(c *cli.Context) error {
	if c.NArg() != 1 {
		return common.Wrap(fmt.Errorf("expected one hex encoded pubdata argument"))
	}
	arg := c.Args().First()
	if !strings.HasPrefix(arg, "0x") {
		arg = "0x" + arg
	}
	pubdata, err := hexutil.Decode(arg)
	if err != nil {
		return common.Wrap(fmt.Errorf("invalid pubdata: %w", err))
	}
	ops, err := decodePubData(pubdata)
	if err != nil {
		return common.Wrap(err)
	}
	out, err := json.MarshalIndent(ops, "", "  ")
	if err != nil {
		return common.Wrap(err)
	}
	fmt.Println(string(out))
	return nil
}

func cmdRun(c *cli.Context) error {
	cfg, err := config.LoadNode(c.String(flagCfg), c.String(flagEnvFile))
	if err != nil {
		return common.Wrap(fmt.Errorf("error parsing flags and config: %w", common.Unwrap(err)))
	}
	log.Init(cfg.Log.Level, cfg.Log.Out)
	innerNode, err := node.NewNode(cfg)
	if err != nil {
		return common.Wrap(fmt.Errorf("error starting node: %w", common.Unwrap(err)))
	}
	innerNode.Start()

	stopCh := make(chan interface{})

	// catch ^C to send the stop signal
	ossig := make(chan os.Signal, 1)
	signal.Notify(ossig, os.Interrupt)
	const forceStopCount = 3
	go func() {
		n := 0
		for sig := range ossig {
			if sig == os.Interrupt {
				log.Info("Received Interrupt Signal")
				stopCh <- nil
				n++
				if n == forceStopCount {
					log.Fatalf("Received %v Interrupt Signals", forceStopCount)
				}
			}
		}
	}()
	<-stopCh
	innerNode.Stop()

	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "zkstate"
	app.Version = Version
	flags := []cli.Flag{
		cli.StringFlag{
			Name:  flagCfg,
			Usage: "Node configuration `FILE`",
		},
		cli.StringFlag{
			Name:  flagEnvFile,
			Usage: "`FILE` with environment variables to load",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the zkrollup node",
			Action:  cmdRun,
			Flags:   flags,
		},
		{
			Name:      "decode",
			Aliases:   []string{},
			Usage:     "Decode the operations of a block pubdata",
			ArgsUsage: "PUBDATA",
			Action:    cmdDecode,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("\nError: %v\n", common.Wrap(err))
		os.Exit(1)
	}
}
