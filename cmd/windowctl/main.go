package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "windowctl",
		Usage: "Page interactively through indexed data with a bounded sliding window",
		Commands: []*cli.Command{
			{
				Name:   "blocks",
				Usage:  "Page through a ClickHouse raw blocks table by block number",
				Flags:  blocksFlags(),
				Action: runBlocks,
			},
			{
				Name:   "kafka",
				Usage:  "Page through one Kafka topic partition by offset",
				Flags:  kafkaFlags(),
				Action: runKafka,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
