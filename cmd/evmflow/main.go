// Copyright 2018 MPI-SWS and Valentin Wuestholz

// This file is part of Bran.
//
// Bran is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Bran is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Bran.  If not, see <https://www.gnu.org/licenses/>.

// evmflow decodes, analyses and executes EVM bytecode.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	codeFlag = &cli.StringFlag{
		Name:  "code",
		Usage: "Bytecode as hex, with or without 0x prefix",
	}
	codeFileFlag = &cli.StringFlag{
		Name:  "codefile",
		Usage: "File containing the bytecode as hex",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "evmflow"
	app.Usage = "EVM bytecode decoder, control-flow recovery and interpreter"
	app.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
	}
	app.Commands = []*cli.Command{
		disasmCommand,
		cfgCommand,
		runCommand,
		dumpConfigCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		setupLogging(ctx.Int(verbosityFlag.Name))
		return nil
	}
	return app
}

func setupLogging(verbosity int) {
	var (
		output   io.Writer = os.Stderr
		useColor           = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if useColor {
		output = colorable.NewColorableStderr()
	}
	handler := log.NewTerminalHandlerWithLevel(output, log.FromLegacyLevel(verbosity), useColor)
	log.SetDefault(log.NewLogger(handler))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "evmflow: %v\n", err)
	os.Exit(1)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}
