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

package main

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/practical-formal-methods/evmflow/analysis"
)

var (
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Write the DOT graph to this file instead of stdout",
	}
	revisitFlag = &cli.StringFlag{
		Name:  "revisit",
		Usage: "Revisit policy for blocks reached with a new stack ('merge' or 'skip')",
	}

	cfgCommand = &cli.Command{
		Action:    cfgCmd,
		Name:      "cfg",
		Usage:     "Recovers the control-flow graph and prints it in DOT format",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{codeFlag, codeFileFlag, outFlag, revisitFlag},
	}
)

func cfgCmd(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(revisitFlag.Name) {
		if err := cfg.Analysis.Revisit.UnmarshalText([]byte(ctx.String(revisitFlag.Name))); err != nil {
			return err
		}
	}
	code, err := loadCode(ctx)
	if err != nil {
		return err
	}
	cache := analysis.NewCache(cfg.CacheSize, &cfg.Analysis)
	prog, err := cache.Recover(code)
	if err != nil {
		return err
	}
	log.Debug("Recovery finished", "blocks", prog.Len(), "elapsed", cache.Time())

	dot := analysis.DOT(prog)
	if out := ctx.String(outFlag.Name); out != "" {
		return os.WriteFile(out, []byte(dot), 0o644)
	}
	_, err = ctx.App.Writer.Write([]byte(dot))
	return err
}
