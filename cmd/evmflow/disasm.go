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
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/practical-formal-methods/evmflow/analysis"
)

var disasmCommand = &cli.Command{
	Action:    disasmCmd,
	Name:      "disasm",
	Usage:     "Disassembles evm binary into basic blocks",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{codeFlag, codeFileFlag},
}

func disasmCmd(ctx *cli.Context) error {
	code, err := loadCode(ctx)
	if err != nil {
		return err
	}
	return disassemble(ctx.App.Writer, code)
}

// disassemble prints the blocks of a linear sweep over code.
func disassemble(w io.Writer, code []byte) error {
	for pc := uint64(0); pc < uint64(len(code)); {
		b := analysis.DecodeBlock(code, pc)
		if _, err := fmt.Fprintf(w, "block %d (gas %d)\n", b.Start, b.StaticGas()); err != nil {
			return err
		}
		for _, ins := range b.Instructions {
			if ins.Kind == analysis.Fallthrough {
				continue
			}
			if _, err := fmt.Fprintf(w, "%05d: %v\n", ins.PC, ins); err != nil {
				return err
			}
		}
		pc = b.End
	}
	return nil
}

// loadCode reads the bytecode given by --code, --codefile or the first
// argument.
func loadCode(ctx *cli.Context) ([]byte, error) {
	switch {
	case ctx.IsSet(codeFlag.Name):
		return decodeHex(ctx.String(codeFlag.Name))
	case ctx.IsSet(codeFileFlag.Name):
		return loadCodeFile(ctx.String(codeFileFlag.Name))
	case ctx.Args().Len() > 0:
		return loadCodeFile(ctx.Args().First())
	}
	return nil, errors.New("missing --code, --codefile or filename")
}

func loadCodeFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeHex(string(data))
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		return nil, errors.Errorf("hex string has odd length: %d", len(s))
	}
	data, err := hex.DecodeString(s)
	return data, errors.Wrap(err, "decode hex")
}
