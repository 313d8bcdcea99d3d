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
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/practical-formal-methods/evmflow/state"
	"github.com/practical-formal-methods/evmflow/vm"
)

var (
	inputFlag = &cli.StringFlag{
		Name:  "input",
		Usage: "Call data as hex",
	}
	addressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "Address of the called contract",
		Value: "0x00000000000000000000000000000000000000ca",
	}
	senderFlag = &cli.StringFlag{
		Name:  "sender",
		Usage: "Address of the caller",
		Value: "0x00000000000000000000000000000000000000cf",
	}
	valueFlag = &cli.Uint64Flag{
		Name:  "value",
		Usage: "Value sent with the call, in wei",
	}
	gasFlag = &cli.Uint64Flag{
		Name:  "gas",
		Usage: "Gas limit of the call",
		Value: 10000000,
	}
	stateFlag = &cli.StringFlag{
		Name:  "state",
		Usage: "JSON state set to execute against",
	}
	rpcFlag = &cli.StringFlag{
		Name:  "rpc",
		Usage: "JSON-RPC endpoint to fork the state from",
	}
	saveFlag = &cli.StringFlag{
		Name:  "save",
		Usage: "Write the state after a successful call to this JSON file",
	}

	runCommand = &cli.Command{
		Action:    runCmd,
		Name:      "run",
		Usage:     "Executes a call and prints its outcome",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			codeFlag, codeFileFlag, inputFlag, addressFlag, senderFlag,
			valueFlag, gasFlag, stateFlag, rpcFlag, saveFlag,
		},
	}
)

// openState returns the base state described by cfg. When it is a state set
// that set is returned as well so that changes can be saved to it.
func openState(ctx context.Context, cfg *stateConfig) (state.ChainState, *state.StateSet, error) {
	switch {
	case cfg.RPC != "":
		remote, err := state.NewRPC(ctx, cfg.RPC)
		if err != nil {
			return nil, nil, err
		}
		if cfg.RPCTimeout > 0 {
			remote.SetTimeout(time.Duration(cfg.RPCTimeout) * time.Second)
		}
		return state.NewCache(remote), nil, nil
	case cfg.StateSet != "":
		set, err := state.LoadStateSet(cfg.StateSet)
		if err != nil {
			return nil, nil, err
		}
		return set, set, nil
	}
	return state.NewEmpty(vm.BlockInfo{Timestamp: uint64(time.Now().Unix())}), nil, nil
}

func runCmd(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(rpcFlag.Name) {
		cfg.State.RPC = ctx.String(rpcFlag.Name)
	}
	if ctx.IsSet(stateFlag.Name) {
		cfg.State.StateSet = ctx.String(stateFlag.Name)
	}
	base, set, err := openState(ctx.Context, &cfg.State)
	if err != nil {
		return err
	}
	overlay := state.NewOverlay(base)

	address := common.HexToAddress(ctx.String(addressFlag.Name))
	sender := common.HexToAddress(ctx.String(senderFlag.Name))
	if code, err := loadCode(ctx); err == nil {
		overlay.SetCode(address, code)
	} else if cfg.State.StateSet == "" && cfg.State.RPC == "" {
		return err
	}
	input, err := decodeHex(ctx.String(inputFlag.Name))
	if err != nil {
		return errors.Wrap(err, "input")
	}

	call := &vm.CallInfo{
		Sender:  sender,
		Address: address,
		Value:   uint256.NewInt(ctx.Uint64(valueFlag.Name)),
		Gas:     ctx.Uint64(gasFlag.Name),
		Input:   input,
	}
	start := time.Now()
	res, err := vm.Evaluate(overlay, nil, &vm.TransactionInfo{Origin: sender}, call, &cfg.VM)
	if err != nil {
		return err
	}
	log.Debug("Call finished", "address", address, "reverted", res.Reverted, "elapsed", common.PrettyDuration(time.Since(start)))

	w := ctx.App.Writer
	fmt.Fprintln(w, res)
	if cfg.VM.MeterGas {
		fmt.Fprintf(w, "gas left: %d\n", res.GasLeft)
	}
	for _, l := range res.Logs {
		fmt.Fprintf(w, "log %v topics %v data %#x\n", l.Address, l.Topics, l.Data)
	}

	if out := ctx.String(saveFlag.Name); out != "" && !res.Reverted {
		if set == nil {
			set = state.NewStateSet()
		}
		if err := overlay.Commit(set); err != nil {
			return err
		}
		return set.Save(out)
	}
	return nil
}
