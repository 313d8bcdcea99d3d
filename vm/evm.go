// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// BlockInfo holds the block constants visible to executing code.
type BlockInfo struct {
	Timestamp  uint64
	Number     uint64
	Coinbase   common.Address
	GasLimit   uint64
	Difficulty *uint256.Int
}

// TransactionInfo holds the transaction constants visible to executing code.
type TransactionInfo struct {
	Origin   common.Address
	GasPrice *uint256.Int
}

// CallInfo holds the parameters of a single call.
type CallInfo struct {
	Sender  common.Address
	Address common.Address
	Value   *uint256.Int
	Gas     uint64
	Input   []byte
}

// ChainState is the account and storage model the interpreter reads.
type ChainState interface {
	BlockInfo() (BlockInfo, error)
	Nonce(addr common.Address) (uint64, error)
	Balance(addr common.Address) (*uint256.Int, error)
	Code(addr common.Address) ([]byte, error)
	Storage(addr common.Address, slot common.Hash) (common.Hash, error)
}

// WritableChainState is a ChainState that state modifying opcodes can write
// to. SSTORE against a ChainState without these methods fails with
// ErrReadOnlyState.
type WritableChainState interface {
	ChainState
	SetNonce(addr common.Address, nonce uint64) error
	SetBalance(addr common.Address, balance *uint256.Int) error
	SetCode(addr common.Address, code []byte) error
	SetStorage(addr common.Address, slot, value common.Hash) error
}

// Config are the configuration options for the Interpreter.
type Config struct {
	MaxCallDepth int    // Nesting limit of static calls
	MemoryLimit  uint64 // Upper bound of the memory of one call frame, in bytes
	MeterGas     bool   // Charge the static gas of every instruction
}

// DefaultConfig contains the default interpreter settings.
var DefaultConfig = Config{
	MaxCallDepth: int(params.CallCreateDepth),
	MemoryLimit:  32 * 1024 * 1024,
}

// ExecutionResult is the outcome of a call that ran to completion: either
// returned or reverted, with the data it produced.
type ExecutionResult struct {
	Reverted   bool
	ReturnData []byte
	Logs       []*types.Log // Logs emitted by a call that returned
	GasLeft    uint64
}

// Return builds the result of a call that returned data.
func Return(data []byte) *ExecutionResult {
	return &ExecutionResult{ReturnData: data}
}

// Revert builds the result of a call that reverted with data.
func Revert(data []byte) *ExecutionResult {
	return &ExecutionResult{Reverted: true, ReturnData: data}
}

// Equal reports whether r and other have the same outcome and data.
func (r *ExecutionResult) Equal(other *ExecutionResult) bool {
	return r.Reverted == other.Reverted && bytes.Equal(r.ReturnData, other.ReturnData)
}

func (r *ExecutionResult) String() string {
	if r.Reverted {
		return fmt.Sprintf("Revert(%#x)", r.ReturnData)
	}
	return fmt.Sprintf("Return(%#x)", r.ReturnData)
}

// Evaluate executes call against state and returns its outcome. Without
// block the block constants are taken from the state.
func Evaluate(state ChainState, block *BlockInfo, tx *TransactionInfo, call *CallInfo, cfg *Config) (*ExecutionResult, error) {
	if block == nil {
		info, err := state.BlockInfo()
		if err != nil {
			return nil, errors.Wrap(err, "block info")
		}
		block = &info
	}
	return NewInterpreter(state, block, tx, cfg).Call(call)
}
