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
	"hash"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// keccakState wraps sha3.state. In addition to the usual hash methods, it also supports
// Read to get a variable amount of data from the hash state. Read is faster than Sum
// because it doesn't copy the internal state, but also modifies the internal state.
type keccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// Interpreter executes calls against a chain state. One Interpreter serves a
// top-level call and every static call nested in it; it is not safe for
// concurrent use.
type Interpreter struct {
	state ChainState
	block BlockInfo
	tx    TransactionInfo
	cfg   Config
	table *JumpTable

	depth      int
	readOnly   bool   // Whether to throw on stateful modifications
	returnData []byte // Last CALL's return data for subsequent reuse
	logs       []*types.Log

	hasher    keccakState // Keccak256 hasher instance shared across opcodes
	hasherBuf common.Hash // Keccak256 hasher result array shared aross opcodes
}

// NewInterpreter returns a new instance of the Interpreter. Zero fields of
// cfg take their DefaultConfig value.
func NewInterpreter(state ChainState, block *BlockInfo, tx *TransactionInfo, cfg *Config) *Interpreter {
	in := &Interpreter{
		state: state,
		cfg:   DefaultConfig,
		table: &instructionSet,
	}
	if block != nil {
		in.block = *block
	}
	if in.block.Difficulty == nil {
		in.block.Difficulty = new(uint256.Int)
	}
	if tx != nil {
		in.tx = *tx
	}
	if in.tx.GasPrice == nil {
		in.tx.GasPrice = new(uint256.Int)
	}
	if cfg != nil {
		in.cfg.MeterGas = cfg.MeterGas
		if cfg.MaxCallDepth != 0 {
			in.cfg.MaxCallDepth = cfg.MaxCallDepth
		}
		if cfg.MemoryLimit != 0 {
			in.cfg.MemoryLimit = cfg.MemoryLimit
		}
	}
	return in
}

// Call executes the code stored at call.Address with the given input and
// reports whether it returned or reverted. Errors are reserved for
// executions the engine cannot complete: invalid or unsupported opcodes,
// stack violations, invalid jumps, resource limits and chain state failures.
func (in *Interpreter) Call(call *CallInfo) (*ExecutionResult, error) {
	callCounter.Inc(1)
	code, err := in.state.Code(call.Address)
	if err != nil {
		return nil, errors.Wrapf(err, "code of %v", call.Address)
	}
	contract := NewContract(call.Sender, call.Address, code, call.Value, call.Gas)
	contract.Input = call.Input

	in.logs = nil
	ret, err := in.run(contract, false)
	switch {
	case errors.Is(err, ErrExecutionReverted):
		revertCounter.Inc(1)
		res := Revert(ret)
		res.GasLeft = contract.Gas
		return res, nil
	case err != nil:
		failureCounter.Inc(1)
		return nil, err
	}
	res := Return(ret)
	res.GasLeft = contract.Gas
	res.Logs = in.logs
	return res, nil
}

// staticCall runs the code at addr in a read-only frame nested in caller.
func (in *Interpreter) staticCall(caller *Contract, addr common.Address, input []byte, gas uint64) ([]byte, error) {
	if in.depth >= in.cfg.MaxCallDepth {
		return nil, ErrDepth
	}
	code, err := in.state.Code(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "code of %v", addr)
	}
	if in.cfg.MeterGas && gas > caller.Gas {
		gas = caller.Gas
	}
	log.Debug("Static call", "depth", in.depth, "to", addr, "input", hexutil.Bytes(input))

	contract := NewContract(caller.Address, addr, code, new(uint256.Int), gas)
	contract.Input = input
	ret, err := in.run(contract, true)
	if in.cfg.MeterGas {
		caller.Gas -= gas - contract.Gas
	}
	if err != nil && !errors.Is(err, ErrExecutionReverted) {
		return nil, errors.Wrapf(err, "static call to %v at depth %d", addr, in.depth)
	}
	return ret, err
}

// account reports whether addr is empty together with its code.
func (in *Interpreter) account(addr common.Address) (bool, []byte, error) {
	code, err := in.state.Code(addr)
	if err != nil {
		return false, nil, errors.Wrapf(err, "code of %v", addr)
	}
	if len(code) > 0 {
		return false, code, nil
	}
	nonce, err := in.state.Nonce(addr)
	if err != nil {
		return false, nil, errors.Wrapf(err, "nonce of %v", addr)
	}
	balance, err := in.state.Balance(addr)
	if err != nil {
		return false, nil, errors.Wrapf(err, "balance of %v", addr)
	}
	return nonce == 0 && (balance == nil || balance.IsZero()), code, nil
}

// run loops and evaluates the contract's code with the given input data and returns
// the return byte-slice and an error if one occurred.
//
// It's important to note that any errors returned by the interpreter should be
// considered a revert-and-consume-all-gas operation except for
// ErrExecutionReverted which means revert-and-keep-gas-left.
func (in *Interpreter) run(contract *Contract, readOnly bool) (ret []byte, err error) {
	// Increment the call depth which is restricted to the configured maximum
	in.depth++
	defer func() { in.depth-- }()

	// Make sure the readOnly is only set if we aren't in readOnly yet.
	// This makes also sure that the readOnly flag isn't removed for child calls.
	if readOnly && !in.readOnly {
		in.readOnly = true
		defer func() { in.readOnly = false }()
	}

	// Reset the previous call's return data. It's unimportant to preserve the old buffer
	// as every returning call will return new data anyway.
	in.returnData = nil

	// Don't bother with the execution if there's no code.
	if len(contract.Code) == 0 {
		return nil, nil
	}

	var (
		op    OpCode        // current opcode
		mem   = NewMemory() // bound memory
		stack = newstack()  // local stack
		// For optimisation reason we're using uint64 as the program counter.
		// It's theoretically possible to go above 2^64. The YP defines the PC
		// to be uint256. Practically much less so feasible.
		pc  = uint64(0) // program counter
		res []byte      // result of the opcode execution function
	)

	// The Interpreter main run loop (contextual). This loop runs until either an
	// explicit STOP, RETURN or SELFDESTRUCT is executed, an error occurred during
	// the execution of one of the operations or until an unsupported opcode
	// is reached.
	for {
		// Get the operation from the jump table and validate the stack to ensure there are
		// enough stack items available to perform the operation.
		op = contract.GetOp(pc)
		operation := &in.table[op]
		if !operation.valid {
			return nil, errors.Wrapf(ErrInvalidOpcode, "opcode %#x at pc %d", byte(op), pc)
		}
		if err := operation.stack.validate(stack.len()); err != nil {
			return nil, errors.Wrapf(err, "%v at pc %d", op, pc)
		}
		// If the operation is valid, enforce write restrictions
		if in.readOnly && operation.writes {
			return nil, errors.Wrapf(ErrWriteProtection, "%v at pc %d", op, pc)
		}
		if in.cfg.MeterGas && !contract.UseGas(operation.constantGas) {
			return nil, errors.Wrapf(ErrOutOfGas, "%v at pc %d", op, pc)
		}

		var memorySize uint64
		// calculate the new memory size and expand the memory to fit
		// the operation
		if operation.memorySize != nil {
			memSize, overflow := operation.memorySize(stack)
			if overflow {
				return nil, errors.Wrapf(ErrGasUintOverflow, "%v at pc %d", op, pc)
			}
			// memory is expanded in words of 32 bytes. Gas
			// is also calculated in words.
			if memorySize, overflow = math.SafeMul(toWordSize(memSize), 32); overflow {
				return nil, errors.Wrapf(ErrGasUintOverflow, "%v at pc %d", op, pc)
			}
			if memorySize > in.cfg.MemoryLimit {
				return nil, errors.Wrapf(ErrMemoryLimit, "%v at pc %d needs %d bytes", op, pc, memorySize)
			}
		}
		if memorySize > 0 {
			mem.Resize(memorySize)
		}

		// execute the operation
		res, err = operation.execute(&pc, in, contract, mem, stack)
		// if the operation clears the return data (e.g. it has returning data)
		// set the last return to the result of the operation.
		if operation.returns {
			in.returnData = res
		}

		switch {
		case err != nil:
			return nil, err
		case operation.reverts:
			return res, ErrExecutionReverted
		case operation.halts:
			return res, nil
		case !operation.jumps:
			pc++
		}
	}
}
