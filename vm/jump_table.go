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
	"github.com/ethereum/go-ethereum/params"
	"github.com/pkg/errors"
)

type (
	executionFunc  func(pc *uint64, interpreter *Interpreter, contract *Contract, memory *Memory, stack *Stack) ([]byte, error)
	memorySizeFunc func(*Stack) (size uint64, overflow bool) // returns the memory size required for the operation
)

type operation struct {
	// execute is the operation function
	execute executionFunc
	// constantGas is the static part of the gas required for execution
	constantGas uint64
	// stack holds the number of items popped and pushed
	stack stackArity
	// memorySize returns the memory size required for the operation
	memorySize memorySizeFunc

	halts   bool // indicates whether the operation should halt further execution
	jumps   bool // indicates whether the program counter should not increment
	writes  bool // determines whether this a state modifying operation
	valid   bool // indication whether the retrieved operation is valid and known
	reverts bool // determines whether the operation reverts state (implicitly halts)
	returns bool // determines whether the operations sets the return data content
}

type stackArity struct {
	pops, pushes int
}

func makeStack(pops, pushes int) stackArity {
	return stackArity{pops: pops, pushes: pushes}
}

func makeDupStack(n int) stackArity {
	return makeStack(n, n+1)
}

func makeSwapStack(n int) stackArity {
	return makeStack(n, n)
}

// validate checks that an operation with this arity can run on a stack of
// the given height without under- or overflowing it.
func (s stackArity) validate(height int) error {
	if height < s.pops {
		return errors.Wrapf(ErrStackUnderflow, "stack height %d, required %d", height, s.pops)
	}
	if limit := int(params.StackLimit) + s.pops - s.pushes; height > limit {
		return errors.Wrapf(ErrStackOverflow, "stack height %d, limit %d", height, limit)
	}
	return nil
}

// JumpTable contains the EVM opcodes supported at a given fork.
type JumpTable [256]operation

var instructionSet = newConstantinopleInstructionSet()

// StackEffect returns the number of items op pops from and pushes to the
// stack. Invalid opcodes have no stack effect.
func StackEffect(op OpCode) (pop, push int) {
	s := instructionSet[op].stack
	return s.pops, s.pushes
}

// ValidateStack reports whether op can be applied to a stack of the given
// height, failing with ErrStackUnderflow or ErrStackOverflow.
func ValidateStack(op OpCode, height int) error {
	return instructionSet[op].stack.validate(height)
}

// IsBlockFinal reports whether op ends a basic block on its own. JUMPI is
// not final as a raw opcode: only its decoded conditional jump is.
func IsBlockFinal(op OpCode) bool {
	switch op {
	case STOP, JUMP, RETURN, REVERT:
		return true
	}
	return !instructionSet[op].valid
}

// BaseGas returns the static gas charged for op. It is a lower bound only:
// memory expansion, copy word costs, EXP byte costs, SSTORE set costs and
// refunds, and call stipends are not included.
func BaseGas(op OpCode) uint64 {
	return instructionSet[op].constantGas
}

// newConstantinopleInstructionSet returns the frontier, homestead,
// byzantium and constantinople instructions.
func newConstantinopleInstructionSet() JumpTable {
	instructionSet := newByzantiumInstructionSet()
	instructionSet[SHL] = operation{
		execute:     opSHL,
		constantGas: GasFastestStep,
		stack:       makeStack(2, 1),
		valid:       true,
	}
	instructionSet[SHR] = operation{
		execute:     opSHR,
		constantGas: GasFastestStep,
		stack:       makeStack(2, 1),
		valid:       true,
	}
	instructionSet[SAR] = operation{
		execute:     opSAR,
		constantGas: GasFastestStep,
		stack:       makeStack(2, 1),
		valid:       true,
	}
	instructionSet[EXTCODEHASH] = operation{
		execute:     opExtCodeHash,
		constantGas: params.ExtcodeHashGasConstantinople,
		stack:       makeStack(1, 1),
		valid:       true,
	}
	instructionSet[CREATE2] = operation{
		execute:     opUnsupported,
		constantGas: params.Create2Gas,
		stack:       makeStack(4, 1),
		valid:       true,
		writes:      true,
		returns:     true,
	}
	return instructionSet
}

// newByzantiumInstructionSet returns the frontier, homestead and
// byzantium instructions.
func newByzantiumInstructionSet() JumpTable {
	instructionSet := newHomesteadInstructionSet()
	instructionSet[STATICCALL] = operation{
		execute:     opStaticCall,
		constantGas: params.CallGasEIP150,
		stack:       makeStack(6, 1),
		memorySize:  memoryStaticCall,
		valid:       true,
		returns:     true,
	}
	instructionSet[RETURNDATASIZE] = operation{
		execute:     opReturnDataSize,
		constantGas: GasQuickStep,
		stack:       makeStack(0, 1),
		valid:       true,
	}
	instructionSet[RETURNDATACOPY] = operation{
		execute:     opReturnDataCopy,
		constantGas: GasFastestStep,
		stack:       makeStack(3, 0),
		memorySize:  memoryReturnDataCopy,
		valid:       true,
	}
	instructionSet[REVERT] = operation{
		execute:    opRevert,
		stack:      makeStack(2, 0),
		memorySize: memoryRevert,
		valid:      true,
		reverts:    true,
		returns:    true,
	}
	return instructionSet
}

// newHomesteadInstructionSet returns the frontier and homestead
// instructions that can be executed during the homestead phase.
func newHomesteadInstructionSet() JumpTable {
	instructionSet := newFrontierInstructionSet()
	instructionSet[DELEGATECALL] = operation{
		execute:     opUnsupported,
		constantGas: params.CallGasEIP150,
		stack:       makeStack(6, 1),
		valid:       true,
		returns:     true,
	}
	return instructionSet
}

// newFrontierInstructionSet returns the frontier instructions
// that can be executed during the frontier phase.
func newFrontierInstructionSet() JumpTable {
	tbl := JumpTable{
		STOP: {
			execute: opStop,
			stack:   makeStack(0, 0),
			halts:   true,
			valid:   true,
		},
		ADD: {
			execute:     opAdd,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		MUL: {
			execute:     opMul,
			constantGas: GasFastStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		SUB: {
			execute:     opSub,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		DIV: {
			execute:     opDiv,
			constantGas: GasFastStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		SDIV: {
			execute:     opSdiv,
			constantGas: GasFastStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		MOD: {
			execute:     opMod,
			constantGas: GasFastStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		SMOD: {
			execute:     opSmod,
			constantGas: GasFastStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		ADDMOD: {
			execute:     opAddmod,
			constantGas: GasMidStep,
			stack:       makeStack(3, 1),
			valid:       true,
		},
		MULMOD: {
			execute:     opMulmod,
			constantGas: GasMidStep,
			stack:       makeStack(3, 1),
			valid:       true,
		},
		EXP: {
			execute:     opExp,
			constantGas: params.ExpGas,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		SIGNEXTEND: {
			execute:     opSignExtend,
			constantGas: GasFastStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		LT: {
			execute:     opLt,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		GT: {
			execute:     opGt,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		SLT: {
			execute:     opSlt,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		SGT: {
			execute:     opSgt,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		EQ: {
			execute:     opEq,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		ISZERO: {
			execute:     opIszero,
			constantGas: GasFastestStep,
			stack:       makeStack(1, 1),
			valid:       true,
		},
		AND: {
			execute:     opAnd,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		XOR: {
			execute:     opXor,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		OR: {
			execute:     opOr,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		NOT: {
			execute:     opNot,
			constantGas: GasFastestStep,
			stack:       makeStack(1, 1),
			valid:       true,
		},
		BYTE: {
			execute:     opByte,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 1),
			valid:       true,
		},
		SHA3: {
			execute:     opSha3,
			constantGas: params.Keccak256Gas,
			stack:       makeStack(2, 1),
			memorySize:  memorySha3,
			valid:       true,
		},
		ADDRESS: {
			execute:     opAddress,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		BALANCE: {
			execute:     opBalance,
			constantGas: params.BalanceGasEIP150,
			stack:       makeStack(1, 1),
			valid:       true,
		},
		ORIGIN: {
			execute:     opOrigin,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		CALLER: {
			execute:     opCaller,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		CALLVALUE: {
			execute:     opCallValue,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		CALLDATALOAD: {
			execute:     opCallDataLoad,
			constantGas: GasFastestStep,
			stack:       makeStack(1, 1),
			valid:       true,
		},
		CALLDATASIZE: {
			execute:     opCallDataSize,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		CALLDATACOPY: {
			execute:     opCallDataCopy,
			constantGas: GasFastestStep,
			stack:       makeStack(3, 0),
			memorySize:  memoryCallDataCopy,
			valid:       true,
		},
		CODESIZE: {
			execute:     opCodeSize,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		CODECOPY: {
			execute:     opCodeCopy,
			constantGas: GasFastestStep,
			stack:       makeStack(3, 0),
			memorySize:  memoryCodeCopy,
			valid:       true,
		},
		GASPRICE: {
			execute:     opGasprice,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		EXTCODESIZE: {
			execute:     opExtCodeSize,
			constantGas: params.ExtcodeSizeGasEIP150,
			stack:       makeStack(1, 1),
			valid:       true,
		},
		EXTCODECOPY: {
			execute:     opExtCodeCopy,
			constantGas: params.ExtcodeCopyBaseEIP150,
			stack:       makeStack(4, 0),
			memorySize:  memoryExtCodeCopy,
			valid:       true,
		},
		BLOCKHASH: {
			execute:     opUnsupported,
			constantGas: GasExtStep,
			stack:       makeStack(1, 1),
			valid:       true,
		},
		COINBASE: {
			execute:     opCoinbase,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		TIMESTAMP: {
			execute:     opTimestamp,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		NUMBER: {
			execute:     opNumber,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		DIFFICULTY: {
			execute:     opDifficulty,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		GASLIMIT: {
			execute:     opGasLimit,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		POP: {
			execute:     opPop,
			constantGas: GasQuickStep,
			stack:       makeStack(1, 0),
			valid:       true,
		},
		MLOAD: {
			execute:     opMload,
			constantGas: GasFastestStep,
			stack:       makeStack(1, 1),
			memorySize:  memoryMLoad,
			valid:       true,
		},
		MSTORE: {
			execute:     opMstore,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 0),
			memorySize:  memoryMStore,
			valid:       true,
		},
		MSTORE8: {
			execute:     opMstore8,
			constantGas: GasFastestStep,
			stack:       makeStack(2, 0),
			memorySize:  memoryMStore8,
			valid:       true,
		},
		SLOAD: {
			execute:     opSload,
			constantGas: params.SloadGasEIP150,
			stack:       makeStack(1, 1),
			valid:       true,
		},
		SSTORE: {
			execute:     opSstore,
			constantGas: params.SstoreResetGas,
			stack:       makeStack(2, 0),
			valid:       true,
			writes:      true,
		},
		JUMP: {
			execute:     opJump,
			constantGas: GasMidStep,
			stack:       makeStack(1, 0),
			jumps:       true,
			valid:       true,
		},
		JUMPI: {
			execute:     opJumpi,
			constantGas: GasSlowStep,
			stack:       makeStack(2, 0),
			jumps:       true,
			valid:       true,
		},
		PC: {
			execute:     opPc,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		MSIZE: {
			execute:     opMsize,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		GAS: {
			execute:     opGas,
			constantGas: GasQuickStep,
			stack:       makeStack(0, 1),
			valid:       true,
		},
		JUMPDEST: {
			execute:     opJumpdest,
			constantGas: params.JumpdestGas,
			stack:       makeStack(0, 0),
			valid:       true,
		},
		CREATE: {
			execute:     opUnsupported,
			constantGas: params.CreateGas,
			stack:       makeStack(3, 1),
			valid:       true,
			writes:      true,
			returns:     true,
		},
		CALL: {
			execute:     opUnsupported,
			constantGas: params.CallGasEIP150,
			stack:       makeStack(7, 1),
			valid:       true,
			returns:     true,
		},
		CALLCODE: {
			execute:     opUnsupported,
			constantGas: params.CallGasEIP150,
			stack:       makeStack(7, 1),
			valid:       true,
			returns:     true,
		},
		RETURN: {
			execute:    opReturn,
			stack:      makeStack(2, 0),
			memorySize: memoryReturn,
			halts:      true,
			valid:      true,
		},
		SELFDESTRUCT: {
			execute:     opUnsupported,
			constantGas: params.SelfdestructGasEIP150,
			stack:       makeStack(1, 0),
			halts:       true,
			valid:       true,
			writes:      true,
		},
	}

	for i := 0; i < 32; i++ {
		tbl[PUSH1+OpCode(i)] = operation{
			execute:     makePush(uint64(i+1), i+1),
			constantGas: GasFastestStep,
			stack:       makeStack(0, 1),
			valid:       true,
		}
	}
	for i := 0; i < 16; i++ {
		tbl[DUP1+OpCode(i)] = operation{
			execute:     makeDup(int64(i + 1)),
			constantGas: GasFastestStep,
			stack:       makeDupStack(i + 1),
			valid:       true,
		}
		tbl[SWAP1+OpCode(i)] = operation{
			execute:     makeSwap(int64(i + 1)),
			constantGas: GasFastestStep,
			stack:       makeSwapStack(i + 2),
			valid:       true,
		}
	}
	for i := 0; i <= 4; i++ {
		tbl[LOG0+OpCode(i)] = operation{
			execute:     makeLog(i),
			constantGas: params.LogGas + uint64(i)*params.LogTopicGas,
			stack:       makeStack(i+2, 0),
			memorySize:  memoryLog,
			valid:       true,
			writes:      true,
		}
	}
	return tbl
}
