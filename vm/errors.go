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
	"github.com/pkg/errors"
)

// List evm execution and analysis errors. Callers match them with errors.Is,
// the engine wraps them with the pc or call depth they occurred at.
var (
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrStackOverflow      = errors.New("stack limit reached")
	ErrInvalidOpcode      = errors.New("invalid opcode")
	ErrInvalidJump        = errors.New("invalid jump destination")
	ErrControlFlowEscaped = errors.New("jump target not statically known")
	ErrUnsupportedOpcode  = errors.New("unsupported opcode")
	ErrWriteProtection    = errors.New("write protection")
	ErrReadOnlyState      = errors.New("chain state is read-only")
	ErrOutOfGas           = errors.New("out of gas")
	ErrMemoryLimit        = errors.New("memory limit exceeded")
	ErrGasUintOverflow    = errors.New("gas uint64 overflow")
	ErrExecutionReverted  = errors.New("execution reverted")
	ErrDepth              = errors.New("max call depth exceeded")
)

// UnsupportedOpcodeError reports an opcode the instruction set recognizes but
// this interpreter does not execute.
type UnsupportedOpcodeError struct {
	Op OpCode
}

func (e *UnsupportedOpcodeError) Error() string {
	return "unsupported opcode " + e.Op.String()
}

func (e *UnsupportedOpcodeError) Unwrap() error {
	return ErrUnsupportedOpcode
}
