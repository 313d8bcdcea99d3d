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
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// foldable are the opcodes whose result depends on their operands only.
var foldable = [256]bool{
	ADD: true, MUL: true, SUB: true, DIV: true, SDIV: true, MOD: true, SMOD: true,
	ADDMOD: true, MULMOD: true, EXP: true, SIGNEXTEND: true,
	LT: true, GT: true, SLT: true, SGT: true, EQ: true, ISZERO: true,
	AND: true, OR: true, XOR: true, NOT: true, BYTE: true,
	SHL: true, SHR: true, SAR: true,
}

// IsFoldable reports whether the result of op is a function of its stack
// operands alone, so that it can be computed ahead of execution.
func IsFoldable(op OpCode) bool {
	return foldable[op]
}

// Fold computes the result of a foldable op by running its instruction on
// the given operands, top of stack first.
func Fold(op OpCode, args ...*uint256.Int) (*uint256.Int, error) {
	if !foldable[op] {
		return nil, errors.Errorf("%v cannot be folded", op)
	}
	operation := &instructionSet[op]
	if len(args) != operation.stack.pops {
		return nil, errors.Wrapf(ErrStackUnderflow, "%v takes %d operands, got %d", op, operation.stack.pops, len(args))
	}
	stack := &Stack{data: make([]uint256.Int, 0, len(args))}
	for i := len(args) - 1; i >= 0; i-- {
		stack.push(args[i])
	}
	var pc uint64
	if _, err := operation.execute(&pc, nil, nil, nil, stack); err != nil {
		return nil, err
	}
	res := stack.pop()
	return &res, nil
}
