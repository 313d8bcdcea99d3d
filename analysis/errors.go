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

package analysis

import (
	"github.com/pkg/errors"

	"github.com/practical-formal-methods/evmflow/vm"
)

// Recovery failures. They are the interpreter's sentinels so a single
// errors.Is check covers both passes.
var (
	ErrStackUnderflow     = vm.ErrStackUnderflow
	ErrStackOverflow      = vm.ErrStackOverflow
	ErrInvalidOpcode      = vm.ErrInvalidOpcode
	ErrInvalidJump        = vm.ErrInvalidJump
	ErrControlFlowEscaped = vm.ErrControlFlowEscaped
)

var InvalidOpcodeFail = "invalid-opcode"
var InvalidJumpFail = "invalid-jump"
var JumpToTopFail = "jump-to-top"
var StackUnderflowFail = "stack-underflow"
var StackOverflowFail = "stack-overflow"
var InternalFail = "internal-failure"

// FailureCause classifies a recovery error for statistics.
func FailureCause(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOpcode):
		return InvalidOpcodeFail
	case errors.Is(err, ErrInvalidJump):
		return InvalidJumpFail
	case errors.Is(err, ErrControlFlowEscaped):
		return JumpToTopFail
	case errors.Is(err, ErrStackUnderflow):
		return StackUnderflowFail
	case errors.Is(err, ErrStackOverflow):
		return StackOverflowFail
	}
	return InternalFail
}
