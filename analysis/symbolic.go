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
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/practical-formal-methods/evmflow/vm"
)

// SymStack is an abstract operand stack, top last. A nil entry is a value
// the analysis does not track.
type SymStack []*uint256.Int

// Copy returns a stack that can be modified independently. Values are
// shared; they are never mutated in place.
func (s SymStack) Copy() SymStack {
	cpy := make(SymStack, len(s))
	copy(cpy, s)
	return cpy
}

// Equal reports whether both stacks have the same height and agree on every
// cell, known or not.
func (s SymStack) Equal(other SymStack) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !sameCell(s[i], other[i]) {
			return false
		}
	}
	return true
}

func sameCell(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Eq(b)
}

// join widens s with other cell by cell: equal known values stay known,
// anything else becomes unknown. Both stacks must have the same height. The
// second result reports whether the join differs from s.
func (s SymStack) join(other SymStack) (SymStack, bool) {
	joined := s.Copy()
	diff := false
	for i := range joined {
		if joined[i] != nil && !sameCell(joined[i], other[i]) {
			joined[i] = nil
			diff = true
		}
	}
	return joined, diff
}

func (s SymStack) String() string {
	strs := make([]string, len(s))
	for i, v := range s {
		if v == nil {
			strs[i] = "?"
		} else {
			strs[i] = v.Hex()
		}
	}
	return "[" + strings.Join(strs, " ") + "]"
}

// Apply runs the instruction on the abstract stack. Operations whose inputs
// are all known and whose result depends only on them are folded, all other
// results are unknown.
func (ins *Instruction) Apply(stack *SymStack) error {
	s := *stack
	pop, push := ins.StackEffect()
	if pop > len(s) {
		return errors.Wrapf(ErrStackUnderflow, "%v needs %d, have %d", ins, pop, len(s))
	}
	switch {
	case ins.Kind == Push:
		s = append(s, ins.Value)
	case ins.Kind == Plain && !ins.Op.IsValid():
		return errors.Wrapf(ErrInvalidOpcode, "opcode %#x", byte(ins.Op))
	case ins.Kind == Plain && ins.Op.IsDup():
		s = append(s, s[len(s)-ins.Op.Depth()])
	case ins.Kind == Plain && ins.Op.IsSwap():
		top := len(s) - 1
		s[top], s[top-ins.Op.Depth()] = s[top-ins.Op.Depth()], s[top]
	case ins.Kind == Plain && vm.IsFoldable(ins.Op) && allKnown(s[len(s)-pop:]):
		args := make([]*uint256.Int, pop)
		for i := range args {
			args[i] = s[len(s)-1-i]
		}
		res, err := vm.Fold(ins.Op, args...)
		if err != nil {
			return err
		}
		s = append(s[:len(s)-pop], res)
	default:
		s = s[:len(s)-pop]
		for i := 0; i < push; i++ {
			s = append(s, nil)
		}
	}
	*stack = s
	if len(s) > int(params.StackLimit) {
		return errors.Wrapf(ErrStackOverflow, "height %d", len(s))
	}
	return nil
}

func allKnown(vals SymStack) bool {
	for _, v := range vals {
		if v == nil {
			return false
		}
	}
	return true
}

// Successor is a pc reached from a block together with the abstract stack
// on arrival.
type Successor struct {
	PC    uint64
	Stack SymStack
	// Jumped is set when the pc was taken from the stack by a jump, in which
	// case it must be a jump destination.
	Jumped bool
}

// JumpTargets applies the block to the incoming stack and resolves its final
// instruction. Resolved jump destinations are recorded on that instruction.
// The incoming stack is not modified.
func (b *Block) JumpTargets(stack SymStack) ([]Successor, error) {
	s := stack.Copy()
	final := b.Final()
	for _, ins := range b.Instructions[:len(b.Instructions)-1] {
		if err := ins.Apply(&s); err != nil {
			return nil, errors.Wrapf(err, "pc %d", ins.PC)
		}
	}
	switch final.Kind {
	case Jump, CondJump:
		if len(s) == 0 {
			return nil, errors.Wrapf(ErrStackUnderflow, "pc %d: %v on empty stack", final.PC, final.Op)
		}
		top := s[len(s)-1]
		if top == nil {
			return nil, errors.Wrapf(ErrControlFlowEscaped, "pc %d", final.PC)
		}
		if !top.LtUint64(1 << 32) {
			return nil, errors.Wrapf(ErrInvalidJump, "pc %d: destination %v", final.PC, top.Hex())
		}
		dest := top.Uint64()
		final.addTarget(dest)
		if err := final.Apply(&s); err != nil {
			return nil, errors.Wrapf(err, "pc %d", final.PC)
		}
		if final.Kind == CondJump {
			return []Successor{
				{PC: final.Next, Stack: s},
				{PC: dest, Stack: s.Copy(), Jumped: true},
			}, nil
		}
		return []Successor{{PC: dest, Stack: s, Jumped: true}}, nil
	case Fallthrough:
		return []Successor{{PC: final.Next, Stack: s}}, nil
	}
	// Halting instructions end the path without being applied.
	return nil, nil
}
