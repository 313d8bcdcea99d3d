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
	"fmt"
	"slices"
	"strings"

	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"

	"github.com/practical-formal-methods/evmflow/vm"
)

// Kind tells the variants of a decoded instruction apart.
type Kind uint8

const (
	// Plain is any opcode without a payload.
	Plain Kind = iota
	// Push carries the literal of a PUSHn.
	Push
	// Jump is an unconditional JUMP whose destinations are found by recovery.
	Jump
	// CondJump is a JUMPI with a fixed not-taken successor.
	CondJump
	// Fallthrough ends a block right before a JUMPDEST. It has no opcode.
	Fallthrough
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Push:
		return "push"
	case Jump:
		return "jump"
	case CondJump:
		return "condjump"
	case Fallthrough:
		return "fallthrough"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Instruction is one decoded program unit.
type Instruction struct {
	Kind Kind
	// PC is the offset of the instruction in the code. For a Fallthrough it
	// is the offset of the JUMPDEST that ends the block.
	PC uint64
	// Op is the raw opcode. Unused for Fallthrough.
	Op vm.OpCode
	// Value is the literal of a Push.
	Value *uint256.Int
	// Next is the not-taken successor of a CondJump and the target of a
	// Fallthrough.
	Next uint64

	targets map[uint64]struct{}
}

func newPlain(pc uint64, op vm.OpCode) *Instruction {
	return &Instruction{Kind: Plain, PC: pc, Op: op}
}

func newPush(pc uint64, op vm.OpCode, value *uint256.Int) *Instruction {
	return &Instruction{Kind: Push, PC: pc, Op: op, Value: value}
}

func newJump(pc uint64) *Instruction {
	return &Instruction{Kind: Jump, PC: pc, Op: vm.JUMP, targets: map[uint64]struct{}{}}
}

func newCondJump(pc, next uint64) *Instruction {
	return &Instruction{Kind: CondJump, PC: pc, Op: vm.JUMPI, Next: next, targets: map[uint64]struct{}{}}
}

func newFallthrough(target uint64) *Instruction {
	return &Instruction{Kind: Fallthrough, PC: target, Next: target}
}

// Opcode returns the opcode the instruction was decoded from. A Fallthrough
// has none.
func (ins *Instruction) Opcode() (vm.OpCode, bool) {
	if ins.Kind == Fallthrough {
		return 0, false
	}
	return ins.Op, true
}

// IsBlockFinal reports whether the instruction ends its block.
func (ins *Instruction) IsBlockFinal() bool {
	switch ins.Kind {
	case Plain:
		return vm.IsBlockFinal(ins.Op)
	case Push:
		return false
	}
	return true
}

// StackEffect returns how many values the instruction pops and pushes.
func (ins *Instruction) StackEffect() (pop, push int) {
	switch ins.Kind {
	case Push:
		return 0, 1
	case Jump:
		return 1, 0
	case CondJump:
		return 2, 0
	case Fallthrough:
		return 0, 0
	}
	return vm.StackEffect(ins.Op)
}

// Destinations returns the jump targets discovered so far, in ascending
// order.
func (ins *Instruction) Destinations() []uint64 {
	dests := maps.Keys(ins.targets)
	slices.Sort(dests)
	return dests
}

func (ins *Instruction) addTarget(pc uint64) {
	ins.targets[pc] = struct{}{}
}

func (ins *Instruction) String() string {
	switch ins.Kind {
	case Push:
		return fmt.Sprintf("%v %v", ins.Op, ins.Value.Hex())
	case Jump:
		return fmt.Sprintf("JUMP %v", formatPCs(ins.Destinations()))
	case CondJump:
		return fmt.Sprintf("JUMPI %v else %d", formatPCs(ins.Destinations()), ins.Next)
	case Fallthrough:
		return fmt.Sprintf("FALLTHROUGH %d", ins.Next)
	}
	return ins.Op.String()
}

func formatPCs(pcs []uint64) string {
	strs := make([]string, len(pcs))
	for i, pc := range pcs {
		strs[i] = fmt.Sprint(pc)
	}
	return "[" + strings.Join(strs, " ") + "]"
}
