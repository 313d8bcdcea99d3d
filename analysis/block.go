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

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/practical-formal-methods/evmflow/vm"
)

// Block is a straight-line run of instructions of which only the last one
// is block-final.
type Block struct {
	// Start is the pc of the first instruction.
	Start uint64
	// End is the pc right after the block. Equal to Start of the next block
	// when the block ends in a Fallthrough.
	End          uint64
	Instructions []*Instruction
}

// DecodeBlock decodes the block starting at the given pc. Decoding never
// fails: code is implicitly followed by zero bytes, so a block running off
// the end of the code ends in STOP and truncated push literals are padded
// with zeros on the right.
func DecodeBlock(code []byte, start uint64) *Block {
	b := &Block{Start: start}
	pc := start
	for {
		at := pc
		op := opAt(code, pc)
		pc++

		var ins *Instruction
		switch {
		case op.IsPush():
			n := uint64(op.PushSize())
			data := common.RightPadBytes(slice(code, pc, n), int(n))
			ins = newPush(at, op, new(uint256.Int).SetBytes(data))
			pc += n
		case op == vm.JUMP:
			ins = newJump(at)
		case op == vm.JUMPI:
			ins = newCondJump(at, pc)
		case op == vm.JUMPDEST && at != start:
			// The JUMPDEST heads the next block.
			ins = newFallthrough(at)
			pc = at
		default:
			ins = newPlain(at, op)
		}
		b.Instructions = append(b.Instructions, ins)
		if ins.IsBlockFinal() {
			break
		}
	}
	b.End = pc
	return b
}

func opAt(code []byte, pc uint64) vm.OpCode {
	if pc < uint64(len(code)) {
		return vm.OpCode(code[pc])
	}
	return vm.STOP
}

// slice returns code[start:start+size] clipped to the code length.
func slice(code []byte, start, size uint64) []byte {
	length := uint64(len(code))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	return code[start:end]
}

// Final returns the block-final instruction.
func (b *Block) Final() *Instruction {
	return b.Instructions[len(b.Instructions)-1]
}

// IsJumpDest reports whether the block starts with a JUMPDEST and so may be
// the target of a jump.
func (b *Block) IsJumpDest() bool {
	first := b.Instructions[0]
	return first.Kind == Plain && first.Op == vm.JUMPDEST
}

// StaticGas sums the constant gas of all instructions. Dynamic costs are not
// included.
func (b *Block) StaticGas() uint64 {
	var gas uint64
	for _, ins := range b.Instructions {
		if op, ok := ins.Opcode(); ok {
			gas += vm.BaseGas(op)
		}
	}
	return gas
}

// Successors returns the pcs control may reach after the block, as far as
// recovery has resolved them.
func (b *Block) Successors() []uint64 {
	final := b.Final()
	switch final.Kind {
	case Jump:
		return final.Destinations()
	case CondJump:
		succs := []uint64{final.Next}
		for _, dest := range final.Destinations() {
			if dest != final.Next {
				succs = append(succs, dest)
			}
		}
		return succs
	case Fallthrough:
		return []uint64{final.Next}
	}
	return nil
}

func (b *Block) String() string {
	var sb strings.Builder
	for _, ins := range b.Instructions {
		sb.WriteString(ins.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
