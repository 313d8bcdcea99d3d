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

// bitvec is a bit vector which maps bytes in a program.
// An unset bit means the byte is an opcode, a set bit means
// it's data (i.e. argument of PUSHxx).
type bitvec []byte

func (bits bitvec) set1(pos uint64) {
	bits[pos/8] |= 1 << (pos % 8)
}

// codeSegment checks if the position is in a code segment.
func (bits bitvec) codeSegment(pos uint64) bool {
	return ((bits[pos/8] >> (pos % 8)) & 1) == 0
}

// codeBitmap collects data locations in code.
func codeBitmap(code []byte) bitvec {
	// The bitmap is 4 bytes longer than necessary, in case the code
	// ends with a PUSH32, the algorithm will set bits on the
	// bitvector outside the bounds of the actual code.
	bits := make(bitvec, len(code)/8+1+4)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		pc++
		for n := op.PushSize(); n > 0; n-- {
			bits.set1(pc)
			pc++
		}
	}
	return bits
}

// CodeMap tells opcode positions apart from PUSH data in a program.
type CodeMap struct {
	bits bitvec
	size uint64
}

// NewCodeMap analyses code once so that repeated IsCode queries are cheap.
func NewCodeMap(code []byte) CodeMap {
	return CodeMap{bits: codeBitmap(code), size: uint64(len(code))}
}

// IsCode reports whether pc lies inside the program and holds an opcode
// rather than the immediate of a PUSH.
func (m CodeMap) IsCode(pc uint64) bool {
	return pc < m.size && m.bits.codeSegment(pc)
}
