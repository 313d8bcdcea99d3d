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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practical-formal-methods/evmflow/vm"
)

func known(vals ...uint64) SymStack {
	s := make(SymStack, len(vals))
	for i, v := range vals {
		s[i] = uint256.NewInt(v)
	}
	return s
}

func TestApplyUnderflow(t *testing.T) {
	for b := 0; b < 256; b++ {
		op := vm.OpCode(b)
		if !op.IsValid() || op.IsPush() {
			continue
		}
		pop, _ := vm.StackEffect(op)
		if pop == 0 {
			continue
		}
		s := make(SymStack, pop-1)
		err := newPlain(0, op).Apply(&s)
		require.True(t, errors.Is(err, ErrStackUnderflow), "%v: %v", op, err)
	}
}

func TestApplyInvalidOpcode(t *testing.T) {
	var s SymStack
	err := newPlain(0, vm.OpCode(0xfe)).Apply(&s)
	assert.True(t, errors.Is(err, ErrInvalidOpcode))
}

func TestApplyDupSwap(t *testing.T) {
	for n := 1; n <= 16; n++ {
		s := known(make([]uint64, n+1)...)
		for i := range s {
			s[i] = uint256.NewInt(uint64(100 + i))
		}
		s[1] = nil

		dup := s.Copy()
		require.NoError(t, newPlain(0, vm.DUP1+vm.OpCode(n-1)).Apply(&dup))
		require.Len(t, dup, n+2)
		assert.True(t, sameCell(dup[len(dup)-1], s[len(s)-n]), "DUP%d", n)

		swap := s.Copy()
		require.NoError(t, newPlain(0, vm.SWAP1+vm.OpCode(n-1)).Apply(&swap))
		require.Len(t, swap, n+1)
		assert.True(t, sameCell(swap[len(swap)-1], s[len(s)-1-n]), "SWAP%d", n)
		assert.True(t, sameCell(swap[len(swap)-1-n], s[len(s)-1]), "SWAP%d", n)
	}
}

func TestApplyOverflow(t *testing.T) {
	s := make(SymStack, 1024)
	err := newPush(0, vm.PUSH1, uint256.NewInt(1)).Apply(&s)
	assert.True(t, errors.Is(err, ErrStackOverflow))

	s = make(SymStack, 1023)
	assert.NoError(t, newPush(0, vm.PUSH1, uint256.NewInt(1)).Apply(&s))
}

func TestApplyFolding(t *testing.T) {
	s := known(3, 2)
	require.NoError(t, newPlain(0, vm.SUB).Apply(&s))
	require.Len(t, s, 1)
	assert.True(t, s[0].Eq(new(uint256.Int).Sub(uint256.NewInt(2), uint256.NewInt(3))))

	s = SymStack{uint256.NewInt(1), nil}
	require.NoError(t, newPlain(0, vm.ADD).Apply(&s))
	assert.Equal(t, SymStack{nil}, s)

	s = known(0)
	require.NoError(t, newPlain(0, vm.CALLDATALOAD).Apply(&s))
	assert.Equal(t, SymStack{nil}, s)
}

func TestJoin(t *testing.T) {
	a := SymStack{uint256.NewInt(1), uint256.NewInt(2), nil}
	b := SymStack{uint256.NewInt(1), uint256.NewInt(3), uint256.NewInt(4)}
	j, diff := a.join(b)
	assert.True(t, diff)
	assert.True(t, j.Equal(SymStack{uint256.NewInt(1), nil, nil}))
	assert.True(t, a[1].Eq(uint256.NewInt(2)), "join must not modify its receiver")

	_, diff = j.join(b)
	assert.False(t, diff)
}

func TestJumpTargets(t *testing.T) {
	b := DecodeBlock(common.FromHex("6003565b00"), 0)
	succs, err := b.JumpTargets(nil)
	require.NoError(t, err)
	require.Len(t, succs, 1)
	assert.Equal(t, uint64(3), succs[0].PC)
	assert.True(t, succs[0].Jumped)
	assert.Empty(t, succs[0].Stack)
	assert.Equal(t, []uint64{3}, b.Final().Destinations())
}

func TestJumpTargetsCondJump(t *testing.T) {
	b := DecodeBlock(common.FromHex("6001600657005b00"), 0)
	in := known(7)
	succs, err := b.JumpTargets(in)
	require.NoError(t, err)
	require.Len(t, succs, 2)
	assert.Equal(t, Successor{PC: 5, Stack: known(7)}, succs[0])
	assert.Equal(t, Successor{PC: 6, Stack: known(7), Jumped: true}, succs[1])
	assert.Equal(t, known(7), in)
}

func TestJumpTargetsFolded(t *testing.T) {
	// PUSH1 2 PUSH1 3 ADD JUMP
	b := DecodeBlock(common.FromHex("600260030156"), 0)
	succs, err := b.JumpTargets(nil)
	require.NoError(t, err)
	require.Len(t, succs, 1)
	assert.Equal(t, uint64(5), succs[0].PC)
}

func TestJumpTargetsFailures(t *testing.T) {
	tests := []struct {
		code string
		err  error
	}{
		{"56", ErrStackUnderflow},
		{"600057", ErrStackUnderflow},
		{"60003556", ErrControlFlowEscaped},
		{"64010000000056", ErrInvalidJump},
		{"01", ErrStackUnderflow},
		{"0160006000f3", ErrStackUnderflow},
	}
	for _, tt := range tests {
		_, err := DecodeBlock(common.FromHex(tt.code), 0).JumpTargets(nil)
		assert.True(t, errors.Is(err, tt.err), "code %s: got %v, want %v", tt.code, err, tt.err)
	}
}

func TestJumpTargetsTerminal(t *testing.T) {
	// The halting instruction itself is never applied, so missing operands
	// and invalid opcodes do not fail.
	for _, code := range []string{"60006000f3", "f3", "fd", "fe", "6000fe", "00"} {
		succs, err := DecodeBlock(common.FromHex(code), 0).JumpTargets(nil)
		require.NoError(t, err, "code %s", code)
		assert.Empty(t, succs, "code %s", code)
	}
}
