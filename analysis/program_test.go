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
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A subroutine at 0x0d called from two sites, returning to 0x05 and 0x0b.
const sharedSubroutine = "6005600d565b600b600d565b005b56"

func TestRecoverJump(t *testing.T) {
	code := common.FromHex("6003565b00")
	prog, err := Recover(code, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 3}, prog.PCs())
	assert.Equal(t, 2, prog.Len())
	assert.Equal(t, []uint64{3}, prog.Successors(0))
	assert.Empty(t, prog.Successors(3))
	assert.Equal(t, crypto.Keccak256Hash(code), prog.CodeHash())
	assert.Equal(t, code, prog.Code())

	b, ok := prog.Block(3)
	require.True(t, ok)
	assert.True(t, b.IsJumpDest())
	_, ok = prog.Block(2)
	assert.False(t, ok)
}

func TestRecoverFailures(t *testing.T) {
	tests := []struct {
		code string
		err  error
	}{
		{"6004565b00", ErrInvalidJump}, // pc 4 is the STOP after the JUMPDEST
		{"60035600", ErrInvalidJump},
		{"6002565b00", ErrInvalidJump},
		{"6000600057", ErrInvalidJump}, // pc 0 is no JUMPDEST
		{"60003556", ErrControlFlowEscaped},
		{"600456605b00", ErrInvalidJump}, // pc 4 is PUSH1 data
		{"01", ErrStackUnderflow},
		{"5b6000600056", ErrStackOverflow},
	}
	for _, tt := range tests {
		prog, err := Recover(common.FromHex(tt.code), nil)
		assert.Nil(t, prog)
		assert.True(t, errors.Is(err, tt.err), "code %s: got %v, want %v", tt.code, err, tt.err)
	}
}

func TestRecoverHaltingBlocks(t *testing.T) {
	// An assert: JUMPI over INVALID to the success path.
	prog, err := Recover(common.FromHex("6001600657fe5b00"), nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 5, 6}, prog.PCs())
	assert.Empty(t, prog.Successors(5))
	assert.Empty(t, prog.Successors(6))

	for _, code := range []string{"f3", "fd", "fe", "00"} {
		prog, err := Recover(common.FromHex(code), nil)
		require.NoError(t, err, "code %s", code)
		assert.Equal(t, []uint64{0}, prog.PCs(), "code %s", code)
		assert.Empty(t, prog.Successors(0), "code %s", code)
	}

	prog, err = Recover(common.FromHex("6003565bfe"), nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, prog.Successors(0))
}

func TestRecoverCondJump(t *testing.T) {
	prog, err := Recover(common.FromHex("6001600657005b00"), nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 5, 6}, prog.PCs())
	assert.Equal(t, []uint64{5, 6}, prog.Successors(0))

	// The not-taken successor need not be a JUMPDEST.
	b, _ := prog.Block(5)
	assert.False(t, b.IsJumpDest())
}

func TestRecoverFallthrough(t *testing.T) {
	prog, err := Recover(common.FromHex("60015b00"), nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 2}, prog.PCs())
	assert.Equal(t, []uint64{2}, prog.Successors(0))
}

func TestRecoverRevisitPolicies(t *testing.T) {
	code := common.FromHex(sharedSubroutine)

	prog, err := Recover(code, &Config{Revisit: RevisitSkip})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 5, 13}, prog.PCs())
	assert.Equal(t, []uint64{5}, prog.Successors(13))

	for _, maxContexts := range []int{0, 1, 8} {
		prog, err = Recover(code, &Config{Revisit: RevisitMerge, MaxContexts: maxContexts})
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 5, 11, 13}, prog.PCs(), "max contexts %d", maxContexts)
		assert.Equal(t, []uint64{5, 11}, prog.Successors(13), "max contexts %d", maxContexts)
	}
}

func TestRecoverLoopTerminates(t *testing.T) {
	// A counter incremented forever: the known value is widened away.
	code := common.FromHex("60005b600101600256")
	for _, cfg := range []*Config{nil, {Revisit: RevisitSkip}, {Revisit: RevisitMerge, MaxContexts: 1}} {
		prog, err := Recover(code, cfg)
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 2}, prog.PCs())
		assert.Equal(t, []uint64{2}, prog.Successors(2))
	}
}

func TestRecoverSkipStopsGrowingStack(t *testing.T) {
	prog, err := Recover(common.FromHex("5b6000600056"), &Config{Revisit: RevisitSkip})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, prog.PCs())
	assert.Equal(t, []uint64{0}, prog.Successors(0))
}

func TestRecoverRandomCode(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		code := make([]byte, rnd.Intn(128))
		rnd.Read(code)
		prog, err := Recover(code, nil)
		if err != nil {
			assert.NotEqual(t, InternalFail, FailureCause(err), "code %x: %v", code, err)
			continue
		}
		for _, pc := range prog.PCs() {
			for _, succ := range prog.Successors(pc) {
				_, ok := prog.Block(succ)
				assert.True(t, ok, "code %x: edge %d -> %d", code, pc, succ)
			}
		}
	}
}

func TestRevisitPolicyText(t *testing.T) {
	for _, p := range []RevisitPolicy{RevisitMerge, RevisitSkip} {
		text, err := p.MarshalText()
		require.NoError(t, err)
		var parsed RevisitPolicy
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, p, parsed)
	}
	var p RevisitPolicy
	assert.Error(t, p.UnmarshalText([]byte("always")))
	_, err := RevisitPolicy(7).MarshalText()
	assert.Error(t, err)
}
