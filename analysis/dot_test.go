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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	calls []string
	fail  bool
}

func (r *recordingBackend) Block(pc uint64, b *Block) error {
	r.calls = append(r.calls, fmt.Sprintf("block %d %d", pc, len(b.Instructions)))
	return nil
}

func (r *recordingBackend) Edge(from, to uint64) error {
	if r.fail {
		return errors.New("edge rejected")
	}
	r.calls = append(r.calls, fmt.Sprintf("edge %d %d", from, to))
	return nil
}

func TestEmit(t *testing.T) {
	prog, err := Recover(common.FromHex("6001600657005b00"), nil)
	require.NoError(t, err)

	var r recordingBackend
	require.NoError(t, prog.Emit(&r))
	assert.Equal(t, []string{
		"block 0 3",
		"block 5 1",
		"block 6 2",
		"edge 0 5",
		"edge 0 6",
	}, r.calls)

	assert.Error(t, prog.Emit(&recordingBackend{fail: true}))
}

func TestDOT(t *testing.T) {
	prog, err := Recover(common.FromHex("6003565b00"), nil)
	require.NoError(t, err)
	dot := DOT(prog)
	assert.Contains(t, dot, "digraph program {")
	assert.Contains(t, dot, `b0 [label="0000: PUSH1 0x3\l0002: JUMP [3]\lgas: 11\l"];`)
	assert.Contains(t, dot, `b3 [label="0003: JUMPDEST\l0004: STOP\lgas: 1\l"];`)
	assert.Contains(t, dot, "b0 -> b3;")
}
