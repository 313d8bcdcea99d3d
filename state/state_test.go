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

package state

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practical-formal-methods/evmflow/vm"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	slot1 = common.HexToHash("0x01")
)

// countingState records how often each read reaches it.
type countingState struct {
	ChainState
	reads int
	fail  bool
}

func (c *countingState) Nonce(addr common.Address) (uint64, error) {
	c.reads++
	if c.fail {
		return 0, errors.New("unavailable")
	}
	return c.ChainState.Nonce(addr)
}

func (c *countingState) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	c.reads++
	return c.ChainState.Storage(addr, slot)
}

func (c *countingState) BlockInfo() (vm.BlockInfo, error) {
	c.reads++
	return c.ChainState.BlockInfo()
}

func TestEmpty(t *testing.T) {
	e := NewEmpty(vm.BlockInfo{Timestamp: 42})
	block, err := e.BlockInfo()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), block.Timestamp)

	nonce, _ := e.Nonce(alice)
	balance, _ := e.Balance(alice)
	code, _ := e.Code(alice)
	value, _ := e.Storage(alice, slot1)
	assert.Zero(t, nonce)
	assert.True(t, balance.IsZero())
	assert.Empty(t, code)
	assert.Equal(t, common.Hash{}, value)

	var _ ChainState = e
	_, writable := ChainState(e).(Writable)
	assert.False(t, writable)
}

func TestCache(t *testing.T) {
	set := NewStateSet()
	set.SetNonce(alice, 7)
	set.SetStorage(alice, slot1, common.HexToHash("0x2a"))
	base := &countingState{ChainState: set}
	c := NewCache(base)

	for i := 0; i < 3; i++ {
		nonce, err := c.Nonce(alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), nonce)
		value, err := c.Storage(alice, slot1)
		require.NoError(t, err)
		assert.Equal(t, common.HexToHash("0x2a"), value)
		_, err = c.BlockInfo()
		require.NoError(t, err)
	}
	assert.Equal(t, 3, base.reads)

	// Later writes to the base are not observed.
	set.SetNonce(alice, 8)
	nonce, _ := c.Nonce(alice)
	assert.Equal(t, uint64(7), nonce)
}

func TestCacheDoesNotKeepErrors(t *testing.T) {
	base := &countingState{ChainState: NewStateSet(), fail: true}
	c := NewCache(base)
	_, err := c.Nonce(bob)
	assert.Error(t, err)

	base.fail = false
	_, err = c.Nonce(bob)
	assert.NoError(t, err)
	_, err = c.Nonce(bob)
	assert.NoError(t, err)
	assert.Equal(t, 2, base.reads)
}

type nilBalanceState struct{ ChainState }

func (nilBalanceState) Balance(common.Address) (*uint256.Int, error) { return nil, nil }

func TestCacheNilBalance(t *testing.T) {
	c := NewCache(nilBalanceState{NewStateSet()})
	for i := 0; i < 2; i++ {
		balance, err := c.Balance(alice)
		require.NoError(t, err)
		require.NotNil(t, balance)
		assert.True(t, balance.IsZero())
	}
}

func TestOverlay(t *testing.T) {
	base := NewStateSet()
	base.SetBalance(alice, uint256.NewInt(100))
	base.SetStorage(alice, slot1, common.HexToHash("0x01"))

	o := NewOverlay(base)
	assert.False(t, o.Dirty())
	require.NoError(t, o.SetStorage(alice, slot1, common.HexToHash("0x02")))
	require.NoError(t, o.SetBalance(bob, uint256.NewInt(5)))
	require.NoError(t, o.SetCode(bob, []byte{0x00}))
	require.NoError(t, o.SetNonce(bob, 1))
	assert.True(t, o.Dirty())

	value, _ := o.Storage(alice, slot1)
	assert.Equal(t, common.HexToHash("0x02"), value)
	balance, _ := o.Balance(alice)
	assert.Equal(t, uint64(100), balance.Uint64())
	balance, _ = o.Balance(bob)
	assert.Equal(t, uint64(5), balance.Uint64())

	value, _ = base.Storage(alice, slot1)
	assert.Equal(t, common.HexToHash("0x01"), value, "base must be left alone")

	require.NoError(t, o.Commit(base))
	assert.False(t, o.Dirty())
	value, _ = base.Storage(alice, slot1)
	assert.Equal(t, common.HexToHash("0x02"), value)
	nonce, _ := base.Nonce(bob)
	assert.Equal(t, uint64(1), nonce)
	code, _ := base.Code(bob)
	assert.Equal(t, []byte{0x00}, code)
}

func TestOverlayOverReadOnlyState(t *testing.T) {
	// SSTORE against an Empty chain fails, against an overlay over it works.
	code := common.FromHex("602a60015500")
	set := NewStateSet()
	set.SetCode(alice, code)
	call := &vm.CallInfo{Address: alice}

	_, err := vm.Evaluate(readOnly{set}, nil, nil, call, nil)
	assert.True(t, errors.Is(err, ErrReadOnly))

	o := NewOverlay(readOnly{set})
	res, err := vm.Evaluate(o, nil, nil, call, nil)
	require.NoError(t, err)
	assert.False(t, res.Reverted)
	value, _ := o.Storage(alice, slot1)
	assert.Equal(t, common.HexToHash("0x2a"), value)
	value, _ = set.Storage(alice, slot1)
	assert.Equal(t, common.Hash{}, value)
}

type readOnly struct {
	ChainState
}

func TestStateSetRoundTrip(t *testing.T) {
	set := NewStateSet()
	set.Block = &vm.BlockInfo{Timestamp: 1600000000, Number: 12, Coinbase: bob, GasLimit: 8000000, Difficulty: uint256.NewInt(3)}
	set.SetNonce(alice, 3)
	set.SetBalance(alice, new(uint256.Int).Lsh(uint256.NewInt(1), 200))
	set.SetCode(alice, common.FromHex("6001600101"))
	set.SetStorage(alice, slot1, common.HexToHash("0xff"))
	set.SetNonce(bob, 1)

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, set.Save(path))
	loaded, err := LoadStateSet(path)
	require.NoError(t, err)

	assert.Equal(t, set.Block, loaded.Block)
	for _, addr := range []common.Address{alice, bob} {
		want, got := set.Accounts[addr], loaded.Accounts[addr]
		require.NotNil(t, got)
		assert.Equal(t, want.Nonce, got.Nonce)
		assert.True(t, want.Balance.Eq(got.Balance))
		assert.Equal(t, want.Code, got.Code)
		assert.Equal(t, want.Storage, got.Storage)
	}
}

func TestStateSetZeroStorageDeletes(t *testing.T) {
	set := NewStateSet()
	set.SetStorage(alice, slot1, common.HexToHash("0x01"))
	set.SetStorage(alice, slot1, common.Hash{})
	assert.Empty(t, set.Accounts[alice].Storage)
}

func TestLoadStateSetErrors(t *testing.T) {
	_, err := LoadStateSet(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
