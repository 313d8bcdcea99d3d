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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"

	"github.com/practical-formal-methods/evmflow/vm"
)

// Overlay is a writable fork of a read-only base state. Writes are kept in
// memory and shadow the base, which is never modified.
type Overlay struct {
	base ChainState

	nonces   map[common.Address]uint64
	balances map[common.Address]*uint256.Int
	codes    map[common.Address][]byte
	storage  map[slotKey]common.Hash
}

func NewOverlay(base ChainState) *Overlay {
	return &Overlay{
		base:     base,
		nonces:   map[common.Address]uint64{},
		balances: map[common.Address]*uint256.Int{},
		codes:    map[common.Address][]byte{},
		storage:  map[slotKey]common.Hash{},
	}
}

func (o *Overlay) BlockInfo() (vm.BlockInfo, error) {
	return o.base.BlockInfo()
}

func (o *Overlay) Nonce(addr common.Address) (uint64, error) {
	if nonce, ok := o.nonces[addr]; ok {
		return nonce, nil
	}
	return o.base.Nonce(addr)
}

func (o *Overlay) Balance(addr common.Address) (*uint256.Int, error) {
	if balance, ok := o.balances[addr]; ok {
		return new(uint256.Int).Set(balance), nil
	}
	return o.base.Balance(addr)
}

func (o *Overlay) Code(addr common.Address) ([]byte, error) {
	if code, ok := o.codes[addr]; ok {
		return code, nil
	}
	return o.base.Code(addr)
}

func (o *Overlay) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	if value, ok := o.storage[slotKey{addr, slot}]; ok {
		return value, nil
	}
	return o.base.Storage(addr, slot)
}

func (o *Overlay) SetNonce(addr common.Address, nonce uint64) error {
	o.nonces[addr] = nonce
	return nil
}

func (o *Overlay) SetBalance(addr common.Address, balance *uint256.Int) error {
	o.balances[addr] = new(uint256.Int).Set(balance)
	return nil
}

func (o *Overlay) SetCode(addr common.Address, code []byte) error {
	o.codes[addr] = common.CopyBytes(code)
	return nil
}

func (o *Overlay) SetStorage(addr common.Address, slot, value common.Hash) error {
	o.storage[slotKey{addr, slot}] = value
	return nil
}

// Dirty reports whether anything was written to the overlay.
func (o *Overlay) Dirty() bool {
	return len(o.nonces)+len(o.balances)+len(o.codes)+len(o.storage) > 0
}

// Commit writes the buffered changes to dst and clears the overlay.
func (o *Overlay) Commit(dst Writable) error {
	for addr, nonce := range o.nonces {
		if err := dst.SetNonce(addr, nonce); err != nil {
			return err
		}
	}
	for addr, balance := range o.balances {
		if err := dst.SetBalance(addr, balance); err != nil {
			return err
		}
	}
	for addr, code := range o.codes {
		if err := dst.SetCode(addr, code); err != nil {
			return err
		}
	}
	for key, value := range o.storage {
		if err := dst.SetStorage(key.addr, key.slot, value); err != nil {
			return err
		}
	}
	maps.Clear(o.nonces)
	maps.Clear(o.balances)
	maps.Clear(o.codes)
	maps.Clear(o.storage)
	return nil
}
