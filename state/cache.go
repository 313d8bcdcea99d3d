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

	"github.com/practical-formal-methods/evmflow/vm"
)

type slotKey struct {
	addr common.Address
	slot common.Hash
}

// Cache memoizes every successful read of its base state and never discards
// it. Failed reads are retried on the next access. A Cache is not safe for
// concurrent use.
type Cache struct {
	base ChainState

	block    *vm.BlockInfo
	nonces   map[common.Address]uint64
	balances map[common.Address]*uint256.Int
	codes    map[common.Address][]byte
	storage  map[slotKey]common.Hash
}

func NewCache(base ChainState) *Cache {
	return &Cache{
		base:     base,
		nonces:   map[common.Address]uint64{},
		balances: map[common.Address]*uint256.Int{},
		codes:    map[common.Address][]byte{},
		storage:  map[slotKey]common.Hash{},
	}
}

func (c *Cache) BlockInfo() (vm.BlockInfo, error) {
	if c.block == nil {
		block, err := c.base.BlockInfo()
		if err != nil {
			return vm.BlockInfo{}, err
		}
		c.block = &block
	}
	return *c.block, nil
}

func (c *Cache) Nonce(addr common.Address) (uint64, error) {
	if nonce, ok := c.nonces[addr]; ok {
		return nonce, nil
	}
	nonce, err := c.base.Nonce(addr)
	if err != nil {
		return 0, err
	}
	c.nonces[addr] = nonce
	return nonce, nil
}

func (c *Cache) Balance(addr common.Address) (*uint256.Int, error) {
	if balance, ok := c.balances[addr]; ok {
		return new(uint256.Int).Set(balance), nil
	}
	balance, err := c.base.Balance(addr)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = new(uint256.Int)
	}
	c.balances[addr] = new(uint256.Int).Set(balance)
	return balance, nil
}

func (c *Cache) Code(addr common.Address) ([]byte, error) {
	if code, ok := c.codes[addr]; ok {
		return code, nil
	}
	code, err := c.base.Code(addr)
	if err != nil {
		return nil, err
	}
	c.codes[addr] = code
	return code, nil
}

func (c *Cache) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	key := slotKey{addr, slot}
	if value, ok := c.storage[key]; ok {
		return value, nil
	}
	value, err := c.base.Storage(addr, slot)
	if err != nil {
		return common.Hash{}, err
	}
	c.storage[key] = value
	return value, nil
}
