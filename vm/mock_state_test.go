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

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type mockAccount struct {
	nonce   uint64
	balance *uint256.Int
	code    []byte
	storage map[common.Hash]common.Hash
}

// mockState is a writable in-memory ChainState for tests.
type mockState struct {
	block    BlockInfo
	accounts map[common.Address]*mockAccount
}

func newMockState() *mockState {
	return &mockState{accounts: map[common.Address]*mockAccount{}}
}

func (s *mockState) account(addr common.Address) *mockAccount {
	acc, ok := s.accounts[addr]
	if !ok {
		acc = &mockAccount{balance: new(uint256.Int), storage: map[common.Hash]common.Hash{}}
		s.accounts[addr] = acc
	}
	return acc
}

func (s *mockState) BlockInfo() (BlockInfo, error) { return s.block, nil }

func (s *mockState) Nonce(addr common.Address) (uint64, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc.nonce, nil
	}
	return 0, nil
}

func (s *mockState) Balance(addr common.Address) (*uint256.Int, error) {
	if acc, ok := s.accounts[addr]; ok {
		return new(uint256.Int).Set(acc.balance), nil
	}
	return new(uint256.Int), nil
}

func (s *mockState) Code(addr common.Address) ([]byte, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc.code, nil
	}
	return nil, nil
}

func (s *mockState) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc.storage[slot], nil
	}
	return common.Hash{}, nil
}

func (s *mockState) SetNonce(addr common.Address, nonce uint64) error {
	s.account(addr).nonce = nonce
	return nil
}

func (s *mockState) SetBalance(addr common.Address, balance *uint256.Int) error {
	s.account(addr).balance = new(uint256.Int).Set(balance)
	return nil
}

func (s *mockState) SetCode(addr common.Address, code []byte) error {
	s.account(addr).code = code
	return nil
}

func (s *mockState) SetStorage(addr common.Address, slot, value common.Hash) error {
	s.account(addr).storage[slot] = value
	return nil
}

// readOnlyState hides the write methods of a mockState.
type readOnlyState struct {
	ChainState
}
