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
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/practical-formal-methods/evmflow/vm"
)

// Account is the state of one address.
type Account struct {
	Nonce   uint64
	Balance *uint256.Int
	Code    []byte
	Storage map[common.Hash]common.Hash
}

func newAccount() *Account {
	return &Account{Balance: new(uint256.Int), Storage: map[common.Hash]common.Hash{}}
}

// StateSet is an in-memory writable chain state that can be saved to and
// loaded from JSON. Addresses it does not know read as empty accounts.
type StateSet struct {
	Block    *vm.BlockInfo
	Accounts map[common.Address]*Account
}

func NewStateSet() *StateSet {
	return &StateSet{Accounts: map[common.Address]*Account{}}
}

// LoadStateSet reads a state set from a JSON file.
func LoadStateSet(path string) (*StateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading state set")
	}
	set := NewStateSet()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, errors.Wrapf(err, "decoding state set %s", path)
	}
	return set, nil
}

// Save writes the state set to a JSON file.
func (s *StateSet) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "writing state set")
}

func (s *StateSet) account(addr common.Address) *Account {
	acc, ok := s.Accounts[addr]
	if !ok {
		acc = newAccount()
		s.Accounts[addr] = acc
	}
	return acc
}

func (s *StateSet) BlockInfo() (vm.BlockInfo, error) {
	if s.Block == nil {
		return vm.BlockInfo{}, nil
	}
	return *s.Block, nil
}

func (s *StateSet) Nonce(addr common.Address) (uint64, error) {
	if acc, ok := s.Accounts[addr]; ok {
		return acc.Nonce, nil
	}
	return 0, nil
}

func (s *StateSet) Balance(addr common.Address) (*uint256.Int, error) {
	if acc, ok := s.Accounts[addr]; ok && acc.Balance != nil {
		return new(uint256.Int).Set(acc.Balance), nil
	}
	return new(uint256.Int), nil
}

func (s *StateSet) Code(addr common.Address) ([]byte, error) {
	if acc, ok := s.Accounts[addr]; ok {
		return acc.Code, nil
	}
	return nil, nil
}

func (s *StateSet) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	if acc, ok := s.Accounts[addr]; ok {
		return acc.Storage[slot], nil
	}
	return common.Hash{}, nil
}

func (s *StateSet) SetNonce(addr common.Address, nonce uint64) error {
	s.account(addr).Nonce = nonce
	return nil
}

func (s *StateSet) SetBalance(addr common.Address, balance *uint256.Int) error {
	s.account(addr).Balance = new(uint256.Int).Set(balance)
	return nil
}

func (s *StateSet) SetCode(addr common.Address, code []byte) error {
	s.account(addr).Code = common.CopyBytes(code)
	return nil
}

func (s *StateSet) SetStorage(addr common.Address, slot, value common.Hash) error {
	acc := s.account(addr)
	if value == (common.Hash{}) {
		delete(acc.Storage, slot)
	} else {
		acc.Storage[slot] = value
	}
	return nil
}

type blockJSON struct {
	Timestamp  hexutil.Uint64 `json:"timestamp"`
	Number     hexutil.Uint64 `json:"number"`
	Coinbase   common.Address `json:"coinbase"`
	GasLimit   hexutil.Uint64 `json:"gasLimit"`
	Difficulty *hexutil.Big   `json:"difficulty,omitempty"`
}

type accountJSON struct {
	Nonce   hexutil.Uint64              `json:"nonce,omitempty"`
	Balance *hexutil.Big                `json:"balance,omitempty"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

type stateSetJSON struct {
	Block    *blockJSON                      `json:"block,omitempty"`
	Accounts map[common.Address]*accountJSON `json:"accounts"`
}

func (s *StateSet) MarshalJSON() ([]byte, error) {
	enc := stateSetJSON{Accounts: make(map[common.Address]*accountJSON, len(s.Accounts))}
	if s.Block != nil {
		enc.Block = &blockJSON{
			Timestamp: hexutil.Uint64(s.Block.Timestamp),
			Number:    hexutil.Uint64(s.Block.Number),
			Coinbase:  s.Block.Coinbase,
			GasLimit:  hexutil.Uint64(s.Block.GasLimit),
		}
		if s.Block.Difficulty != nil {
			enc.Block.Difficulty = (*hexutil.Big)(s.Block.Difficulty.ToBig())
		}
	}
	for addr, acc := range s.Accounts {
		a := &accountJSON{Nonce: hexutil.Uint64(acc.Nonce), Code: acc.Code}
		if acc.Balance != nil && !acc.Balance.IsZero() {
			a.Balance = (*hexutil.Big)(acc.Balance.ToBig())
		}
		if len(acc.Storage) > 0 {
			a.Storage = acc.Storage
		}
		enc.Accounts[addr] = a
	}
	return json.Marshal(&enc)
}

func (s *StateSet) UnmarshalJSON(input []byte) error {
	var dec stateSetJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	s.Block = nil
	if dec.Block != nil {
		s.Block = &vm.BlockInfo{
			Timestamp: uint64(dec.Block.Timestamp),
			Number:    uint64(dec.Block.Number),
			Coinbase:  dec.Block.Coinbase,
			GasLimit:  uint64(dec.Block.GasLimit),
		}
		if dec.Block.Difficulty != nil {
			difficulty, overflow := uint256.FromBig(dec.Block.Difficulty.ToInt())
			if overflow {
				return errors.New("block difficulty exceeds 256 bits")
			}
			s.Block.Difficulty = difficulty
		}
	}
	s.Accounts = make(map[common.Address]*Account, len(dec.Accounts))
	for addr, a := range dec.Accounts {
		if a == nil {
			return errors.Errorf("account %v is null", addr)
		}
		acc := newAccount()
		acc.Nonce = uint64(a.Nonce)
		acc.Code = a.Code
		if a.Balance != nil {
			balance, overflow := uint256.FromBig(a.Balance.ToInt())
			if overflow {
				return errors.Errorf("balance of %v exceeds 256 bits", addr)
			}
			acc.Balance = balance
		}
		for slot, value := range a.Storage {
			acc.Storage[slot] = value
		}
		s.Accounts[addr] = acc
	}
	return nil
}
