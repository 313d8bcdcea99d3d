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

// Empty is a chain without accounts. Every balance, nonce and storage slot
// is zero and no address has code.
type Empty struct {
	Block vm.BlockInfo
}

func NewEmpty(block vm.BlockInfo) *Empty {
	return &Empty{Block: block}
}

func (e *Empty) BlockInfo() (vm.BlockInfo, error) { return e.Block, nil }

func (e *Empty) Nonce(common.Address) (uint64, error) { return 0, nil }

func (e *Empty) Balance(common.Address) (*uint256.Int, error) { return new(uint256.Int), nil }

func (e *Empty) Code(common.Address) ([]byte, error) { return nil, nil }

func (e *Empty) Storage(common.Address, common.Hash) (common.Hash, error) {
	return common.Hash{}, nil
}
