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

// Package state provides chain state implementations for the interpreter:
// an empty chain, a read-through cache, a writable overlay, a serializable
// state set and a remote state read over JSON-RPC.
package state

import (
	"github.com/practical-formal-methods/evmflow/vm"
)

type (
	ChainState = vm.ChainState
	Writable   = vm.WritableChainState
)

// ErrReadOnly is returned when writing to a state that does not accept
// writes.
var ErrReadOnly = vm.ErrReadOnlyState
