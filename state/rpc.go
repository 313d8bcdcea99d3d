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
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/practical-formal-methods/evmflow/vm"
)

// DefaultRPCTimeout bounds every request of an RPC state.
const DefaultRPCTimeout = 30 * time.Second

// RPC reads chain state from a JSON-RPC node, pinned to one block so that
// all reads are consistent. Wrap it in a Cache to avoid repeated requests.
type RPC struct {
	ctx     context.Context
	client  *ethclient.Client
	number  *big.Int
	timeout time.Duration
}

// NewRPC dials url and pins the state to the node's latest block.
func NewRPC(ctx context.Context, url string) (*RPC, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", url)
	}
	return NewRPCClient(ctx, client)
}

// NewRPCClient pins a state read through client to the latest block.
func NewRPCClient(ctx context.Context, client *ethclient.Client) (*RPC, error) {
	latest, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching block number")
	}
	log.Info("Forking from block", "number", latest)
	return NewRPCAt(ctx, client, latest), nil
}

// NewRPCAt returns a state read through client at the given block.
func NewRPCAt(ctx context.Context, client *ethclient.Client, number uint64) *RPC {
	return &RPC{
		ctx:     ctx,
		client:  client,
		number:  new(big.Int).SetUint64(number),
		timeout: DefaultRPCTimeout,
	}
}

// SetTimeout changes the per-request timeout.
func (r *RPC) SetTimeout(timeout time.Duration) {
	r.timeout = timeout
}

// Number returns the block the state is pinned to.
func (r *RPC) Number() uint64 {
	return r.number.Uint64()
}

func (r *RPC) request() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, r.timeout)
}

func (r *RPC) BlockInfo() (vm.BlockInfo, error) {
	ctx, cancel := r.request()
	defer cancel()
	header, err := r.client.HeaderByNumber(ctx, r.number)
	if err != nil {
		return vm.BlockInfo{}, errors.Wrapf(err, "fetching header %v", r.number)
	}
	info := vm.BlockInfo{
		Timestamp: header.Time,
		Number:    header.Number.Uint64(),
		Coinbase:  header.Coinbase,
		GasLimit:  header.GasLimit,
	}
	if header.Difficulty != nil {
		info.Difficulty, _ = uint256.FromBig(header.Difficulty)
	}
	return info, nil
}

func (r *RPC) Nonce(addr common.Address) (uint64, error) {
	ctx, cancel := r.request()
	defer cancel()
	nonce, err := r.client.NonceAt(ctx, addr, r.number)
	return nonce, errors.Wrapf(err, "fetching nonce of %v", addr)
}

func (r *RPC) Balance(addr common.Address) (*uint256.Int, error) {
	ctx, cancel := r.request()
	defer cancel()
	balance, err := r.client.BalanceAt(ctx, addr, r.number)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching balance of %v", addr)
	}
	value, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, errors.Errorf("balance of %v exceeds 256 bits", addr)
	}
	return value, nil
}

func (r *RPC) Code(addr common.Address) ([]byte, error) {
	ctx, cancel := r.request()
	defer cancel()
	code, err := r.client.CodeAt(ctx, addr, r.number)
	return code, errors.Wrapf(err, "fetching code of %v", addr)
}

func (r *RPC) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	ctx, cancel := r.request()
	defer cancel()
	value, err := r.client.StorageAt(ctx, addr, slot, r.number)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "fetching slot %v of %v", slot, addr)
	}
	return common.BytesToHash(value), nil
}
