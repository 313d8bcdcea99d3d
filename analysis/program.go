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
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/practical-formal-methods/evmflow/vm"
	"golang.org/x/exp/maps"
)

// RevisitPolicy decides what recovery does when it reaches an already
// decoded pc with a stack it has not analysed there before.
type RevisitPolicy int

const (
	// RevisitMerge analyses the block again, first with exact stacks and,
	// once MaxContexts of them have been seen at a pc, with their join.
	RevisitMerge RevisitPolicy = iota
	// RevisitSkip analyses every block once, with the first stack that
	// reaches it. Jump targets that depend on later stacks are missed.
	RevisitSkip
)

func (p RevisitPolicy) String() string {
	switch p {
	case RevisitMerge:
		return "merge"
	case RevisitSkip:
		return "skip"
	}
	return fmt.Sprintf("RevisitPolicy(%d)", int(p))
}

func (p RevisitPolicy) MarshalText() ([]byte, error) {
	switch p {
	case RevisitMerge, RevisitSkip:
		return []byte(p.String()), nil
	}
	return nil, errors.Errorf("unknown revisit policy %d", int(p))
}

func (p *RevisitPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "merge":
		*p = RevisitMerge
	case "skip":
		*p = RevisitSkip
	default:
		return errors.Errorf("unknown revisit policy %q, want merge or skip", text)
	}
	return nil
}

// Config tunes control-flow recovery.
type Config struct {
	Revisit RevisitPolicy
	// MaxContexts bounds the exact stacks analysed per pc under RevisitMerge.
	MaxContexts int
}

var DefaultConfig = Config{
	Revisit:     RevisitMerge,
	MaxContexts: 8,
}

// Program is the recovered control-flow graph of a piece of code. It is not
// modified once Recover returns.
type Program struct {
	code   []byte
	hash   common.Hash
	blocks map[uint64]*Block
}

// Code returns the code the program was recovered from.
func (p *Program) Code() []byte { return p.code }

// CodeHash returns the keccak256 hash of the code.
func (p *Program) CodeHash() common.Hash { return p.hash }

// Len returns the number of reachable blocks.
func (p *Program) Len() int { return len(p.blocks) }

// Block returns the block starting at pc, if it is reachable.
func (p *Program) Block(pc uint64) (*Block, bool) {
	b, ok := p.blocks[pc]
	return b, ok
}

// PCs returns the start pcs of all reachable blocks in ascending order.
func (p *Program) PCs() []uint64 {
	pcs := maps.Keys(p.blocks)
	slices.Sort(pcs)
	return pcs
}

// Successors returns the resolved successors of the block at pc.
func (p *Program) Successors(pc uint64) []uint64 {
	if b, ok := p.blocks[pc]; ok {
		return b.Successors()
	}
	return nil
}

type contextKey struct {
	pc     uint64
	height int
}

type context struct {
	pc    uint64
	stack SymStack
}

type recoverer struct {
	cfg     *Config
	prog    *Program
	codeMap vm.CodeMap

	exact  map[uint64][]SymStack
	joined map[contextKey]SymStack

	worklist []context
}

// Recover reconstructs the control-flow graph of code, starting at pc 0 with
// an empty stack. Any block that cannot be resolved fails the whole recovery.
func Recover(code []byte, cfg *Config) (*Program, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	start := time.Now()
	r := &recoverer{
		cfg: cfg,
		prog: &Program{
			code:   code,
			hash:   crypto.Keccak256Hash(code),
			blocks: map[uint64]*Block{},
		},
		codeMap: vm.NewCodeMap(code),
		exact:   map[uint64][]SymStack{},
		joined:  map[contextKey]SymStack{},
	}
	if err := r.run(); err != nil {
		failureCounter.Inc(1)
		log.Debug("Control-flow recovery failed", "hash", r.prog.hash, "err", err)
		return nil, err
	}
	programCounter.Inc(1)
	blockCounter.Inc(int64(len(r.prog.blocks)))
	log.Debug("Recovered control flow", "hash", r.prog.hash, "blocks", len(r.prog.blocks), "elapsed", common.PrettyDuration(time.Since(start)))
	return r.prog, nil
}

func (r *recoverer) run() error {
	if err := r.add(Successor{PC: 0}); err != nil {
		return err
	}
	for 0 < len(r.worklist) {
		ctx := r.worklist[0]
		r.worklist = r.worklist[1:]

		succs, err := r.prog.blocks[ctx.pc].JumpTargets(ctx.stack)
		if err != nil {
			return errors.Wrapf(err, "block %d", ctx.pc)
		}
		for _, succ := range succs {
			if err := r.add(succ); err != nil {
				return errors.Wrapf(err, "block %d", ctx.pc)
			}
		}
	}
	return nil
}

// add decodes the successor's block if needed and queues it for analysis
// when its stack is new at that pc.
func (r *recoverer) add(succ Successor) error {
	pc := succ.PC
	block, seen := r.prog.blocks[pc]
	if !seen {
		block = DecodeBlock(r.prog.code, pc)
	}
	// Fallthrough successors need no JUMPDEST, only jumps do. A 0x5b inside
	// PUSH data is no jump destination either.
	if succ.Jumped && !(r.codeMap.IsCode(pc) && block.IsJumpDest()) {
		return errors.Wrapf(ErrInvalidJump, "destination %d", pc)
	}
	if !seen {
		r.prog.blocks[pc] = block
		r.exact[pc] = []SymStack{succ.Stack}
		r.push(pc, succ.Stack)
		return nil
	}
	if r.cfg.Revisit == RevisitSkip {
		return nil
	}
	for _, s := range r.exact[pc] {
		if s.Equal(succ.Stack) {
			return nil
		}
	}
	if len(r.exact[pc]) < r.cfg.MaxContexts {
		r.exact[pc] = append(r.exact[pc], succ.Stack)
		r.push(pc, succ.Stack)
		return nil
	}
	key := contextKey{pc: pc, height: len(succ.Stack)}
	stack := succ.Stack
	if old, ok := r.joined[key]; ok {
		var diff bool
		if stack, diff = old.join(succ.Stack); !diff {
			return nil
		}
	}
	r.joined[key] = stack
	r.push(pc, stack)
	return nil
}

func (r *recoverer) push(pc uint64, stack SymStack) {
	r.worklist = append(r.worklist, context{pc: pc, stack: stack})
}
