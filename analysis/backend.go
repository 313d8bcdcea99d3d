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

// Backend consumes a recovered program, for instance to generate native code
// with one native block per recovered block.
type Backend interface {
	// Block is called once per block, in ascending pc order, before any edge.
	Block(pc uint64, b *Block) error
	// Edge is called once per resolved successor.
	Edge(from, to uint64) error
}

// Emit feeds the program to a backend.
func (p *Program) Emit(backend Backend) error {
	pcs := p.PCs()
	for _, pc := range pcs {
		if err := backend.Block(pc, p.blocks[pc]); err != nil {
			return err
		}
	}
	for _, pc := range pcs {
		for _, succ := range p.blocks[pc].Successors() {
			if err := backend.Edge(pc, succ); err != nil {
				return err
			}
		}
	}
	return nil
}
