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
	"strings"
)

// DOTBackend renders a program as a Graphviz digraph.
type DOTBackend struct {
	nodes strings.Builder
	edges strings.Builder
}

func (d *DOTBackend) Block(pc uint64, b *Block) error {
	fmt.Fprintf(&d.nodes, "\tb%d [label=\"", pc)
	for _, ins := range b.Instructions {
		fmt.Fprintf(&d.nodes, "%04x: %v\\l", ins.PC, ins)
	}
	fmt.Fprintf(&d.nodes, "gas: %d\\l\"];\n", b.StaticGas())
	return nil
}

func (d *DOTBackend) Edge(from, to uint64) error {
	fmt.Fprintf(&d.edges, "\tb%d -> b%d;\n", from, to)
	return nil
}

func (d *DOTBackend) String() string {
	return "digraph program {\n\tnode [shape=box fontname=monospace];\n" + d.nodes.String() + d.edges.String() + "}\n"
}

// DOT renders the program as a Graphviz digraph.
func DOT(p *Program) string {
	var d DOTBackend
	p.Emit(&d)
	return d.String()
}
