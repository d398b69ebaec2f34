// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package random implements a complementary-multiply-with-carry generator.
// Every generator owns its whole state so two machines seeded alike replay
// the same sequence.
package random

// Cycle is the length of the state table. It must be a power of two.
const Cycle = 4096

const (
	phi        uint32 = 0x9e3779b9
	multiplier uint64 = 18782
	reflect    uint32 = 0xfffffffe

	initialCarry  uint32 = 362436
	initialCursor        = Cycle - 1
)

type CMWC struct {
	table  [Cycle]uint32
	carry  uint32
	cursor int
}

func New(seed uint32) *CMWC {
	var g CMWC
	g.Seed(seed)
	return &g
}

// Seed discards the current state and reinitialises the table from seed.
func (g *CMWC) Seed(seed uint32) {
	g.table[0] = seed
	g.table[1] = seed + phi
	g.table[2] = seed + phi + phi

	for i := 3; i < Cycle; i++ {
		g.table[i] = g.table[i-3] ^ g.table[i-2] ^ phi ^ seed
	}

	g.carry = initialCarry
	g.cursor = initialCursor
}

// Next advances the cursor by one word and returns the new value.
func (g *CMWC) Next() uint32 {
	g.cursor = (g.cursor + 1) & (Cycle - 1)

	t := multiplier*uint64(g.table[g.cursor]) + uint64(g.carry)

	g.carry = uint32(t >> 32)
	x := uint32(t + uint64(g.carry))

	if x < g.carry {
		x++
		g.carry++
	}

	g.table[g.cursor] = reflect - x

	return g.table[g.cursor]
}
