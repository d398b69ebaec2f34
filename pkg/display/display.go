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

package display

import (
	"strings"
)

const (
	Width  = 64
	Height = 32
	Size   = Width * Height
)

// Snapshot is a row-major copy of the framebuffer, one byte per pixel,
// holding 0 (off) or 1 (on).
type Snapshot [Size]uint8

func (s Snapshot) Pixel(x, y int) bool {
	return s[y*Width+x] == 1
}

// String renders the snapshot as Height lines of '#' and '.' characters.
func (s Snapshot) String() string {
	var builder strings.Builder
	builder.Grow((Width + 1) * Height)

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if s.Pixel(x, y) {
				builder.WriteByte('#')
			} else {
				builder.WriteByte('.')
			}
		}
		builder.WriteByte('\n')
	}

	return builder.String()
}

type Display struct {
	vram Snapshot
}

func New() *Display {
	return &Display{}
}

func (d *Display) Clear() {
	d.vram = Snapshot{}
}

func (d *Display) Pixel(x, y int) bool {
	return d.vram.Pixel(x%Width, y%Height)
}

// Draw XORs sprite onto the framebuffer with its top left corner at (x, y).
// Each sprite byte is one row of eight pixels, most significant bit first.
// Pixels falling off an edge wrap to the opposite edge. The result reports
// whether any set sprite bit landed on a pixel that was already on.
func (d *Display) Draw(x, y int, sprite []byte) bool {
	collision := false

	for j, row := range sprite {
		for i := 0; i < 8; i++ {
			if (row>>(7-i))&0x1 == 0 {
				continue
			}

			offset := ((y+j)%Height)*Width + (x+i)%Width

			if d.vram[offset] == 1 {
				collision = true
			}

			d.vram[offset] ^= 1
		}
	}

	return collision
}

func (d *Display) Snapshot() Snapshot {
	return d.vram
}
