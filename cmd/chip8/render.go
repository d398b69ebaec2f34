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

package main

import (
	"io"
	"strings"

	"github.com/lassandro/gochip8/pkg/display"
)

// Each terminal row carries two framebuffer rows using half blocks
var blocks = [4]string{" ", "▀", "▄", "█"}

func renderHalfBlocks(w io.Writer, frame display.Snapshot, status string) error {
	var builder strings.Builder

	builder.WriteString("\x1b[H")

	for y := 0; y < display.Height; y += 2 {
		for x := 0; x < display.Width; x++ {
			cell := 0

			if frame.Pixel(x, y) {
				cell |= 1
			}

			if y+1 < display.Height && frame.Pixel(x, y+1) {
				cell |= 2
			}

			builder.WriteString(blocks[cell])
		}

		builder.WriteString("\r\n")
	}

	builder.WriteString("\x1b[K")
	builder.WriteString(status)

	_, err := io.WriteString(w, builder.String())

	return err
}

// hostLabel maps a host key name onto the keypad's keyboard labels, so
// Digit1 becomes 1 and Q becomes q. Names the keypad does not know are
// ignored by the machine.
func hostLabel(name string) string {
	return strings.TrimPrefix(strings.ToLower(name), "digit")
}
