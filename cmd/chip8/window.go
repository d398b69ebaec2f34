//go:build !headless

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
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/lassandro/gochip8/pkg/display"
)

var (
	colorOn  = [4]byte{0xE0, 0xE0, 0xE0, 0xFF}
	colorOff = [4]byte{0x10, 0x10, 0x10, 0xFF}
)

type window struct {
	emu    *emulator
	keys   []ebiten.Key
	frame  display.Snapshot
	pixels []byte
	image  *ebiten.Image
}

func (w *window) Update() error {
	if ebiten.IsWindowBeingClosed() ||
		inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		w.emu.togglePause()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := w.emu.reset(); err != nil {
			return err
		}
	}

	if !w.emu.paused {
		w.keys = inpututil.AppendJustPressedKeys(w.keys[:0])

		for _, key := range w.keys {
			w.emu.mc.KeyDown(hostLabel(key.String()))
		}

		w.keys = inpututil.AppendJustReleasedKeys(w.keys[:0])

		for _, key := range w.keys {
			w.emu.mc.KeyUp(hostLabel(key.String()))
		}
	}

	result, err := w.emu.frame()

	if err != nil {
		return err
	}

	w.frame = result.Framebuffer

	return nil
}

func (w *window) Draw(screen *ebiten.Image) {
	if w.image == nil {
		w.image = ebiten.NewImage(display.Width, display.Height)
		w.pixels = make([]byte, display.Size*4)
	}

	for i, on := range w.frame {
		if on == 1 {
			copy(w.pixels[i*4:], colorOn[:])
		} else {
			copy(w.pixels[i*4:], colorOff[:])
		}
	}

	w.image.WritePixels(w.pixels)
	screen.DrawImage(w.image, nil)
}

func (w *window) Layout(_, _ int) (int, int) {
	return display.Width, display.Height
}

func runWindow(emu *emulator) error {
	if scalevar < 1 {
		scalevar = 1
	}

	ebiten.SetWindowSize(display.Width*scalevar, display.Height*scalevar)
	ebiten.SetWindowTitle("chip8")
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetTPS(FRAME_RATE)

	return ebiten.RunGame(&window{emu: emu})
}
