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
	"bytes"
	"sync/atomic"

	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	FRAME_RATE      = 60
	STEPS_PER_FRAME = 10
)

// emulator drives a machine one host frame at a time and keeps the
// cartridge around so a reset can reload it
type emulator struct {
	mc        *machine.Machine
	cartridge []byte
	steps     int
	paused    bool

	// Read from the audio goroutine
	tone atomic.Bool
}

func newEmulator(cartridge []byte, seed uint32, speed int) (*emulator, error) {
	if speed < 1 {
		speed = 1
	}

	emu := &emulator{
		mc:        machine.NewSeeded(seed),
		cartridge: cartridge,
		steps:     speed * STEPS_PER_FRAME,
	}

	if err := emu.mc.LoadCartridge(bytes.NewReader(cartridge)); err != nil {
		return nil, err
	}

	return emu, nil
}

func (emu *emulator) reset() error {
	emu.mc.Reset()
	emu.tone.Store(false)

	return emu.mc.LoadCartridge(bytes.NewReader(emu.cartridge))
}

func (emu *emulator) togglePause() {
	emu.paused = !emu.paused

	if emu.paused {
		emu.mc.ReleaseKeys()
		emu.tone.Store(false)
	}
}

// frame runs one host frame worth of steps and returns the last result.
// A paused emulator returns the current framebuffer without stepping.
func (emu *emulator) frame() (machine.Result, error) {
	if emu.paused {
		return machine.Result{Framebuffer: emu.mc.Display()}, nil
	}

	var result machine.Result

	for i := 0; i < emu.steps; i++ {
		var err error

		if result, err = emu.mc.Step(); err != nil {
			emu.tone.Store(false)
			return result, err
		}
	}

	emu.tone.Store(result.Tone)

	return result, nil
}
