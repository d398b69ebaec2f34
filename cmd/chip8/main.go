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
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lassandro/gochip8/pkg/machine"
)

var helpvar bool
var termvar bool
var mutevar bool
var verbosevar bool
var scalevar int
var speedvar int
var holdvar int
var seedvar uint

const usage = "chip8 [-term] [-mute] [-scale n] [-speed n] [-seed n] filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&termvar, "term", false, "Renders to the terminal instead of a window")
	flag.BoolVar(&mutevar, "mute", false, "Disables the tone generator")
	flag.BoolVar(&verbosevar, "verbose", false, "Logs machine state on exit")
	flag.IntVar(&scalevar, "scale", 10, "Window pixels per display pixel")
	flag.IntVar(&speedvar, "speed", 1, "Multiplies the instructions run per frame")
	flag.IntVar(&holdvar, "hold", 6, "Frames a terminal key stays pressed")
	flag.UintVar(&seedvar, "seed", machine.DEFAULT_SEED, "Random generator seed")
}

func logState(mc *machine.Machine) {
	state := &mc.State

	log.Printf(
		"PC:%#04x I:%#04x SP:%d DT:%d ST:%d",
		state.Program,
		state.Index,
		state.StackPtr,
		state.Delay,
		state.Sound,
	)

	log.Printf("V: % 02x", state.Registers[:])

	if state.StackPtr > 0 {
		log.Printf("Stack: %04x", state.Stack[:state.StackPtr])
	}
}

func chip8() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	cartridge, err := os.ReadFile(args[0])

	if err != nil {
		log.Println(err)
		return 1
	}

	emu, err := newEmulator(cartridge, uint32(seedvar), speedvar)

	if err != nil {
		log.Println(err)
		return 1
	}

	if verbosevar {
		log.Printf(
			"Loaded %s (%d bytes, seed %d, %d steps per frame)",
			filepath.Base(args[0]),
			len(cartridge),
			seedvar,
			emu.steps,
		)
	}

	if !mutevar {
		if bp, err := newBeeper(&emu.tone); err != nil {
			log.Println("Audio disabled:", err)
		} else {
			defer bp.Close()
		}
	}

	if termvar {
		err = runTerminal(emu)
	} else {
		err = runWindow(emu)
	}

	if verbosevar || machine.IsFatal(err) {
		logState(emu.mc)
	}

	if err != nil {
		var unimplemented *machine.UnimplementedInstructionError

		if errors.As(err, &unimplemented) && unimplemented.Word&0xF000 == 0 {
			log.Println("Machine code routines (0NNN) are not supported")
		}

		log.Println(err)
		return 1
	}

	return 0
}

func main() {
	flag.Parse()
	os.Exit(chip8())
}
