//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

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
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/lassandro/gochip8/pkg/display"
)

const (
	KEY_ESCAPE = 0x1B
	KEY_PAUSE  = ' '
	KEY_RESET  = 0x12 // Ctrl+R
)

var termRestore unix.Termios

func enterRawTerm() error {
	termios, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), ioctlGetTermios)

	if err != nil {
		return err
	}

	termRestore = *termios
	termstate := *termios

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR | unix.ICRNL
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlSetTermios, &termstate)
}

func exitRawTerm() error {
	return unix.IoctlSetTermios(
		int(os.Stdin.Fd()), ioctlSetTermios, &termRestore,
	)
}

func readKeys(keys chan<- byte) {
	reader := bufio.NewReader(os.Stdin)

	for {
		b, err := reader.ReadByte()

		if err != nil {
			close(keys)
			return
		}

		keys <- b
	}
}

// runTerminal has no key-up events to work with, so every key read from
// stdin is held down for holdvar frames and then released
func runTerminal(emu *emulator) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) ||
		!term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("Terminal mode requires an interactive terminal")
	}

	if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if width < display.Width || height < display.Height/2+1 {
			return fmt.Errorf(
				"Terminal too small\n\twant:%dx%d\n\thave:%dx%d",
				display.Width,
				display.Height/2+1,
				width,
				height,
			)
		}
	}

	if err := enterRawTerm(); err != nil {
		return err
	}

	defer exitRawTerm()

	out := bufio.NewWriter(os.Stdout)

	// Hide the cursor and clear the screen for the duration
	fmt.Fprint(out, "\x1b[?25l\x1b[2J")

	defer func() {
		fmt.Fprint(out, "\x1b[?25h\r\n")
		out.Flush()
	}()

	keys := make(chan byte, 64)
	go readKeys(keys)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	ticker := time.NewTicker(time.Second / FRAME_RATE)
	defer ticker.Stop()

	held := make(map[byte]int)

	for {
		select {
		case <-signals:
			return nil

		case b, ok := <-keys:
			if !ok {
				return nil
			}

			switch b {
			case KEY_ESCAPE:
				return nil

			case KEY_PAUSE:
				emu.togglePause()
				clear(held)

			case KEY_RESET:
				if err := emu.reset(); err != nil {
					return err
				}

			default:
				if !emu.paused {
					emu.mc.KeyDown(string(b))
					held[b] = holdvar
				}
			}

		case <-ticker.C:
			for b, frames := range held {
				if frames <= 1 {
					emu.mc.KeyUp(string(b))
					delete(held, b)
				} else {
					held[b] = frames - 1
				}
			}

			result, err := emu.frame()

			if err != nil {
				return err
			}

			status := ""

			if emu.paused {
				status = "Paused"
			}

			if err := renderHalfBlocks(out, result.Framebuffer, status); err != nil {
				return err
			}

			if err := out.Flush(); err != nil {
				return err
			}
		}
	}
}
