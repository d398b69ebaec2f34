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

package machine

import (
	"errors"
	"fmt"

	"github.com/lassandro/gochip8/pkg/display"
	"github.com/lassandro/gochip8/pkg/keypad"
	"github.com/lassandro/gochip8/pkg/random"
)

type MachineState struct {
	Registers [REGISTER_SIZE]uint8
	Index     uint16
	Program   uint16
	Stack     [STACK_SIZE]uint16
	StackPtr  uint8
	Delay     uint8
	Sound     uint8
	Memory    [MEMORY_SIZE]uint8
}

type Machine struct {
	State MachineState

	seed    uint32
	rand    *random.CMWC
	display *display.Display
	keypad  *keypad.Keypad
}

// Result is what a single step hands back to the host
type Result struct {
	Framebuffer display.Snapshot
	Tone        bool
}

type UnimplementedInstructionError struct {
	Addr uint16
	Word uint16
}

func (err *UnimplementedInstructionError) Error() string {
	return fmt.Sprintf(
		"[%#04x]: Unimplemented instruction %#04x", err.Addr, err.Word,
	)
}

type InsufficientMemoryError struct {
	Available int
	Received  int
}

func (err *InsufficientMemoryError) Error() string {
	return fmt.Sprintf(
		"Program exceeds available memory\n\twant:<=%d\n\thave:%d",
		err.Available,
		err.Received,
	)
}

type StackOverflowError struct {
	Addr uint16
}

func (err *StackOverflowError) Error() string {
	return fmt.Sprintf(
		"[%#04x]: Stack overflow\n\twant:<%d\n\thave:%d",
		err.Addr,
		STACK_SIZE,
		STACK_SIZE,
	)
}

type StackUnderflowError struct {
	Addr uint16
}

func (err *StackUnderflowError) Error() string {
	return fmt.Sprintf("[%#04x]: Return with empty stack", err.Addr)
}

type InvalidAddressError struct {
	Addr     uint16
	Accessed int
}

func (err *InvalidAddressError) Error() string {
	return fmt.Sprintf(
		"[%#04x]: Memory access out of range\n\twant:<=%#04x\n\thave:%#04x",
		err.Addr,
		MEMSPACE_END,
		err.Accessed,
	)
}

// IsFatal reports whether err is one of the conditions Step raises. A
// machine that returned a fatal error cannot make progress from its
// current state.
func IsFatal(err error) bool {
	var unimplemented *UnimplementedInstructionError
	var overflow *StackOverflowError
	var underflow *StackUnderflowError
	var address *InvalidAddressError

	return errors.As(err, &unimplemented) ||
		errors.As(err, &overflow) ||
		errors.As(err, &underflow) ||
		errors.As(err, &address)
}
