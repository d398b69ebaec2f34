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

package machine_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lassandro/gochip8/pkg/display"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/random"
)

type testMachineState struct {
	Registers [16]uint8
	Index     uint16
	Program   uint16
	Stack     [16]uint16
	StackPtr  uint8
	Delay     uint8
	Sound     uint8
	Memory    map[uint16]uint8
}

type testCase struct {
	Name   string
	Steps  uint
	Keys   []string
	Code   []uint16
	Input  testMachineState
	Output testMachineState
}

type failCase struct {
	Name  string
	Code  []uint16
	Input testMachineState
	Error error
}

func (test *testMachineState) apply(mc *machine.Machine, code []uint16) {
	mc.State.Registers = test.Registers
	mc.State.Index = test.Index
	mc.State.Stack = test.Stack
	mc.State.StackPtr = test.StackPtr
	mc.State.Delay = test.Delay
	mc.State.Sound = test.Sound

	if test.Program != 0 {
		mc.State.Program = test.Program
	}

	for i, word := range code {
		addr := mc.State.Program + uint16(i*2)
		mc.State.Memory[addr] = uint8(word >> 8)
		mc.State.Memory[addr+1] = uint8(word)
	}

	for addr, value := range test.Memory {
		mc.State.Memory[addr] = value
	}
}

func testMachineSuccess(t *testing.T, test *testCase) {
	mc := machine.New()
	pristine := machine.New()

	test.Input.apply(mc, test.Code)
	test.Input.apply(pristine, test.Code)

	for _, key := range test.Keys {
		mc.KeyDown(key)
	}

	if test.Steps == 0 {
		test.Steps = 1
	}

	for i := uint(0); i < test.Steps; i++ {
		if _, err := mc.Step(); err != nil {
			t.Fatalf("Unexpected error at step %d\n%s", i, err)
		}
	}

	for i := 0; i < 16; i++ {
		want := test.Output.Registers[i]
		have := mc.State.Registers[i]
		if have != want {
			t.Errorf(
				"Register mismatch"+
					"\nwant:%#02x (test.Output.Registers[%d])\nhave:%#02x",
				want,
				i,
				have,
			)
		}
	}

	if mc.State.Program != test.Output.Program {
		t.Errorf(
			"Program counter mismatch"+
				"\nwant:%#04x (test.Output.Program)\nhave:%#04x",
			test.Output.Program,
			mc.State.Program,
		)
	}

	if mc.State.Index != test.Output.Index {
		t.Errorf(
			"Index register mismatch"+
				"\nwant:%#04x (test.Output.Index)\nhave:%#04x",
			test.Output.Index,
			mc.State.Index,
		)
	}

	if mc.State.StackPtr != test.Output.StackPtr {
		t.Errorf(
			"Stack pointer mismatch"+
				"\nwant:%d (test.Output.StackPtr)\nhave:%d",
			test.Output.StackPtr,
			mc.State.StackPtr,
		)
	}

	for i := uint8(0); i < test.Output.StackPtr; i++ {
		if have, want := mc.State.Stack[i], test.Output.Stack[i]; have != want {
			t.Errorf(
				"Stack mismatch"+
					"\nwant:%#04x (test.Output.Stack[%d])\nhave:%#04x",
				want,
				i,
				have,
			)
		}
	}

	if mc.State.Delay != test.Output.Delay {
		t.Errorf(
			"Delay timer mismatch"+
				"\nwant:%d (test.Output.Delay)\nhave:%d",
			test.Output.Delay,
			mc.State.Delay,
		)
	}

	if mc.State.Sound != test.Output.Sound {
		t.Errorf(
			"Sound timer mismatch"+
				"\nwant:%d (test.Output.Sound)\nhave:%d",
			test.Output.Sound,
			mc.State.Sound,
		)
	}

	for i, value := range mc.State.Memory {
		output, expectingOutput := test.Output.Memory[uint16(i)]

		if expectingOutput {
			// Value was supposed to change
			if value != output {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#02x (test.Output.Memory[%#04x])\nhave:%#02x",
					output,
					i,
					value,
				)
			}
		} else if value != pristine.State.Memory[i] {
			// Value was supposed to remain
			t.Fatalf(
				"Memory unexpectedly changed"+
					"\nwant:%#02x ([%#04x])\nhave:%#02x",
				pristine.State.Memory[i],
				i,
				value,
			)
		}
	}
}

func testMachineFailure(t *testing.T, test *failCase) {
	mc := machine.New()
	test.Input.apply(mc, test.Code)

	before := mc.State

	_, err := mc.Step()

	if err == nil {
		t.Fatalf("Expected error\nwant:%T\nhave:nil", test.Error)
	}

	if !machine.IsFatal(err) {
		t.Errorf("Expected fatal error\nhave:%s", err)
	}

	switch test.Error.(type) {
	case *machine.UnimplementedInstructionError:
		var target *machine.UnimplementedInstructionError
		if !errors.As(err, &target) {
			t.Fatalf("Error type mismatch\nwant:%T\nhave:%T", test.Error, err)
		}
	case *machine.StackOverflowError:
		var target *machine.StackOverflowError
		if !errors.As(err, &target) {
			t.Fatalf("Error type mismatch\nwant:%T\nhave:%T", test.Error, err)
		}
	case *machine.StackUnderflowError:
		var target *machine.StackUnderflowError
		if !errors.As(err, &target) {
			t.Fatalf("Error type mismatch\nwant:%T\nhave:%T", test.Error, err)
		}
	case *machine.InvalidAddressError:
		var target *machine.InvalidAddressError
		if !errors.As(err, &target) {
			t.Fatalf("Error type mismatch\nwant:%T\nhave:%T", test.Error, err)
		}
	}

	if err.Error() != test.Error.Error() {
		t.Errorf(
			"Error message mismatch\nwant:%s\nhave:%s",
			test.Error,
			err,
		)
	}

	if mc.State != before {
		t.Errorf("Machine state changed by a failed step")
	}
}

func TestCLS(t *testing.T) {
	mc := machine.New()

	// LD I, glyph 0; DRW V0, V0, 5; CLS
	mc.Load([]byte{0xA0, 0x00, 0xD0, 0x05, 0x00, 0xE0})

	result, err := mc.Step()
	if err == nil {
		result, err = mc.Step()
	}

	if err != nil {
		t.Fatal(err)
	}

	if result.Framebuffer == (display.Snapshot{}) {
		t.Fatal("Sprite was not drawn before clearing")
	}

	result, err = mc.Step()

	if err != nil {
		t.Fatal(err)
	}

	if result.Framebuffer != (display.Snapshot{}) {
		t.Errorf("Framebuffer not cleared\nhave:\n%s", result.Framebuffer)
	}
}

func TestFlow(t *testing.T) {
	tests := []testCase{
		{
			Name:   "JP",
			Code:   []uint16{0x1A2A},
			Output: testMachineState{Program: 0x0A2A},
		},
		{
			Name: "CALL",
			Code: []uint16{0x2ABC},
			Output: testMachineState{
				Program:  0x0ABC,
				StackPtr: 1,
				Stack:    [16]uint16{0x0202},
			},
		},
		{
			Name: "RET",
			Input: testMachineState{
				StackPtr: 1,
				Stack:    [16]uint16{0x0300},
			},
			Code: []uint16{0x00EE},
			Output: testMachineState{
				Program:  0x0300,
				StackPtr: 0,
				Stack:    [16]uint16{0x0300},
			},
		},
		{
			Name:  "CALL then RET",
			Steps: 2,
			Code:  []uint16{0x2206, 0x0000, 0x0000, 0x00EE},
			Output: testMachineState{
				Program:  0x0202,
				StackPtr: 0,
			},
		},
		{
			Name:  "Nested CALL",
			Steps: 2,
			Code:  []uint16{0x2204, 0x0000, 0x2208},
			Output: testMachineState{
				Program:  0x0208,
				StackPtr: 2,
				Stack:    [16]uint16{0x0202, 0x0206},
			},
		},
		{
			Name: "JP V0",
			Input: testMachineState{
				Registers: [16]uint8{0x10},
			},
			Code: []uint16{0xB300},
			Output: testMachineState{
				Registers: [16]uint8{0x10},
				Program:   0x0310,
			},
		},
		{
			Name: "SE Vx, byte (equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0xFE},
			},
			Code: []uint16{0x31FE},
			Output: testMachineState{
				Registers: [16]uint8{0, 0xFE},
				Program:   0x0204,
			},
		},
		{
			Name: "SE Vx, byte (not equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0xFE},
			},
			Code: []uint16{0x31FA},
			Output: testMachineState{
				Registers: [16]uint8{0, 0xFE},
				Program:   0x0202,
			},
		},
		{
			Name: "SNE Vx, byte (equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0xFE},
			},
			Code: []uint16{0x41FE},
			Output: testMachineState{
				Registers: [16]uint8{0, 0xFE},
				Program:   0x0202,
			},
		},
		{
			Name: "SNE Vx, byte (not equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0xFE},
			},
			Code: []uint16{0x41FA},
			Output: testMachineState{
				Registers: [16]uint8{0, 0xFE},
				Program:   0x0204,
			},
		},
		{
			Name: "SE Vx, Vy (equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x12},
			},
			Code: []uint16{0x5120},
			Output: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x12},
				Program:   0x0204,
			},
		},
		{
			Name: "SE Vx, Vy (not equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x13},
			},
			Code: []uint16{0x5120},
			Output: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x13},
				Program:   0x0202,
			},
		},
		{
			Name: "SNE Vx, Vy (equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x12},
			},
			Code: []uint16{0x9120},
			Output: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x12},
				Program:   0x0202,
			},
		},
		{
			Name: "SNE Vx, Vy (not equal)",
			Input: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x13},
			},
			Code: []uint16{0x9120},
			Output: testMachineState{
				Registers: [16]uint8{0, 0x12, 0x13},
				Program:   0x0204,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			testMachineSuccess(t, &test)
		})
	}
}

func TestALU(t *testing.T) {
	tests := []testCase{
		{
			Name:   "LD Vx, byte",
			Code:   []uint16{0x6A42},
			Output: testMachineState{
				Registers: [16]uint8{0xA: 0x42},
				Program:   0x0202,
			},
		},
		{
			Name: "ADD Vx, byte (wraps, no flag)",
			Input: testMachineState{
				Registers: [16]uint8{0x3: 0xF0, 0xF: 0x7},
			},
			Code: []uint16{0x7320},
			Output: testMachineState{
				Registers: [16]uint8{0x3: 0x10, 0xF: 0x7},
				Program:   0x0202,
			},
		},
		{
			Name: "LD Vx, Vy",
			Input: testMachineState{
				Registers: [16]uint8{0xB: 0x00, 0x4: 0x99},
			},
			Code: []uint16{0x8B40},
			Output: testMachineState{
				Registers: [16]uint8{0xB: 0x99, 0x4: 0x99},
				Program:   0x0202,
			},
		},
		{
			Name: "OR Vx, Vy",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 0b1100, 0x2: 0b1010},
			},
			Code: []uint16{0x8121},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0b1110, 0x2: 0b1010},
				Program:   0x0202,
			},
		},
		{
			Name: "AND Vx, Vy",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 0b1100, 0x2: 0b1010},
			},
			Code: []uint16{0x8122},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0b1000, 0x2: 0b1010},
				Program:   0x0202,
			},
		},
		{
			Name: "XOR Vx, Vy",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 0b1100, 0x2: 0b1010},
			},
			Code: []uint16{0x8123},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0b0110, 0x2: 0b1010},
				Program:   0x0202,
			},
		},
		{
			Name: "ADD Vx, Vy (carry)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 10, 0x2: 250},
			},
			Code: []uint16{0x8124},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 4, 0x2: 250, 0xF: 1},
				Program:   0x0202,
			},
		},
		{
			Name: "ADD Vx, Vy (no carry)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 10, 0x2: 100, 0xF: 1},
			},
			Code: []uint16{0x8124},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 110, 0x2: 100, 0xF: 0},
				Program:   0x0202,
			},
		},
		{
			Name: "SUB Vx, Vy (no borrow)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 30, 0x2: 10},
			},
			Code: []uint16{0x8125},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 20, 0x2: 10, 0xF: 1},
				Program:   0x0202,
			},
		},
		{
			Name: "SUB Vx, Vy (borrow)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 10, 0x2: 30, 0xF: 1},
			},
			Code: []uint16{0x8125},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 236, 0x2: 30, 0xF: 0},
				Program:   0x0202,
			},
		},
		{
			Name: "SUB Vx, Vy (equal)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 10, 0x2: 10, 0xF: 1},
			},
			Code: []uint16{0x8125},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0, 0x2: 10, 0xF: 0},
				Program:   0x0202,
			},
		},
		{
			Name: "SUBN Vx, Vy (no borrow)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 10, 0x2: 30},
			},
			Code: []uint16{0x8127},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 20, 0x2: 30, 0xF: 1},
				Program:   0x0202,
			},
		},
		{
			Name: "SUBN Vx, Vy (borrow)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 30, 0x2: 10, 0xF: 1},
			},
			Code: []uint16{0x8127},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 236, 0x2: 10, 0xF: 0},
				Program:   0x0202,
			},
		},
		{
			Name: "SHR Vx (odd)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 0b101},
			},
			Code: []uint16{0x8106},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0b10, 0xF: 1},
				Program:   0x0202,
			},
		},
		{
			Name: "SHR Vx (even)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 0b100, 0xF: 1},
			},
			Code: []uint16{0x8106},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0b10, 0xF: 0},
				Program:   0x0202,
			},
		},
		{
			Name: "SHL Vx (high bit set)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 0b10000001},
			},
			Code: []uint16{0x810E},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0b00000010, 0xF: 1},
				Program:   0x0202,
			},
		},
		{
			Name: "SHL Vx (high bit clear)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 0b01001000, 0xF: 1},
			},
			Code: []uint16{0x810E},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 0b10010000, 0xF: 0},
				Program:   0x0202,
			},
		},
		{
			Name: "ADD VF, Vy (result wins over flag)",
			Input: testMachineState{
				Registers: [16]uint8{0x2: 250, 0xF: 10},
			},
			Code: []uint16{0x8F24},
			Output: testMachineState{
				Registers: [16]uint8{0x2: 250, 0xF: 4},
				Program:   0x0202,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			testMachineSuccess(t, &test)
		})
	}
}

func TestAddFlagExhaustive(t *testing.T) {
	mc := machine.New()
	mc.Load([]byte{0x80, 0x14, 0x82, 0x35})

	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			mc.State.Program = machine.MEMSPACE_PROGRAM
			mc.State.Registers[0] = uint8(a)
			mc.State.Registers[1] = uint8(b)
			mc.State.Registers[2] = uint8(a)
			mc.State.Registers[3] = uint8(b)

			if _, err := mc.Step(); err != nil {
				t.Fatal(err)
			}

			sum := mc.State.Registers[0]
			carry := mc.State.Registers[0xF]

			if _, err := mc.Step(); err != nil {
				t.Fatal(err)
			}

			diff := mc.State.Registers[2]
			borrow := mc.State.Registers[0xF]

			if want := uint8((a + b) % 256); sum != want {
				t.Fatalf("ADD %d, %d\nwant:%d\nhave:%d", a, b, want, sum)
			}

			if want := a+b > 255; (carry == 1) != want || carry > 1 {
				t.Fatalf("ADD %d, %d flag\nwant:%v\nhave:%d", a, b, want, carry)
			}

			if want := uint8((a - b + 256) % 256); diff != want {
				t.Fatalf("SUB %d, %d\nwant:%d\nhave:%d", a, b, want, diff)
			}

			if want := a > b; (borrow == 1) != want || borrow > 1 {
				t.Fatalf("SUB %d, %d flag\nwant:%v\nhave:%d", a, b, want, borrow)
			}
		}
	}
}

func TestMemory(t *testing.T) {
	tests := []testCase{
		{
			Name:   "LD I, addr",
			Code:   []uint16{0xA123},
			Output: testMachineState{Index: 0x0123, Program: 0x0202},
		},
		{
			Name: "ADD I, Vx",
			Input: testMachineState{
				Registers: [16]uint8{0x4: 0xFF},
				Index:     0x0F01,
			},
			Code: []uint16{0xF41E},
			Output: testMachineState{
				Registers: [16]uint8{0x4: 0xFF},
				Index:     0x1000,
				Program:   0x0202,
			},
		},
		{
			Name: "LD F, Vx",
			Input: testMachineState{
				Registers: [16]uint8{0x2: 0xA},
			},
			Code: []uint16{0xF229},
			Output: testMachineState{
				Registers: [16]uint8{0x2: 0xA},
				Index:     0x0032,
				Program:   0x0202,
			},
		},
		{
			Name: "LD F, Vx (low nibble only)",
			Input: testMachineState{
				Registers: [16]uint8{0x2: 0x3F},
			},
			Code: []uint16{0xF229},
			Output: testMachineState{
				Registers: [16]uint8{0x2: 0x3F},
				Index:     0x004B,
				Program:   0x0202,
			},
		},
		{
			Name: "LD B, Vx",
			Input: testMachineState{
				Registers: [16]uint8{0x5: 234},
				Index:     0x0300,
			},
			Code: []uint16{0xF533},
			Output: testMachineState{
				Registers: [16]uint8{0x5: 234},
				Index:     0x0300,
				Program:   0x0202,
				Memory:    map[uint16]uint8{0x0300: 2, 0x0301: 3, 0x0302: 4},
			},
		},
		{
			Name: "LD [I], Vx",
			Input: testMachineState{
				Registers: [16]uint8{5, 4, 3, 2},
				Index:     0x0300,
			},
			Code: []uint16{0xF255},
			Output: testMachineState{
				Registers: [16]uint8{5, 4, 3, 2},
				Index:     0x0300,
				Program:   0x0202,
				Memory:    map[uint16]uint8{0x0300: 5, 0x0301: 4, 0x0302: 3},
			},
		},
		{
			Name: "LD Vx, [I]",
			Input: testMachineState{
				Index:  0x0300,
				Memory: map[uint16]uint8{0x0300: 5, 0x0301: 4, 0x0302: 3, 0x0303: 9},
			},
			Code: []uint16{0xF265},
			Output: testMachineState{
				Registers: [16]uint8{5, 4, 3},
				Index:     0x0300,
				Program:   0x0202,
				Memory:    map[uint16]uint8{0x0300: 5, 0x0301: 4, 0x0302: 3, 0x0303: 9},
			},
		},
		{
			Name:  "Store and reload V0..V2",
			Steps: 5,
			Input: testMachineState{
				Registers: [16]uint8{5, 4, 3},
				Index:     0x0300,
			},
			// LD [I], V2; LD V0, 0; LD V1, 0; LD V2, 0; LD V2, [I]
			Code: []uint16{0xF255, 0x6000, 0x6100, 0x6200, 0xF265},
			Output: testMachineState{
				Registers: [16]uint8{5, 4, 3},
				Index:     0x0300,
				Program:   0x020A,
				Memory:    map[uint16]uint8{0x0300: 5, 0x0301: 4, 0x0302: 3, 0x0303: 0},
			},
		},
		{
			Name: "LD [I], Vx (last byte of memory)",
			Input: testMachineState{
				Registers: [16]uint8{0xAB},
				Index:     0x0FFF,
			},
			Code: []uint16{0xF055},
			Output: testMachineState{
				Registers: [16]uint8{0xAB},
				Index:     0x0FFF,
				Program:   0x0202,
				Memory:    map[uint16]uint8{0x0FFF: 0xAB},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			testMachineSuccess(t, &test)
		})
	}
}

func TestTimers(t *testing.T) {
	tests := []testCase{
		{
			Name: "LD DT, Vx",
			Input: testMachineState{
				Registers: [16]uint8{0x3: 60},
			},
			Code: []uint16{0xF315},
			Output: testMachineState{
				Registers: [16]uint8{0x3: 60},
				Program:   0x0202,
				Delay:     60,
			},
		},
		{
			Name: "LD ST, Vx",
			Input: testMachineState{
				Registers: [16]uint8{0x3: 60},
			},
			Code: []uint16{0xF318},
			Output: testMachineState{
				Registers: [16]uint8{0x3: 60},
				Program:   0x0202,
				Sound:     60,
			},
		},
		{
			Name: "LD Vx, DT (after decrement)",
			Input: testMachineState{
				Delay: 10,
			},
			Code: []uint16{0xF707},
			Output: testMachineState{
				Registers: [16]uint8{0x7: 9},
				Program:   0x0202,
				Delay:     9,
			},
		},
		{
			Name:  "Timers decay once per step",
			Steps: 3,
			Input: testMachineState{
				Delay: 5,
				Sound: 2,
			},
			Code: []uint16{0x6000, 0x6000, 0x6000},
			Output: testMachineState{
				Program: 0x0206,
				Delay:   2,
				Sound:   0,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			testMachineSuccess(t, &test)
		})
	}
}

func TestKeys(t *testing.T) {
	tests := []testCase{
		{
			Name: "SKP Vx (pressed)",
			Keys: []string{"a"},
			Input: testMachineState{
				Registers: [16]uint8{0x1: 8},
			},
			Code: []uint16{0xE19E},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 8},
				Program:   0x0204,
			},
		},
		{
			Name: "SKP Vx (released)",
			Keys: []string{"s"},
			Input: testMachineState{
				Registers: [16]uint8{0x1: 8},
			},
			Code: []uint16{0xE19E},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 8},
				Program:   0x0202,
			},
		},
		{
			Name: "SKNP Vx (pressed)",
			Keys: []string{"a"},
			Input: testMachineState{
				Registers: [16]uint8{0x1: 8},
			},
			Code: []uint16{0xE1A1},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 8},
				Program:   0x0202,
			},
		},
		{
			Name: "SKNP Vx (released)",
			Input: testMachineState{
				Registers: [16]uint8{0x1: 8},
			},
			Code: []uint16{0xE1A1},
			Output: testMachineState{
				Registers: [16]uint8{0x1: 8},
				Program:   0x0204,
			},
		},
		{
			Name: "LD Vx, K (pressed)",
			Keys: []string{"f", "w"},
			Code: []uint16{0xF30A},
			Output: testMachineState{
				Registers: [16]uint8{0x3: 5},
				Program:   0x0202,
			},
		},
		{
			Name:  "LD Vx, K (waiting)",
			Steps: 4,
			Input: testMachineState{
				Registers: [16]uint8{0x3: 0x77},
				Delay:     10,
			},
			Code: []uint16{0xF30A},
			Output: testMachineState{
				Registers: [16]uint8{0x3: 0x77},
				Program:   0x0200,
				Delay:     6,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			testMachineSuccess(t, &test)
		})
	}
}

func TestWaitForKey(t *testing.T) {
	mc := machine.New()
	mc.Load([]byte{0xF4, 0x0A})

	for i := 0; i < 10; i++ {
		if _, err := mc.Step(); err != nil {
			t.Fatal(err)
		}

		if mc.State.Program != 0x0200 || mc.State.Registers[4] != 0 {
			t.Fatalf(
				"Machine advanced without a key"+
					"\nwant:0x200, 0\nhave:%#04x, %d",
				mc.State.Program,
				mc.State.Registers[4],
			)
		}
	}

	mc.KeyDown("E")

	if _, err := mc.Step(); err != nil {
		t.Fatal(err)
	}

	if mc.State.Program != 0x0202 {
		t.Errorf(
			"Program counter mismatch\nwant:0x202\nhave:%#04x",
			mc.State.Program,
		)
	}

	if mc.State.Registers[4] != 6 {
		t.Errorf(
			"Register mismatch\nwant:6\nhave:%d",
			mc.State.Registers[4],
		)
	}
}

func TestDraw(t *testing.T) {
	mc := machine.New()

	// LD V0, 0; LD I, 0x300; DRW V0, V0, 1 (x3)
	mc.Load([]byte{
		0x60, 0x00,
		0xA3, 0x00, 0xD0, 0x01,
		0xA3, 0x01, 0xD0, 0x01,
		0xA3, 0x02, 0xD0, 0x01,
	})
	mc.State.Memory[0x300] = 0b00110000
	mc.State.Memory[0x301] = 0b00000011
	mc.State.Memory[0x302] = 0b00000001

	want := []uint8{0, 0, 1}

	if _, err := mc.Step(); err != nil {
		t.Fatal(err)
	}

	for i, flag := range want {
		for j := 0; j < 2; j++ {
			if _, err := mc.Step(); err != nil {
				t.Fatal(err)
			}
		}

		if have := mc.State.Registers[0xF]; have != flag {
			t.Errorf(
				"Collision flag mismatch (draw %d)\nwant:%d\nhave:%d",
				i,
				flag,
				have,
			)
		}
	}

	snapshot := mc.Display()

	for x, want := range []bool{false, false, true, true, false, false, true, false} {
		if snapshot.Pixel(x, 0) != want {
			t.Errorf("Pixel (%d, 0) mismatch\nwant:%v\nhave:%v", x, want, !want)
		}
	}
}

func TestDrawGlyph(t *testing.T) {
	mc := machine.New()

	// LD V1, 0xF; LD F, V1; LD V2, 62; LD V3, 30; DRW V2, V3, 5
	mc.Load([]byte{0x61, 0x0F, 0xF1, 0x29, 0x62, 0x3E, 0x63, 0x1E, 0xD2, 0x35})

	var result machine.Result
	var err error

	for i := 0; i < 5; i++ {
		if result, err = mc.Step(); err != nil {
			t.Fatal(err)
		}
	}

	// F glyph: F0 80 F0 80 80, drawn from (62, 30) and wrapping both ways
	rows := map[int][4]bool{
		30: {true, true, true, true},
		31: {true, false, false, false},
		0:  {true, true, true, true},
		1:  {true, false, false, false},
		2:  {true, false, false, false},
	}
	columns := [4]int{62, 63, 0, 1}

	for y, row := range rows {
		for i, want := range row {
			if have := result.Framebuffer.Pixel(columns[i], y); have != want {
				t.Errorf(
					"Pixel (%d, %d) mismatch\nwant:%v\nhave:%v",
					columns[i], y, want, have,
				)
			}
		}
	}

	if mc.State.Registers[0xF] != 0 {
		t.Errorf("Unexpected collision")
	}
}

func TestRND(t *testing.T) {
	mc := machine.New()
	mc.Load([]byte{0xC0, 0xFF, 0xC1, 0x0F})

	g := random.New(machine.DEFAULT_SEED)

	for i := 0; i < 2; i++ {
		if _, err := mc.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if want := uint8(g.Next()); mc.State.Registers[0] != want {
		t.Errorf("RND mismatch\nwant:%#02x\nhave:%#02x", want, mc.State.Registers[0])
	}

	if want := uint8(g.Next()) & 0x0F; mc.State.Registers[1] != want {
		t.Errorf("RND mask mismatch\nwant:%#02x\nhave:%#02x", want, mc.State.Registers[1])
	}
}

func TestSeededReplay(t *testing.T) {
	program := []byte{0xC0, 0xFF, 0x12, 0x00}

	run := func(mc *machine.Machine) []uint8 {
		if err := mc.Load(program); err != nil {
			t.Fatal(err)
		}

		values := make([]uint8, 0, 64)

		for i := 0; i < 128; i++ {
			if _, err := mc.Step(); err != nil {
				t.Fatal(err)
			}

			if i%2 == 0 {
				values = append(values, mc.State.Registers[0])
			}
		}

		return values
	}

	a := run(machine.NewSeeded(7))
	b := run(machine.NewSeeded(7))

	if !bytes.Equal(a, b) {
		t.Errorf("Seeded machines diverged\nwant:%v\nhave:%v", a, b)
	}

	mc := machine.NewSeeded(7)
	first := run(mc)
	mc.Reset()
	second := run(mc)

	if !bytes.Equal(first, second) {
		t.Errorf("Reset did not restore the generator\nwant:%v\nhave:%v", first, second)
	}
}

func TestToneFlag(t *testing.T) {
	mc := machine.New()

	// LD V0, 2; LD ST, V0; JP 0x204
	mc.Load([]byte{0x60, 0x02, 0xF0, 0x18, 0x12, 0x04})

	want := []bool{false, true, true, false, false}

	for i, tone := range want {
		result, err := mc.Step()

		if err != nil {
			t.Fatal(err)
		}

		if result.Tone != tone {
			t.Errorf("Tone mismatch (step %d)\nwant:%v\nhave:%v", i, tone, result.Tone)
		}
	}
}

func TestFailures(t *testing.T) {
	tests := []failCase{
		{
			Name:  "Unknown SYS",
			Code:  []uint16{0x0123},
			Error: &machine.UnimplementedInstructionError{0x0200, 0x0123},
		},
		{
			Name:  "Unknown 0x00 selector",
			Code:  []uint16{0x00E1},
			Error: &machine.UnimplementedInstructionError{0x0200, 0x00E1},
		},
		{
			Name:  "SE Vx, Vy with trailing nibble",
			Code:  []uint16{0x5121},
			Error: &machine.UnimplementedInstructionError{0x0200, 0x5121},
		},
		{
			Name:  "Unknown ALU",
			Code:  []uint16{0x8128},
			Error: &machine.UnimplementedInstructionError{0x0200, 0x8128},
		},
		{
			Name:  "SNE Vx, Vy with trailing nibble",
			Code:  []uint16{0x912F},
			Error: &machine.UnimplementedInstructionError{0x0200, 0x912F},
		},
		{
			Name:  "Unknown key selector",
			Code:  []uint16{0xE19F},
			Error: &machine.UnimplementedInstructionError{0x0200, 0xE19F},
		},
		{
			Name:  "Unknown misc selector",
			Code:  []uint16{0xF1FF},
			Error: &machine.UnimplementedInstructionError{0x0200, 0xF1FF},
		},
		{
			Name: "CALL with full stack",
			Input: testMachineState{
				StackPtr: 16,
				Delay:    3,
				Sound:    3,
			},
			Code:  []uint16{0x2300},
			Error: &machine.StackOverflowError{0x0200},
		},
		{
			Name:  "RET with empty stack",
			Code:  []uint16{0x00EE},
			Error: &machine.StackUnderflowError{0x0200},
		},
		{
			Name: "DRW past end of memory",
			Input: testMachineState{
				Index: 0x0FFE,
			},
			Code:  []uint16{0xD003},
			Error: &machine.InvalidAddressError{0x0200, 0x1000},
		},
		{
			Name: "LD B, Vx past end of memory",
			Input: testMachineState{
				Index: 0x0FFE,
			},
			Code:  []uint16{0xF033},
			Error: &machine.InvalidAddressError{0x0200, 0x1000},
		},
		{
			Name: "LD [I], Vx past end of memory",
			Input: testMachineState{
				Index: 0x0FFC,
			},
			Code:  []uint16{0xF555},
			Error: &machine.InvalidAddressError{0x0200, 0x1001},
		},
		{
			Name: "LD Vx, [I] past end of memory",
			Input: testMachineState{
				Index: 0x1000,
			},
			Code:  []uint16{0xF065},
			Error: &machine.InvalidAddressError{0x0200, 0x1000},
		},
		{
			Name: "Fetch past end of memory",
			Input: testMachineState{
				Program: 0x0FFF,
			},
			Error: &machine.InvalidAddressError{0x0FFF, 0x1000},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			testMachineFailure(t, &test)
		})
	}
}

func TestStackDepth(t *testing.T) {
	mc := machine.New()

	// CALL 0x200 recurses until the stack is exhausted
	mc.Load([]byte{0x22, 0x00})

	for i := 0; i < machine.STACK_SIZE; i++ {
		if _, err := mc.Step(); err != nil {
			t.Fatalf("Unexpected error at depth %d\n%s", i, err)
		}
	}

	var overflow *machine.StackOverflowError

	if _, err := mc.Step(); !errors.As(err, &overflow) {
		t.Fatalf("Expected stack overflow\nhave:%v", err)
	}

	if mc.State.StackPtr != machine.STACK_SIZE {
		t.Errorf("Stack pointer mismatch\nwant:16\nhave:%d", mc.State.StackPtr)
	}
}

func TestLoad(t *testing.T) {
	mc := machine.New()
	mc.State.Registers[3] = 0x33

	if err := mc.Load([]byte{0x12, 0x34, 0x56}); err != nil {
		t.Fatal(err)
	}

	if have := mc.State.Memory[0x200:0x203]; !bytes.Equal(have, []byte{0x12, 0x34, 0x56}) {
		t.Errorf("Program mismatch\nwant:[12 34 56]\nhave:%x", have)
	}

	if mc.State.Registers[3] != 0x33 || mc.State.Program != 0x0200 {
		t.Errorf("Load modified registers")
	}

	if !bytes.Equal(mc.State.Memory[:len(machine.FONT)], machine.FONT[:]) {
		t.Errorf("Font missing after load")
	}
}

func TestLoadCapacity(t *testing.T) {
	mc := machine.New()

	full := bytes.Repeat([]byte{0xAA}, machine.MEMORY_SIZE-0x200)

	if err := mc.Load(full); err != nil {
		t.Fatalf("Unexpected error loading %d bytes\n%s", len(full), err)
	}

	mc.Reset()

	var insufficient *machine.InsufficientMemoryError

	err := mc.Load(append(full, 0xBB))

	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected insufficient memory\nhave:%v", err)
	}

	if insufficient.Available != 0xE00 || insufficient.Received != 0xE01 {
		t.Errorf(
			"Error mismatch\nwant:%d, %d\nhave:%d, %d",
			0xE00, 0xE01,
			insufficient.Available, insufficient.Received,
		)
	}

	if machine.IsFatal(err) {
		t.Errorf("Load errors are not step errors")
	}

	for i := 0x200; i < machine.MEMORY_SIZE; i++ {
		if mc.State.Memory[i] != 0 {
			t.Fatalf("Partial copy at %#04x", i)
		}
	}
}

func TestLoadCartridge(t *testing.T) {
	mc := machine.New()

	if err := mc.LoadCartridge(bytes.NewReader([]byte{0x00, 0xE0})); err != nil {
		t.Fatal(err)
	}

	if mc.State.Memory[0x200] != 0x00 || mc.State.Memory[0x201] != 0xE0 {
		t.Errorf("Cartridge not copied")
	}

	oversized := bytes.NewReader(make([]byte, machine.MEMORY_SIZE))

	var insufficient *machine.InsufficientMemoryError

	if err := mc.LoadCartridge(oversized); !errors.As(err, &insufficient) {
		t.Errorf("Expected insufficient memory\nhave:%v", err)
	}
}

func TestReset(t *testing.T) {
	mc := machine.New()
	pristine := machine.New()

	mc.Load([]byte{0x6A, 0x05, 0xFA, 0x18, 0xA0, 0x00, 0xD0, 0x05, 0x22, 0x00})
	mc.KeyDown("q")

	for i := 0; i < 5; i++ {
		if _, err := mc.Step(); err != nil {
			t.Fatal(err)
		}
	}

	mc.Reset()

	if mc.State != pristine.State {
		t.Errorf("State not restored by reset")
	}

	if mc.Display() != (display.Snapshot{}) {
		t.Errorf("Framebuffer not cleared by reset")
	}

	if !mc.Pressed(4) {
		t.Errorf("Key state cleared by reset")
	}
}

func TestNew(t *testing.T) {
	mc := machine.New()

	if mc.State.Program != 0x0200 {
		t.Errorf("Program counter mismatch\nwant:0x200\nhave:%#04x", mc.State.Program)
	}

	if mc.Seed() != machine.DEFAULT_SEED {
		t.Errorf("Seed mismatch\nwant:%d\nhave:%d", machine.DEFAULT_SEED, mc.Seed())
	}

	for digit := 0; digit < 16; digit++ {
		glyph := mc.State.Memory[digit*machine.GLYPH_SIZE : (digit+1)*machine.GLYPH_SIZE]
		want := machine.FONT[digit*machine.GLYPH_SIZE : (digit+1)*machine.GLYPH_SIZE]

		if !bytes.Equal(glyph, want) {
			t.Errorf("Glyph %X mismatch\nwant:%x\nhave:%x", digit, want, glyph)
		}
	}
}
