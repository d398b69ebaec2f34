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
	"io"

	"github.com/lassandro/gochip8/pkg/display"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/keypad"
	"github.com/lassandro/gochip8/pkg/random"
)

func (mc *MachineState) Reset() {
	for i, _ := range mc.Registers {
		mc.Registers[i] = 0x00
	}

	for i, _ := range mc.Memory {
		mc.Memory[i] = 0x00
	}

	for i, _ := range mc.Stack {
		mc.Stack[i] = 0x0000
	}

	copy(mc.Memory[MEMSPACE_FONT:], FONT[:])

	mc.Program = MEMSPACE_PROGRAM
	mc.Index = 0
	mc.StackPtr = 0
	mc.Delay = 0
	mc.Sound = 0
}

func New() *Machine {
	return NewSeeded(DEFAULT_SEED)
}

func NewSeeded(seed uint32) *Machine {
	mc := &Machine{
		seed:    seed,
		rand:    random.New(seed),
		display: display.New(),
		keypad:  keypad.New(),
	}

	mc.State.Reset()

	return mc
}

// Reset restores the machine to the state New left it in. Key state is
// kept since it mirrors the host keyboard rather than the program.
func (mc *Machine) Reset() {
	mc.State.Reset()
	mc.rand.Seed(mc.seed)
	mc.display.Clear()
}

func (mc *Machine) Seed() uint32 {
	return mc.seed
}

// Load copies program into memory at MEMSPACE_PROGRAM. Nothing is written
// if the program does not fit.
func (mc *Machine) Load(program []byte) error {
	available := MEMORY_SIZE - int(MEMSPACE_PROGRAM)

	if len(program) > available {
		return &InsufficientMemoryError{available, len(program)}
	}

	copy(mc.State.Memory[MEMSPACE_PROGRAM:], program)

	return nil
}

func (mc *Machine) LoadCartridge(reader io.Reader) error {
	available := MEMORY_SIZE - int(MEMSPACE_PROGRAM)

	program, err := io.ReadAll(io.LimitReader(reader, int64(available)+1))

	if err != nil {
		return err
	}

	return mc.Load(program)
}

func (mc *Machine) KeyDown(label string) {
	mc.keypad.KeyDown(label)
}

func (mc *Machine) KeyUp(label string) {
	mc.keypad.KeyUp(label)
}

// ReleaseKeys clears every key, for hosts that cannot observe key-up
// events.
func (mc *Machine) ReleaseKeys() {
	mc.keypad.Release()
}

func (mc *Machine) Pressed(index uint8) bool {
	return mc.keypad.IsPressed(index)
}

func (mc *Machine) Display() display.Snapshot {
	return mc.display.Snapshot()
}

func (mc *Machine) Tone() bool {
	return mc.State.Sound > 0
}

func (mc *Machine) push(addr uint16, value uint16) error {
	if mc.State.StackPtr >= STACK_SIZE {
		return &StackOverflowError{addr}
	}

	mc.State.Stack[mc.State.StackPtr] = value
	mc.State.StackPtr++

	return nil
}

func (mc *Machine) pop(addr uint16) (uint16, error) {
	if mc.State.StackPtr == 0 {
		return 0, &StackUnderflowError{addr}
	}

	mc.State.StackPtr--

	return mc.State.Stack[mc.State.StackPtr], nil
}

// span validates that count bytes starting at Index lie inside memory
func (mc *Machine) span(addr uint16, count int) (int, int, error) {
	start := int(mc.State.Index)
	end := start + count

	if end > MEMORY_SIZE {
		return 0, 0, &InvalidAddressError{addr, end - 1}
	}

	return start, end, nil
}

func (mc *Machine) skip(condition bool) {
	if condition {
		mc.State.Program += 2
	}
}

func (mc *Machine) setFlag(condition bool) {
	if condition {
		mc.State.Registers[FLAG_REGISTER] = 1
	} else {
		mc.State.Registers[FLAG_REGISTER] = 0
	}
}

func (mc *Machine) tick() {
	if mc.State.Delay > 0 {
		mc.State.Delay--
	}

	if mc.State.Sound > 0 {
		mc.State.Sound--
	}
}

// Step executes exactly one instruction. On error the program counter and
// timers are put back so the machine still points at the faulting
// instruction; no other state has been touched at that point.
func (mc *Machine) Step() (Result, error) {
	program := mc.State.Program
	delay := mc.State.Delay
	sound := mc.State.Sound

	if err := mc.execute(); err != nil {
		mc.State.Program = program
		mc.State.Delay = delay
		mc.State.Sound = sound

		return Result{mc.display.Snapshot(), mc.Tone()}, err
	}

	return Result{mc.display.Snapshot(), mc.Tone()}, nil
}

func (mc *Machine) execute() error {
	addr := mc.State.Program

	if addr >= MEMSPACE_END {
		return &InvalidAddressError{addr, int(addr) + 1}
	}

	instruction := uint16(mc.State.Memory[addr])<<8 |
		uint16(mc.State.Memory[addr+1])

	op := encoding.Nibbles(instruction)

	x := op[1]
	y := op[2]
	vx := mc.State.Registers[x]
	vy := mc.State.Registers[y]
	nnn := instruction & 0x0FFF
	kk := uint8(instruction & 0x00FF)
	n := op[3]

	mc.State.Program += 2

	mc.tick()

	switch op[0] {
	// CLS  |0000    |0000   |1110   |0000   | Clear display
	// RET  |0000    |0000   |1110   |1110   | Return from subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SYS:
		if x != 0 {
			return &UnimplementedInstructionError{addr, instruction}
		}

		switch kk {
		case SYS_CLS:
			mc.display.Clear()

		case SYS_RET:
			result, err := mc.pop(addr)

			if err != nil {
				return err
			}

			mc.State.Program = result

		default:
			return &UnimplementedInstructionError{addr, instruction}
		}

	// JP   |0001    |NNN                    | Jump
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JP:
		mc.State.Program = nnn

	// CALL |0010    |NNN                    | Call subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_CALL:
		if err := mc.push(addr, mc.State.Program); err != nil {
			return err
		}

		mc.State.Program = nnn

	// SE   |0011    |X      |KK             | Skip if Vx == kk
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SE_BYTE:
		mc.skip(vx == kk)

	// SNE  |0100    |X      |KK             | Skip if Vx != kk
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SNE_BYTE:
		mc.skip(vx != kk)

	// SE   |0101    |X      |Y      |0000   | Skip if Vx == Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SE_REG:
		if n != 0 {
			return &UnimplementedInstructionError{addr, instruction}
		}

		mc.skip(vx == vy)

	// LD   |0110    |X      |KK             | Load immediate
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LD_BYTE:
		mc.State.Registers[x] = kk

	// ADD  |0111    |X      |KK             | Add immediate, no carry
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ADD_BYTE:
		mc.State.Registers[x] = vx + kk

	// LD   |1000    |X      |Y      |0000   | Vx = Vy
	// OR   |1000    |X      |Y      |0001   | Vx = Vx | Vy
	// AND  |1000    |X      |Y      |0010   | Vx = Vx & Vy
	// XOR  |1000    |X      |Y      |0011   | Vx = Vx ^ Vy
	// ADD  |1000    |X      |Y      |0100   | Vx = Vx + Vy, VF = carry
	// SUB  |1000    |X      |Y      |0101   | Vx = Vx - Vy, VF = Vx > Vy
	// SHR  |1000    |X      |Y      |0110   | Vx = Vx >> 1, VF = shifted bit
	// SUBN |1000    |X      |Y      |0111   | Vx = Vy - Vx, VF = Vy > Vx
	// SHL  |1000    |X      |Y      |1110   | Vx = Vx << 1, VF = shifted bit
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ALU:
		// The flag is written before the result, so VF as a destination
		// ends up holding the result.
		switch n {
		case ALU_LD:
			mc.State.Registers[x] = vy

		case ALU_OR:
			mc.State.Registers[x] = vx | vy

		case ALU_AND:
			mc.State.Registers[x] = vx & vy

		case ALU_XOR:
			mc.State.Registers[x] = vx ^ vy

		case ALU_ADD:
			total := uint16(vx) + uint16(vy)

			mc.setFlag(total > 0xFF)
			mc.State.Registers[x] = uint8(total)

		case ALU_SUB:
			mc.setFlag(vx > vy)
			mc.State.Registers[x] = vx - vy

		case ALU_SHR:
			mc.State.Registers[FLAG_REGISTER] = vx & 0x1
			mc.State.Registers[x] = vx >> 1

		case ALU_SUBN:
			mc.setFlag(vy > vx)
			mc.State.Registers[x] = vy - vx

		case ALU_SHL:
			mc.State.Registers[FLAG_REGISTER] = (vx >> 7) & 0x1
			mc.State.Registers[x] = vx << 1

		default:
			return &UnimplementedInstructionError{addr, instruction}
		}

	// SNE  |1001    |X      |Y      |0000   | Skip if Vx != Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SNE_REG:
		if n != 0 {
			return &UnimplementedInstructionError{addr, instruction}
		}

		mc.skip(vx != vy)

	// LD   |1010    |NNN                    | I = nnn
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LD_I:
		mc.State.Index = nnn

	// JP   |1011    |NNN                    | Jump to nnn + V0
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JP_V0:
		mc.State.Program = nnn + uint16(mc.State.Registers[0])

	// RND  |1100    |X      |KK             | Vx = random & kk
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_RND:
		mc.State.Registers[x] = uint8(mc.rand.Next()) & kk

	// DRW  |1101    |X      |Y      |N      | Draw N rows from I at (Vx, Vy)
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_DRW:
		start, end, err := mc.span(addr, int(n))

		if err != nil {
			return err
		}

		collision := mc.display.Draw(
			int(vx), int(vy), mc.State.Memory[start:end],
		)

		mc.setFlag(collision)

	// SKP  |1110    |X      |1001   |1110   | Skip if key Vx is down
	// SKNP |1110    |X      |1010   |0001   | Skip if key Vx is up
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_KEY:
		switch kk {
		case KEY_SKP:
			mc.skip(mc.keypad.IsPressed(vx & 0xF))

		case KEY_SKNP:
			mc.skip(!mc.keypad.IsPressed(vx & 0xF))

		default:
			return &UnimplementedInstructionError{addr, instruction}
		}

	// LD   |1111    |X      |0000   |0111   | Vx = delay timer
	// LD   |1111    |X      |0000   |1010   | Vx = next key, blocking
	// LD   |1111    |X      |0001   |0101   | delay timer = Vx
	// LD   |1111    |X      |0001   |1000   | sound timer = Vx
	// ADD  |1111    |X      |0001   |1110   | I = I + Vx
	// LD   |1111    |X      |0010   |1001   | I = glyph for Vx
	// LD   |1111    |X      |0011   |0011   | [I..I+2] = BCD of Vx
	// LD   |1111    |X      |0101   |0101   | [I..I+x] = V0..Vx
	// LD   |1111    |X      |0110   |0101   | V0..Vx = [I..I+x]
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_MISC:
		switch kk {
		case MISC_LD_VX_DT:
			mc.State.Registers[x] = mc.State.Delay

		case MISC_LD_VX_K:
			if key, pressed := mc.keypad.FirstPressed(); pressed {
				mc.State.Registers[x] = key
			} else {
				// Execute this instruction again on the next step
				mc.State.Program = addr
			}

		case MISC_LD_DT_VX:
			mc.State.Delay = vx

		case MISC_LD_ST_VX:
			mc.State.Sound = vx

		case MISC_ADD_I_VX:
			mc.State.Index += uint16(vx)

		case MISC_LD_F_VX:
			mc.State.Index = MEMSPACE_FONT + uint16(vx&0xF)*GLYPH_SIZE

		case MISC_LD_B_VX:
			start, end, err := mc.span(addr, 3)

			if err != nil {
				return err
			}

			digits := encoding.BCD(vx)
			copy(mc.State.Memory[start:end], digits[:])

		case MISC_LD_I_VX:
			start, end, err := mc.span(addr, int(x)+1)

			if err != nil {
				return err
			}

			copy(mc.State.Memory[start:end], mc.State.Registers[:x+1])

		case MISC_LD_VX_I:
			start, end, err := mc.span(addr, int(x)+1)

			if err != nil {
				return err
			}

			copy(mc.State.Registers[:x+1], mc.State.Memory[start:end])

		default:
			return &UnimplementedInstructionError{addr, instruction}
		}
	}

	return nil
}
