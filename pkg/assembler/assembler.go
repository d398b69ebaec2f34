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

package assembler

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

var instructions = map[string]InstructionType{
	"CLS":  INSTRUCTION_CLS,
	"RET":  INSTRUCTION_RET,
	"JP":   INSTRUCTION_JP,
	"CALL": INSTRUCTION_CALL,
	"SE":   INSTRUCTION_SE,
	"SNE":  INSTRUCTION_SNE,
	"LD":   INSTRUCTION_LD,
	"ADD":  INSTRUCTION_ADD,
	"OR":   INSTRUCTION_OR,
	"AND":  INSTRUCTION_AND,
	"XOR":  INSTRUCTION_XOR,
	"SUB":  INSTRUCTION_SUB,
	"SHR":  INSTRUCTION_SHR,
	"SUBN": INSTRUCTION_SUBN,
	"SHL":  INSTRUCTION_SHL,
	"RND":  INSTRUCTION_RND,
	"DRW":  INSTRUCTION_DRW,
	"SKP":  INSTRUCTION_SKP,
	"SKNP": INSTRUCTION_SKNP,
}

var selectors = map[InstructionType]uint8{
	INSTRUCTION_OR:   machine.ALU_OR,
	INSTRUCTION_AND:  machine.ALU_AND,
	INSTRUCTION_XOR:  machine.ALU_XOR,
	INSTRUCTION_SUB:  machine.ALU_SUB,
	INSTRUCTION_SHR:  machine.ALU_SHR,
	INSTRUCTION_SUBN: machine.ALU_SUBN,
	INSTRUCTION_SHL:  machine.ALU_SHL,
}

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".BYTE") {
		return DIRECTIVE_BYTE
	} else if strings.EqualFold(ident, ".WORD") {
		return DIRECTIVE_WORD
	} else if strings.EqualFold(ident, ".END") {
		return DIRECTIVE_END
	}

	return DIRECTIVE_INVALID
}

func parseInstruction(ident string) InstructionType {
	if instruction, exists := instructions[strings.ToUpper(ident)]; exists {
		return instruction
	}

	return INSTRUCTION_INVALID
}

func parseLiteral(token *Token, bits LiteralType) (uint16, error) {
	result, err := encoding.DecodeLiteral(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	if limit := uint16(1)<<bits - 1; result > limit {
		return 0, &OversizedLiteralError{token.Position, limit, result}
	}

	return result, nil
}

// Registers are written V0 through VF
func parseRegister(token *Token) (uint16, bool) {
	ident := token.Value

	if len(ident) != 2 || (ident[0] != 'v' && ident[0] != 'V') {
		return 0, false
	}

	reg, err := strconv.ParseUint(ident[1:], 16, 8)

	if err != nil {
		return 0, false
	}

	return uint16(reg), true
}

func parseOperand(token *Token) OperandType {
	switch token.Type {
	case TOKEN_LITERAL:
		return OPERAND_LITERAL

	case TOKEN_IDENT:
		if _, ok := parseRegister(token); ok {
			return OPERAND_REGISTER
		}

		switch strings.ToUpper(token.Value) {
		case "I":
			return OPERAND_INDEX
		case "[I]":
			return OPERAND_INDIRECT
		case "DT":
			return OPERAND_DELAY
		case "ST":
			return OPERAND_SOUND
		case "K":
			return OPERAND_KEY
		case "F":
			return OPERAND_FONT
		case "B":
			return OPERAND_BCD
		}

		return OPERAND_LABEL
	}

	return OPERAND_NONE
}

// Identifiers such as x2A are hex literals without a leading zero
func isHexLiteral(ident string) bool {
	if len(ident) < 2 || (ident[0] != 'x' && ident[0] != 'X') {
		return false
	}

	for _, char := range ident[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", char) {
			return false
		}
	}

	return true
}

func encodeNNN(op uint8, nnn uint16) uint16 {
	return uint16(op)<<12 | (nnn & 0x0FFF)
}

func encodeXKK(op uint8, x uint16, kk uint16) uint16 {
	return uint16(op)<<12 | (x&0xF)<<8 | (kk & 0xFF)
}

func encodeXYN(op uint8, x uint16, y uint16, n uint16) uint16 {
	return uint16(op)<<12 | (x&0xF)<<8 | (y&0xF)<<4 | (n & 0xF)
}

// scanLines splits like bufio.ScanLines but keeps any carriage return, so
// token byte offsets match the source exactly
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// AssembleSource assembles a program laid out from the start of program
// memory. The returned slice holds only the bytes the source emits.
func AssembleSource(input io.Reader) (result []byte, errs []error) {
	type LabelRef struct {
		Label    string
		Addr     int
		Size     LiteralType
		Position Cursor
	}

	var labels = make(map[string]uint16)
	var labelRefs []LabelRef

	var program int = 0
	var capacity = machine.MEMORY_SIZE - int(machine.MEMSPACE_PROGRAM)

	var builder strings.Builder
	var scanner = bufio.NewScanner(input)

	var cursor = Cursor{Line: 1, Column: 0, Size: 0, Byte: 0}

	result = make([]byte, capacity)
	errs = make([]error, 0)

	scanner.Split(scanLines)

	register := func(token *Token) uint16 {
		if token.Type != TOKEN_IDENT {
			errs = append(
				errs,
				&InvalidOperandError{
					token.Position,
					[]TokenType{TOKEN_IDENT},
					token.Type,
				},
			)

			return 0
		}

		reg, ok := parseRegister(token)

		if !ok {
			errs = append(errs, &InvalidRegisterError{token.Position})
		}

		return reg
	}

	literal := func(token *Token, bits LiteralType) uint16 {
		if token.Type != TOKEN_LITERAL {
			errs = append(
				errs,
				&InvalidOperandError{
					token.Position,
					[]TokenType{TOKEN_LITERAL},
					token.Type,
				},
			)

			return 0
		}

		value, err := parseLiteral(token, bits)

		if err != nil {
			errs = append(errs, err)
		}

		return value
	}

	// Label operands are patched in once every label is known
	address := func(token *Token, bits LiteralType) uint16 {
		switch token.Type {
		case TOKEN_LITERAL:
			return literal(token, bits)

		case TOKEN_IDENT:
			labelRefs = append(
				labelRefs,
				LabelRef{token.Value, program, bits, token.Position},
			)

			return 0
		}

		errs = append(
			errs,
			&InvalidOperandError{
				token.Position,
				[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
				token.Type,
			},
		)

		return 0
	}

	write := func(value uint16, size int) bool {
		if program+size > capacity {
			errs = append(errs, &OversizedBinaryError{capacity})
			return false
		}

		if size == 2 {
			result[program] = uint8(value >> 8)
			result[program+1] = uint8(value)
		} else {
			result[program] = uint8(value)
		}

		program += size

		return true
	}

	// Process:
	// - Parse line
	// - Assemble line
	for ; scanner.Scan(); cursor.Line++ {
		var tokens = make([]Token, 0, 4)
		var tokenStart int = 0
		var tokenType TokenType = TOKEN_NONE

		var lineErrs = len(errs)

		line := scanner.Text()
		builder.Grow(len(line))

		cursor.Size = int64(len(line))

		// Parse Line:
		// - Gather tokens and their types
		// - Check for syntax errors
		for column, char := range line {
			cursor.Column = column + 1

			var flush bool = false
			var skip bool = false
			var keep bool = true

			if tokenType == TOKEN_NONE {
				tokenStart = cursor.Column
			}

			switch {
			// Whitespace
			case unicode.IsSpace(char):
				keep = false

				if tokenType == TOKEN_NONE {
					continue
				}

				flush = true

			// Comments
			case char == ';':
				keep = false
				flush = true
				skip = true

			// Operand Separator
			case char == ',':
				keep = false
				flush = true

			// Label Terminator (i.e. loop:)
			case char == ':':
				keep = false

				if tokenType != TOKEN_IDENT {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

				flush = true

			// Assembler Directives
			case char == '.':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_DIRECTIVE
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Base 10 Literal (i.e. #42)
			case char == '#':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_LITERAL
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Indirect Index (i.e. [I])
			case char == '[':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_IDENT
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			case char == ']':
				if tokenType != TOKEN_IDENT {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Numeric Literal
			case unicode.IsDigit(char):
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_LITERAL
				}

			// Underscore'd Identifier
			case char == '_':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_IDENT
				} else if tokenType != TOKEN_IDENT {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			// Identifier
			case unicode.IsLetter(char):
				if char > unicode.MaxASCII {
					errs = append(errs, &OversizedCharacterError{cursor})
				}

				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_IDENT
				}

			default:
				if char > unicode.MaxASCII {
					errs = append(errs, &OversizedCharacterError{cursor})
				} else {
					errs = append(
						errs, &UnexpectedCharacterError{cursor, char},
					)
				}
			}

			if keep {
				builder.WriteRune(char)
			}

			if cursor.Column == len(line) {
				if char == ',' {
					errs = append(
						errs, &UnexpectedCharacterError{cursor, char},
					)
				}

				flush = true
			}

			if flush {
				if builder.Len() > 0 {
					var token Token
					token.Position = Cursor{
						Line:     cursor.Line,
						Column:   tokenStart,
						Byte:     cursor.Byte + int64(tokenStart-1),
						Size:     int64(builder.Len()),
						LineByte: cursor.Byte,
					}
					token.Type = tokenType
					token.Value = builder.String()

					if token.Type == TOKEN_IDENT && isHexLiteral(token.Value) {
						token.Type = TOKEN_LITERAL
					}

					tokens = append(tokens, token)
					builder.Reset()
				}

				tokenType = TOKEN_NONE
			}

			if skip {
				break
			}
		}

		cursor.Byte += int64(len(line) + 1)

		if len(tokens) == 0 {
			continue
		}

		// Pass any potential assembler errors if we already had parser errors
		if len(errs) > lineErrs {
			continue
		}

		// Assemble line
		// - Write instruction bytes to result
		// - Save label refs for unknown labels
		// - Type check instruction arguments
		var label *Token = nil
		var directive DirectiveType
		var instruction InstructionType
		var keyword *Token = nil
		var operands []Token

		var scratch uint16 = 0

		if instruction = parseInstruction(tokens[0].Value); instruction != INSTRUCTION_INVALID {
			keyword = &tokens[0]
			operands = tokens[1:]
		} else if directive = parseDirective(tokens[0].Value); directive != DIRECTIVE_INVALID {
			keyword = &tokens[0]
			operands = tokens[1:]
		} else if tokens[0].Type == TOKEN_IDENT {
			label = &tokens[0]
		} else {
			errs = append(
				errs,
				&UnknownIdentifierError{tokens[0].Position, tokens[0].Value},
			)

			continue
		}

		if label != nil {
			if _, exists := labels[label.Value]; !exists {
				labels[label.Value] = machine.MEMSPACE_PROGRAM + uint16(program)
			} else {
				errs = append(
					errs, &RedeclaredLabelError{label.Position, label.Value},
				)
			}

			// No need to assemble label-only statements
			if len(tokens) == 1 {
				continue
			}

			if instruction = parseInstruction(tokens[1].Value); instruction != INSTRUCTION_INVALID {
				keyword = &tokens[1]
				operands = tokens[2:]
			} else if directive = parseDirective(tokens[1].Value); directive != DIRECTIVE_INVALID {
				keyword = &tokens[1]
				operands = tokens[2:]
			} else {
				errs = append(
					errs,
					&UnknownIdentifierError{tokens[1].Position, tokens[1].Value},
				)

				continue
			}
		}

		if directive == DIRECTIVE_END {
			if count := len(operands); count != 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 0, count},
				)
			}

			break
		}

		switch directive {
		// .BYTE #{, #}
		case DIRECTIVE_BYTE:
			if len(operands) == 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
				)

				break
			}

			for i := range operands {
				if !write(literal(&operands[i], LITERAL_BYTE), 1) {
					return result[:program], errs
				}
			}

		// .WORD # | label
		case DIRECTIVE_WORD:
			if count := len(operands); count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			if !write(address(&operands[0], LITERAL_WORD), 2) {
				return result[:program], errs
			}
		}

		if instruction == INSTRUCTION_INVALID {
			continue
		}

		count := len(operands)

		switch instruction {
		// CLS  |0000    |0000   |1110   |0000   | Clear display
		// RET  |0000    |0000   |1110   |1110   | Return from subroutine
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_CLS, INSTRUCTION_RET:
			if count != 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 0, count},
				)

				break
			}

			if instruction == INSTRUCTION_CLS {
				scratch = uint16(machine.SYS_CLS)
			} else {
				scratch = uint16(machine.SYS_RET)
			}

		// JP   |0001    |NNN                    | Jump
		// JP   |1011    |NNN                    | Jump to nnn + V0
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_JP:
			if count == 1 {
				scratch = encodeNNN(
					machine.OP_JP, address(&operands[0], LITERAL_ADDR),
				)
			} else if count == 2 {
				if reg := register(&operands[0]); reg != 0 {
					errs = append(
						errs, &InvalidRegisterError{operands[0].Position},
					)
				}

				scratch = encodeNNN(
					machine.OP_JP_V0, address(&operands[1], LITERAL_ADDR),
				)
			} else {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)
			}

		// CALL |0010    |NNN                    | Call subroutine
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_CALL:
			if count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			scratch = encodeNNN(
				machine.OP_CALL, address(&operands[0], LITERAL_ADDR),
			)

		// SE   |0011    |X      |KK             | Skip if Vx == kk
		// SE   |0101    |X      |Y      |0000   | Skip if Vx == Vy
		// SNE  |0100    |X      |KK             | Skip if Vx != kk
		// SNE  |1001    |X      |Y      |0000   | Skip if Vx != Vy
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_SE, INSTRUCTION_SNE:
			if count != 2 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 2, count},
				)

				break
			}

			byteOp, regOp := machine.OP_SE_BYTE, machine.OP_SE_REG

			if instruction == INSTRUCTION_SNE {
				byteOp, regOp = machine.OP_SNE_BYTE, machine.OP_SNE_REG
			}

			x := register(&operands[0])

			if operands[1].Type == TOKEN_LITERAL {
				scratch = encodeXKK(
					byteOp, x, literal(&operands[1], LITERAL_BYTE),
				)
			} else {
				scratch = encodeXYN(regOp, x, register(&operands[1]), 0)
			}

		// LD   |0110    |X      |KK             | Vx = kk
		// LD   |1000    |X      |Y      |0000   | Vx = Vy
		// LD   |1010    |NNN                    | I = nnn
		// LD   |1111    |X      |0000   |0111   | Vx = DT
		// LD   |1111    |X      |0000   |1010   | Vx = K
		// LD   |1111    |X      |0001   |0101   | DT = Vx
		// LD   |1111    |X      |0001   |1000   | ST = Vx
		// LD   |1111    |X      |0010   |1001   | I = F(Vx)
		// LD   |1111    |X      |0011   |0011   | [I] = BCD(Vx)
		// LD   |1111    |X      |0101   |0101   | [I] = V0..Vx
		// LD   |1111    |X      |0110   |0101   | V0..Vx = [I]
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_LD:
			if count != 2 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 2, count},
				)

				break
			}

			dst := parseOperand(&operands[0])
			src := parseOperand(&operands[1])

			switch {
			case dst == OPERAND_REGISTER && src == OPERAND_LITERAL:
				scratch = encodeXKK(
					machine.OP_LD_BYTE,
					register(&operands[0]),
					literal(&operands[1], LITERAL_BYTE),
				)

			case dst == OPERAND_REGISTER && src == OPERAND_REGISTER:
				scratch = encodeXYN(
					machine.OP_ALU,
					register(&operands[0]),
					register(&operands[1]),
					uint16(machine.ALU_LD),
				)

			case dst == OPERAND_INDEX &&
				(src == OPERAND_LITERAL || src == OPERAND_LABEL):
				scratch = encodeNNN(
					machine.OP_LD_I, address(&operands[1], LITERAL_ADDR),
				)

			case dst == OPERAND_REGISTER && src == OPERAND_DELAY:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[0]),
					uint16(machine.MISC_LD_VX_DT),
				)

			case dst == OPERAND_REGISTER && src == OPERAND_KEY:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[0]),
					uint16(machine.MISC_LD_VX_K),
				)

			case dst == OPERAND_REGISTER && src == OPERAND_INDIRECT:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[0]),
					uint16(machine.MISC_LD_VX_I),
				)

			case src == OPERAND_REGISTER && dst == OPERAND_DELAY:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[1]),
					uint16(machine.MISC_LD_DT_VX),
				)

			case src == OPERAND_REGISTER && dst == OPERAND_SOUND:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[1]),
					uint16(machine.MISC_LD_ST_VX),
				)

			case src == OPERAND_REGISTER && dst == OPERAND_FONT:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[1]),
					uint16(machine.MISC_LD_F_VX),
				)

			case src == OPERAND_REGISTER && dst == OPERAND_BCD:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[1]),
					uint16(machine.MISC_LD_B_VX),
				)

			case src == OPERAND_REGISTER && dst == OPERAND_INDIRECT:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[1]),
					uint16(machine.MISC_LD_I_VX),
				)

			default:
				errs = append(
					errs,
					&InvalidOperandFormError{keyword.Position, "LD"},
				)
			}

		// ADD  |0111    |X      |KK             | Vx = Vx + kk
		// ADD  |1000    |X      |Y      |0100   | Vx = Vx + Vy
		// ADD  |1111    |X      |0001   |1110   | I = I + Vx
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_ADD:
			if count != 2 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 2, count},
				)

				break
			}

			dst := parseOperand(&operands[0])
			src := parseOperand(&operands[1])

			switch {
			case dst == OPERAND_REGISTER && src == OPERAND_LITERAL:
				scratch = encodeXKK(
					machine.OP_ADD_BYTE,
					register(&operands[0]),
					literal(&operands[1], LITERAL_BYTE),
				)

			case dst == OPERAND_REGISTER && src == OPERAND_REGISTER:
				scratch = encodeXYN(
					machine.OP_ALU,
					register(&operands[0]),
					register(&operands[1]),
					uint16(machine.ALU_ADD),
				)

			case dst == OPERAND_INDEX && src == OPERAND_REGISTER:
				scratch = encodeXKK(
					machine.OP_MISC,
					register(&operands[1]),
					uint16(machine.MISC_ADD_I_VX),
				)

			default:
				errs = append(
					errs,
					&InvalidOperandFormError{keyword.Position, "ADD"},
				)
			}

		// OR   |1000    |X      |Y      |0001   | Vx = Vx | Vy
		// AND  |1000    |X      |Y      |0010   | Vx = Vx & Vy
		// XOR  |1000    |X      |Y      |0011   | Vx = Vx ^ Vy
		// SUB  |1000    |X      |Y      |0101   | Vx = Vx - Vy
		// SUBN |1000    |X      |Y      |0111   | Vx = Vy - Vx
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_OR,
			INSTRUCTION_AND,
			INSTRUCTION_XOR,
			INSTRUCTION_SUB,
			INSTRUCTION_SUBN:
			if count != 2 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 2, count},
				)

				break
			}

			scratch = encodeXYN(
				machine.OP_ALU,
				register(&operands[0]),
				register(&operands[1]),
				uint16(selectors[instruction]),
			)

		// SHR  |1000    |X      |Y      |0110   | Vx = Vx >> 1
		// SHL  |1000    |X      |Y      |1110   | Vx = Vx << 1
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_SHR, INSTRUCTION_SHL:
			if count != 1 && count != 2 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			var y uint16 = 0

			if count == 2 {
				y = register(&operands[1])
			}

			scratch = encodeXYN(
				machine.OP_ALU,
				register(&operands[0]),
				y,
				uint16(selectors[instruction]),
			)

		// RND  |1100    |X      |KK             | Vx = random & kk
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_RND:
			if count != 2 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 2, count},
				)

				break
			}

			scratch = encodeXKK(
				machine.OP_RND,
				register(&operands[0]),
				literal(&operands[1], LITERAL_BYTE),
			)

		// DRW  |1101    |X      |Y      |N      | Draw N rows from I
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_DRW:
			if count != 3 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 3, count},
				)

				break
			}

			scratch = encodeXYN(
				machine.OP_DRW,
				register(&operands[0]),
				register(&operands[1]),
				literal(&operands[2], LITERAL_NIBBLE),
			)

		// SKP  |1110    |X      |1001   |1110   | Skip if key Vx is down
		// SKNP |1110    |X      |1010   |0001   | Skip if key Vx is up
		// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
		case INSTRUCTION_SKP, INSTRUCTION_SKNP:
			if count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			selector := machine.KEY_SKP

			if instruction == INSTRUCTION_SKNP {
				selector = machine.KEY_SKNP
			}

			scratch = encodeXKK(
				machine.OP_KEY, register(&operands[0]), uint16(selector),
			)
		}

		if !write(scratch, 2) {
			return result[:program], errs
		}
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}

	// Label
	// - Validate and resolve label references
	for _, ref := range labelRefs {
		addr, exists := labels[ref.Label]

		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		limit := uint16(1)<<ref.Size - 1

		if addr > limit {
			errs = append(
				errs, &OversizedLabelError{ref.Position, limit, addr},
			)

			continue
		}

		scratch := uint16(result[ref.Addr])<<8 | uint16(result[ref.Addr+1])
		scratch |= addr

		result[ref.Addr] = uint8(scratch >> 8)
		result[ref.Addr+1] = uint8(scratch)
	}

	return result[:program], errs
}
