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

package keypad

import (
	"strings"
)

const Keys = 16

// Keypad                   Keyboard
// +-+-+-+-+                +-+-+-+-+
// |1|2|3|C|                |1|2|3|4|
// +-+-+-+-+                +-+-+-+-+
// |4|5|6|D|                |Q|W|E|R|
// +-+-+-+-+       =>       +-+-+-+-+
// |7|8|9|E|                |A|S|D|F|
// +-+-+-+-+                +-+-+-+-+
// |A|0|B|F|                |Z|X|C|V|
// +-+-+-+-+                +-+-+-+-+
var labels = [Keys]string{
	"1", "2", "3", "4",
	"q", "w", "e", "r",
	"a", "s", "d", "f",
	"z", "x", "c", "v",
}

var indices = func() map[string]uint8 {
	result := make(map[string]uint8, Keys)

	for i, label := range labels {
		result[label] = uint8(i)
	}

	return result
}()

// Index maps a keyboard label to its keypad index. Labels are matched
// without regard to case.
func Index(label string) (uint8, bool) {
	index, exists := indices[strings.ToLower(label)]
	return index, exists
}

// Labels returns the keyboard labels ordered by keypad index.
func Labels() []string {
	result := make([]string, Keys)
	copy(result, labels[:])
	return result
}

type Keypad struct {
	keys [Keys]bool
}

func New() *Keypad {
	return &Keypad{}
}

// KeyDown marks the key bound to label as pressed. Unknown labels are
// ignored.
func (kp *Keypad) KeyDown(label string) {
	if index, exists := Index(label); exists {
		kp.keys[index] = true
	}
}

func (kp *Keypad) KeyUp(label string) {
	if index, exists := Index(label); exists {
		kp.keys[index] = false
	}
}

// Release clears every key.
func (kp *Keypad) Release() {
	kp.keys = [Keys]bool{}
}

func (kp *Keypad) IsPressed(index uint8) bool {
	if index >= Keys {
		return false
	}

	return kp.keys[index]
}

func (kp *Keypad) IsLabelPressed(label string) bool {
	if index, exists := Index(label); exists {
		return kp.keys[index]
	}

	return false
}

// FirstPressed returns the lowest pressed index.
func (kp *Keypad) FirstPressed() (uint8, bool) {
	for i, pressed := range kp.keys {
		if pressed {
			return uint8(i), true
		}
	}

	return 0, false
}
