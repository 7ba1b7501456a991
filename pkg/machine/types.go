// Copyright (C) 2025  The NanoVM Authors

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
	"encoding/binary"
)

const Words = 32

// RAM is the guest memory: 32 little-endian words, 128 bytes. W[0] is LR,
// the implicit accumulator and link register.
type RAM [Words]uint32

// Proc is the host callback invoked by the CALL instruction.
type Proc func(id uint32, arg uint32) uint32

// LoadBytes fills the leading words from a little-endian byte image, at
// most 128 bytes. Remaining words are zeroed.
func (ram *RAM) LoadBytes(data []byte) {
	*ram = RAM{}

	if len(data) > Words*4 {
		data = data[:Words*4]
	}

	for i := 0; i+4 <= len(data); i += 4 {
		ram[i/4] = binary.LittleEndian.Uint32(data[i : i+4])
	}

	if rest := len(data) % 4; rest != 0 {
		var word [4]byte
		copy(word[:], data[len(data)-rest:])
		ram[len(data)/4] = binary.LittleEndian.Uint32(word[:])
	}
}

// Bytes renders the words as a 128-byte little-endian image.
func (ram *RAM) Bytes() []byte {
	out := make([]byte, Words*4)
	for i, word := range ram {
		binary.LittleEndian.PutUint32(out[i*4:], word)
	}
	return out
}
