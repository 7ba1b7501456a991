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
	"sync/atomic"

	"github.com/jaobabus/nanovm/pkg/isa"
)

func Step(ram *RAM, code []byte, pc *uint8, proc Proc) bool {
	in, size := isa.Decode(code, *pc)

	// PC wraps modulo 256; jump targets are absolute byte addresses
	*pc += size

	switch in.Kind {
	case isa.KIND_LOAD_OP:
		ram[0] = ram[in.Mem]

	case isa.KIND_STORE_OP:
		ram[in.Mem] = ram[0]

	case isa.KIND_JL:
		if ram[0] < ram[in.Reg] {
			*pc = in.Addr
		}

	case isa.KIND_JZ:
		if ram[0] == ram[in.Reg] {
			*pc = in.Addr
		}

	case isa.KIND_LOAD_LOW:
		ram[0] = (ram[0] &^ 0xFFF) | (in.Value & 0xFFF)

	case isa.KIND_LOAD_HIGH:
		ram[0] = (ram[0] & 0xFFF) | ((in.Value & 0xFFFFF) << 12)

	case isa.KIND_ADD:
		ram[in.Dst] = ram[in.SrcA] + ram[in.SrcB]

	case isa.KIND_SUB:
		ram[in.Dst] = ram[in.SrcA] - ram[in.SrcB]

	case isa.KIND_AND:
		ram[in.Dst] = ram[in.SrcA] & ram[in.SrcB]

	case isa.KIND_OR:
		ram[in.Dst] = ram[in.SrcA] | ram[in.SrcB]

	case isa.KIND_LS:
		ram[in.Dst] = ram[in.SrcA] << in.SrcB

	case isa.KIND_RS:
		ram[in.Dst] = ram[in.SrcA] >> in.SrcB

	case isa.KIND_CALL:
		var result uint32
		if proc != nil {
			result = proc(ram[in.SrcA], ram[in.SrcB])
		}
		ram[in.Dst] = result

	case isa.KIND_LOAD3:
		ram[0] = in.Value & 0x7

	case isa.KIND_PC_SWP:
		// Source is read before the link is written, so a shared operand
		// jumps to the old value
		next := ram[in.Mem]
		ram[in.Save] = uint32(*pc)
		*pc = uint8(next)

	case isa.KIND_HALT:
		return false
	}

	return true
}

// Execute runs from start until HALT, until the cooperative cancel flag is
// raised, or until PC leaves the code buffer. cancel may be nil. There is no
// timeslice and no instruction counter: the guest is trusted to terminate.
func Execute(ram *RAM, code []byte, start uint8, proc Proc, cancel *atomic.Bool) {
	pc := start

	for int(pc) < len(code) {
		if cancel != nil && cancel.Load() {
			return
		}

		if !Step(ram, code, &pc, proc) {
			return
		}
	}
}
