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

package disasm

import (
	"fmt"
	"strings"

	"github.com/jaobabus/nanovm/pkg/encoding"
	"github.com/jaobabus/nanovm/pkg/isa"
	"github.com/jaobabus/nanovm/pkg/machine"
	"github.com/jaobabus/nanovm/pkg/object"
)

// FormatLine renders one record:
//
//	00: 01       -> LOAD_OP a[0x0000002A] | lr[0x00000000->0x0000002A]
//
// The current line gets the arrow marker and, when ram is supplied, value
// annotations for label operands: [0xVALUE], or [0xBEFORE->0xAFTER] when
// prev differs. Instructions whose semantics touch LR append | lr[...] with
// the same diff rule.
func FormatLine(line Line, ram, prev *machine.RAM, labels map[string]object.Label, current bool) string {
	var out strings.Builder

	fmt.Fprintf(&out, "%02x: ", line.Pos)

	for _, b := range line.Code {
		fmt.Fprintf(&out, "%02x", b)
	}

	if pad := 8 - len(line.Code)*2; pad > 0 {
		out.WriteString(strings.Repeat(" ", pad))
	}

	if !current {
		out.WriteString("    " + line.Command + " ")
		out.WriteString(strings.Join(line.Args, ", "))
		return out.String()
	}

	out.WriteString(" -> " + line.Command + " ")

	for i, arg := range line.Args {
		out.WriteString(arg)

		if label, ok := labels[arg]; ok && ram != nil {
			word := label.Pos / 4
			out.WriteString("[")
			if prev != nil && ram[word] != prev[word] {
				out.WriteString("0x" + encoding.Fhex(uint64(prev[word]), 8) + "->")
			}
			out.WriteString("0x" + encoding.Fhex(uint64(ram[word]), 8) + "]")
		}

		if i != len(line.Args)-1 {
			out.WriteString(", ")
		}
	}

	if kind, ok := isa.KindForMnemonic(line.Command); ok && kind.TouchesLR() && ram != nil {
		out.WriteString(" | lr[")
		if prev != nil && ram[0] != prev[0] {
			out.WriteString("0x" + encoding.Fhex(uint64(prev[0]), 8) + "->")
		}
		out.WriteString("0x" + encoding.Fhex(uint64(ram[0]), 8) + "]")
	}

	return out.String()
}
