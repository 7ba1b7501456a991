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

package isa

import (
	"github.com/pkg/errors"
)

// ArgKind decides how the assembler resolves a label used as an operand and
// how the disassembler renders the decoded value.
type ArgKind uint8

const (
	ARG_REGISTER ArgKind = iota // word index, labels resolve as pos/4
	ARG_CONST                   // immediate, labels resolve as byte pos
	ARG_CODE                    // text byte address, labels resolve as byte pos
)

type Operand struct {
	Name string
	Kind ArgKind
	Bits uint8
}

type Arg struct {
	Value uint32
	Kind  ArgKind
}

// Assembly-level operand order per mnemonic. The order matches the original
// toolchain sources, not the bit order inside the encoding.
var operands = map[Kind][]Operand{
	KIND_LOAD_OP:   {{"mem", ARG_REGISTER, 5}},
	KIND_STORE_OP:  {{"mem", ARG_REGISTER, 5}},
	KIND_JL:        {{"rarg", ARG_REGISTER, 4}, {"data", ARG_CODE, 8}},
	KIND_JZ:        {{"rarg", ARG_REGISTER, 4}, {"data", ARG_CODE, 8}},
	KIND_LOAD_LOW:  {{"low", ARG_CODE, 12}},
	KIND_LOAD_HIGH: {{"low", ARG_CONST, 20}},
	KIND_ADD:       {{"result", ARG_REGISTER, 4}, {"mem1", ARG_REGISTER, 4}, {"mem2", ARG_REGISTER, 4}},
	KIND_SUB:       {{"result", ARG_REGISTER, 4}, {"mem1", ARG_REGISTER, 4}, {"mem2", ARG_REGISTER, 4}},
	KIND_AND:       {{"result", ARG_REGISTER, 4}, {"mem1", ARG_REGISTER, 4}, {"mem2", ARG_REGISTER, 4}},
	KIND_OR:        {{"result", ARG_REGISTER, 4}, {"mem1", ARG_REGISTER, 4}, {"mem2", ARG_REGISTER, 4}},
	KIND_LS:        {{"result", ARG_REGISTER, 4}, {"mem", ARG_REGISTER, 4}, {"count", ARG_CONST, 4}},
	KIND_RS:        {{"result", ARG_REGISTER, 4}, {"mem", ARG_REGISTER, 4}, {"count", ARG_CONST, 4}},
	KIND_CALL:      {{"callback", ARG_REGISTER, 4}, {"result", ARG_REGISTER, 4}, {"arg", ARG_REGISTER, 4}},
	KIND_LOAD3:     {{"value", ARG_CONST, 3}},
	KIND_PC_SWP:    {{"mem", ARG_REGISTER, 5}, {"save", ARG_REGISTER, 5}},
	KIND_HALT:      {},
}

var mnemonics = map[string]Kind{
	"LOAD_OP":   KIND_LOAD_OP,
	"STORE_OP":  KIND_STORE_OP,
	"JL":        KIND_JL,
	"JZ":        KIND_JZ,
	"LOAD_LOW":  KIND_LOAD_LOW,
	"LOAD_HIGH": KIND_LOAD_HIGH,
	"ADD":       KIND_ADD,
	"SUB":       KIND_SUB,
	"AND":       KIND_AND,
	"OR":        KIND_OR,
	"LS":        KIND_LS,
	"RS":        KIND_RS,
	"LSL":       KIND_LS,
	"LSR":       KIND_RS,
	"CALL":      KIND_CALL,
	"LOAD3":     KIND_LOAD3,
	"PC_SWP":    KIND_PC_SWP,
	"HALT":      KIND_HALT,
}

// KindForMnemonic resolves an upper-case mnemonic. LSL/LSR are accepted as
// aliases of LS/RS.
func KindForMnemonic(name string) (Kind, bool) {
	kind, ok := mnemonics[name]
	return kind, ok
}

func (k Kind) Operands() []Operand {
	return operands[k]
}

// Args lists the instruction's operand values in assembly order.
func (in Instr) Args() []Arg {
	switch in.Kind {
	case KIND_LOAD_OP, KIND_STORE_OP:
		return []Arg{{uint32(in.Mem), ARG_REGISTER}}

	case KIND_JL, KIND_JZ:
		return []Arg{{uint32(in.Reg), ARG_REGISTER}, {uint32(in.Addr), ARG_CODE}}

	case KIND_LOAD_LOW:
		return []Arg{{in.Value, ARG_CODE}}

	case KIND_LOAD_HIGH:
		return []Arg{{in.Value, ARG_CONST}}

	case KIND_ADD, KIND_SUB, KIND_AND, KIND_OR:
		return []Arg{
			{uint32(in.Dst), ARG_REGISTER},
			{uint32(in.SrcA), ARG_REGISTER},
			{uint32(in.SrcB), ARG_REGISTER},
		}

	case KIND_LS, KIND_RS:
		return []Arg{
			{uint32(in.Dst), ARG_REGISTER},
			{uint32(in.SrcA), ARG_REGISTER},
			{uint32(in.SrcB), ARG_CONST},
		}

	case KIND_CALL:
		return []Arg{
			{uint32(in.SrcA), ARG_REGISTER},
			{uint32(in.Dst), ARG_REGISTER},
			{uint32(in.SrcB), ARG_REGISTER},
		}

	case KIND_LOAD3:
		return []Arg{{in.Value, ARG_CONST}}

	case KIND_PC_SWP:
		return []Arg{{uint32(in.Mem), ARG_REGISTER}, {uint32(in.Save), ARG_REGISTER}}
	}

	return nil
}

// Build constructs an instruction from operand values in assembly order,
// rejecting values that do not fit their bit fields.
func Build(kind Kind, args []uint32) (Instr, error) {
	specs := operands[kind]

	if len(args) != len(specs) {
		return Instr{}, errors.Errorf(
			"%s takes %d arguments, got %d",
			kind.Mnemonic(), len(specs), len(args),
		)
	}

	for i, spec := range specs {
		if limit := uint32(1) << spec.Bits; args[i] >= limit {
			return Instr{}, errors.Errorf(
				"%s argument %s value 0x%X overflows 0x%X",
				kind.Mnemonic(), spec.Name, args[i], limit-1,
			)
		}
	}

	in := Instr{Kind: kind}

	switch kind {
	case KIND_LOAD_OP, KIND_STORE_OP:
		in.Mem = uint8(args[0])

	case KIND_JL, KIND_JZ:
		in.Reg = uint8(args[0])
		in.Addr = uint8(args[1])

	case KIND_LOAD_LOW, KIND_LOAD_HIGH, KIND_LOAD3:
		in.Value = args[0]

	case KIND_ADD, KIND_SUB, KIND_AND, KIND_OR, KIND_LS, KIND_RS:
		in.Dst = uint8(args[0])
		in.SrcA = uint8(args[1])
		in.SrcB = uint8(args[2])

	case KIND_CALL:
		in.SrcA = uint8(args[0])
		in.Dst = uint8(args[1])
		in.SrcB = uint8(args[2])

	case KIND_PC_SWP:
		in.Mem = uint8(args[0])
		in.Save = uint8(args[1])
	}

	return in, nil
}
