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

package assembler

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/jaobabus/nanovm/pkg/disasm"
	"github.com/jaobabus/nanovm/pkg/encoding"
	"github.com/jaobabus/nanovm/pkg/isa"
	"github.com/jaobabus/nanovm/pkg/object"
)

// Assembler is the in-process compiler. A source file is a sequence of
// section headers (.code/.text, .input, .output, .data), LABEL: lines,
// MEMORY size[, name] reservations and instructions. RAM is laid out as
// the implicit lr word followed by the input, output and data regions in
// that order, regardless of source order.
type Assembler struct{}

func New() *Assembler {
	return &Assembler{}
}

var (
	sectionLine = regexp.MustCompile(`^\.(\w+)$`)
	labelLine   = regexp.MustCompile(`^(\w+):$`)
	opLine      = regexp.MustCompile(`^(\w+)(?:[ \t]+(.*))?$`)
	argToken    = regexp.MustCompile(`^(?:[0-9][0-9xXa-fA-F]*|\w+|\.)$`)
)

// Section order of the RAM image after the implicit lr word.
var ramSections = [3]string{"input", "output", "data"}

type memoryItem struct {
	name string
	size uint8
	line int
}

type textItem struct {
	label    string   // label declaration when set
	mnemonic string   // instruction when set
	kind     isa.Kind
	args     []string
	space    uint8 // MEMORY reservation inside the code section
	pos      uint8 // assigned during layout
	line     int
}

type labelRef struct {
	pos  uint8
	size uint8
}

type program struct {
	ram    map[string][]memoryItem
	text   []textItem
	labels map[string]labelRef
}

func (a *Assembler) Compile(source string) (*object.Object, error) {
	prog := &program{
		ram:    make(map[string][]memoryItem),
		labels: make(map[string]labelRef),
	}

	if err := prog.parse(source); err != nil {
		return nil, err
	}

	obj := object.New()
	obj.RAM.Data = make([]byte, object.RAMSize)

	if err := prog.layout(obj); err != nil {
		return nil, err
	}

	return obj, prog.emit(obj)
}

func (prog *program) parse(source string) error {
	section := "code"

	for i, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])

		if line == "" {
			continue
		}

		if err := prog.parseLine(section, line, i+1, &section); err != nil {
			return &LineError{Line: i + 1, Err: err}
		}
	}

	return nil
}

func (prog *program) parseLine(section, line string, num int, next *string) error {
	if match := sectionLine.FindStringSubmatch(line); match != nil {
		name := strings.ToLower(match[1])

		if name == "text" {
			name = "code"
		}

		if name != "code" && name != "input" && name != "output" && name != "data" {
			return errors.Errorf("unknown section .%s", match[1])
		}

		*next = name
		return nil
	}

	if match := labelLine.FindStringSubmatch(line); match != nil {
		if section != "code" {
			return errors.Errorf("label %s outside the code section", match[1])
		}
		prog.text = append(prog.text, textItem{label: match[1], line: num})
		return nil
	}

	match := opLine.FindStringSubmatch(line)

	if match == nil {
		return errors.Errorf("parse error '%s'", line)
	}

	var args []string
	if match[2] != "" {
		for _, arg := range strings.Split(match[2], ",") {
			arg = strings.TrimSpace(arg)
			if !argToken.MatchString(arg) {
				return errors.Errorf("bad argument '%s'", arg)
			}
			args = append(args, arg)
		}
	}

	name := strings.ToUpper(match[1])

	switch {
	case name == "MEMORY":
		return prog.parseMemory(section, args, num)

	case name == "MOV":
		if len(args) != 2 {
			return errors.New("MOV takes 2 arguments")
		}
		if section != "code" {
			return errors.New("instruction outside the code section")
		}
		// Composite: LOAD_OP src, STORE_OP dst; invalidates LR
		prog.text = append(prog.text,
			textItem{mnemonic: "LOAD_OP", kind: isa.KIND_LOAD_OP, args: args[1:2], line: num},
			textItem{mnemonic: "STORE_OP", kind: isa.KIND_STORE_OP, args: args[0:1], line: num},
		)
		return nil

	default:
		kind, ok := isa.KindForMnemonic(name)

		if !ok {
			return errors.Errorf("instruction %s not found", name)
		}

		if section != "code" {
			return errors.New("instruction outside the code section")
		}

		if len(args) != len(kind.Operands()) {
			return errors.Errorf(
				"%s takes %d arguments, got %d",
				name, len(kind.Operands()), len(args),
			)
		}

		prog.text = append(prog.text, textItem{
			mnemonic: name, kind: kind, args: args, line: num,
		})
		return nil
	}
}

func (prog *program) parseMemory(section string, args []string, num int) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("MEMORY takes a size and an optional name")
	}

	size, err := encoding.ParseUint32(args[0])

	if err != nil {
		return err
	}

	if size > object.RAMSize {
		return errors.Errorf("MEMORY size %d out of range", size)
	}

	name := ""
	if len(args) > 1 {
		name = args[1]
	}

	if section == "code" {
		prog.text = append(prog.text, textItem{
			label: name, space: uint8(size), line: num,
		})
		return nil
	}

	prog.ram[section] = append(prog.ram[section], memoryItem{
		name: name, size: uint8(size), line: num,
	})
	return nil
}

func (prog *program) addLabel(name string, ref labelRef, line int) error {
	if _, exists := prog.labels[name]; exists {
		return &LineError{
			Line: line,
			Err:  errors.Errorf("redeclaration of label '%s'", name),
		}
	}
	prog.labels[name] = ref
	return nil
}

// layout assigns RAM and text positions and fills the object's label
// tables. Instruction sizes are fixed by their mnemonic, so positions are
// known before operands resolve.
func (prog *program) layout(obj *object.Object) error {
	prog.labels["LR"] = labelRef{pos: 0, size: 0}
	prog.labels["lr"] = labelRef{pos: 0, size: 4}
	obj.RAM.AddLabel("lr", 0, 4)

	pos := 4

	for _, name := range ramSections {
		sec := obj.Section(name)
		start := pos

		for _, item := range prog.ram[name] {
			if pos+int(item.size) > object.RAMSize {
				return &LineError{
					Line: item.line,
					Err:  errors.Errorf("out of memory region ram (%d)", pos+int(item.size)),
				}
			}

			if item.name != "" {
				if err := prog.addLabel(item.name, labelRef{uint8(pos), item.size}, item.line); err != nil {
					return err
				}
				sec.AddLabel(item.name, uint8(pos), item.size)
			}

			pos += int(item.size)
		}

		if err := prog.addLabel(name, labelRef{uint8(start), uint8(pos - start)}, 0); err != nil {
			return err
		}
		obj.RAM.AddLabel(name, uint8(start), uint8(pos-start))
	}

	tpos := 0

	for i := range prog.text {
		item := &prog.text[i]

		var size int
		switch {
		case item.mnemonic != "":
			size = int(item.kind.Size())
		default:
			size = int(item.space)
		}

		if tpos+size > object.TextSize {
			return &LineError{
				Line: item.line,
				Err:  errors.Errorf("out of memory region text (%d)", tpos+size),
			}
		}

		if item.mnemonic == "" && item.label != "" {
			if err := prog.addLabel(item.label, labelRef{uint8(tpos), 0}, item.line); err != nil {
				return err
			}
			obj.Text.AddLabel(item.label, uint8(tpos), 0)
		}

		// "." operands refer to the instruction's own position
		item.pos = uint8(tpos)
		tpos += size
	}

	return nil
}

func (prog *program) emit(obj *object.Object) error {
	var text []byte

	for _, item := range prog.text {
		if item.mnemonic == "" {
			text = append(text, make([]byte, item.space)...)
			continue
		}

		values, err := prog.resolve(item)

		if err != nil {
			return &LineError{Line: item.line, Err: err}
		}

		in, err := isa.Build(item.kind, values)

		if err != nil {
			return &LineError{Line: item.line, Err: err}
		}

		text = append(text, isa.Encode(in)...)
	}

	obj.Text.Data = text
	return nil
}

func (prog *program) resolve(item textItem) ([]uint32, error) {
	specs := item.kind.Operands()
	values := make([]uint32, len(item.args))

	for i, arg := range item.args {
		switch {
		case arg == ".":
			values[i] = uint32(item.pos) / 4

		case arg[0] >= '0' && arg[0] <= '9':
			value, err := encoding.ParseUint32(arg)
			if err != nil {
				return nil, err
			}
			values[i] = value

		default:
			ref, ok := prog.labels[arg]
			if !ok {
				return nil, errors.Errorf("label %s not found", arg)
			}
			if specs[i].Kind == isa.ARG_REGISTER {
				values[i] = uint32(ref.pos) / 4
			} else {
				values[i] = uint32(ref.pos)
			}
		}
	}

	return values, nil
}

// LocalDecompiler is the in-process Decompiler.
type LocalDecompiler struct{}

func (LocalDecompiler) Decompile(obj *object.Object) ([]disasm.Line, error) {
	return disasm.Decompile(obj)
}
