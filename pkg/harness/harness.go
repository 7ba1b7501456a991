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

// Package harness runs assembled programs and compares the words named by
// output labels against the expected values held at the same offsets of the
// initial ram image.
package harness

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mgutz/ansi"
	"github.com/pkg/errors"

	"github.com/jaobabus/nanovm/pkg/assembler"
	"github.com/jaobabus/nanovm/pkg/encoding"
	"github.com/jaobabus/nanovm/pkg/machine"
	"github.com/jaobabus/nanovm/pkg/object"
)

// Spec names one test: a source file, an optional binding overlay and
// per-label overrides keyed "section.label".
type Spec struct {
	Source  string
	Binding string
	Values  map[string]uint32
}

// ParseSpec reads the -i argument form <source>:<binding>[:<key>=<value>]*.
// The binding may be empty; values accept decimal or 0x hex.
func ParseSpec(arg string) (Spec, error) {
	if !strings.Contains(arg, ":") {
		return Spec{}, errors.New(
			"expected -i <source>:<binding>[:<name>=<value>]*",
		)
	}

	parts := strings.Split(arg, ":")

	spec := Spec{
		Source:  parts[0],
		Binding: parts[1],
		Values:  make(map[string]uint32),
	}

	for _, pair := range parts[2:] {
		eq := strings.IndexByte(pair, '=')

		if eq < 0 {
			return Spec{}, errors.Errorf("parse pair '%s' error", pair)
		}

		value, err := encoding.ParseUint32(pair[eq+1:])

		if err != nil {
			return Spec{}, errors.Wrapf(err, "parse pair '%s'", pair)
		}

		spec.Values[pair[:eq]] = value
	}

	return spec, nil
}

type Test struct {
	name string
	obj  *object.Object
}

// NewTest assembles the spec's source, applies the binding overlay and the
// overrides. Errors here are fatal to the whole run; errors inside Run
// isolate to the test.
func NewTest(spec Spec, comp assembler.Compiler) (*Test, error) {
	source, err := os.ReadFile(spec.Source)

	if err != nil {
		return nil, errors.Wrapf(err, "cannot open file '%s'", spec.Source)
	}

	obj, err := comp.Compile(string(source))

	if err != nil {
		return nil, errors.Wrapf(err, "compile '%s'", spec.Source)
	}

	if spec.Binding != "" {
		content, err := os.ReadFile(spec.Binding)

		if err != nil {
			return nil, errors.Wrapf(err, "cannot open file '%s'", spec.Binding)
		}

		if err := obj.ApplyBinding(content); err != nil {
			return nil, errors.Wrapf(err, "binding '%s'", spec.Binding)
		}
	}

	for key, value := range spec.Values {
		if err := applyOverride(obj, key, value); err != nil {
			return nil, err
		}
	}

	return &Test{name: spec.Source, obj: obj}, nil
}

// applyOverride writes value at the label named by key, looking the section
// up by the part left of the dot and the label by the part right of it.
func applyOverride(obj *object.Object, key string, value uint32) error {
	dot := strings.IndexByte(key, '.')

	if dot < 0 {
		return errors.New(
			"can't set value to section, use <section>.<label>=<value>",
		)
	}

	sec := obj.Section(key[:dot])

	if sec == nil {
		return errors.Errorf("unknown section %s", key[:dot])
	}

	label, ok := sec.Labels[key[dot+1:]]

	if !ok {
		return errors.Errorf(
			"name %s not found in section %s", key[dot+1:], sec.Name,
		)
	}

	object.SetValue32(obj.RAM.Data, label.Pos, value)
	return nil
}

func (t *Test) Name() string {
	return t.name
}

func (t *Test) Object() *object.Object {
	return t.obj
}

// Run executes the program on a fresh RAM image. Only input labels are live
// program inputs: their ranges are copied from the initial image before
// execution; everything else starts zeroed.
func (t *Test) Run(proc machine.Proc) (machine.RAM, error) {
	var ram machine.RAM

	if len(t.obj.Text.Data) == 0 {
		return ram, errors.New(".text section is empty")
	}

	image := t.obj.RAM.Data
	seed := make([]byte, object.RAMSize)

	for _, label := range t.obj.Input.Labels {
		end := int(label.Pos) + 4
		if end > len(image) {
			continue
		}
		copy(seed[label.Pos:end], image[label.Pos:end])
	}

	ram.LoadBytes(seed)

	machine.Execute(&ram, t.obj.Text.Data, 0, proc, nil)

	return ram, nil
}

// Check passes iff every output label's word matches the expected value at
// the same offset of the initial image.
func (t *Test) Check(ram *machine.RAM) bool {
	final := ram.Bytes()

	for _, label := range t.obj.Output.Labels {
		if object.Value32(final, label.Pos) != object.Value32(t.obj.RAM.Data, label.Pos) {
			return false
		}
	}

	return true
}

var (
	okColor   = ansi.ColorCode("118")
	errColor  = ansi.ColorCode("196")
	warnColor = ansi.ColorCode("184")
)

// DumpError writes one got/exp line per output label, mismatches
// highlighted.
func (t *Test) DumpError(w io.Writer, ram *machine.RAM) {
	final := ram.Bytes()

	names := make([]string, 0, len(t.obj.Output.Labels))
	max := 0

	for name := range t.obj.Output.Labels {
		names = append(names, name)
		if len(name) > max {
			max = len(name)
		}
	}

	sort.Strings(names)

	for _, name := range names {
		label := t.obj.Output.Labels[name]
		got := object.Value32(final, label.Pos)
		exp := object.Value32(t.obj.RAM.Data, label.Pos)

		status := okColor + "OK" + ansi.Reset + "   : "
		gotColor, expColor := "", ""

		if got != exp {
			status = errColor + "ERROR" + ansi.Reset + ": "
			gotColor, expColor = errColor, warnColor
		}

		io.WriteString(w, status+strings.Repeat(" ", max-len(name))+name+": "+
			"got="+gotColor+"0x"+encoding.Fhex(uint64(got), 8)+ansi.Reset+", "+
			"exp="+expColor+"0x"+encoding.Fhex(uint64(exp), 8)+ansi.Reset+"\n")
	}
}
