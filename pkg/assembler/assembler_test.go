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

package assembler_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jaobabus/nanovm/pkg/assembler"
	"github.com/jaobabus/nanovm/pkg/machine"
	"github.com/jaobabus/nanovm/pkg/object"
)

const addSource = `
.input
MEMORY 4, a
MEMORY 4, b

.output
MEMORY 4, result

.code
ADD result, a, b
HALT
`

func TestCompileAdd(t *testing.T) {
	obj, err := assembler.New().Compile(addSource)

	if err != nil {
		t.Fatal(err)
	}

	want := []byte{0x83, 0x12, 0xFF}

	if !bytes.Equal(obj.Text.Data, want) {
		t.Errorf(
			"text mismatch\nwant:% 02X\nhave:% 02X", want, obj.Text.Data,
		)
	}

	if len(obj.RAM.Data) != object.RAMSize {
		t.Errorf(
			"ram image size mismatch\nwant:%d\nhave:%d",
			object.RAMSize,
			len(obj.RAM.Data),
		)
	}

	labels := []struct {
		Section string
		Name    string
		Pos     uint8
		Size    uint8
	}{
		{"input", "a", 4, 4},
		{"input", "b", 8, 4},
		{"output", "result", 12, 4},
		{"ram", "lr", 0, 4},
		{"ram", "input", 4, 8},
		{"ram", "output", 12, 4},
		{"ram", "data", 16, 0},
	}

	for _, want := range labels {
		sec := obj.Section(want.Section)
		label, ok := sec.Labels[want.Name]

		if !ok {
			t.Errorf("label %s.%s missing", want.Section, want.Name)
			continue
		}

		if label.Pos != want.Pos || label.Size != want.Size {
			t.Errorf(
				"label %s.%s mismatch\nwant:%d:%d\nhave:%d:%d",
				want.Section, want.Name,
				want.Pos, want.Size,
				label.Pos, label.Size,
			)
		}
	}
}

func TestCompileAddRuns(t *testing.T) {
	obj, err := assembler.New().Compile(addSource)

	if err != nil {
		t.Fatal(err)
	}

	var ram machine.RAM
	ram[1] = 3
	ram[2] = 4

	machine.Execute(&ram, obj.Text.Data, 0, nil, nil)

	if ram[3] != 7 {
		t.Errorf("result mismatch\nwant:7\nhave:%d", ram[3])
	}
}

func TestCompileMovComposite(t *testing.T) {
	source := `
.data
MEMORY 4, x
MEMORY 4, y
.code
MOV x, y
HALT
`
	obj, err := assembler.New().Compile(source)

	if err != nil {
		t.Fatal(err)
	}

	// MOV expands to LOAD_OP y; STORE_OP x
	want := []byte{0x02, 0x21, 0xFF}

	if !bytes.Equal(obj.Text.Data, want) {
		t.Errorf(
			"text mismatch\nwant:% 02X\nhave:% 02X", want, obj.Text.Data,
		)
	}
}

func TestCompileSectionAliasAndComments(t *testing.T) {
	source := `
; whole-line comment
.text
LOAD3 1  ; trailing comment
HALT
`
	obj, err := assembler.New().Compile(source)

	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(obj.Text.Data, []byte{0xF1, 0xFF}) {
		t.Errorf("text mismatch: % 02X", obj.Text.Data)
	}
}

func TestCompileBranchNotTaken(t *testing.T) {
	source := `
.output
MEMORY 4, result

.data
MEMORY 4, one

.code
LOAD3 1
STORE_OP one
LOAD3 2
JZ one, target
LOAD3 5
STORE_OP result
HALT
target:
LOAD3 7
STORE_OP result
HALT
`
	obj, err := assembler.New().Compile(source)

	if err != nil {
		t.Fatal(err)
	}

	label, ok := obj.Text.Labels["target"]

	if !ok || label.Pos != 8 {
		t.Fatalf("want target=8:0, have %+v (ok=%v)", label, ok)
	}

	var ram machine.RAM
	machine.Execute(&ram, obj.Text.Data, 0, nil, nil)

	// LR is 2 and one is 1 at the branch, so the fallthrough path stores 5
	if ram[1] != 5 {
		t.Errorf("result mismatch\nwant:5\nhave:%d", ram[1])
	}
}

const factorialSource = `
.input
MEMORY 4, n

.output
MEMORY 4, result

.data
MEMORY 4, return
MEMORY 4, one
MEMORY 4, counter
MEMORY 4, accum
MEMORY 4, mcount

.code
start:
  LOAD3 1
  STORE_OP one
  LOAD_OP one
  STORE_OP result
  MOV counter, n
loop:
  LOAD3 0
  JZ counter, end
  LOAD_LOW multiply
  STORE_OP return
  PC_SWP return, return
  MOV result, accum
  SUB counter, counter, one
  JZ lr, loop
multiply:
  LOAD3 0
  STORE_OP accum
  MOV mcount, counter
mul_loop:
  LOAD3 0
  JZ mcount, mul_exit
  ADD accum, accum, result
  SUB mcount, mcount, one
  JZ lr, mul_loop
mul_exit:
  PC_SWP return, return
end:
  HALT
`

func TestCompileFactorial(t *testing.T) {
	obj, err := assembler.New().Compile(factorialSource)

	if err != nil {
		t.Fatal(err)
	}

	if have := len(obj.Text.Data); have != 36 {
		t.Fatalf("text size mismatch\nwant:36\nhave:%d", have)
	}

	for name, pos := range map[string]uint8{
		"start": 0, "loop": 6, "multiply": 20, "mul_loop": 24,
		"mul_exit": 33, "end": 35,
	} {
		label, ok := obj.Text.Labels[name]
		if !ok || label.Pos != pos {
			t.Errorf(
				"label %s mismatch\nwant:%d\nhave:%+v (ok=%v)",
				name, pos, label, ok,
			)
		}
	}

	// The callee returns through PC_SWP return, return: the jump target is
	// read before the link address lands in the same word
	for _, test := range []struct {
		N    uint32
		Want uint32
	}{
		{0, 1},
		{1, 1},
		{3, 6},
		{12, 479001600},
	} {
		var ram machine.RAM
		ram[1] = test.N

		machine.Execute(&ram, obj.Text.Data, 0, nil, nil)

		if ram[2] != test.Want {
			t.Errorf(
				"factorial(%d) mismatch\nwant:%d\nhave:%d",
				test.N, test.Want, ram[2],
			)
		}
	}
}

func TestCompileDumpRoundTrip(t *testing.T) {
	obj, err := assembler.New().Compile(factorialSource)

	if err != nil {
		t.Fatal(err)
	}

	parsed, err := object.Parse(obj.Dump())

	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(obj, parsed) {
		t.Error("assembled object did not survive a dump round trip")
	}
}

func TestCompileNumericOperands(t *testing.T) {
	source := `
.code
LOAD_OP 0x05
JZ 1, 0
HALT
`
	obj, err := assembler.New().Compile(source)

	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(obj.Text.Data, []byte{0x05, 0x41, 0x00, 0xFF}) {
		t.Errorf("text mismatch: % 02X", obj.Text.Data)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		Name   string
		Source string
	}{
		{"unknown instruction", ".code\nFROB 1\n"},
		{"unknown section", ".bss\nMEMORY 4, x\n"},
		{"wrong arity", ".code\nADD 1, 2\n"},
		{"unknown label", ".code\nLOAD_OP missing\nHALT\n"},
		{
			"redeclared label",
			".input\nMEMORY 4, x\n.data\nMEMORY 4, x\n.code\nHALT\n",
		},
		{"label outside code", ".data\nplace:\n"},
		{"LOAD3 overflow", ".code\nLOAD3 9\nHALT\n"},
		{"shift count overflow", ".code\nLS 1, 1, 16\nHALT\n"},
		{
			"ram exhausted",
			".data\nMEMORY 124, big\nMEMORY 4, extra\n.code\nHALT\n",
		},
		{
			"text exhausted",
			".code\n" + strings.Repeat("HALT\n", 257),
		},
	}

	for _, test := range cases {
		_, err := assembler.New().Compile(test.Source)

		if err == nil {
			t.Errorf("%s: want error, have none", test.Name)
			continue
		}

		var lineErr *assembler.LineError

		if !errors.As(err, &lineErr) {
			t.Errorf("%s: error %v carries no source line", test.Name, err)
		}
	}
}

func TestCompileErrorLine(t *testing.T) {
	_, err := assembler.New().Compile(".code\nHALT\nFROB 1\n")

	if err == nil {
		t.Fatal("want error, have none")
	}

	if !strings.HasPrefix(err.Error(), "error at 3:") {
		t.Errorf("want the error pinned to line 3, have %q", err.Error())
	}
}
