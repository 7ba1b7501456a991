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

package object_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jaobabus/nanovm/pkg/object"
)

func sampleObject() *object.Object {
	obj := object.New()

	obj.Text.Data = []byte{0x84, 0x12, 0xE3, 0x54, 0xFF}
	obj.Text.AddLabel("start", 0, 0)

	obj.RAM.Data = make([]byte, object.RAMSize)
	obj.RAM.Data[4] = 0x2A
	obj.RAM.AddLabel("lr", 0, 4)
	obj.RAM.AddLabel("input", 4, 4)
	obj.RAM.AddLabel("output", 8, 4)
	obj.RAM.AddLabel("data", 12, 0)

	obj.Input.AddLabel("a", 4, 4)
	obj.Output.AddLabel("result", 8, 4)

	return obj
}

func TestDumpShape(t *testing.T) {
	dump := sampleObject().Dump()
	lines := strings.Split(strings.TrimRight(dump, "\n"), "\n")

	if len(lines) != 5 {
		t.Fatalf("want 5 lines, have %d:\n%s", len(lines), dump)
	}

	if !strings.HasPrefix(lines[0], "text 84 12 E3 54 FF, start=0:0") {
		t.Errorf("text line mismatch: %q", lines[0])
	}

	// Sections without data keep a single space before the comma
	if lines[2] != "input , a=4:4" {
		t.Errorf("input line mismatch: %q", lines[2])
	}

	if lines[3] != "output , result=8:4" {
		t.Errorf("output line mismatch: %q", lines[3])
	}

	if lines[4] != "data ," {
		t.Errorf("data line mismatch: %q", lines[4])
	}
}

func TestDumpParseRoundTrip(t *testing.T) {
	obj := sampleObject()

	parsed, err := object.Parse(obj.Dump())

	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(obj, parsed) {
		t.Errorf(
			"round trip mismatch\nwant:%+v\nhave:%+v", obj, parsed,
		)
	}

	// A canonical dump survives parse+dump byte for byte
	if parsed.Dump() != obj.Dump() {
		t.Errorf(
			"canonical dump mismatch\nwant:%q\nhave:%q",
			obj.Dump(),
			parsed.Dump(),
		)
	}
}

func TestParseLabelOrderInsensitive(t *testing.T) {
	first, err := object.Parse("input , a=4:4 b=8:4\n")
	if err != nil {
		t.Fatal(err)
	}

	second, err := object.Parse("input , b=8:4 a=4:4\n")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("label order changed the parsed object")
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		Name string
		Dump string
	}{
		{"unknown section", "bss 00,\n"},
		{"odd hex digit count", "text 0,\n"},
		{"missing comma", "text 00\n"},
		{"bad label syntax", "text 00, start=0\n"},
		{"label beyond ram", "input , a=126:4\n"},
		{"ram too large", "ram" + strings.Repeat(" 00", 129) + ",\n"},
		{"garbage", "not an object dump\n"},
	}

	for _, test := range cases {
		if _, err := object.Parse(test.Dump); err == nil {
			t.Errorf("%s: want error, have none", test.Name)
		}
	}
}

func TestFindLabelScanOrder(t *testing.T) {
	obj := object.New()
	obj.Input.AddLabel("x", 4, 4)
	obj.Data.AddLabel("x", 8, 4)

	label, ok := obj.FindLabel("x")

	if !ok || label.Pos != 4 {
		t.Errorf("want the input label at 4, have %+v (ok=%v)", label, ok)
	}
}
