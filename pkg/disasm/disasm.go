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

// Package disasm turns text-section bytes back into per-instruction records
// and renders them for the debugger and the listing printer.
package disasm

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jaobabus/nanovm/pkg/isa"
	"github.com/jaobabus/nanovm/pkg/object"
)

// Line is one decoded instruction: its byte offset, raw bytes, mnemonic,
// rendered operands and the labels the operands were resolved against.
type Line struct {
	Pos     uint8
	Code    []byte
	Command string
	Args    []string
	Labels  []object.Label
}

// Resolver is the ordered label list used to substitute register operands.
// Resolution order matters: lr first, then input, data, output; within a
// section labels are ordered by position, then name.
type Resolver []object.Label

func NewResolver(obj *object.Object) Resolver {
	labels := Resolver{{Name: "lr", Pos: 0, Size: 4}}

	for _, sec := range []*object.Section{&obj.Input, &obj.Data, &obj.Output} {
		names := make([]string, 0, len(sec.Labels))
		for name := range sec.Labels {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := sec.Labels[names[i]], sec.Labels[names[j]]
			if a.Pos != b.Pos {
				return a.Pos < b.Pos
			}
			return a.Name < b.Name
		})
		for _, name := range names {
			labels = append(labels, sec.Labels[name])
		}
	}

	return labels
}

// find returns the first label whose word index matches.
func (r Resolver) find(word uint32) (object.Label, bool) {
	for _, label := range r {
		if uint32(label.Pos/4) == word {
			return label, true
		}
	}
	return object.Label{}, false
}

// LineAt decodes the single instruction at pos and returns its record and
// encoded size.
func LineAt(text []byte, pos uint8, labels Resolver) (Line, uint8, error) {
	if int(pos) >= len(text) {
		return Line{}, 0, errors.Errorf(
			"instruction not found at %d: end of text", pos,
		)
	}

	in, size := isa.Decode(text, pos)

	if int(pos)+int(size) > len(text) {
		return Line{}, 0, errors.Errorf(
			"instruction not found at %d (%02X): truncated", pos, text[pos],
		)
	}

	line := Line{
		Pos:     pos,
		Code:    append([]byte(nil), text[pos:int(pos)+int(size)]...),
		Command: in.Kind.Mnemonic(),
	}

	for _, arg := range in.Args() {
		if arg.Kind == isa.ARG_REGISTER {
			if label, ok := labels.find(arg.Value); ok {
				line.Args = append(line.Args, label.Name)
				line.addLabel(label)
				continue
			}
		}
		line.Args = append(line.Args, fmt.Sprintf("0x%X", arg.Value))
	}

	return line, size, nil
}

func (l *Line) addLabel(label object.Label) {
	for _, have := range l.Labels {
		if have.Name == label.Name {
			return
		}
	}
	l.Labels = append(l.Labels, label)
}

// Decompile walks the whole text section from offset zero.
func Decompile(obj *object.Object) ([]Line, error) {
	labels := NewResolver(obj)

	var lines []Line

	for pos := 0; pos < len(obj.Text.Data); {
		line, size, err := LineAt(obj.Text.Data, uint8(pos), labels)

		if err != nil {
			return nil, err
		}

		lines = append(lines, line)
		pos += int(size)
	}

	return lines, nil
}

var (
	listingPattern = regexp.MustCompile(
		`^\s*([0-9a-fA-F]+):\s+([0-9a-fA-F]+)\s+(\S+)\s*([^;]*?)\s*;\s*(.*)$`,
	)
	listingLabel = regexp.MustCompile(`(\w+)=(\d+):(\d+)`)
)

// ParseListing reads the textual form produced by an external decompiler,
// one line per instruction:
//
//	POS: BYTES  MNEMONIC arg[, arg]*  ; label=pos:size, ...
func ParseListing(data string) ([]Line, error) {
	var lines []Line

	for _, raw := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		match := listingPattern.FindStringSubmatch(raw)

		if match == nil {
			return nil, errors.Errorf("parse decompiled line error: %q", raw)
		}

		pos, err := strconv.ParseUint(match[1], 16, 8)
		if err != nil {
			return nil, errors.Wrap(err, "parse decompiled line error")
		}

		bin := match[2]
		if len(bin)%2 != 0 {
			bin = "0" + bin
		}

		line := Line{Pos: uint8(pos), Command: match[3]}

		for i := 0; i < len(bin); i += 2 {
			b, err := strconv.ParseUint(bin[i:i+2], 16, 8)
			if err != nil {
				return nil, errors.Wrap(err, "parse decompiled line error")
			}
			line.Code = append(line.Code, uint8(b))
		}

		for _, arg := range strings.Split(match[4], ",") {
			if arg = strings.TrimSpace(arg); arg != "" {
				line.Args = append(line.Args, arg)
			}
		}

		for _, kv := range listingLabel.FindAllStringSubmatch(match[5], -1) {
			lpos, err := strconv.ParseUint(kv[2], 10, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "label %s position", kv[1])
			}
			lsize, err := strconv.ParseUint(kv[3], 10, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "label %s size", kv[1])
			}
			line.addLabel(object.Label{
				Name: kv[1], Pos: uint8(lpos), Size: uint8(lsize),
			})
		}

		lines = append(lines, line)
	}

	return lines, nil
}
