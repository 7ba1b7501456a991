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

// Package object holds the compiled program model: five named sections in a
// fixed order. Only text carries executable bytes and ram carries the full
// 128-byte initial memory image; input, output and data are label tables
// naming ranges of the ram image.
package object

import (
	"encoding/binary"
)

const (
	RAMSize  = 128
	TextSize = 256
)

// Label names a byte range inside a section. For sections other than text
// the range lies inside the ram image.
type Label struct {
	Name string
	Pos  uint8
	Size uint8
}

type Section struct {
	Name   string
	Data   []byte
	Labels map[string]Label
}

func (sec *Section) AddLabel(name string, pos, size uint8) {
	if sec.Labels == nil {
		sec.Labels = make(map[string]Label)
	}
	sec.Labels[name] = Label{Name: name, Pos: pos, Size: size}
}

type Object struct {
	Text   Section
	RAM    Section
	Input  Section
	Output Section
	Data   Section
}

func New() *Object {
	section := func(name string) Section {
		return Section{Name: name, Labels: make(map[string]Label)}
	}

	return &Object{
		Text:   section("text"),
		RAM:    section("ram"),
		Input:  section("input"),
		Output: section("output"),
		Data:   section("data"),
	}
}

// Sections returns the sections in canonical order. The order is part of the
// dump format and of label resolution.
func (obj *Object) Sections() [5]*Section {
	return [5]*Section{&obj.Text, &obj.RAM, &obj.Input, &obj.Output, &obj.Data}
}

func (obj *Object) Section(name string) *Section {
	for _, sec := range obj.Sections() {
		if sec.Name == name {
			return sec
		}
	}
	return nil
}

// FindLabel scans the sections in canonical order and returns the first
// label with the given name.
func (obj *Object) FindLabel(name string) (Label, bool) {
	for _, sec := range obj.Sections() {
		if label, ok := sec.Labels[name]; ok {
			return label, true
		}
	}
	return Label{}, false
}

// Value32 reads the little-endian word at pos in buf.
func Value32(buf []byte, pos uint8) uint32 {
	if int(pos)+4 > len(buf) {
		return 0
	}
	return binary.LittleEndian.Uint32(buf[pos : pos+4])
}

// SetValue32 writes the little-endian word at pos in buf.
func SetValue32(buf []byte, pos uint8, value uint32) {
	if int(pos)+4 > len(buf) {
		return
	}
	binary.LittleEndian.PutUint32(buf[pos:pos+4], value)
}
