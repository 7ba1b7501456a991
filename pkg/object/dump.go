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

package object

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const hexDigits = "0123456789ABCDEF"

// Dump serializes the object as one line per section in canonical order:
//
//	<name> <HEXBYTE>..., <label>=<pos>:<size> ...
//
// An empty data buffer leaves a single space before the comma. Labels are
// emitted sorted by name so dumps are stable.
func (obj *Object) Dump() string {
	var out strings.Builder

	for _, sec := range obj.Sections() {
		out.WriteString(sec.Name)

		for _, b := range sec.Data {
			out.WriteByte(' ')
			out.WriteByte(hexDigits[b>>4])
			out.WriteByte(hexDigits[b&0xF])
		}

		if len(sec.Data) == 0 {
			out.WriteByte(' ')
		}

		out.WriteByte(',')

		names := make([]string, 0, len(sec.Labels))
		for name := range sec.Labels {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			label := sec.Labels[name]
			fmt.Fprintf(&out, " %s=%d:%d", label.Name, label.Pos, label.Size)
		}

		out.WriteByte('\n')
	}

	return out.String()
}

var (
	sectionPattern = regexp.MustCompile(
		`^(\w+)((?: +[0-9A-Fa-f]{2})+| ),((?: +\w+=\d+:\d+)*) *$`,
	)
	labelPattern = regexp.MustCompile(`(\w+)=(\d+):(\d+)`)
)

// Parse reads a textual object dump. Lines may arrive in any order and
// sections may be omitted; unknown section names and lines outside the
// grammar are rejected.
func Parse(data string) (*Object, error) {
	obj := New()

	for i, line := range strings.Split(data, "\n") {
		if line == "" {
			continue
		}

		match := sectionPattern.FindStringSubmatch(line)

		if match == nil {
			return nil, errors.Errorf("object dump parse error at line %d", i+1)
		}

		sec := obj.Section(match[1])

		if sec == nil {
			return nil, errors.Errorf("unknown section %s", match[1])
		}

		var bin []byte
		for _, field := range strings.Fields(match[2]) {
			b, err := strconv.ParseUint(field, 16, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "section %s", sec.Name)
			}
			bin = append(bin, uint8(b))
		}

		labels := make(map[string]Label)
		for _, kv := range labelPattern.FindAllStringSubmatch(match[3], -1) {
			pos, err := strconv.ParseUint(kv[2], 10, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "label %s position", kv[1])
			}

			size, err := strconv.ParseUint(kv[3], 10, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "label %s size", kv[1])
			}

			labels[kv[1]] = Label{Name: kv[1], Pos: uint8(pos), Size: uint8(size)}
		}

		sec.Data = bin
		sec.Labels = labels

		if err := checkSection(sec); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func checkSection(sec *Section) error {
	switch sec.Name {
	case "text":
		if len(sec.Data) > TextSize {
			return errors.Errorf(
				"text section %d bytes exceeds %d", len(sec.Data), TextSize,
			)
		}
		return nil

	case "ram":
		if len(sec.Data) > RAMSize {
			return errors.Errorf(
				"ram section %d bytes exceeds %d", len(sec.Data), RAMSize,
			)
		}
	}

	for _, label := range sec.Labels {
		if int(label.Pos)+int(label.Size) > RAMSize {
			return errors.Errorf(
				"label %s=%d:%d exceeds the ram image",
				label.Name, label.Pos, label.Size,
			)
		}
	}

	return nil
}
