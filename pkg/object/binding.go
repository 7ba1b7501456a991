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
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jaobabus/nanovm/pkg/encoding"
)

// ApplyBinding overlays a JSON document onto the ram image. The top level
// maps section names to objects mapping label names to values; each value
// (number, or decimal/hex string) lands as a 32-bit little-endian word at
// the label's position. Applying the same document twice leaves ram.data
// unchanged.
func (obj *Object) ApplyBinding(content []byte) error {
	var root map[string]json.RawMessage

	if err := json.Unmarshal(content, &root); err != nil || root == nil {
		return errors.New("root is not an object")
	}

	for name, raw := range root {
		sec := obj.Section(name)

		if sec == nil {
			return errors.Errorf("unknown section %s", name)
		}

		var bind map[string]interface{}

		if err := json.Unmarshal(raw, &bind); err != nil || bind == nil {
			return errors.Errorf("section %s is not an object", name)
		}

		if err := obj.bindSection(sec, bind); err != nil {
			return err
		}
	}

	return nil
}

func (obj *Object) bindSection(sec *Section, bind map[string]interface{}) error {
	for name, jvalue := range bind {
		var value uint32

		switch v := jvalue.(type) {
		case float64:
			value = uint32(int64(v))

		case string:
			parsed, err := encoding.ParseUint32(v)
			if err != nil {
				return errors.Wrapf(err, "value of %s.%s", sec.Name, name)
			}
			value = parsed

		default:
			return errors.Errorf("type of %s.%s not supported", sec.Name, name)
		}

		label, ok := sec.Labels[name]

		if !ok {
			return errors.Errorf(
				"name %s not found in section %s", name, sec.Name,
			)
		}

		if label.Size != 4 {
			return errors.Errorf(
				"size %d of %s.%s not supported", label.Size, sec.Name, name,
			)
		}

		SetValue32(obj.RAM.Data, label.Pos, value)
	}

	return nil
}
