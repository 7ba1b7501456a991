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
	"fmt"

	"github.com/jaobabus/nanovm/pkg/disasm"
	"github.com/jaobabus/nanovm/pkg/object"
)

// Compiler turns assembly text into a compiled object. The in-process
// Assembler is the default implementation; RemoteCompiler adapts an
// external service behind a file endpoint.
type Compiler interface {
	Compile(source string) (*object.Object, error)
}

// Decompiler turns a compiled object back into per-instruction records.
type Decompiler interface {
	Decompile(obj *object.Object) ([]disasm.Line, error)
}

// LineError scopes an assembly error to a 1-based source line.
type LineError struct {
	Line int
	Err  error
}

func (err *LineError) Error() string {
	return fmt.Sprintf("error at %d: %v", err.Line, err.Err)
}

func (err *LineError) Unwrap() error {
	return err.Err
}
