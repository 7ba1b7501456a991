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

package hostcall_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaobabus/nanovm/pkg/hostcall"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "proc.lua")

	if err := os.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadAndCall(t *testing.T) {
	path := writeScript(t, `
function proc(id, arg)
    return id * 1000 + arg
end
`)

	callback, err := hostcall.Load(path)

	if err != nil {
		t.Fatal(err)
	}

	defer callback.Close()

	if have := callback.Proc(5, 6); have != 5006 {
		t.Errorf("callback result mismatch\nwant:5006\nhave:%d", have)
	}
}

func TestLoadRejectsMissingProc(t *testing.T) {
	path := writeScript(t, `answer = 42`)

	if _, err := hostcall.Load(path); err == nil {
		t.Error("want error for a script without proc, have none")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := hostcall.Load("/nonexistent/proc.lua"); err == nil {
		t.Error("want error for a missing file, have none")
	}
}

func TestNonNumericReturnYieldsZero(t *testing.T) {
	path := writeScript(t, `
function proc(id, arg)
    return "not a number"
end
`)

	callback, err := hostcall.Load(path)

	if err != nil {
		t.Fatal(err)
	}

	defer callback.Close()

	if have := callback.Proc(1, 2); have != 0 {
		t.Errorf("want 0 for a non-numeric return, have %d", have)
	}
}

func TestScriptErrorYieldsZero(t *testing.T) {
	path := writeScript(t, `
function proc(id, arg)
    error("boom")
end
`)

	callback, err := hostcall.Load(path)

	if err != nil {
		t.Fatal(err)
	}

	defer callback.Close()

	if have := callback.Proc(1, 2); have != 0 {
		t.Errorf("want 0 for a failing script, have %d", have)
	}
}
