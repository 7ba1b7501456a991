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

// Package hostcall binds a Lua script as the host side of the CALL
// instruction. The script defines
//
//	function proc(id, arg)
//	    return result
//	end
//
// and the returned callback routes every guest CALL through it. A Callback
// wraps one Lua state and is not safe for concurrent use; create one per
// interpreter.
package hostcall

import (
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

type Callback struct {
	state *lua.LState
	fn    *lua.LFunction
}

func Load(path string) (*Callback, error) {
	state := lua.NewState()

	if err := state.DoFile(path); err != nil {
		state.Close()
		return nil, errors.Wrapf(err, "load host script '%s'", path)
	}

	fn, ok := state.GetGlobal("proc").(*lua.LFunction)

	if !ok {
		state.Close()
		return nil, errors.Errorf(
			"script '%s' does not define function proc(id, arg)", path,
		)
	}

	return &Callback{state: state, fn: fn}, nil
}

// Proc satisfies machine.Proc. A script error or a non-numeric return
// yields 0, matching the absent-callback behavior of CALL.
func (c *Callback) Proc(id uint32, arg uint32) uint32 {
	err := c.state.CallByParam(
		lua.P{Fn: c.fn, NRet: 1, Protect: true},
		lua.LNumber(id),
		lua.LNumber(arg),
	)

	if err != nil {
		return 0
	}

	ret := c.state.Get(-1)
	c.state.Pop(1)

	if n, ok := ret.(lua.LNumber); ok {
		return uint32(int64(n))
	}

	return 0
}

func (c *Callback) Close() {
	c.state.Close()
}
