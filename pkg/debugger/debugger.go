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

package debugger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/jaobabus/nanovm/pkg/disasm"
	"github.com/jaobabus/nanovm/pkg/encoding"
	"github.com/jaobabus/nanovm/pkg/machine"
	"github.com/jaobabus/nanovm/pkg/object"
)

type Debugger struct {
	// Output receives everything the REPL prints. Defaults to stdout.
	Output io.Writer

	obj  *object.Object
	ram  machine.RAM
	pc   uint8
	proc machine.Proc

	running     bool
	breakpoints map[uint8]struct{}
	cancel      atomic.Bool

	resolver   disasm.Resolver
	allLabels  map[string]object.Label
	lines      []disasm.Line
	lineMap    map[uint8]disasm.Line
	decompiled bool
}

func New(obj *object.Object, proc machine.Proc) *Debugger {
	dbg := &Debugger{
		Output:      os.Stdout,
		obj:         obj,
		proc:        proc,
		running:     true,
		breakpoints: make(map[uint8]struct{}),
		resolver:    disasm.NewResolver(obj),
		allLabels:   make(map[string]object.Label),
	}

	for _, sec := range obj.Sections() {
		for name, label := range sec.Labels {
			dbg.allLabels[name] = label
		}
	}

	dbg.ram.LoadBytes(obj.RAM.Data)

	return dbg
}

// CancelNow raises the cooperative cancel flag and reports whether it was
// already raised, i.e. the engine has not observed the previous request.
func (dbg *Debugger) CancelNow() bool {
	return dbg.cancel.Swap(true)
}

func (dbg *Debugger) Run() error {
	rl, err := readline.New("(debug) ")

	if err != nil {
		return errors.Wrap(err, "open terminal")
	}

	defer rl.Close()

	for dbg.running {
		line, err := rl.Readline()

		if err == readline.ErrInterrupt {
			continue
		} else if err != nil {
			break
		}

		dbg.Process(strings.TrimSpace(line))
	}

	return nil
}

// Process dispatches one command line. Commands match on their minimal
// distinguishing prefix.
func (dbg *Debugger) Process(command string) {
	switch {
	case command == "step" || command == "n":
		dbg.step()

	case strings.HasPrefix(command, "goto") ||
		strings.HasPrefix(command, "g ") || command == "g":
		dbg.goTo(command)

	case command == "continue" || strings.HasPrefix(command, "c"):
		dbg.continueExecution()

	case strings.HasPrefix(command, "break") || strings.HasPrefix(command, "b"):
		dbg.setBreakpoint(command)

	case strings.HasPrefix(command, "mem") || strings.HasPrefix(command, "p"):
		dbg.showMemory(command)

	case command == "lr":
		dbg.showLR()

	case strings.HasPrefix(command, "list") ||
		strings.HasPrefix(command, "l ") || command == "l":
		dbg.listInstructions(command)

	case command == "exit" || strings.HasPrefix(command, "q"):
		dbg.running = false

	default:
		fmt.Fprintln(dbg.Output,
			"Unknown command! Available: step, continue, break [addr], "+
				"mem [addr], lr, list, exit")
	}
}

// Running reports whether the REPL loop would keep going; exposed so the
// driver can stop once the program ends or the user exits.
func (dbg *Debugger) Running() bool {
	return dbg.running
}

func (dbg *Debugger) step() {
	if int(dbg.pc) >= len(dbg.obj.Text.Data) {
		fmt.Fprintln(dbg.Output, "End of program.")
		dbg.running = false
		return
	}

	prevRAM := dbg.ram
	prev := dbg.pc

	machine.Step(&dbg.ram, dbg.obj.Text.Data, &dbg.pc, dbg.proc)

	line, ok := dbg.lineAt(prev)

	if ok {
		fmt.Fprintln(dbg.Output,
			disasm.FormatLine(line, &dbg.ram, &prevRAM, dbg.allLabels, true))
	}
}

func (dbg *Debugger) continueExecution() {
	for int(dbg.pc) < len(dbg.obj.Text.Data) {
		if _, hit := dbg.breakpoints[dbg.pc]; hit || dbg.cancel.Load() {
			dbg.cancel.Store(false)
			fmt.Fprintf(dbg.Output, "Hit breakpoint at PC: %d\n", dbg.pc)
			return
		}

		dbg.step()

		if !dbg.running {
			return
		}
	}
}

func (dbg *Debugger) goTo(command string) {
	arg := fmt.Sprintf("%d", dbg.pc)

	if i := strings.IndexByte(command, ' '); i >= 0 {
		arg = command[i+1:]
	}

	addr, err := encoding.ParseAddrDec(arg)

	if err != nil {
		fmt.Fprintln(dbg.Output, err)
		return
	}

	dbg.pc = addr
	fmt.Fprintf(dbg.Output, "pc = %02x\n", dbg.pc)
}

func (dbg *Debugger) setBreakpoint(command string) {
	i := strings.IndexByte(command, ' ')

	if i < 0 {
		fmt.Fprintln(dbg.Output, "break [addr]")
		return
	}

	addr, err := encoding.ParseAddr(command[i+1:])

	if err != nil {
		fmt.Fprintln(dbg.Output, err)
		return
	}

	dbg.breakpoints[addr] = struct{}{}
	fmt.Fprintf(dbg.Output, "Breakpoint set at address %d\n", addr)
}

// showMemory reads or writes a word. The operand is a label (resolved by
// scanning sections in declared order) or a direct word index; an appended
// =value writes first.
func (dbg *Debugger) showMemory(command string) {
	arg := command

	if i := strings.IndexByte(command, ' '); i >= 0 {
		arg = strings.TrimSpace(command[i+1:])
	}

	value := ""

	if i := strings.IndexByte(arg, '='); i >= 0 {
		value = strings.TrimSpace(arg[i+1:])
		arg = strings.TrimSpace(arg[:i])
	}

	addr := -1

	if arg != "" && (arg[0] < '0' || arg[0] > '9') {
		if label, ok := dbg.obj.FindLabel(arg); ok {
			addr = int(label.Pos) / 4
		}
	} else if arg != "" {
		if word, err := encoding.ParseAddrDec(arg); err == nil && int(word) < machine.Words {
			addr = int(word)
		}
	}

	if addr != -1 && value != "" {
		parsed, err := encoding.ParseUint32(value)

		if err != nil {
			fmt.Fprintln(dbg.Output, err)
			return
		}

		dbg.ram[addr] = parsed
	}

	if addr != -1 {
		fmt.Fprintf(dbg.Output, "Memory[%d] = %d\n", addr, dbg.ram[addr])
	} else {
		fmt.Fprintf(dbg.Output, "Var %s not found\n", arg)
	}
}

func (dbg *Debugger) showLR() {
	fmt.Fprintf(dbg.Output, "LR = %d\n", dbg.ram[0])
}

func (dbg *Debugger) listInstructions(command string) {
	context := 5

	if i := strings.IndexByte(command, ' '); i >= 0 {
		arg := strings.TrimSpace(command[i+1:])
		if arg != "" {
			n, err := encoding.ParseAddrDec(arg)
			if err != nil {
				fmt.Fprintln(dbg.Output, err)
				return
			}
			context = int(n)
		}
	}

	lines := dbg.decompile()

	current := len(lines)
	for i, line := range lines {
		if line.Pos == dbg.pc {
			current = i
			break
		}
	}

	start := 0
	if current > context {
		start = current - context
	}

	end := len(lines)
	if current+context < end {
		end = current + context
	}

	fmt.Fprintln(dbg.Output, "Listing instructions:")

	for i := start; i < end; i++ {
		fmt.Fprintln(dbg.Output,
			disasm.FormatLine(lines[i], &dbg.ram, nil, dbg.allLabels, i == current))
	}
}

func (dbg *Debugger) decompile() []disasm.Line {
	if !dbg.decompiled {
		dbg.decompiled = true
		dbg.lineMap = make(map[uint8]disasm.Line)

		lines, err := disasm.Decompile(dbg.obj)

		if err != nil {
			fmt.Fprintf(dbg.Output, "Error while decompile: %v\n", err)
		} else {
			dbg.lines = lines
			for _, line := range lines {
				dbg.lineMap[line.Pos] = line
			}
		}
	}

	return dbg.lines
}

// lineAt returns the record covering pos, decoding on the fly when pos is
// not an instruction boundary of the cached listing (a jump may land inside
// a multi-byte instruction).
func (dbg *Debugger) lineAt(pos uint8) (disasm.Line, bool) {
	dbg.decompile()

	if line, ok := dbg.lineMap[pos]; ok {
		return line, true
	}

	line, _, err := disasm.LineAt(dbg.obj.Text.Data, pos, dbg.resolver)

	if err != nil {
		fmt.Fprintf(dbg.Output, "Error while decompile: %v\n", err)
		return disasm.Line{}, false
	}

	return line, true
}
