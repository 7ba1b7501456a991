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

package harness

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"github.com/jaobabus/nanovm/pkg/machine"
)

// ProcFactory builds a host callback per test; the release function runs
// when the test finishes. A nil factory runs guests without callbacks.
type ProcFactory func() (machine.Proc, func(), error)

type Result struct {
	Test   *Test
	RAM    machine.RAM
	Err    error
	Passed bool
}

// Runner executes tests concurrently, one worker per test. All stdout
// writes go through one mutex; on a terminal each test owns a line updated
// in place with cursor save/restore.
type Runner struct {
	Output  io.Writer
	Errput  io.Writer
	InPlace bool

	mu        sync.Mutex
	positions map[string]int
	lastPos   int
}

func NewRunner() *Runner {
	return &Runner{
		Output:    os.Stdout,
		Errput:    os.Stderr,
		InPlace:   isatty.IsTerminal(os.Stdout.Fd()),
		positions: make(map[string]int),
	}
}

var (
	passedColor = ansi.ColorCode("76+b")
	failedColor = ansi.ColorCode("160+b")
)

func (r *Runner) Run(tests []*Test, factory ProcFactory) []Result {
	max := 0
	for _, test := range tests {
		if len(test.Name()) > max {
			max = len(test.Name())
		}
	}

	results := make([]Result, len(tests))

	var wg sync.WaitGroup

	for i, test := range tests {
		wg.Add(1)

		go func(i int, test *Test) {
			defer wg.Done()
			results[i] = r.runOne(test, factory, max-len(test.Name()))
		}(i, test)
	}

	wg.Wait()

	return results
}

func (r *Runner) runOne(test *Test, factory ProcFactory, pad int) Result {
	r.report(test, fmt.Sprintf("Running test: %s ... ", test.Name()))

	result := Result{Test: test}

	var proc machine.Proc

	if factory != nil {
		built, release, err := factory()

		if err != nil {
			result.Err = err
		} else {
			proc = built
			if release != nil {
				defer release()
			}
		}
	}

	if result.Err == nil {
		result.RAM, result.Err = test.Run(proc)
	}

	result.Passed = result.Err == nil && test.Check(&result.RAM)

	status := r.colorize("PASSED", passedColor)
	if !result.Passed {
		status = r.colorize("FAILED", failedColor)
	}

	r.report(test, fmt.Sprintf(
		"Running test: %s ... %s%s\n",
		test.Name(), strings.Repeat(" ", pad), status,
	))

	return result
}

func (r *Runner) colorize(s, color string) string {
	if !r.InPlace {
		return s
	}
	return color + s + ansi.Reset
}

// report serializes one write, moving the cursor to the test's own line on
// a terminal.
func (r *Runner) report(test *Test, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.InPlace {
		if strings.HasSuffix(message, "\n") {
			io.WriteString(r.Output, message)
		}
		return
	}

	pos, ok := r.positions[test.Name()]

	if !ok {
		r.lastPos++
		pos = r.lastPos
		r.positions[test.Name()] = pos
	}

	io.WriteString(r.Output, "\033[s")
	fmt.Fprintf(r.Output, "\033[%dB", pos)
	io.WriteString(r.Output, message)
	io.WriteString(r.Output, "\033[u")
}

// Summarize prints per-label diffs for every failing test.
func (r *Runner) Summarize(results []Result) {
	fmt.Fprintln(r.Errput)

	for _, result := range results {
		if result.Passed {
			continue
		}

		fmt.Fprintf(r.Errput, "Results of test %s:\n", result.Test.Name())

		if result.Err != nil {
			fmt.Fprintf(r.Errput, "Error: %v\n", result.Err)
		} else {
			result.Test.DumpError(r.Errput, &result.RAM)
		}

		fmt.Fprintln(r.Errput)
	}
}

// Failed reports whether any test failed or errored.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return true
		}
	}
	return false
}
