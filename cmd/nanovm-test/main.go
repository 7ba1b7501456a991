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

package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/jaobabus/nanovm/pkg/assembler"
	"github.com/jaobabus/nanovm/pkg/harness"
	"github.com/jaobabus/nanovm/pkg/hostcall"
	"github.com/jaobabus/nanovm/pkg/machine"
)

type specList []string

func (l *specList) String() string {
	return strings.Join(*l, ", ")
}

func (l *specList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

var specsvar specList
var procvar string

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.Var(
		&specsvar, "i",
		"Adds a test <source>:<binding>[:<section>.<label>=<value>]*; "+
			"the binding may be empty",
	)
	flag.StringVar(
		&procvar, "p", "",
		"Lua script providing the CALL host callback proc(id, arg)",
	)
	flag.Parse()
}

func nanovmTest() int {
	if len(specsvar) == 0 {
		log.Println(
			"Error while process args: expected -i <source>:<binding>",
		)
		return 1
	}

	comp := assembler.New()

	tests := make([]*harness.Test, 0, len(specsvar))

	for _, arg := range specsvar {
		spec, err := harness.ParseSpec(arg)

		if err != nil {
			log.Printf("Error while process args: %v", err)
			return 1
		}

		test, err := harness.NewTest(spec, comp)

		if err != nil {
			log.Printf("Error while process args: %v", err)
			return 1
		}

		tests = append(tests, test)
	}

	var factory harness.ProcFactory

	if procvar != "" {
		callback, err := hostcall.Load(procvar)

		if err != nil {
			log.Printf("Error while process args: %v", err)
			return 1
		}

		callback.Close()

		factory = func() (machine.Proc, func(), error) {
			callback, err := hostcall.Load(procvar)

			if err != nil {
				return nil, nil, err
			}

			return callback.Proc, callback.Close, nil
		}
	}

	runner := harness.NewRunner()
	results := runner.Run(tests, factory)
	runner.Summarize(results)

	return 0
}

func main() {
	os.Exit(nanovmTest())
}
