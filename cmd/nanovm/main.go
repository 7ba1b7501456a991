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
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/jaobabus/nanovm/pkg/assembler"
	"github.com/jaobabus/nanovm/pkg/debugger"
	"github.com/jaobabus/nanovm/pkg/hostcall"
	"github.com/jaobabus/nanovm/pkg/machine"
)

var sourcevar string
var bindingvar string
var procvar string

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.StringVar(&sourcevar, "i", "", "Source file to debug")
	flag.StringVar(
		&bindingvar, "I", "",
		"JSON binding overlaying initial RAM values",
	)
	flag.StringVar(
		&procvar, "p", "",
		"Lua script providing the CALL host callback proc(id, arg)",
	)
	flag.Parse()
}

func nanovm() int {
	if sourcevar == "" {
		log.Println("Error while process args: -i <source> is required")
		return 1
	}

	source, err := os.ReadFile(sourcevar)

	if err != nil {
		log.Printf(
			"Error while process args: Cannot open file '%s': %v",
			sourcevar, err,
		)
		return 1
	}

	obj, err := assembler.New().Compile(string(source))

	if err != nil {
		log.Printf("Error while process args: %v", err)
		return 1
	}

	if bindingvar != "" {
		content, err := os.ReadFile(bindingvar)

		if err != nil {
			log.Printf(
				"Error while process args: Cannot open file '%s': %v",
				bindingvar, err,
			)
			return 1
		}

		if err := obj.ApplyBinding(content); err != nil {
			log.Printf("Error while process args: %v", err)
			return 1
		}
	}

	var proc machine.Proc

	if procvar != "" {
		callback, err := hostcall.Load(procvar)

		if err != nil {
			log.Printf("Error while process args: %v", err)
			return 1
		}

		defer callback.Close()
		proc = callback.Proc
	}

	dbg := debugger.New(obj, proc)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	go func() {
		for range interrupts {
			// A second interrupt before the engine observes the first one
			// means the guest is stuck
			if dbg.CancelNow() {
				fmt.Fprintln(os.Stderr, "Debugger not responding")
				os.Exit(1)
			}
		}
	}()

	if err := dbg.Run(); err != nil {
		log.Printf("Error: %v", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(nanovm())
}
