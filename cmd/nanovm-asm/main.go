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

	"github.com/jaobabus/nanovm/pkg/assembler"
	"github.com/jaobabus/nanovm/pkg/disasm"
	"github.com/jaobabus/nanovm/pkg/object"
)

var sourcevar string
var binaryvar string

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.StringVar(
		&sourcevar, "i", "",
		"Assembles the source file and prints its object dump",
	)
	flag.StringVar(
		&binaryvar, "b", "",
		"Parses an object dump and prints its decompilation",
	)
	flag.Parse()
}

func nanovmAsm() int {
	if (sourcevar == "") == (binaryvar == "") {
		log.Println("Error: Must be specified -i <source> or -b <binary>")
		return 1
	}

	if sourcevar != "" {
		source, err := os.ReadFile(sourcevar)

		if err != nil {
			log.Printf("Error: Cannot open file '%s': %v", sourcevar, err)
			return 1
		}

		obj, err := assembler.New().Compile(string(source))

		if err != nil {
			log.Printf("Error: %v", err)
			return 1
		}

		fmt.Println(obj.Dump())
		return 0
	}

	content, err := os.ReadFile(binaryvar)

	if err != nil {
		log.Printf("Error: Cannot open file '%s': %v", binaryvar, err)
		return 1
	}

	obj, err := object.Parse(string(content))

	if err != nil {
		log.Printf("Error: %v", err)
		return 1
	}

	lines, err := assembler.LocalDecompiler{}.Decompile(obj)

	if err != nil {
		log.Printf("Error while decompile: %v", err)
		return 1
	}

	for _, line := range lines {
		fmt.Println(disasm.FormatLine(line, nil, nil, nil, false))
	}

	return 0
}

func main() {
	os.Exit(nanovmAsm())
}
