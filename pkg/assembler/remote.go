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
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jaobabus/nanovm/pkg/disasm"
	"github.com/jaobabus/nanovm/pkg/object"
)

// Default endpoints of the out-of-process assembler service.
const (
	CompilerEndpoint   = "/local/nvmc-jabus/compiler"
	DecompilerEndpoint = "/local/nvmc-jabus/decompiler"
)

const (
	exchangeTimeout = 5 * time.Second
	exchangePoll    = 33 * time.Millisecond
	exchangeMax     = 4096
)

// exchange writes a NUL-terminated request to the endpoint and polls it for
// the response. An empty endpoint after the timeout is a transport failure;
// a payload starting with "error" is a service-reported failure forwarded
// verbatim.
func exchange(endpoint string, request string) (string, error) {
	file, err := os.OpenFile(endpoint, os.O_RDWR, 0)

	if err != nil {
		return "", errors.Wrap(err, "compiler not accessible")
	}

	defer file.Close()

	if _, err := file.Write(append([]byte(request), 0)); err != nil {
		return "", errors.Wrap(err, "compiler not accessible")
	}

	buffer := make([]byte, exchangeMax)
	deadline := time.Now().Add(exchangeTimeout)

	for time.Now().Before(deadline) {
		n, _ := file.ReadAt(buffer, 0)

		if n > 0 && buffer[0] != 0 {
			data := buffer[:n]
			if i := strings.IndexByte(string(data), 0); i >= 0 {
				data = data[:i]
			}
			response := string(data)

			if strings.HasPrefix(response, "error") {
				return "", errors.New(response)
			}

			return response, nil
		}

		time.Sleep(exchangePoll)
	}

	return "", errors.New("compile timeout error")
}

// RemoteCompiler adapts an external assembler reachable through a file-like
// endpoint.
type RemoteCompiler struct {
	Endpoint string
}

func (c *RemoteCompiler) Compile(source string) (*object.Object, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = CompilerEndpoint
	}

	response, err := exchange(endpoint, source)

	if err != nil {
		return nil, err
	}

	return object.Parse(response)
}

// RemoteDecompiler adapts the matching external decompiler; the request is
// the object dump, the response a textual listing.
type RemoteDecompiler struct {
	Endpoint string
}

func (d *RemoteDecompiler) Decompile(obj *object.Object) ([]disasm.Line, error) {
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DecompilerEndpoint
	}

	response, err := exchange(endpoint, obj.Dump())

	if err != nil {
		return nil, err
	}

	return disasm.ParseListing(response)
}
