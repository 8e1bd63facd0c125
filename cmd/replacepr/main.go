// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/walteh/replacepr/cmd/replacepr/commands"
	"github.com/walteh/replacepr/cmd/replacepr/opts"
	"gitlab.com/tozd/go/errors"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], &opts.RootOpts{Out: os.Stdout}))
}

// execute runs the CLI and maps the outcome onto a process exit code
func execute(ctx context.Context, args []string, o *opts.RootOpts) int {
	root := newRootCmd(o)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *commands.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if o.Logger != nil {
		o.Logger.Error(err.Error())
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return 1
}
