// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

// Command propstore inspects and edits a durable dead property store.
//
// Values are read and printed as JSON. The store location can also be set
// with PROPSTORE_STORAGE_PATH, or in a configuration file passed with
// --config.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &Cmd{Stdout: os.Stdout, Stderr: os.Stderr}
	if err := c.Run(ctx, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
