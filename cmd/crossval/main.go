// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command crossval runs k-fold cross-validation of registered model
// families over corpus files or corpora stored in a local database.
//
// Usage:
//
//	crossval evaluate data/ner.txt --folds 10 --param cutoff=3
//	crossval import data/ner.txt --corpus news
//	crossval evaluate --corpus news --parallel 4
//	crossval runs list
//	crossval runs show <run-id>
//	crossval serve --addr :8090
//
// Configuration is read from ~/.aleutian/fold/fold.yaml unless --config
// names another file; flags override it. Exit status is 0 on success, 2 for
// configuration errors, 3 for I/O errors, 4 for training failures, 5 for
// evaluation failures and 130 when interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		a.printer().Error(err.Error())
	}
	stop()
	os.Exit(exitCode(err))
}
