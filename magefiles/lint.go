// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binLint = "golangci-lint"

// sourceDirs are the trees gofmt checks. The reference material under
// _examples is not part of the module.
var sourceDirs = []string{"cmd", "internal", "pkg", "magefiles"}

// cgoEnv keeps the btree family's SQLite driver in the analyzed build.
var cgoEnv = map[string]string{"CGO_ENABLED": "1"}

// Lint checks formatting, then runs go vet and golangci-lint with cgo on.
func Lint() error {
	mg.Deps(Fmt)
	if err := sh.RunWithV(cgoEnv, binGo, "vet", "./..."); err != nil {
		return err
	}
	return sh.RunWithV(cgoEnv, binLint, "run", "./...")
}

// Fmt fails when any source file is not gofmt-clean and lists the offenders.
func Fmt() error {
	out, err := sh.Output("gofmt", append([]string{"-l"}, sourceDirs...)...)
	if err != nil {
		return err
	}
	if out = strings.TrimSpace(out); out != "" {
		return fmt.Errorf("gofmt needed on:\n%s", out)
	}
	return nil
}
