// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for featurestore using Mage.
//
// Usage:
//
//	mage build        Compile the featurestore binary to bin/
//	mage install      Install featurestore to GOPATH/bin
//	mage clean        Remove build artifacts
//	mage lint         Check gofmt, then run go vet and golangci-lint
//	mage fmt          List files that are not gofmt-clean
//	mage test:all     Run every test
//	mage test:race    Run every test with the race detector
//	mage test:cover   Write coverage.out and print the per-function summary
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "featurestore"
	binaryDir  = "bin"
	cmdDir     = "./cmd/featurestore"
)

// Build compiles the featurestore binary to bin/. The btree family links
// SQLite through cgo, so CGO_ENABLED must stay on.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
