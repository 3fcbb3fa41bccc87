// Command featurestore creates, inspects and copies persistent feature
// stores.
package main

import (
	"os"

	"github.com/mesh-intelligence/featurestore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
