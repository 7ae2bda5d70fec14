// Command azfluent manages Azure AD service principals, role assignments, Key Vaults,
// Batch AI, snapshots and network security groups from the command line.
package main

import (
	"os"

	"github.com/yaroslav/azfluent/cmd/azfluent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
