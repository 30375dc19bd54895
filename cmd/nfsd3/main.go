// Command nfsd3 runs a user-space NFSv3 server.
package main

import (
	"fmt"
	"os"

	"github.com/nfsd3/nfsd3/cmd/nfsd3/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
