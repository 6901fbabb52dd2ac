// Command ledger replays a CSV transaction log and prints final client
// balances.
package main

import (
	"fmt"
	"os"

	"github.com/tutu-network/ledger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(1)
	}
}
