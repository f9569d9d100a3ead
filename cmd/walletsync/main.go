// Command walletsync keeps wallet balances and transaction history in sync
// with an external data provider and prunes expired records.
package main

import (
	"os"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	a := &app{}
	defer a.close()

	if err := newRootCmd(a).Execute(); err != nil {
		return 1
	}
	return 0
}
