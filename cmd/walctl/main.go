// Command walctl appends to and reads from a write-ahead log kept in a
// logmap server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
