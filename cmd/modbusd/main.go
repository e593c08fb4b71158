// Command modbusd runs a Modbus slave-side protocol engine against an
// in-memory data table, over TCP, UDP, or RTU.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
