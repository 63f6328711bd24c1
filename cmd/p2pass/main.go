// Command p2pass sends a single payload from one peer to another. Peers are
// identified by tokens that encode their address.
//
//	p2pass serve --port 18514 --out ./received
//	p2pass token 192.168.1.7:18514
//	p2pass send MTkyLjE2OC4xLjc6MTg1MTQ= --file notes.txt
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
