// Command redis-cli runs SET, GET and DEL against Redis servers through the
// pooled client, one-shot or interactively.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
