// Command pwlab runs the browser session API, the practice playground and
// storage state helpers.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fail(os.Stderr, err)
		os.Exit(1)
	}
}
