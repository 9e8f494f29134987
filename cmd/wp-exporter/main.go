// Command wp-exporter runs a small host site with the metrics exporter
// plugin installed.
package main

import (
	"fmt"
	"os"
)

// version is injected during build.
var version = "dev"

func main() {
	if err := newRootCmd(os.LookupEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
