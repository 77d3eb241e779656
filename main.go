package main

import (
	"fmt"
	"os"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/cli"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := cli.NewRootCmd(Version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
