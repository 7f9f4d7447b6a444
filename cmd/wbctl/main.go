package main

import (
	"os"

	wbctlcmd "github.com/workbench-cloud/workbench-cli/pkg/cmd"
)

func main() {
	root := wbctlcmd.NewRootCommand(wbctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
