// Package main is the entry point for the padhai application.
package main

import (
	"github.com/padhai-cli/padhai/cmd"
	"github.com/padhai-cli/padhai/config"
	"github.com/padhai-cli/padhai/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
