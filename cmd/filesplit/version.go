package main

import (
	"fmt"
	"os"

	// Packages
	version "github.com/mutablelogic/go-filesplit/pkg/version"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type VersionCommands struct {
	Version VersionCommand `cmd:"" group:"MISC" help:"Print version information"`
}

type VersionCommand struct{}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (cmd *VersionCommand) Run(app *Globals) error {
	fmt.Fprintln(os.Stdout, version.Get(execName()))
	return nil
}
