package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	// Packages
	humanize "github.com/dustin/go-humanize"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type LedgerCommands struct {
	Containers ContainersCommand `cmd:"" group:"LEDGER" help:"List containers"`
	Objects    ObjectsCommand    `cmd:"" group:"LEDGER" help:"List the objects in a container"`
}

type ContainersCommand struct{}

type ObjectsCommand struct {
	Container string `arg:"" name:"container" help:"Container name"`
	Newest    bool   `name:"newest" short:"r" help:"List newest objects first"`
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (cmd *ContainersCommand) Run(app *Globals) error {
	manager, err := app.Manager()
	if err != nil {
		return err
	}
	containers, err := manager.Containers(app.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "CONTAINER\tCREATED")
	for _, container := range containers {
		fmt.Fprintf(w, "%s\t%s\n", container.Name, humanize.Time(container.ModTime))
	}
	return nil
}

func (cmd *ObjectsCommand) Run(app *Globals) error {
	manager, err := app.Manager()
	if err != nil {
		return err
	}
	order := schema.OldestFirst
	if cmd.Newest {
		order = schema.NewestFirst
	}
	entries, err := manager.Entries(app.Context(), cmd.Container, order)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "SEQ\tNAME\tPART\tSIZE\tSTORED")
	for _, entry := range entries {
		part := "-"
		if entry.Record != nil {
			part = fmt.Sprintf("%d/%d", entry.Record.Index, entry.Record.Total)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", entry.Seq, entry.Name, part, humanize.IBytes(uint64(entry.Size)), humanize.Time(entry.ModTime))
	}
	return nil
}
