package main

import (
	"errors"
	"fmt"
	"os"

	// Packages
	humanize "github.com/dustin/go-humanize"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type TransferCommands struct {
	Upload           UploadCommand           `cmd:"" group:"TRANSFER" help:"Upload a file to a new container"`
	Resume           ResumeCommand           `cmd:"" group:"TRANSFER" help:"Continue an interrupted upload"`
	Download         DownloadCommand         `cmd:"" group:"TRANSFER" help:"Download and reassemble a file from a container"`
	DownloadFromPart DownloadFromPartCommand `cmd:"" name:"download-from-part" group:"TRANSFER" help:"Continue a download into a partial file"`
}

type UploadCommand struct {
	Path  string `arg:"" name:"path" type:"existingfile" help:"File to upload"`
	Label string `name:"label" short:"l" help:"Container label (defaults to a name derived from the filename)"`
}

type ResumeCommand struct {
	Path  string `arg:"" name:"path" type:"existingfile" help:"File to continue uploading"`
	Label string `name:"label" short:"l" help:"Container label used for the upload"`
}

type DownloadCommand struct {
	Container string `arg:"" name:"container" help:"Container holding the chunks"`
	Dir       string `name:"dir" short:"d" help:"Output directory, uploads by default"`
}

type DownloadFromPartCommand struct {
	Container string `arg:"" name:"container" help:"Container holding the chunks"`
	Path      string `arg:"" name:"path" help:"Partially downloaded file"`
	Part      uint64 `arg:"" name:"part" help:"First part to fetch"`
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (cmd *UploadCommand) Run(app *Globals) error {
	manager, err := app.Manager()
	if err != nil {
		return err
	}
	return report(manager.Upload(app.Context(), schema.UploadRequest{
		Path:  cmd.Path,
		Label: cmd.Label,
	}))
}

func (cmd *ResumeCommand) Run(app *Globals) error {
	manager, err := app.Manager()
	if err != nil {
		return err
	}
	return report(manager.Resume(app.Context(), schema.ResumeRequest{
		Path:  cmd.Path,
		Label: cmd.Label,
	}))
}

func (cmd *DownloadCommand) Run(app *Globals) error {
	manager, err := app.Manager()
	if err != nil {
		return err
	}
	return report(manager.Download(app.Context(), schema.DownloadRequest{
		Container: cmd.Container,
		Dir:       cmd.Dir,
	}))
}

func (cmd *DownloadFromPartCommand) Run(app *Globals) error {
	manager, err := app.Manager()
	if err != nil {
		return err
	}
	return report(manager.DownloadFromPart(app.Context(), schema.DownloadFromPartRequest{
		Container: cmd.Container,
		Path:      cmd.Path,
		Part:      cmd.Part,
	}))
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// report writes a summary of the transfer and returns any error
func report(t *schema.Transfer, err error) error {
	if t == nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s %s: container %q, %d of %d parts from part %d, %s\n",
		t.Name, t.State, t.Container, t.Count, t.Parts, t.Start, humanize.IBytes(uint64(t.Bytes)))
	if errors.Is(err, schema.ErrIncomplete) {
		return fmt.Errorf("%w (run again to continue)", err)
	}
	return err
}
