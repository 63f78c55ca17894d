package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	// Packages
	kong "github.com/alecthomas/kong"
	humanize "github.com/dustin/go-humanize"
	filesplit "github.com/mutablelogic/go-filesplit"
	aws "github.com/mutablelogic/go-filesplit/pkg/aws"
	backend "github.com/mutablelogic/go-filesplit/pkg/backend"
	schema "github.com/mutablelogic/go-filesplit/pkg/schema"
	transfer "github.com/mutablelogic/go-filesplit/pkg/transfer"
	logrus "github.com/sirupsen/logrus"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	Backend   string `env:"FILESPLIT_BACKEND" default:"file://${DATA}" help:"Transport URL (file://, s3://, mem://)"`
	Region    string `env:"FILESPLIT_REGION" help:"AWS region for s3:// transports"`
	Endpoint  string `env:"FILESPLIT_ENDPOINT" help:"Endpoint of an S3-compatible service"`
	AccessKey string `env:"AWS_ACCESS_KEY_ID" help:"Static access key"`
	SecretKey string `env:"AWS_SECRET_ACCESS_KEY" help:"Static secret key"`
	Anonymous bool   `help:"Use anonymous credentials"`
	ChunkSize string `name:"chunk-size" env:"FILESPLIT_CHUNK_SIZE" default:"8MiB" help:"Chunk size"`
	Debug     bool   `help:"Enable debug output"`

	vars    kong.Vars `kong:"-"` // Variables for kong
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logrus.Logger
	manager *transfer.Manager
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func NewApp(app Globals, vars kong.Vars) *Globals {
	// Set the vars
	app.vars = vars

	// Create the context
	// This context is cancelled when the process receives a SIGINT or SIGTERM
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Create the logger
	app.log = logrus.New()
	app.log.SetOutput(os.Stderr)
	if app.Debug {
		app.log.SetLevel(logrus.DebugLevel)
		app.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		app.log.SetLevel(logrus.InfoLevel)
		app.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	// Return the app
	return &app
}

func (app *Globals) Close() error {
	var result error
	if app.manager != nil {
		result = errors.Join(result, app.manager.Close())
	}
	app.cancel()
	return result
}

///////////////////////////////////////////////////////////////////////////////
// METHODS

func (app *Globals) Context() context.Context {
	return app.ctx
}

// Manager returns the transfer manager, opening the transport on first use
func (app *Globals) Manager() (*transfer.Manager, error) {
	if app.manager != nil {
		return app.manager, nil
	}

	// Parse the chunk size
	chunkSize, err := humanize.ParseBytes(app.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("chunk-size: %w", err)
	} else if chunkSize == 0 {
		return nil, fmt.Errorf("chunk-size: must be positive")
	}

	// Open the transport
	transport, err := app.transport()
	if err != nil {
		return nil, err
	}

	// Create the manager
	manager, err := transfer.New(
		transfer.WithTransport(transport),
		transfer.WithLogger(app.log),
		transfer.WithChunkSize(int64(chunkSize)),
		transfer.WithProgress(app.progress),
	)
	if err != nil {
		return nil, errors.Join(err, transport.Close())
	}
	app.manager = manager

	// Return success
	return manager, nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (app *Globals) transport() (filesplit.Transport, error) {
	u, err := url.Parse(app.Backend)
	if err != nil {
		return nil, err
	}

	var opts []backend.Opt
	switch u.Scheme {
	case "file":
		opts = append(opts, backend.WithCreateDir())
	case "s3":
		awsopts := []filesplit.Opt{
			filesplit.WithRegion(app.Region),
			filesplit.WithS3Endpoint(app.Endpoint),
			filesplit.WithCredentials(app.AccessKey, app.SecretKey),
		}
		if app.Anonymous {
			awsopts = append(awsopts, filesplit.WithAnonymous())
		}
		cfg, err := aws.Config(app.ctx, awsopts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, backend.WithAWSConfig(cfg))
		if app.Endpoint != "" {
			opts = append(opts, backend.WithEndpoint(app.Endpoint))
		}
		if app.Anonymous {
			opts = append(opts, backend.WithAnonymous())
		}
	}

	app.log.WithField("backend", u.Redacted()).Debug("opening transport")
	return backend.NewBlobBackend(app.ctx, app.Backend, opts...)
}

// progress writes each chunk as it is transferred
func (app *Globals) progress(event schema.Event) {
	if event.Name != schema.ChunkEvent {
		return
	}
	fmt.Fprintf(os.Stdout, "%s: part %d of %d (%s)\n", event.Filename, event.Index, event.Total, humanize.IBytes(uint64(event.Bytes)))
}
