package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	// Packages
	units "github.com/docker/go-units"
	httpclient "github.com/mutablelogic/go-upload/pkg/httpclient"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type UploadCommands struct {
	Upload UploadCommand `cmd:"" name:"upload" help:"Upload files and wait for processing." group:"CLIENT"`
	Status StatusCommand `cmd:"" name:"status" help:"Return the processing status of an upload." group:"CLIENT"`
	Delete DeleteCommand `cmd:"" name:"delete" help:"Abandon an upload." group:"CLIENT"`
}

type UploadCommand struct {
	Files     []string      `arg:"" type:"existingfile" help:"Files to upload"`
	Path      string        `default:"/files" help:"Path of the upload protocol endpoint"`
	ChunkSize string        `name:"chunk-size" default:"5MiB" help:"Bytes sent in each request"`
	Parallel  int           `default:"4" help:"Files uploaded at once"`
	Filetype  string        `help:"Declared file type, instead of the one derived from the extension" optional:""`
	Settle    time.Duration `default:"1s" help:"Delay before checking the processing status"`
	Checks    int           `default:"1" help:"Status checks made while the outcome is unknown"`
	Interval  time.Duration `default:"2s" help:"Delay between status checks"`
	Resume    string        `default:"${CACHE}/uploader/resume.json" help:"File which remembers interrupted uploads"`
}

// printer writes one line per state change
type printer struct {
	sync.Mutex
	last map[string]httpclient.State
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *UploadCommand) Run(app *Globals) error {
	chunkSize, err := units.RAMInBytes(cmd.ChunkSize)
	if err != nil {
		return fmt.Errorf("chunk-size: %w", err)
	}
	resume, err := httpclient.NewFileResumeStore(cmd.Resume)
	if err != nil {
		return err
	}

	// Create the client
	p := &printer{last: make(map[string]httpclient.State)}
	opts := []httpclient.Opt{
		httpclient.WithPath(cmd.Path),
		httpclient.WithChunkSize(chunkSize),
		httpclient.WithParallel(cmd.Parallel),
		httpclient.WithPolling(cmd.Settle, cmd.Checks, cmd.Interval),
		httpclient.WithResumeStore(resume),
		httpclient.WithProgress(p.progress),
	}
	if cmd.Filetype != "" {
		opts = append(opts, httpclient.WithFiletype(cmd.Filetype))
	}
	client, err := app.Client(opts...)
	if err != nil {
		return err
	}

	// Upload
	results, err := client.UploadFiles(app.ctx, cmd.Files...)
	if err := resume.Err(); err != nil {
		app.logger.Warn("resume state not saved", slog.Any("error", err))
	}
	if err != nil {
		return err
	}

	// Report the outcomes
	var failed int
	for _, result := range results {
		fmt.Printf("%s: %s (%s)\n", result.Name, result.Message(), result.Id)
		if result.State != httpclient.Succeeded {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads not processed", failed, len(results))
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (p *printer) progress(progress httpclient.Progress) {
	p.Lock()
	defer p.Unlock()
	name := filepath.Base(progress.Name)
	switch progress.State {
	case httpclient.Transferring:
		fmt.Printf("%s: %3.0f%% (%s of %s)\n", name, progress.Fraction()*100, units.HumanSize(float64(progress.BytesSent)), units.HumanSize(float64(progress.Length)))
	case httpclient.Idle:
		return
	default:
		if p.last[progress.Name] != progress.State {
			fmt.Printf("%s: %s\n", name, progress.State)
		}
	}
	p.last[progress.Name] = progress.State
}
