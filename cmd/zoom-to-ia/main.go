package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	ohia "github.com/alanbriolat/office-hours-archiver"
	"github.com/alanbriolat/office-hours-archiver/archive"
	"github.com/alanbriolat/office-hours-archiver/internal/command"
	"github.com/alanbriolat/office-hours-archiver/internal/config"
	"github.com/alanbriolat/office-hours-archiver/internal/progress"
	"github.com/alanbriolat/office-hours-archiver/netpath"
)

func main() {
	command.Main(&cli.App{
		Name:      "zoom-to-ia",
		Usage:     "move the latest Zoom cloud recording to the Internet Archive",
		ArgsUsage: "<discussion-url>",
		Flags:     command.Flags(),
		Action:    archiveRecording,
	})
}

func archiveRecording(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one <discussion-url>", 2)
	}
	env, err := command.Load(c)
	if err != nil {
		return err
	}
	defer env.Close()

	zoomCreds, zoomErr := config.ZoomCredentials(env.Environ)
	archiveCreds, archiveErr := config.ArchiveCredentials(env.Environ)
	if err := multierror.Append(zoomErr, archiveErr).ErrorOrNil(); err != nil {
		return err
	}

	oauth, err := netpath.New(env.Config.Zoom.OAuthURL, command.Transport)
	if err != nil {
		return fmt.Errorf("zoom oauth url: %w", err)
	}
	api, err := netpath.New(env.Config.Zoom.APIURL, command.Transport)
	if err != nil {
		return fmt.Errorf("zoom api url: %w", err)
	}
	root, err := archive.Root(env.Config.Archive.Endpoint, command.Transport, archiveCreds)
	if err != nil {
		return err
	}

	pipeline := ohia.RecordingPipeline{
		OAuth:       oauth,
		API:         api,
		Credentials: zoomCreds,
		ArchiveRoot: root.WithProgress(progress.Terminal("uploading")),
		TempDir:     env.Config.Download.TempDir,
		Ledger:      env.Ledger,
		Progress:    progress.Terminal("downloading"),
	}
	_, err = pipeline.Run(c.Context, c.Args().First())
	return err
}
