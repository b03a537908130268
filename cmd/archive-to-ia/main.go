package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	ohia "github.com/alanbriolat/office-hours-archiver"
	"github.com/alanbriolat/office-hours-archiver/archive"
	"github.com/alanbriolat/office-hours-archiver/discussion"
	"github.com/alanbriolat/office-hours-archiver/internal/command"
	"github.com/alanbriolat/office-hours-archiver/internal/config"
	"github.com/alanbriolat/office-hours-archiver/internal/progress"
	"github.com/alanbriolat/office-hours-archiver/netpath"
)

func main() {
	command.Main(&cli.App{
		Name:      "archive-to-ia",
		Usage:     "upload office hours files to the Internet Archive, described by their GitHub discussion",
		ArgsUsage: "<discussion-url> [file...]",
		Flags: append(command.Flags(),
			&cli.StringFlag{
				Name:  "extractor",
				Value: "marker",
				Usage: "discussion page parser, `marker` or html",
			},
		),
		Action: archiveFiles,
		Commands: []*cli.Command{
			{
				Name:      "history",
				Usage:     "list recorded uploads",
				ArgsUsage: "[identifier]",
				Action:    history,
			},
			{
				Name:  "sample-config",
				Usage: "print an example config file",
				Action: func(c *cli.Context) error {
					_, err := io.WriteString(c.App.Writer, config.SampleConfig())
					return err
				},
			},
		},
	})
}

func archiveFiles(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("missing <discussion-url>", 2)
	}
	env, err := command.Load(c)
	if err != nil {
		return err
	}
	defer env.Close()

	extractor, err := discussion.New(c.String("extractor"))
	if err != nil {
		return err
	}
	page, err := netpath.New(c.Args().First(), command.Transport)
	if err != nil {
		return fmt.Errorf("discussion url: %w", err)
	}
	var files []netpath.File
	for _, path := range c.Args().Tail() {
		f, err := netpath.LocalFile(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	pipeline := ohia.DiscussionPipeline{
		Extractor: extractor,
		Report:    c.App.Writer,
		ArchiveRoot: func() (netpath.NetPath, error) {
			creds, err := config.ArchiveCredentials(env.Environ)
			if err != nil {
				return netpath.NetPath{}, err
			}
			root, err := archive.Root(env.Config.Archive.Endpoint, command.Transport, creds)
			if err != nil {
				return netpath.NetPath{}, err
			}
			return root.WithProgress(progress.Terminal("uploading")), nil
		},
		Ledger:        env.Ledger,
		DiscussionURL: c.Args().First(),
	}
	_, err = pipeline.Run(c.Context, page, files)
	return err
}

func history(c *cli.Context) error {
	env, err := command.Load(c)
	if err != nil {
		return err
	}
	defer env.Close()
	if _, ok := env.Ledger.(ohia.NilLedger); ok {
		zap.S().Warn("No ledger configured, use --ledger or [ledger] path")
	}

	records, err := env.Ledger.ListUploads(c.Args().First())
	if err != nil {
		return err
	}
	_, err = io.WriteString(c.App.Writer, renderHistory(records)+"\n")
	return err
}

func renderHistory(records []ohia.UploadRecord) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Identifier", "File", "Status", "Uploaded", "Run"})
	for _, r := range records {
		tw.AppendRow(table.Row{r.Identifier, r.File, r.Status, r.UploadedAt.Local().Format(time.DateTime), r.RunID})
	}
	return tw.Render()
}
