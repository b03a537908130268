package office_hours_archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanbriolat/office-hours-archiver/archive"
	"github.com/alanbriolat/office-hours-archiver/discussion"
	"github.com/alanbriolat/office-hours-archiver/download"
	"github.com/alanbriolat/office-hours-archiver/metadata"
	"github.com/alanbriolat/office-hours-archiver/netpath"
	"github.com/alanbriolat/office-hours-archiver/zoom"
)

var ErrNoArchive = errors.New("no archive configured")

// Plan is everything the manual pipeline derives from a discussion page before touching the archive.
type Plan struct {
	DiscussionURL string
	Title         string
	Date          string
	Identifier    string
	Metadata      metadata.Record
}

// DiscussionPipeline tags local files with metadata scraped from a discussion page and uploads them.
type DiscussionPipeline struct {
	// Defaults to discussion.MarkerExtractor.
	Extractor discussion.Extractor
	// Where the dry-run report goes. Defaults to os.Stdout.
	Report io.Writer
	// Only called when there are files to upload, so a dry run needs no credentials.
	ArchiveRoot func() (netpath.NetPath, error)
	Ledger      Ledger
	// The discussion address as the user gave it, used in the description and the ledger. Defaults to the
	// normalized address of the page handle.
	DiscussionURL string
}

// Run reads and parses page. Without files it writes the metadata report and stops; otherwise every file is
// uploaded into the item named by the discussion date.
func (p *DiscussionPipeline) Run(ctx context.Context, page netpath.NetPath, files []netpath.File) (Plan, error) {
	runID := uuid.NewString()
	log := logger().With("run", runID)

	plan := Plan{DiscussionURL: p.DiscussionURL}
	if plan.DiscussionURL == "" {
		plan.DiscussionURL = page.URL()
	}
	log.Infof("🧭 Discussion: %s", plan.DiscussionURL)
	text, err := page.ReadText(ctx)
	if err != nil {
		return plan, fmt.Errorf("read discussion: %w", err)
	}
	extractor := p.Extractor
	if extractor == nil {
		extractor = discussion.MarkerExtractor{}
	}
	if plan.Title, plan.Date, err = extractor.Extract(text); err != nil {
		return plan, err
	}
	log.Infof("📝 Title: %s", plan.Title)
	log.Infof("📅 Date: %s", plan.Date)

	plan.Identifier = archive.Identifier(plan.Date)
	log.Infof("🆔 IA identifier: %s", plan.Identifier)
	plan.Metadata = metadata.Build(plan.Title, plan.Date, plan.DiscussionURL)

	if len(files) == 0 {
		log.Info("🧪 Dry run (no files provided)")
		report := p.Report
		if report == nil {
			report = os.Stdout
		}
		if _, err := io.WriteString(report, "\nInternet Archive metadata:\n\n"); err != nil {
			return plan, err
		}
		_, err := plan.Metadata.WriteTo(report)
		return plan, err
	}

	for _, f := range files {
		log.Infof("📎 Will upload: %s", f.Name())
	}
	if p.ArchiveRoot == nil {
		return plan, ErrNoArchive
	}
	root, err := p.ArchiveRoot()
	if err != nil {
		return plan, err
	}
	u := uploader{log: log, runID: runID, ledger: p.Ledger, source: plan.DiscussionURL}
	_, err = u.upload(ctx, root, plan.Identifier, files, plan.Metadata)
	return plan, err
}

// RecordingPipeline moves the latest Zoom cloud recording into the archive.
type RecordingPipeline struct {
	// Zoom OAuth token endpoint.
	OAuth netpath.NetPath
	// Zoom API root.
	API         netpath.NetPath
	Credentials zoom.Credentials
	ArchiveRoot netpath.NetPath
	// Base directory for the transient download. Empty means the OS temp dir.
	TempDir string
	Ledger  Ledger
	// Reports progress of the recording download.
	Progress netpath.ProgressFunc
}

// Run archives the latest recording, describing it with a link to discussionURL. The discussion page itself is not
// fetched.
func (p *RecordingPipeline) Run(ctx context.Context, discussionURL string) (outcomes []archive.Outcome, err error) {
	runID := uuid.NewString()
	log := logger().With("run", runID)
	log.Infof("🧭 Discussion URL: %s", discussionURL)

	token, err := zoom.AccessToken(ctx, p.OAuth, p.Credentials)
	if err != nil {
		return nil, err
	}
	rec, err := zoom.LatestRecording(ctx, zoom.Bearer(p.API, token))
	if err != nil {
		return nil, err
	}
	log.Infof("📝 Recording topic: %s", rec.Topic)

	// The download URL is issued by Zoom and may point at another host, so only the bearer token goes with it.
	source, err := p.API.At(rec.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("recording download url: %w", err)
	}
	source = zoom.Bearer(source, token).WithProgress(p.Progress)

	err = download.WithDownloadState(func(state *download.DownloadState) error {
		file, err := fetch(ctx, log, source, state, rec.Filename())
		if err != nil {
			return err
		}
		identifier := archive.Identifier(rec.Date())
		log.Infof("📦 Uploading to Internet Archive: %s", identifier)
		u := uploader{log: log, runID: runID, ledger: p.Ledger, source: discussionURL}
		meta := metadata.Build(rec.Topic, rec.Date(), discussionURL)
		outcomes, err = u.upload(ctx, p.ArchiveRoot, identifier, []netpath.File{file}, meta)
		return err
	}, download.WithTempDir(p.TempDir))
	if err != nil {
		return nil, err
	}
	log.Info("🎉 All done")
	return outcomes, nil
}

func fetch(ctx context.Context, log *zap.SugaredLogger, source netpath.NetPath, state *download.DownloadState, name string) (netpath.File, error) {
	log.Info("⬇️  Downloading recording")
	f, err := state.Create(name)
	if err != nil {
		return nil, err
	}
	n, err := source.Download(ctx, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("download recording: %w", err)
	}
	log.Debugf("Downloaded %d bytes to %s", n, state.Path(name))
	return netpath.LocalFile(state.Path(name))
}

type uploader struct {
	log    *zap.SugaredLogger
	runID  string
	ledger Ledger
	source string
}

// upload runs a batch through archive.UploadAll, bracketed by the ledger: existing uploads for the identifier are
// reported before the batch, and each outcome is recorded after it succeeds.
func (u uploader) upload(ctx context.Context, root netpath.NetPath, identifier string, files []netpath.File, meta metadata.Record) ([]archive.Outcome, error) {
	ledger := u.ledger
	if ledger == nil {
		ledger = NilLedger{}
	}
	previous, err := ledger.ListUploads(identifier)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(previous) > 0 {
		// Items are keyed by date alone; a second run for the same date lands in the same item.
		u.log.Warnf("⚠️  %s already has %d recorded upload(s), files with the same name will be replaced", identifier, len(previous))
	}

	outcomes, err := archive.UploadAll(ctx, root, identifier, files, meta)
	if err != nil {
		return nil, err
	}

	uploadedAt := time.Now().UTC()
	for _, o := range outcomes {
		record := &UploadRecord{
			RunID:      u.runID,
			Identifier: identifier,
			File:       o.File,
			Status:     o.Status,
			Source:     u.source,
			UploadedAt: uploadedAt,
		}
		if err := ledger.RecordUpload(record); err != nil {
			u.log.Errorf("Failed to record upload of %s: %v", record.Key(), err)
		}
	}
	return outcomes, nil
}

func logger() *zap.SugaredLogger {
	return zap.S().Named("pipeline")
}
