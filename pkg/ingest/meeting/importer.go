package meeting

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/contentid"
	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/store"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// SkippedFile is a file the importer did not insert.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one Import call.
type ImportResult struct {
	Files     int                   `json:"files"`
	Imported  int                   `json:"imported"`
	Skipped   []SkippedFile         `json:"skipped,omitempty"`
	Documents []transcript.Document `json:"-"`
}

// Importer loads transcript files into a store collection.
type Importer struct {
	store      store.DocumentStore
	collection string
	normalizer *transcript.DocumentNormalizer
	logger     logging.Logger
	now        func() time.Time
	dryRun     bool
	strict     bool
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithDryRun parses files without inserting them.
func WithDryRun(dryRun bool) ImporterOption {
	return func(im *Importer) { im.dryRun = dryRun }
}

// WithStrictParse skips VTT/TXT files whose transcript yields no utterances.
func WithStrictParse(strict bool) ImporterOption {
	return func(im *Importer) { im.strict = strict }
}

// WithImportParser sets the parser used for strict checks.
func WithImportParser(p *transcript.Parser) ImporterOption {
	return func(im *Importer) { im.normalizer = transcript.NewDocumentNormalizer(p) }
}

// WithImportLogger sets the logger.
func WithImportLogger(l logging.Logger) ImporterOption {
	return func(im *Importer) { im.logger = l }
}

// WithImportClock overrides the imported_at timestamp source.
func WithImportClock(now func() time.Time) ImporterOption {
	return func(im *Importer) { im.now = now }
}

// NewImporter creates an Importer writing to collection.
func NewImporter(st store.DocumentStore, collection string, opts ...ImporterOption) (*Importer, error) {
	if st == nil {
		return nil, fmt.Errorf("importer: store: %w", mtaerrors.ErrNotConfigured)
	}
	if collection == "" {
		return nil, fmt.Errorf("importer: collection: %w", mtaerrors.ErrValidation)
	}
	im := &Importer{store: st, collection: collection, now: time.Now}
	for _, o := range opts {
		o(im)
	}
	if im.normalizer == nil {
		im.normalizer = transcript.NewDocumentNormalizer(transcript.NewParser())
	}
	if im.logger == nil {
		im.logger = logging.Global()
	}
	im.logger = im.logger.With(logging.F("component", "importer"))
	return im, nil
}

// Import scans path and inserts every transcript it finds in one batch.
func (im *Importer) Import(ctx context.Context, path string) (*ImportResult, error) {
	sources, err := Scan(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	result := &ImportResult{Files: len(sources)}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		docs, reason, err := im.load(src)
		if err != nil {
			im.logger.Warn("Skipping file", logging.F("path", src.Path), logging.Err(err))
			result.Skipped = append(result.Skipped, SkippedFile{Path: src.Path, Reason: err.Error()})
			continue
		}
		if reason != "" {
			im.logger.Info("Skipping unparseable transcript", logging.F("path", src.Path), logging.F("reason", reason))
			result.Skipped = append(result.Skipped, SkippedFile{Path: src.Path, Reason: reason})
			continue
		}
		if !src.DateFromName && src.Format != FormatJSON {
			im.logger.Debug("No date in file name, using modification time", logging.F("path", src.Path))
		}
		result.Documents = append(result.Documents, docs...)
	}

	if im.dryRun || len(result.Documents) == 0 {
		return result, nil
	}
	n, err := im.store.Insert(ctx, im.collection, result.Documents)
	if err != nil {
		return result, fmt.Errorf("inserting into %s: %w", im.collection, err)
	}
	result.Imported = n
	im.logger.Info("Imported transcripts",
		logging.F("collection", im.collection),
		logging.F("imported", n),
		logging.F("skipped", len(result.Skipped)))
	return result, nil
}

// load parses one file. A non-empty reason means the file parsed but was
// rejected by the strict check.
func (im *Importer) load(src Source) ([]transcript.Document, string, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var tr *Transcript
	switch src.Format {
	case FormatJSON:
		docs, err := LoadJSONDocuments(f)
		return docs, "", err
	case FormatVTT:
		tr, err = ParseVTT(f)
	case FormatTXT:
		tr, err = ParseTXTTranscript(f)
	default:
		return nil, "", fmt.Errorf("unsupported format %q: %w", src.Format, mtaerrors.ErrValidation)
	}
	if err != nil {
		return nil, "", err
	}

	doc := NewDocument(contentid.New(contentid.TypeMeeting), src, tr, im.now())
	if im.strict {
		d := transcript.Diagnose(im.normalizer.Normalize(doc), im.normalizer.Parser())
		if !d.OK {
			return nil, string(d.Reason), nil
		}
	}
	return []transcript.Document{doc}, "", nil
}
