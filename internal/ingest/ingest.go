// Package ingest runs the upload pipeline: read a CSV, detect which
// dataset it is, normalize the values, auto-map its columns and merge it
// into the store. The same pipeline serves HTTP uploads and startup
// directory scans.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"datapulse/internal/cleaning"
	"datapulse/internal/dataset"
	"datapulse/internal/schema"
)

// scanWorkers bounds concurrent file loads during a directory scan.
// Normalization is the expensive part; the store merge is serialized.
const scanWorkers = 4

// Report describes what happened to one ingested file.
type Report struct {
	Name       string       `json:"name"`
	Type       dataset.Type `json:"type"`
	Confidence float64      `json:"confidence"`
	Rows       int          `json:"rows"`
	Dropped    int          `json:"dropped"`
	Changes    []string     `json:"changes,omitempty"`
	Duration   string       `json:"duration"`
}

type Pipeline struct {
	store    *dataset.Store
	mappings *schema.MappingStore
	logger   *slog.Logger
}

func NewPipeline(store *dataset.Store, mappings *schema.MappingStore, logger *slog.Logger) *Pipeline {
	return &Pipeline{store: store, mappings: mappings, logger: logger}
}

// Ingest runs the full pipeline on one CSV stream.
func (p *Pipeline) Ingest(r io.Reader, name string) (*Report, error) {
	start := time.Now()

	raw, err := dataset.ReadCSV(r, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	typ, confidence := schema.DetectType(raw.Columns)
	raw.Type = typ

	cleaned, changes := cleaning.Normalize(raw)

	p.mappings.PutAuto(typ, schema.AutoMap(cleaned))
	dropped := p.store.Merge(cleaned, p.dedupColumn(cleaned))

	rep := &Report{
		Name:       name,
		Type:       typ,
		Confidence: confidence,
		Rows:       p.store.Get(typ).Len(),
		Dropped:    dropped,
		Changes:    changes,
		Duration:   time.Since(start).Round(time.Millisecond).String(),
	}

	p.logger.Info("ingested file",
		"name", name,
		"type", typ,
		"confidence", fmt.Sprintf("%.2f", confidence),
		"rows", rep.Rows,
		"dropped", dropped,
	)
	return rep, nil
}

// IngestFile loads a single CSV from disk.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return p.Ingest(f, filepath.Base(path))
}

// LoadDir ingests every CSV under dir. A missing directory is not an
// error; a server can start empty and take uploads. Files load
// concurrently but reports come back in name order.
func (p *Pipeline) LoadDir(ctx context.Context, dir string) ([]*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Warn("data directory not found, starting empty", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var (
		mu      sync.Mutex
		reports []*Report
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)

	for _, path := range paths {
		g.Go(func() error {
			rep, err := p.IngestFile(ctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			reports = append(reports, rep)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports, nil
}

// dedupColumn picks the identity column duplicate rows are collapsed on.
// Without one the merge falls back to whole-row comparison.
func (p *Pipeline) dedupColumn(ds *dataset.Dataset) string {
	field, ok := keyFields[ds.Type]
	if !ok {
		return ""
	}
	mapping := p.mappings.Get(ds.Type)
	col, ok := schema.Resolve(ds, mapping, field)
	if !ok {
		return ""
	}
	return col
}

var keyFields = map[dataset.Type]schema.Field{
	dataset.TypeOrders:    schema.FieldOrderID,
	dataset.TypeCustomers: schema.FieldCustomerID,
	dataset.TypeProducts:  schema.FieldProductID,
	dataset.TypeInventory: schema.FieldProductID,
}
