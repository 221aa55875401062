package worker

import (
	"context"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ingest"
)

// DirImporter is what a pass runs against the data directory.
type DirImporter interface {
	ImportDir(ctx context.Context, dir string) ([]ingest.FileResult, error)
}
