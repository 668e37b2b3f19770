package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

type catalogReader interface {
	Catalog(ctx context.Context, name string) ([]backend.Record, error)
}

// CatalogInput names the catalogs to resolve.
type CatalogInput struct {
	Names []string
}

// CatalogOptions maps a catalog name to its option labels.
type CatalogOptions map[string][]string

// CatalogQuery loads generales catalogs used as select options.
type CatalogQuery struct {
	reader catalogReader
}

// NewCatalogQuery builds the query.
func NewCatalogQuery(reader catalogReader) *CatalogQuery {
	return &CatalogQuery{reader: reader}
}

var _ gocommand.Querier[CatalogInput, CatalogOptions] = (*CatalogQuery)(nil)

// Query resolves every named catalog. The first failure aborts.
func (q *CatalogQuery) Query(ctx context.Context, in CatalogInput) (CatalogOptions, error) {
	out := make(CatalogOptions, len(in.Names))
	for _, name := range in.Names {
		if _, done := out[name]; done {
			continue
		}
		rows, err := q.reader.Catalog(ctx, name)
		if err != nil {
			return nil, err
		}
		options := make([]string, 0, len(rows))
		for _, row := range rows {
			label := row.String("nombre")
			if label == "" {
				label = row.ID()
			}
			options = append(options, label)
		}
		out[name] = options
	}
	return out, nil
}
