// Package repository defines the dataset store contract and the paginated
// asset sequence built on top of it.
package repository

import (
	"context"

	"github.com/okian/autolabel/internal/domain/model"
)

// Filter scopes a query over binary data.
type Filter struct {
	DatasetID string
	// ExcludeTags asks the store to leave out assets carrying any of these
	// tags. Stores may ignore it; callers still check tags themselves.
	ExcludeTags []string
}

// Page is one response of a paginated query.
type Page struct {
	Items []model.Asset
	Count int
	// Last is the cursor to pass to the next query.
	Last string
}

// Store provides read/write access to the dataset.
type Store interface {
	// Query returns up to limit assets matching filter, starting after last.
	// An empty Items slice signals the end of the data.
	Query(ctx context.Context, filter Filter, last string, limit int) (Page, error)

	// AddBoundingBox attaches a labeled, normalized box to an asset and
	// returns the id of the new box.
	AddBoundingBox(ctx context.Context, id model.BinaryID, label string, box model.NormalizedBox) (string, error)

	// AddTags appends tags to each of the given assets.
	AddTags(ctx context.Context, ids []model.BinaryID, tags []string) error

	// Close releases the connection.
	Close() error
}
