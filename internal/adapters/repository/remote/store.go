// Package remote implements repository.Store against the dataset service's
// JSON data API.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/autolabel/internal/adapters/httpclient"
	"github.com/okian/autolabel/internal/adapters/repository"
	"github.com/okian/autolabel/internal/domain/model"
)

// API paths, relative to the base URL.
const (
	pathQuery       = "/data/binary/by-filter"
	pathBoundingBox = "/data/binary/bounding-box"
	pathTags        = "/data/binary/tags"
)

// Credentials identify the caller to the data API.
type Credentials struct {
	APIKey   string
	APIKeyID string
}

// Store talks to the data API over HTTP.
type Store struct {
	baseURL string
	client  *httpclient.Client
	// Fallbacks used when a record omits its organization or location.
	organizationID string
	locationID     string
}

// Option applies a configuration option to the Store.
type Option func(*storeOptions)

type storeOptions struct {
	httpClient     *http.Client
	organizationID string
	locationID     string
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *storeOptions) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithDefaultLocation sets the organization and location attached to records
// that do not carry their own.
func WithDefaultLocation(organizationID, locationID string) Option {
	return func(o *storeOptions) {
		o.organizationID = organizationID
		o.locationID = locationID
	}
}

// New connects a Store to baseURL.
func New(baseURL string, creds Credentials, opts ...Option) (*Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: empty base url", httpclient.ErrUnavailable)
	}
	if creds.APIKey == "" || creds.APIKeyID == "" {
		return nil, ErrMissingCredentials
	}

	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: httpclient.New(o.httpClient, map[string]string{
			"key_id": creds.APIKeyID,
			"key":    creds.APIKey,
		}),
		organizationID: o.organizationID,
		locationID:     o.locationID,
	}, nil
}

// Query implements repository.Store.
func (s *Store) Query(ctx context.Context, filter repository.Filter, last string, limit int) (repository.Page, error) {
	req := queryRequest{
		Filter: filterDTO{
			DatasetID:   filter.DatasetID,
			ExcludeTags: filter.ExcludeTags,
		},
		Last:              last,
		Limit:             limit,
		IncludeBinaryData: true,
	}

	var resp queryResponse
	if err := s.client.PostJSON(ctx, s.baseURL+pathQuery, req, &resp); err != nil {
		return repository.Page{}, err
	}

	page := repository.Page{
		Items: make([]model.Asset, 0, len(resp.Data)),
		Count: resp.Count,
		Last:  resp.Last,
	}
	for _, d := range resp.Data {
		page.Items = append(page.Items, s.toAsset(d, filter.DatasetID))
	}
	return page, nil
}

// AddBoundingBox implements repository.Store.
func (s *Store) AddBoundingBox(ctx context.Context, id model.BinaryID, label string, box model.NormalizedBox) (string, error) {
	req := boundingBoxRequest{
		BinaryID:      binaryIDDTO(id),
		Label:         label,
		NormalizedBox: box,
	}

	var resp boundingBoxResponse
	if err := s.client.PostJSON(ctx, s.baseURL+pathBoundingBox, req, &resp); err != nil {
		return "", err
	}
	return resp.BBoxID, nil
}

// AddTags implements repository.Store.
func (s *Store) AddTags(ctx context.Context, ids []model.BinaryID, tags []string) error {
	req := tagsRequest{
		BinaryIDs: make([]binaryIDDTO, len(ids)),
		Tags:      tags,
	}
	for i, id := range ids {
		req.BinaryIDs[i] = binaryIDDTO(id)
	}
	return s.client.PostJSON(ctx, s.baseURL+pathTags, req, nil)
}

// Close implements repository.Store. The HTTP transport keeps no session.
func (s *Store) Close() error {
	return nil
}

func (s *Store) toAsset(d binaryDataDTO, datasetID string) model.Asset {
	md := d.Metadata
	id := model.BinaryID{
		OrganizationID: md.OrganizationID,
		LocationID:     md.LocationID,
		FileID:         md.ID,
	}
	if id.OrganizationID == "" {
		id.OrganizationID = s.organizationID
	}
	if id.LocationID == "" {
		id.LocationID = s.locationID
	}

	asset := model.Asset{
		ID:        id,
		DatasetID: datasetID,
		MimeType:  md.MimeType,
		Binary:    d.Binary,
		Tags:      md.CaptureMetadata.Tags,
	}
	for _, b := range md.Annotations.BBoxes {
		asset.Annotations = append(asset.Annotations, model.Annotation{
			ID:    b.ID,
			Label: b.Label,
			Box:   b.NormalizedBox,
		})
	}
	return asset
}
