// Package model contains domain models passed between layers.
package model

import "slices"

// BinaryID is the composite identity of an asset in the dataset store.
type BinaryID struct {
	OrganizationID string `json:"organization_id"`
	LocationID     string `json:"location_id"`
	FileID         string `json:"file_id"`
}

// Key returns a stable string form of the id, usable as a map key.
func (id BinaryID) Key() string {
	return id.OrganizationID + "/" + id.LocationID + "/" + id.FileID
}

// Valid reports whether the file id is set.
func (id BinaryID) Valid() bool {
	return id.FileID != ""
}

// Annotation is a labeled bounding box already attached to an asset.
type Annotation struct {
	ID    string
	Label string
	Box   NormalizedBox
}

// Asset is an image record fetched from the dataset store.
type Asset struct {
	ID          BinaryID
	DatasetID   string
	MimeType    string
	Binary      []byte
	Tags        []string
	Annotations []Annotation
}

// HasTag reports whether the asset carries tag.
func (a *Asset) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}

// HasAnnotation reports whether an annotation with the same label and
// normalized coordinates is already attached.
func (a *Asset) HasAnnotation(label string, box NormalizedBox) bool {
	for _, ann := range a.Annotations {
		if ann.Label == label && ann.Box.Matches(box) {
			return true
		}
	}
	return false
}
