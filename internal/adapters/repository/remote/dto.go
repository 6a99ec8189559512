package remote

import "github.com/okian/autolabel/internal/domain/model"

// Wire types of the data API. Binary payloads travel base64-encoded, which
// encoding/json does for []byte.

type binaryIDDTO struct {
	OrganizationID string `json:"organization_id"`
	LocationID     string `json:"location_id"`
	FileID         string `json:"file_id"`
}

type filterDTO struct {
	DatasetID   string   `json:"dataset_id"`
	ExcludeTags []string `json:"exclude_tags,omitempty"`
}

type queryRequest struct {
	Filter            filterDTO `json:"filter"`
	Last              string    `json:"last,omitempty"`
	Limit             int       `json:"limit"`
	IncludeBinaryData bool      `json:"include_binary_data"`
}

type bboxDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	model.NormalizedBox
}

type metadataDTO struct {
	ID              string `json:"id"`
	OrganizationID  string `json:"organization_id"`
	LocationID      string `json:"location_id"`
	MimeType        string `json:"mime_type"`
	CaptureMetadata struct {
		Tags []string `json:"tags"`
	} `json:"capture_metadata"`
	Annotations struct {
		BBoxes []bboxDTO `json:"bboxes"`
	} `json:"annotations"`
}

type binaryDataDTO struct {
	Binary   []byte      `json:"binary"`
	Metadata metadataDTO `json:"metadata"`
}

type queryResponse struct {
	Data  []binaryDataDTO `json:"data"`
	Count int             `json:"count"`
	Last  string          `json:"last"`
}

type boundingBoxRequest struct {
	BinaryID binaryIDDTO `json:"binary_id"`
	Label    string      `json:"label"`
	model.NormalizedBox
}

type boundingBoxResponse struct {
	BBoxID string `json:"bbox_id"`
}

type tagsRequest struct {
	BinaryIDs []binaryIDDTO `json:"binary_ids"`
	Tags      []string      `json:"tags"`
}
