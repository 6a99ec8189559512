// Package remote calls named detector and classifier services exposed by
// the machine's vision API over HTTP.
package remote

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/autolabel/internal/adapters/httpclient"
	"github.com/okian/autolabel/internal/adapters/imaging"
	"github.com/okian/autolabel/internal/domain/model"
)

const mimeJPEG = "image/jpeg"

// Service is one named vision service. It implements both vision.Detector
// and vision.Classifier; which one a deployment exposes depends on the
// model behind the name.
type Service struct {
	endpoint string
	client   *httpclient.Client
}

// Option applies a configuration option to the Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	httpClient *http.Client
	headers    map[string]string
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *serviceOptions) {
		if hc != nil {
			o.httpClient = hc
		}
	}
}

// WithAPIKey authenticates calls with the same key pair as the data API.
func WithAPIKey(keyID, key string) Option {
	return func(o *serviceOptions) {
		o.headers["key_id"] = keyID
		o.headers["key"] = key
	}
}

// New binds the service called name at baseURL.
func New(baseURL, name string, opts ...Option) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: empty vision url", httpclient.ErrUnavailable)
	}
	if name == "" {
		return nil, ErrMissingName
	}

	o := serviceOptions{headers: map[string]string{}}
	for _, opt := range opts {
		opt(&o)
	}

	return &Service{
		endpoint: strings.TrimRight(baseURL, "/") + "/vision/" + url.PathEscape(name),
		client:   httpclient.New(o.httpClient, o.headers),
	}, nil
}

type imagePayload struct {
	Image    []byte `json:"image"`
	MimeType string `json:"mime_type"`
}

type detectionsRequest struct {
	imagePayload
}

type detectionDTO struct {
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	Confidence float64 `json:"confidence"`
	ClassName  string  `json:"class_name"`
}

type detectionsResponse struct {
	Detections []detectionDTO `json:"detections"`
}

type classificationsRequest struct {
	imagePayload
	N     int               `json:"n"`
	Extra map[string]string `json:"extra,omitempty"`
}

type classificationsResponse struct {
	Classifications []model.Classification `json:"classifications"`
}

func encode(img image.Image) (imagePayload, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return imagePayload{}, err
	}
	return imagePayload{Image: data, MimeType: mimeJPEG}, nil
}

// Detections implements vision.Detector.
func (s *Service) Detections(ctx context.Context, img image.Image) ([]model.Detection, error) {
	payload, err := encode(img)
	if err != nil {
		return nil, err
	}

	var resp detectionsResponse
	if err := s.client.PostJSON(ctx, s.endpoint+"/detections", detectionsRequest{payload}, &resp); err != nil {
		return nil, err
	}

	dets := make([]model.Detection, 0, len(resp.Detections))
	for _, d := range resp.Detections {
		dets = append(dets, model.Detection{
			Box:        model.Box{XMin: d.XMin, YMin: d.YMin, XMax: d.XMax, YMax: d.YMax},
			Confidence: d.Confidence,
			ClassName:  d.ClassName,
		})
	}
	return dets, nil
}

// Classifications implements vision.Classifier. The prompt travels as the
// "question" extra, which prompt-driven classifiers read.
func (s *Service) Classifications(ctx context.Context, img image.Image, prompt string, n int) ([]model.Classification, error) {
	payload, err := encode(img)
	if err != nil {
		return nil, err
	}

	req := classificationsRequest{imagePayload: payload, N: n}
	if prompt != "" {
		req.Extra = map[string]string{"question": prompt}
	}

	var resp classificationsResponse
	if err := s.client.PostJSON(ctx, s.endpoint+"/classifications", req, &resp); err != nil {
		return nil, err
	}
	if n > 0 && len(resp.Classifications) > n {
		resp.Classifications = resp.Classifications[:n]
	}
	return resp.Classifications, nil
}
