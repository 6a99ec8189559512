package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"github.com/okian/autolabel/internal/adapters/repository"
	"github.com/okian/autolabel/internal/domain/model"
)

var errStoreDown = errors.New("store down")

type boxWrite struct {
	FileID string
	Label  string
	Box    model.NormalizedBox
}

// memStore serves assets one page at a time and applies mutations in place.
// It ignores Filter.ExcludeTags like a store without server-side filtering.
type memStore struct {
	assets  []model.Asset
	queries int
	boxes   []boxWrite
	tagged  []string

	failTags  int // AddTags calls left to fail
	failBoxes int // AddBoundingBox calls left to fail
	repeat    bool
}

func (m *memStore) Query(_ context.Context, _ repository.Filter, last string, limit int) (repository.Page, error) {
	m.queries++
	start := 0
	if last != "" {
		n, err := strconv.Atoi(last)
		if err != nil {
			return repository.Page{}, err
		}
		start = n
	}
	if m.repeat {
		start = 0
	}
	if start >= len(m.assets) {
		return repository.Page{Last: last}, nil
	}
	end := min(start+limit, len(m.assets))
	page := repository.Page{Count: end - start, Last: strconv.Itoa(end)}
	for _, a := range m.assets[start:end] {
		a.Tags = append([]string(nil), a.Tags...)
		a.Annotations = append([]model.Annotation(nil), a.Annotations...)
		page.Items = append(page.Items, a)
	}
	return page, nil
}

func (m *memStore) find(id model.BinaryID) *model.Asset {
	for i := range m.assets {
		if m.assets[i].ID == id {
			return &m.assets[i]
		}
	}
	return nil
}

func (m *memStore) AddBoundingBox(_ context.Context, id model.BinaryID, label string, box model.NormalizedBox) (string, error) {
	if m.failBoxes > 0 {
		m.failBoxes--
		return "", errStoreDown
	}
	m.boxes = append(m.boxes, boxWrite{FileID: id.FileID, Label: label, Box: box})
	boxID := "box-" + strconv.Itoa(len(m.boxes))
	if a := m.find(id); a != nil {
		a.Annotations = append(a.Annotations, model.Annotation{ID: boxID, Label: label, Box: box})
	}
	return boxID, nil
}

func (m *memStore) AddTags(_ context.Context, ids []model.BinaryID, tags []string) error {
	if m.failTags > 0 {
		m.failTags--
		return errStoreDown
	}
	for _, id := range ids {
		m.tagged = append(m.tagged, id.FileID)
		if a := m.find(id); a != nil {
			a.Tags = append(a.Tags, tags...)
		}
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) mutations() int {
	return len(m.boxes) + len(m.tagged)
}

// fakeDetector returns canned detections per image width.
type fakeDetector struct {
	dets  []model.Detection
	err   error
	calls int
}

func (f *fakeDetector) Detections(context.Context, image.Image) ([]model.Detection, error) {
	f.calls++
	return f.dets, f.err
}

// fakeClassifier returns labels in turn and records the crop sizes it saw.
type fakeClassifier struct {
	labels  []string
	err     error
	calls   int
	crops   []image.Rectangle
	prompts []string
}

func (f *fakeClassifier) Classifications(_ context.Context, img image.Image, prompt string, n int) ([]model.Classification, error) {
	f.calls++
	f.crops = append(f.crops, img.Bounds())
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.labels) == 0 {
		return nil, nil
	}
	label := f.labels[(f.calls-1)%len(f.labels)]
	out := []model.Classification{{ClassName: label, Confidence: 1}}
	return out[:min(n, len(out))], nil
}

func pngBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func newAsset(fileID string, data []byte, tags ...string) model.Asset {
	return model.Asset{
		ID:        model.BinaryID{OrganizationID: "org", LocationID: "loc", FileID: fileID},
		DatasetID: "ds",
		MimeType:  "image/png",
		Binary:    data,
		Tags:      tags,
	}
}
