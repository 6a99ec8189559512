package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/okian/autolabel/internal/adapters/httpclient"
	"github.com/okian/autolabel/internal/adapters/repository"
	"github.com/okian/autolabel/internal/adapters/repository/remote"
	"github.com/okian/autolabel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDataAPI records requests and serves a single page.
type fakeDataAPI struct {
	mu       sync.Mutex
	requests map[string][]map[string]any
	keys     []string
}

func (f *fakeDataAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.requests[r.URL.Path] = append(f.requests[r.URL.Path], body)
	f.keys = append(f.keys, r.Header.Get("key_id")+"/"+r.Header.Get("key"))

	switch r.URL.Path {
	case "/api/data/binary/by-filter":
		if body["last"] == "cursor-1" {
			_, _ = w.Write([]byte(`{"data":[],"count":0,"last":"cursor-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"data":[{
				"binary":"aGVsbG8=",
				"metadata":{
					"id":"file-1",
					"location_id":"loc-1",
					"mime_type":"image/jpeg",
					"capture_metadata":{"tags":["auto-labeled"]},
					"annotations":{"bboxes":[{"id":"b1","label":"Udon","x_min_normalized":0.1,"y_min_normalized":0.2,"x_max_normalized":0.3,"y_max_normalized":0.4}]}
				}
			}],
			"count":1,
			"last":"cursor-1"
		}`))
	case "/api/data/binary/bounding-box":
		_, _ = w.Write([]byte(`{"bbox_id":"bbox-9"}`))
	case "/api/data/binary/tags":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a remote store backed by a fake data API", t, func() {
		api := &fakeDataAPI{requests: map[string][]map[string]any{}}
		srv := httptest.NewServer(api)
		defer srv.Close()

		store, err := remote.New(srv.URL+"/api/", remote.Credentials{APIKey: "secret", APIKeyID: "kid"},
			remote.WithDefaultLocation("org-1", "ignored"))
		So(err, ShouldBeNil)
		defer store.Close()

		Convey("When querying the first page", func() {
			page, err := store.Query(ctx, repository.Filter{DatasetID: "ds-1", ExcludeTags: []string{"auto-labeled"}}, "", 1)

			Convey("Then the asset is decoded with its identity, tags and boxes", func() {
				So(err, ShouldBeNil)
				So(page.Count, ShouldEqual, 1)
				So(page.Last, ShouldEqual, "cursor-1")
				So(len(page.Items), ShouldEqual, 1)

				a := page.Items[0]
				So(a.ID, ShouldResemble, model.BinaryID{OrganizationID: "org-1", LocationID: "loc-1", FileID: "file-1"})
				So(string(a.Binary), ShouldEqual, "hello")
				So(a.DatasetID, ShouldEqual, "ds-1")
				So(a.HasTag("auto-labeled"), ShouldBeTrue)
				So(a.Annotations[0].Label, ShouldEqual, "Udon")
				So(a.Annotations[0].Box.YMax, ShouldEqual, 0.4)
			})

			Convey("Then the request carries the filter, limit and credentials", func() {
				req := api.requests["/api/data/binary/by-filter"][0]
				So(req["limit"], ShouldEqual, 1.0)
				So(req["include_binary_data"], ShouldEqual, true)
				So(req["filter"].(map[string]any)["dataset_id"], ShouldEqual, "ds-1")
				So(api.keys[0], ShouldEqual, "kid/secret")
			})
		})

		Convey("When paging past the end", func() {
			page, err := store.Query(ctx, repository.Filter{DatasetID: "ds-1"}, "cursor-1", 1)

			Convey("Then the page is empty", func() {
				So(err, ShouldBeNil)
				So(page.Items, ShouldBeEmpty)
			})
		})

		Convey("When adding a bounding box", func() {
			id := model.BinaryID{OrganizationID: "org-1", LocationID: "loc-1", FileID: "file-1"}
			boxID, err := store.AddBoundingBox(ctx, id, "Tofu", model.NormalizedBox{XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5})

			Convey("Then the new box id is returned and the body is flat", func() {
				So(err, ShouldBeNil)
				So(boxID, ShouldEqual, "bbox-9")
				req := api.requests["/api/data/binary/bounding-box"][0]
				So(req["label"], ShouldEqual, "Tofu")
				So(req["x_max_normalized"], ShouldEqual, 0.5)
				So(req["binary_id"].(map[string]any)["file_id"], ShouldEqual, "file-1")
			})
		})

		Convey("When adding tags", func() {
			err := store.AddTags(ctx, []model.BinaryID{{FileID: "file-1"}}, []string{"auto-labeled"})

			Convey("Then the call succeeds on an empty answer", func() {
				So(err, ShouldBeNil)
				req := api.requests["/api/data/binary/tags"][0]
				So(req["tags"], ShouldResemble, []any{"auto-labeled"})
			})
		})
	})

	Convey("Given a failing data API", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		store, err := remote.New(srv.URL, remote.Credentials{APIKey: "k", APIKeyID: "i"})
		So(err, ShouldBeNil)

		Convey("Then queries report unavailability", func() {
			_, err := store.Query(ctx, repository.Filter{DatasetID: "ds"}, "", 1)
			So(errors.Is(err, httpclient.ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given missing credentials", t, func() {
		_, err := remote.New("http://localhost", remote.Credentials{APIKey: "k"})

		Convey("Then construction fails", func() {
			So(errors.Is(err, remote.ErrMissingCredentials), ShouldBeTrue)
		})
	})
}
