package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/autolabel/internal/adapters/repository"
	"github.com/okian/autolabel/internal/adapters/repository/sqlite"
	"github.com/okian/autolabel/internal/config"
	"github.com/okian/autolabel/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func fakeVisionServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vision/myFlorenceVision/detections":
			_, _ = w.Write([]byte(`{"detections":[
				{"x_min":10,"y_min":10,"x_max":50,"y_max":50,"confidence":0.5,"class_name":"food"},
				{"x_min":0,"y_min":0,"x_max":90,"y_max":90,"confidence":0.9,"class_name":"drink"}
			]}`))
		case "/vision/myChatGPTVision/classifications":
			_, _ = w.Write([]byte(`{"classifications":[{"class_name":"Udon","confidence":1}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestCommands(t *testing.T) {
	convey.Convey("Given a directory of images and a fake vision service", t, func() {
		dir := t.TempDir()
		images := filepath.Join(dir, "images")
		convey.So(os.MkdirAll(filepath.Join(images, "lunch"), 0o755), convey.ShouldBeNil)
		writePNG(t, filepath.Join(images, "bowl.png"), 100, 100)
		writePNG(t, filepath.Join(images, "lunch", "plate.png"), 100, 100)
		convey.So(os.WriteFile(filepath.Join(images, "notes.txt"), []byte("not an image"), 0o600), convey.ShouldBeNil)

		srv := fakeVisionServer()
		defer srv.Close()

		dbPath := filepath.Join(dir, "autolabel.db")
		metricsPath := filepath.Join(dir, "autolabel.prom")
		cfgPath := filepath.Join(dir, "autolabel.yaml")
		convey.So(os.WriteFile(cfgPath, []byte(
			"dataset_id: kitchen\n"+
				"store_backend: sqlite\n"+
				"sqlite_path: "+dbPath+"\n"+
				"vision_url: "+srv.URL+"\n"+
				"on_decode_error: Skip\n"+
				"visit_guard_max: 100\n"+
				"metrics_textfile: "+metricsPath+"\n",
		), 0o600), convey.ShouldBeNil)

		convey.Convey("When the images are imported", func() {
			out, err := execute("import", images, "--config", cfgPath)

			convey.Convey("Then only the image files are stored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "imported 2 images into dataset kitchen")
			})

			convey.Convey("And the labeling job runs", func() {
				out, err := execute("run", "--config", cfgPath)

				convey.Convey("Then every image gets the food box and the tag", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(out, convey.ShouldContainSubstring, "labeled 2 of 2 images")

					store, err := sqlite.New(dbPath)
					convey.So(err, convey.ShouldBeNil)
					defer store.Close()

					var assets []model.Asset
					for a, err := range repository.Assets(context.Background(), store, repository.Filter{DatasetID: "kitchen"}, 10) {
						convey.So(err, convey.ShouldBeNil)
						assets = append(assets, a)
					}
					convey.So(assets, convey.ShouldHaveLength, 2)
					for _, a := range assets {
						convey.So(a.Tags, convey.ShouldResemble, []string{"auto-labeled"})
						convey.So(a.Annotations, convey.ShouldHaveLength, 1)
						convey.So(a.Annotations[0].Label, convey.ShouldEqual, "Udon")
						convey.So(a.Annotations[0].Box.Matches(model.NormalizedBox{XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.5}), convey.ShouldBeTrue)
					}
				})

				convey.Convey("Then the run metrics are written out", func() {
					data, err := os.ReadFile(metricsPath)
					convey.So(err, convey.ShouldBeNil)
					convey.So(string(data), convey.ShouldContainSubstring, "autolabel_pipeline_")
				})

				convey.Convey("And it runs again", func() {
					out, err := execute("run", "--config", cfgPath)

					convey.Convey("Then nothing is left to label", func() {
						convey.So(err, convey.ShouldBeNil)
						convey.So(out, convey.ShouldContainSubstring, "labeled 0 of")
					})
				})
			})
		})

		convey.Convey("When the config misses the dataset", func() {
			bad := filepath.Join(dir, "bad.json")
			convey.So(os.WriteFile(bad, []byte(`{"store_backend":"sqlite","vision_url":"http://x"}`), 0o600), convey.ShouldBeNil)
			_, err := execute("run", "--config", bad)

			convey.Convey("Then the run refuses to start", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an explicit config file is missing", func() {
			_, err := execute("run", "--config", filepath.Join(dir, "missing.json"))

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given the version command", t, func() {
		out, err := execute("version")

		convey.Convey("Then it prints the build version", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "autolabel dev\n")
		})
	})
}
