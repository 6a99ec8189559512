package httpclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/autolabel/internal/adapters/httpclient"
	"github.com/smartystreets/goconvey/convey"
)

type echo struct {
	Name string `json:"name"`
}

func TestPostJSON(t *testing.T) {
	convey.Convey("Given a JSON server", t, func() {
		var gotHeader, gotContentType string
		status := http.StatusOK
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Get("key_id")
			gotContentType = r.Header.Get("Content-Type")
			var in echo
			_ = json.NewDecoder(r.Body).Decode(&in)
			w.WriteHeader(status)
			if status == http.StatusOK {
				_ = json.NewEncoder(w).Encode(echo{Name: strings.ToUpper(in.Name)})
				return
			}
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))
		defer srv.Close()

		c := httpclient.New(nil, map[string]string{"key_id": "abc", "key": ""})
		ctx := context.Background()

		convey.Convey("When the call succeeds", func() {
			var out echo
			err := c.PostJSON(ctx, srv.URL, echo{Name: "udon"}, &out)

			convey.Convey("Then the answer is decoded and headers are sent", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Name, convey.ShouldEqual, "UDON")
				convey.So(gotHeader, convey.ShouldEqual, "abc")
				convey.So(gotContentType, convey.ShouldEqual, "application/json")
			})
		})

		convey.Convey("When the server answers 503", func() {
			status = http.StatusServiceUnavailable
			err := c.PostJSON(ctx, srv.URL, echo{}, nil)

			convey.Convey("Then the error is an unavailability", func() {
				var se *httpclient.StatusError
				convey.So(errors.As(err, &se), convey.ShouldBeTrue)
				convey.So(se.StatusCode, convey.ShouldEqual, 503)
				convey.So(errors.Is(err, httpclient.ErrUnavailable), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the server answers 400", func() {
			status = http.StatusBadRequest
			err := c.PostJSON(ctx, srv.URL, echo{}, nil)

			convey.Convey("Then the error is a bad response carrying the body", func() {
				convey.So(errors.Is(err, httpclient.ErrBadResponse), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "nope")
			})
		})

		convey.Convey("When the server is gone", func() {
			srv.Close()
			err := c.PostJSON(ctx, srv.URL, echo{}, nil)

			convey.Convey("Then the error is an unavailability", func() {
				convey.So(errors.Is(err, httpclient.ErrUnavailable), convey.ShouldBeTrue)
			})
		})
	})
}
