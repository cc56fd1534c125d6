package hls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRelay(t *testing.T) {
	Convey("Given a relay", t, func() {
		relay := NewRelay("")
		Reset(func() {
			_ = relay.Close(context.Background())
		})

		Convey("When a handler is registered", func() {
			id, err := relay.Register(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("#EXTM3U"))
			}))

			Convey("Then it should get a playlist URL on loopback", func() {
				So(err, ShouldBeNil)
				So(id, ShouldNotBeEmpty)
				So(relay.Routes(), ShouldEqual, 1)
				So(relay.URL(id), ShouldStartWith, "http://127.0.0.1:")
				So(relay.URL(id), ShouldEndWith, "/"+id+"/index.m3u8")
			})

			Convey("Then requests should reach it", func() {
				res, err := http.Get(relay.URL(id))
				So(err, ShouldBeNil)
				defer res.Body.Close()
				So(res.StatusCode, ShouldEqual, http.StatusOK)
			})

			Convey("And then unregistered", func() {
				relay.Unregister(id)

				Convey("Then requests should get 404", func() {
					So(relay.Routes(), ShouldEqual, 0)

					res, err := http.Get(relay.URL(id))
					So(err, ShouldBeNil)
					defer res.Body.Close()
					So(res.StatusCode, ShouldEqual, http.StatusNotFound)
				})
			})
		})

		Convey("When registering on a closed relay", func() {
			So(relay.Close(context.Background()), ShouldBeNil)
			_, err := relay.Register(http.NotFoundHandler())

			Convey("Then it should fail", func() {
				So(err, ShouldEqual, ErrRelayClosed)
			})
		})

		Convey("When nothing was registered yet", func() {
			Convey("Then URL should be empty", func() {
				So(relay.URL("missing"), ShouldBeEmpty)
			})
		})
	})
}

func TestRelayHandler(t *testing.T) {
	Convey("Given the relay router", t, func() {
		handler := NewRelay("").Handler()

		Convey("When health is probed from loopback", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.RemoteAddr = "127.0.0.1:50000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			Convey("Then it should answer no content", func() {
				So(rec.Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("When a remote host calls it", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.RemoteAddr = "203.0.113.7:50000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			Convey("Then it should be forbidden", func() {
				So(rec.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When an unknown route is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/nope/index.m3u8", nil)
			req.RemoteAddr = "[::1]:50000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			Convey("Then it should be not found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "404 page not found")
			})
		})
	})
}
