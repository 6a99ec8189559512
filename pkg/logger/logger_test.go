package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	namedLogger.Info(context.Background(), "test message")
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info level", func() {
			Get().Named("pipeline").Info(ctx, "asset labeled", String("file_id", "f-1"), Int("boxes", 2))

			Convey("Then the record carries the fields, the name and the caller", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "asset labeled")
				So(out, ShouldContainSubstring, "file_id=f-1")
				So(out, ShouldContainSubstring, "boxes=2")
				So(out, ShouldContainSubstring, "logger=pipeline")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When fields are attached with With", func() {
			Get().With(String("run_id", "abc")).Warn(ctx, "skipped", Error(errors.New("boom")))

			Convey("Then they appear on the record", func() {
				So(buf.String(), ShouldContainSubstring, "run_id=abc")
				So(buf.String(), ShouldContainSubstring, "error=boom")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Debug(ctx, "hidden too")

			Convey("Then lower records are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
			})
		})

		Convey("When the level string is unknown", func() {
			err := SetLevelString("chatty")

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Reset(func() {
			_ = SetLevelString("info")
		})
	})
}

func TestInitWithNilWriter(t *testing.T) {
	Convey("Given a nil writer", t, func() {
		Convey("Then initialization fails", func() {
			So(InitWithWriter(nil), ShouldNotBeNil)
		})
	})
}
