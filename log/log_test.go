package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/where"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)

		Convey("Setup does not create a log file", func() {
			So(Setup(), ShouldBeNil)
			So(enabled, ShouldBeFalse)
		})
	})

	Convey("Given logging is enabled", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "debug")
		defer viper.Set(key.LogsWrite, false)

		Convey("Setup writes to today's file", func() {
			So(Setup(), ShouldBeNil)
			For("test").With("lecture", "abc").Info("hello")

			path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
			So(lo.Must(filesystem.API().Exists(path)), ShouldBeTrue)

			contents := lo.Must(filesystem.API().ReadFile(path))
			So(string(contents), ShouldContainSubstring, "hello")
			So(string(contents), ShouldContainSubstring, "component=test")
		})
	})
}
