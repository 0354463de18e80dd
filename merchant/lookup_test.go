package merchant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleLookup = `"1","X","Acme"
"2","Y","Globex"
broken line
"3","Z", Initech ,extra
`

func TestLoad(t *testing.T) {
	Convey("Given lookup lines", t, func() {
		l, err := Load(strings.NewReader(sampleLookup))
		So(err, ShouldBeNil)

		Convey("It should map column 0 to column 2", func() {
			So(l.Len(), ShouldEqual, 3)

			name, ok := l.Resolve("1")
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "Acme")

			name, ok = l.Resolve("3")
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "Initech")
		})

		Convey("It should skip and count malformed lines", func() {
			So(l.Skipped, ShouldEqual, 1)
		})

		Convey("It should report a miss without error", func() {
			_, ok := l.Resolve("404")
			So(ok, ShouldBeFalse)
		})

		Convey("It should keep the last entry on duplicate IDs", func() {
			l, err := Load(strings.NewReader("1,a,First\n1,b,Second\n"))
			So(err, ShouldBeNil)
			name, _ := l.Resolve("1")
			So(name, ShouldEqual, "Second")
		})
	})

	Convey("Given an empty source", t, func() {
		l, err := Load(strings.NewReader(""))

		Convey("It should load an empty lookup", func() {
			So(err, ShouldBeNil)
			So(l.Len(), ShouldEqual, 0)
		})
	})
}

func TestLoadFiles(t *testing.T) {
	Convey("Given a directory with lookup files", t, func() {
		dir := t.TempDir()
		So(os.MkdirAll(filepath.Join(dir, "nested"), 0755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "a.csv"), []byte("1,X,Acme\n"), 0644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "nested", "b.csv"), []byte("2,Y,Globex\n"), 0644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "_SUCCESS"), nil, 0644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, ".a.csv.crc"), []byte("checksum\n"), 0644), ShouldBeNil)

		Convey("It should read every file recursively", func() {
			l, err := LoadFiles(dir)
			So(err, ShouldBeNil)
			So(l.Len(), ShouldEqual, 2)
		})

		Convey("It should ignore markers and hidden files", func() {
			l, err := LoadFiles(dir)
			So(err, ShouldBeNil)
			So(l.Skipped, ShouldEqual, 0)
			_, ok := l.Resolve("checksum")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a missing path", t, func() {
		_, err := LoadFiles(filepath.Join(t.TempDir(), "missing"))

		Convey("It should fail with LoadError", func() {
			var loadErr *LoadError
			So(errors.As(err, &loadErr), ShouldBeTrue)
			So(loadErr.Source, ShouldEndWith, "missing")
		})
	})
}

func TestLookup_JSON(t *testing.T) {
	Convey("A lookup should be shipped as JSON", t, func() {
		original := NewLookup(map[string]string{"1": "Acme", "2": "Globex"})

		data, err := jsoniter.Marshal(original)
		So(err, ShouldBeNil)

		restored := new(Lookup)
		So(jsoniter.Unmarshal(data, restored), ShouldBeNil)
		So(restored.Len(), ShouldEqual, 2)
		name, ok := restored.Resolve("2")
		So(ok, ShouldBeTrue)
		So(name, ShouldEqual, "Globex")
	})
}
