package aggregate

import (
	"testing"

	"github.com/ab180/merchantagg/lrdd"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBucket_MarshalMsg(t *testing.T) {
	Convey("Given a bucket", t, func() {
		b := &Bucket{BelowOrEq5000: 3, BelowOrEq10000: 1, Above20000: 258, Total: 262}

		Convey("It should encode to a fixed layout", func() {
			encoded, err := b.MarshalMsg(nil)
			So(err, ShouldBeNil)
			So(encoded, ShouldHaveLength, WireSize)
			So(encoded[0], ShouldEqual, WireVersion)
			So(encoded[1], ShouldEqual, 3)
			So(encoded[9], ShouldEqual, 1)
			So(encoded[25:27], ShouldResemble, []byte{2, 1})

			Convey("And decode back with the trailing bytes left", func() {
				decoded := new(Bucket)
				rest, err := decoded.UnmarshalMsg(append(encoded, 0xff))
				So(err, ShouldBeNil)
				So(rest, ShouldResemble, []byte{0xff})
				So(decoded, ShouldResemble, b)
			})
		})

		Convey("It should append to the given buffer", func() {
			encoded, err := b.MarshalMsg([]byte("head"))
			So(err, ShouldBeNil)
			So(string(encoded[:4]), ShouldEqual, "head")
			So(encoded, ShouldHaveLength, 4+WireSize)
		})

		Convey("It should travel inside a row", func() {
			raw, err := lrdd.KeyValue("Acme|2024-01-01", b).Marshal()
			So(err, ShouldBeNil)
			So(raw.ID, ShouldEqual, RowIDBucket)

			row, err := raw.Unmarshal()
			So(err, ShouldBeNil)
			So(row.Value, ShouldResemble, b)
		})
	})

	Convey("Decoding malformed input", t, func() {
		valid, _ := (&Bucket{BelowOrEq5000: 1, Total: 1}).MarshalMsg(nil)

		Convey("It should reject an unknown version", func() {
			bad := append([]byte{}, valid...)
			bad[0] = 2
			_, err := new(Bucket).UnmarshalMsg(bad)
			So(errors.Is(err, ErrUnknownVersion), ShouldBeTrue)
		})

		Convey("It should reject a truncated buffer", func() {
			_, err := new(Bucket).UnmarshalMsg(valid[:10])
			So(errors.Is(err, ErrShortBuffer), ShouldBeTrue)

			_, err = new(Bucket).UnmarshalMsg(nil)
			So(errors.Is(err, ErrShortBuffer), ShouldBeTrue)
		})

		Convey("It should reject a bucket breaking the total invariant", func() {
			bad := append([]byte{}, valid...)
			bad[33] = 5
			_, err := new(Bucket).UnmarshalMsg(bad)
			So(errors.Is(err, ErrInconsistent), ShouldBeTrue)
		})
	})
}
