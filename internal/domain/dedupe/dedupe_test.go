package dedupe

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSubmissionKey(t *testing.T) {
	Convey("Given evaluation request fields", t, func() {
		Convey("When building a submission key", func() {
			key := SubmissionKey("swing_042", "/rules/baseball_v2.json", "auto")

			Convey("Then all fields participate in the key", func() {
				So(key, ShouldEqual, "swing_042|/rules/baseball_v2.json|auto")
			})
		})

		Convey("When any field differs", func() {
			a := SubmissionKey("swing_042", "/rules/baseball_v2.json", "auto")
			b := SubmissionKey("swing_042", "/rules/baseball_v2.json", "generic_core")

			Convey("Then the keys differ", func() {
				So(a, ShouldNotEqual, b)
			})
		})
	})
}

func TestSeenAndRecord(t *testing.T) {
	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(3))

		Convey("When recording a new key", func() {
			seen := d.SeenAndRecord(ctx, "a")

			Convey("Then it reports not seen and counts it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And recording it again reports seen", func() {
				So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When exceeding the bound", func() {
			for _, k := range []string{"a", "b", "c", "d"} {
				d.SeenAndRecord(ctx, k)
			}

			Convey("Then the oldest key was evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse) // a was evicted
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(0))

		Convey("When recording many keys", func() {
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.SeenAndRecord(ctx, "key-0"), ShouldBeTrue)
			})
		})
	})
}

func TestUnrecord(t *testing.T) {
	Convey("Given a deduper with a recorded key", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(10))
		d.SeenAndRecord(ctx, "a")

		Convey("When unrecording it", func() {
			d.Unrecord(ctx, "a")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown key", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestConcurrentAccess(t *testing.T) {
	Convey("Given a shared deduper", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(10000))

		Convey("When many goroutines record the same keys", func() {
			const keys = 100
			done := make(chan bool)
			for g := 0; g < 4; g++ {
				go func() {
					for i := 0; i < keys; i++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i))
					}
					done <- true
				}()
			}
			for g := 0; g < 4; g++ {
				<-done
			}

			Convey("Then each key is recorded exactly once", func() {
				So(d.Size(), ShouldEqual, keys)
			})
		})
	})
}
