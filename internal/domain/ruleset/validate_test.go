package ruleset_test

import (
	"testing"

	ruleset "github.com/okian/kata/internal/domain/ruleset"
	. "github.com/smartystreets/goconvey/convey"
)

func parseDoc(doc string) *ruleset.Definition {
	def, err := ruleset.Parse([]byte(doc))
	So(err, ShouldBeNil)
	return def
}

func TestValidateRefs(t *testing.T) {
	Convey("Given a coherent definition", t, func() {
		def := parseDoc(swingDoc)

		Convey("When validated", func() {
			err := ruleset.ValidateRefs(def)

			Convey("Then it passes", func() {
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given duplicate phase ids", t, func() {
		def := parseDoc(`{"phases": [{"id": "p"}, {"id": "p"}], "rules": []}`)

		Convey("When validated", func() {
			err := ruleset.ValidateRefs(def)

			Convey("Then the duplicate is named", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, `duplicate id "p" in phases`)
			})
		})
	})

	Convey("Given a rule bound to a missing phase", t, func() {
		def := parseDoc(`{"phases": [{"id": "p"}], "rules": [{"id": "r", "phase": "ghost"}]}`)

		Convey("When validated", func() {
			err := ruleset.ValidateRefs(def)

			Convey("Then the rule and phase are named", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, `rule "r" references missing phase "ghost"`)
			})
		})
	})

	Convey("Given duplicate condition ids inside one rule", t, func() {
		def := parseDoc(`{"phases": [{"id": "p"}], "rules": [{"id": "r", "phase": "p", "conditions": [
			{"id": "c", "type": "event_exists", "event": "e"},
			{"id": "c", "type": "event_exists", "event": "e"}
		]}]}`)

		Convey("When validated", func() {
			err := ruleset.ValidateRefs(def)

			Convey("Then the rule context is part of the message", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, `rule "r" conditions`)
			})
		})
	})

	Convey("Given feedback pointing at an unknown condition", t, func() {
		def := parseDoc(`{"phases": [{"id": "p"}], "rules": [{"id": "r", "phase": "p",
			"conditions": [{"id": "c1", "type": "event_exists", "event": "e"}],
			"feedback": [{"condition_ids": ["c9"], "message": "x"}]}]}`)

		Convey("When validated", func() {
			err := ruleset.ValidateRefs(def)

			Convey("Then the dangling reference is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, `feedback references missing condition "c9"`)
			})
		})
	})

	Convey("Given frame range signals", t, func() {
		Convey("When the ref does not use the phase prefix", func() {
			def := parseDoc(`{"phases": [{"id": "p"}], "rules": [{"id": "r", "phase": "p",
				"signal": {"type": "frame_range_ref", "ref": "step:p"}}]}`)
			err := ruleset.ValidateRefs(def)

			Convey("Then validation fails on the ref shape", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "invalid signal ref")
			})
		})

		Convey("When the ref names a missing phase", func() {
			def := parseDoc(`{"phases": [{"id": "p"}], "rules": [{"id": "r", "phase": "p",
				"signal": {"type": "frame_range_ref", "ref": "phase:gone"}}]}`)
			err := ruleset.ValidateRefs(def)

			Convey("Then validation fails on the target", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, `signal references missing phase "gone"`)
			})
		})

		Convey("When the signal type is something else", func() {
			def := parseDoc(`{"phases": [{"id": "p"}], "rules": [{"id": "r", "phase": "p",
				"signal": {"type": "annotation", "ref": "whatever"}}]}`)
			err := ruleset.ValidateRefs(def)

			Convey("Then the ref is not interpreted", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
