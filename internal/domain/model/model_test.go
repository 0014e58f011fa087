package model_test

import (
	"testing"

	"github.com/dakheliyah/vms/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGender(t *testing.T) {
	Convey("Given backend gender strings", t, func() {
		So(model.ParseGender("Male"), ShouldEqual, model.GenderMale)
		So(model.ParseGender(" f "), ShouldEqual, model.GenderFemale)
		So(model.ParseGender(""), ShouldEqual, model.GenderUnspecified)
		So(model.ParseGender("other"), ShouldEqual, model.GenderUnspecified)
	})
}

func TestVenueAvailability(t *testing.T) {
	Convey("Given a gender segmented venue", t, func() {
		v := model.Venue{
			ID: 7, Capacity: 100, Issued: 90, Availability: 10,
			MaleCapacity: 50, MaleIssued: 50, MaleAvailability: 0,
			FemaleCapacity: 50, FemaleIssued: 40, FemaleAvailability: 10,
		}

		Convey("Then availability should follow the member gender", func() {
			So(v.Segmented(), ShouldBeTrue)
			So(v.AvailabilityFor(model.GenderMale), ShouldEqual, 0)
			So(v.AvailabilityFor(model.GenderFemale), ShouldEqual, 10)
			So(v.AvailabilityFor(model.GenderUnspecified), ShouldEqual, 10)
		})

		Convey("Then derived fields should be consistent", func() {
			So(v.Availability, ShouldEqual, v.Capacity-v.Issued)
			So(v.MaleAvailability, ShouldEqual, v.MaleCapacity-v.MaleIssued)
			So(v.FemaleAvailability, ShouldEqual, v.FemaleCapacity-v.FemaleIssued)
		})
	})

	Convey("Given an unsegmented venue", t, func() {
		v := model.Venue{ID: 3, Capacity: 10, Issued: 4, Availability: 6}

		Convey("Then the total availability should apply to every gender", func() {
			So(v.Segmented(), ShouldBeFalse)
			So(v.AvailabilityFor(model.GenderMale), ShouldEqual, 6)
			So(v.AvailabilityFor(model.GenderFemale), ShouldEqual, 6)
		})
	})
}

func TestBlockAdmits(t *testing.T) {
	Convey("Given blocks of each eligibility", t, func() {
		male := model.Block{ID: 1, Gender: model.BlockMale}
		both := model.Block{ID: 2, Gender: model.BlockBoth}

		So(male.Admits(model.GenderMale), ShouldBeTrue)
		So(male.Admits(model.GenderFemale), ShouldBeFalse)
		So(male.Admits(model.GenderUnspecified), ShouldBeFalse)
		So(both.Admits(model.GenderFemale), ShouldBeTrue)
		So(both.Admits(model.GenderUnspecified), ShouldBeTrue)

		unknown := model.Block{ID: 3, Gender: model.BlockUnknown}
		So(unknown.Admits(model.GenderMale), ShouldBeFalse)
		So(unknown.Admits(model.GenderFemale), ShouldBeFalse)
		So(unknown.Admits(model.GenderUnspecified), ShouldBeFalse)
	})
}

func TestCloneVenues(t *testing.T) {
	Convey("Given a venue snapshot with blocks", t, func() {
		in := []model.Venue{{ID: 1, Blocks: []model.Block{{ID: 10, Availability: 3}}}}
		out := model.CloneVenues(in)
		out[0].Blocks[0].Availability = 0

		Convey("Then the copy should not alias the original", func() {
			So(in[0].Blocks[0].Availability, ShouldEqual, 3)
			b, ok := in[0].Block(10)
			So(ok, ShouldBeTrue)
			So(b.Availability, ShouldEqual, 3)
		})
	})
}

func TestCredential(t *testing.T) {
	Convey("Given a credential", t, func() {
		c := model.NewCredential("secret-token")

		Convey("Then String should redact the token", func() {
			So(c.String(), ShouldNotContainSubstring, "secret")
			So(c.Token(), ShouldEqual, "secret-token")
			So(model.NewCredential("").Empty(), ShouldBeTrue)
		})
	})
}

func TestReport(t *testing.T) {
	Convey("Given a report with mixed results", t, func() {
		r := model.Report{Results: []model.Result{
			{MemberID: 1, OK: true},
			{MemberID: 2, OK: false, Kind: model.KindRejected},
		}}

		So(len(r.Failed()), ShouldEqual, 1)
		res, ok := r.Result(2)
		So(ok, ShouldBeTrue)
		So(res.Kind, ShouldEqual, model.KindRejected)
		_, ok = r.Result(9)
		So(ok, ShouldBeFalse)
	})
}
