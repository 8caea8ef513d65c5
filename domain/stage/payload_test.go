package stage_test

import (
	"encoding/json"
	"errors"
	"procurement/domain/stage"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("FlowUpdate", func() {
	It("should encode singleton groups as bare objects", func() {
		groups := []stage.Group{
			{{ID: 1, Priority: 1}},
			{{ID: 2, Priority: 2}, {ID: -3, StageTypeID: 7, IsNew: true, Priority: 2}},
			{{ID: -4, StageTypeID: 8, IsNew: true, Priority: 3}},
		}
		bytes, err := json.Marshal(stage.NewFlowUpdate(groups))
		Expect(err).To(BeNil())
		Expect(string(bytes)).To(MatchJSON(`{"stages": [{"id": 1}, [{"id": 2}, {"stage_type_id": 7}], {"stage_type_id": 8}]}`))
	})

	It("should decode both group shapes", func() {
		update := stage.FlowUpdate{}
		Expect(json.Unmarshal([]byte(`{"stages": [{"id": 1}, [{"id": 2}, {"stage_type_id": 7}], [ {"id": 5} ]]}`), &update)).To(BeNil())
		Expect(update.Stages).To(Equal([]stage.RefGroup{
			{{ID: 1}}, {{ID: 2}, {StageTypeID: 7}}, {{ID: 5}},
		}))
		Expect(update.ExistingIDs()).To(Equal([]int64{1, 2, 5}))
		Expect(update.StageTypeIDs()).To(Equal([]int64{7}))
		Expect(update.Validate()).To(BeNil())

		Expect(json.Unmarshal([]byte(`{"stages": [ "x" ]}`), &update)).ToNot(BeNil())
	})

	It("should validate references", func() {
		Expect(errors.Is(stage.FlowUpdate{Stages: []stage.RefGroup{{}}}.Validate(), stage.ErrEmptyFlowGroup)).To(BeTrue())
		Expect(errors.Is(stage.FlowUpdate{Stages: []stage.RefGroup{{{}}}}.Validate(), stage.ErrInvalidStageRef)).To(BeTrue())
		Expect(errors.Is(stage.FlowUpdate{Stages: []stage.RefGroup{{{ID: 1, StageTypeID: 2}}}}.Validate(), stage.ErrInvalidStageRef)).To(BeTrue())
		Expect(errors.Is(stage.FlowUpdate{Stages: []stage.RefGroup{{{ID: 1}}, {{ID: 1}}}}.Validate(), stage.ErrDuplicateStageRef)).To(BeTrue())
		Expect(stage.FlowUpdate{Stages: []stage.RefGroup{}}.Validate()).To(BeNil())
	})
})

var _ = Describe("Catalog", func() {
	authority := "finance office"
	catalog := stage.NewCatalog([]stage.StageType{
		{ID: 1, Name: "approval", Authority: &authority},
		{ID: 2, Name: "order", ValueRequired: true},
	})

	It("should resolve stage types explicitly", func() {
		t, found := catalog.Lookup(1)
		Expect(found).To(BeTrue())
		name, found := t.ResponsibleAuthority()
		Expect(found).To(BeTrue())
		Expect(name).To(Equal("finance office"))

		t, found = catalog.Lookup(2)
		Expect(found).To(BeTrue())
		_, found = t.ResponsibleAuthority()
		Expect(found).To(BeFalse())

		_, found = catalog.Lookup(3)
		Expect(found).To(BeFalse())

		embedded := stage.StageType{ID: 3, Name: "embedded"}
		t, found = catalog.Resolve(stage.Stage{StageTypeID: 3, StageType: &embedded})
		Expect(found).To(BeTrue())
		Expect(t.Name).To(Equal("embedded"))
	})

	It("should attach stage types to stages", func() {
		stages := []stage.Stage{{ID: 1, StageTypeID: 2}, {ID: 2, StageTypeID: 1}}
		Expect(catalog.Attach(stages)).To(BeNil())
		Expect(stages[0].StageType.Name).To(Equal("order"))
		Expect(stages[1].StageType.Name).To(Equal("approval"))

		Expect(catalog.Attach([]stage.Stage{{ID: 1, StageTypeID: 9}})).To(Equal(stage.ErrStageTypeNotFound))
	})
})
