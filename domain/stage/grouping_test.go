package stage_test

import (
	"math/rand"
	"procurement/domain/stage"
	"time"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func ids(groups []stage.Group) [][]int64 {
	r := [][]int64{}
	for _, g := range groups {
		r = append(r, g.IDs())
	}
	return r
}

func priorities(stages []stage.Stage) map[int64]int {
	r := map[int64]int{}
	for _, s := range stages {
		r[s.ID] = s.Priority
	}
	return r
}

func randomStages(r *rand.Rand) []stage.Stage {
	n := r.Intn(12)
	stages := make([]stage.Stage, 0, n)
	for i := 0; i < n; i++ {
		stages = append(stages, stage.Stage{ID: int64(i + 1), StageTypeID: int64(r.Intn(3) + 1), Priority: r.Intn(5)*3 + 1})
	}
	return stages
}

var _ = Describe("GroupByPriority", func() {
	It("should group stages by ascending priority and keep member order", func() {
		stages := []stage.Stage{{ID: 1, Priority: 1}, {ID: 2, Priority: 2}, {ID: 3, Priority: 2}}
		Expect(ids(stage.GroupByPriority(stages))).To(Equal([][]int64{{1}, {2, 3}}))

		stages = []stage.Stage{{ID: 5, Priority: 9}, {ID: 4, Priority: 3}, {ID: 7, Priority: 9}, {ID: 6, Priority: 3}}
		Expect(ids(stage.GroupByPriority(stages))).To(Equal([][]int64{{4, 6}, {5, 7}}))
	})

	It("should return no groups for no stages", func() {
		Expect(stage.GroupByPriority(nil)).To(BeEmpty())
	})

	It("should partition any stage list exactly", func() {
		r := rand.New(rand.NewSource(42))
		for round := 0; round < 200; round++ {
			stages := randomStages(r)
			groups := stage.GroupByPriority(stages)

			seen := map[int64]int{}
			last := 0
			for _, g := range groups {
				Expect(g).ToNot(BeEmpty())
				Expect(g[0].Priority > last).To(BeTrue())
				last = g[0].Priority
				for _, s := range g {
					Expect(s.Priority).To(Equal(g[0].Priority))
					seen[s.ID]++
				}
			}
			Expect(len(seen)).To(Equal(len(stages)))
			for _, count := range seen {
				Expect(count).To(Equal(1))
			}
		}
	})
})

var _ = Describe("Ungroup", func() {
	It("should be a fixed point for normalized stages", func() {
		stages := []stage.Stage{{ID: 1, Priority: 1}, {ID: 2, Priority: 2}, {ID: 3, Priority: 2}}
		Expect(stage.Ungroup(stage.GroupByPriority(stages))).To(Equal(stages))
	})

	It("should assign priorities by group order and preserve other fields", func() {
		done := types.TimestampOfDate(2021, 3, 4, 5, 6, 7, 0, time.UTC)
		groups := []stage.Group{
			{{ID: 9, Priority: 40, Value: "v", CompletionDate: &done, PurchaseID: 3}},
			{},
			{{ID: -1, Priority: 7, IsNew: true, StageTypeID: 2}, {ID: 4, Priority: 1}},
		}
		flat := stage.Ungroup(groups)
		Expect(flat).To(Equal([]stage.Stage{
			{ID: 9, Priority: 1, Value: "v", CompletionDate: &done, PurchaseID: 3},
			{ID: -1, Priority: 2, IsNew: true, StageTypeID: 2},
			{ID: 4, Priority: 2},
		}))
		Expect(groups[0][0].Priority).To(Equal(40))
	})

	It("should be idempotent after one normalization pass", func() {
		r := rand.New(rand.NewSource(7))
		for round := 0; round < 200; round++ {
			stages := randomStages(r)
			once := stage.GroupByPriority(stage.Ungroup(stage.GroupByPriority(stages)))
			twice := stage.GroupByPriority(stage.Ungroup(stage.GroupByPriority(stage.Ungroup(once))))
			Expect(ids(twice)).To(Equal(ids(once)))

			flat := stage.Ungroup(once)
			for i, g := range once {
				for _, s := range g {
					Expect(priorities(flat)[s.ID]).To(Equal(i + 1))
				}
			}
		}
	})
})

var _ = Describe("Insert", func() {
	var groups []stage.Group

	BeforeEach(func() {
		groups = stage.GroupByPriority([]stage.Stage{{ID: 1, Priority: 1}, {ID: 2, Priority: 2}, {ID: 3, Priority: 2}, {ID: 4, Priority: 3}})
	})

	It("should insert a singleton group above the target", func() {
		for i := range groups {
			result, at, err := stage.Insert(groups, i, stage.PositionAbove, stage.Stage{ID: -1, IsNew: true})
			Expect(err).To(BeNil())
			Expect(at).To(Equal(i))
			Expect(result[at]).To(HaveLen(1))

			p := priorities(stage.Ungroup(result))
			for _, s := range groups[i] {
				Expect(p[-1] < p[s.ID]).To(BeTrue())
			}
			if i > 0 {
				for _, s := range groups[i-1] {
					Expect(p[-1] > p[s.ID]).To(BeTrue())
				}
			} else {
				Expect(p[-1]).To(Equal(1))
			}
		}
	})

	It("should insert a singleton group below the target", func() {
		result, at, err := stage.Insert(groups, 1, stage.PositionBelow, stage.Stage{ID: -1, IsNew: true})
		Expect(err).To(BeNil())
		Expect(at).To(Equal(2))
		Expect(ids(result)).To(Equal([][]int64{{1}, {2, 3}, {-1}, {4}}))
	})

	It("should append inside the target without changing the group count", func() {
		result, at, err := stage.Insert(groups, 1, stage.PositionInside, stage.Stage{ID: -1, IsNew: true})
		Expect(err).To(BeNil())
		Expect(at).To(Equal(1))
		Expect(len(result)).To(Equal(len(groups)))
		Expect(ids(result)).To(Equal([][]int64{{1}, {2, 3, -1}, {4}}))
		Expect(ids(groups)).To(Equal([][]int64{{1}, {2, 3}, {4}}))
	})

	It("should accept the first group of an empty grouping", func() {
		result, at, err := stage.Insert([]stage.Group{}, 0, stage.PositionBelow, stage.Stage{ID: -1})
		Expect(err).To(BeNil())
		Expect(at).To(Equal(0))
		Expect(ids(result)).To(Equal([][]int64{{-1}}))
	})

	It("should reject invalid requests", func() {
		_, _, err := stage.Insert(groups, 3, stage.PositionAbove, stage.Stage{ID: -1})
		Expect(err).To(Equal(stage.ErrInsertIndexOutOfRange))
		_, _, err = stage.Insert(groups, 0, stage.Position("around"), stage.Stage{ID: -1})
		Expect(err).To(Equal(stage.ErrUnknownPosition))
		_, _, err = stage.Insert([]stage.Group{{}}, 0, stage.PositionInside, stage.Stage{ID: -1})
		Expect(err).To(Equal(stage.ErrInsertTargetEmpty))
		_, _, err = stage.Insert([]stage.Group{}, 0, stage.PositionInside, stage.Stage{ID: -1})
		Expect(err).To(Equal(stage.ErrInsertIndexOutOfRange))
	})
})

var _ = Describe("Progress", func() {
	done := types.TimestampOfDate(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	later := types.TimestampOfDate(2021, 3, 5, 5, 6, 7, 0, time.UTC)

	It("should report purchase completion", func() {
		Expect(stage.IsPurchaseComplete([]stage.Stage{{ID: 1, CompletionDate: &done}, {ID: 2, CompletionDate: &later}})).To(BeTrue())
		Expect(stage.IsPurchaseComplete([]stage.Stage{{ID: 1, CompletionDate: &done}, {ID: 2}})).To(BeFalse())
	})

	It("should compute pending stages at the lowest incomplete priority", func() {
		stages := []stage.Stage{
			{ID: 1, Priority: 1, CompletionDate: &done},
			{ID: 2, Priority: 2}, {ID: 3, Priority: 2, CompletionDate: &done}, {ID: 4, Priority: 2},
			{ID: 5, Priority: 3},
		}
		Expect(ids([]stage.Group{stage.PendingStages(stages)})).To(Equal([][]int64{{2, 4}}))
		Expect(stage.PendingStages([]stage.Stage{{ID: 1, CompletionDate: &done}})).To(BeEmpty())
	})

	It("should find the last completion", func() {
		last, found := stage.LastCompletion([]stage.Stage{{ID: 1, CompletionDate: &later}, {ID: 2, CompletionDate: &done}, {ID: 3}})
		Expect(found).To(BeTrue())
		Expect(last).To(Equal(later.Time()))

		_, found = stage.LastCompletion([]stage.Stage{{ID: 3}})
		Expect(found).To(BeFalse())
	})
})
