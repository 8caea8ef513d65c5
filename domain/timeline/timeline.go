package timeline

import (
	"procurement/domain/stage"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fundwit/go-commons/types"
)

const (
	EdgePadding     = 5.0
	CenterPosition  = 50.0
	maxPosition     = 100.0
	elapsedAgoLabel = "ago"
)

// Entry is one stage placed on the timeline.
type Entry struct {
	Stage    stage.Stage `json:"stage"`
	Position float64     `json:"position"`
	Above    bool        `json:"above"`
	Pending  bool        `json:"pending"`

	StageTypeName        *string `json:"stage_type_name,omitempty"`
	ResponsibleAuthority *string `json:"responsible_authority,omitempty"`
}

type Group struct {
	Priority int     `json:"priority"`
	Position float64 `json:"position"`
	Pending  bool    `json:"pending"`
	Entries  []Entry `json:"entries"`
}

type Timeline struct {
	Groups         []Group          `json:"groups"`
	Complete       bool             `json:"complete"`
	LastCompletion *types.Timestamp `json:"last_completion,omitempty"`
	Elapsed        string           `json:"elapsed,omitempty"`
}

// Positions distributes n groups evenly over [EdgePadding, 100-EdgePadding]; a single group is centered.
func Positions(n int) []float64 {
	positions := make([]float64, 0, n)
	if n == 1 {
		return append(positions, CenterPosition)
	}
	step := 0.0
	if n > 1 {
		step = (maxPosition - 2*EdgePadding) / float64(n-1)
	}
	for i := 0; i < n; i++ {
		positions = append(positions, EdgePadding+float64(i)*step)
	}
	return positions
}

// Build lays out stages. A stage is pending when the server listed it in pending, which is
// trusted as is. stageTypes fills in names and authorities for stages without an embedded type.
func Build(stages []stage.Stage, pending []stage.Stage, stageTypes stage.Catalog, now time.Time) Timeline {
	pendingIDs := map[int64]bool{}
	for _, s := range pending {
		pendingIDs[s.ID] = true
	}

	groups := stage.GroupByPriority(stages)
	positions := Positions(len(groups))
	result := Timeline{Groups: make([]Group, 0, len(groups)), Complete: stage.IsPurchaseComplete(stages)}

	flat := 0
	for i, g := range groups {
		group := Group{Priority: g[0].Priority, Position: positions[i], Entries: make([]Entry, 0, len(g))}
		for _, s := range g {
			entry := Entry{Stage: s, Position: positions[i], Above: flat%2 == 0, Pending: pendingIDs[s.ID]}
			if t, found := stageTypes.Resolve(s); found {
				name := t.Name
				entry.StageTypeName = &name
				if authority, ok := t.ResponsibleAuthority(); ok {
					entry.ResponsibleAuthority = &authority
				}
			}
			group.Pending = group.Pending || entry.Pending
			group.Entries = append(group.Entries, entry)
			flat++
		}
		result.Groups = append(result.Groups, group)
	}

	if result.Complete {
		if last, found := stage.LastCompletion(stages); found {
			for _, s := range stages {
				if s.IsCompleted() && s.CompletionDate.Time().Equal(last) {
					ts := *s.CompletionDate
					result.LastCompletion = &ts
					break
				}
			}
			result.Elapsed = Elapsed(last, now)
		}
	}
	return result
}

// Elapsed renders the time passed between since and now, e.g. "3 days ago".
func Elapsed(since, now time.Time) string {
	return humanize.RelTime(since, now, elapsedAgoLabel, "from now")
}
