package api

import (
	"time"

	"github.com/sanverite/statusboard/internal/core"
)

// FromMode converts core.Mode to the public ModeView.
func FromMode(m core.Mode) ModeView {
	return ModeView{
		Key:      m.Key,
		Title:    m.Title,
		Note:     m.Note,
		Emoji:    m.Emoji,
		Color:    m.Color,
		Triggers: append([]int(nil), m.Triggers...),
	}
}

// FromSnapshot builds the StatusResponse for a store snapshot. The mode is
// looked up from the same snapshot so key and flag stay consistent.
func FromSnapshot(snap core.Snapshot, table *core.ModeTable, subscribers int) StatusResponse {
	m, _ := table.Lookup(snap.ModeKey)
	return StatusResponse{
		Mode:         FromMode(m),
		DoNotDisturb: snap.DoNotDisturb,
		Subscribers:  subscribers,
		GeneratedAt:  TimeNow().UTC().Format(time.RFC3339),
	}
}

// FromTable lists every configured mode in table order.
func FromTable(table *core.ModeTable) ModesResponse {
	modes := table.Modes()
	views := make([]ModeView, 0, len(modes))
	for _, m := range modes {
		views = append(views, FromMode(m))
	}
	return ModesResponse{
		Default: table.Default().Key,
		Modes:   views,
	}
}
