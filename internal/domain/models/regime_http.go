package models

import (
	"time"

	"MacroCompass/pkg/util"
)

// HistoryRequest is the query of GET /api/regime/history. From and To accept
// RFC3339, a plain date or unix seconds.
type HistoryRequest struct {
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	From  string `query:"from" json:"from" validate:"omitempty,moment"`
	To    string `query:"to" json:"to" validate:"omitempty,moment"`
}

// Range returns the parsed bounds; an unset bound is the zero time.
func (r *HistoryRequest) Range() (from, to time.Time) {
	from, _ = util.ParseTime(r.From)
	to, _ = util.ParseTime(r.To)
	return from, to
}
