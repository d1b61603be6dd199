package model

import "time"

// TimelineEntry rows are insert-only. (event_id, position) is unique so two
// writers cannot claim the same ledger slot.
type TimelineEntry struct {
	EntryID     string    `gorm:"column:entry_id;type:text;primaryKey"`
	EventID     string    `gorm:"column:event_id;type:text;not null;uniqueIndex:idx_timeline_event_position,priority:1"`
	Position    int64     `gorm:"column:position;not null;uniqueIndex:idx_timeline_event_position,priority:2"`
	Action      string    `gorm:"column:action;type:text;not null"`
	Notes       *string   `gorm:"column:notes;type:text"`
	PerformedBy *string   `gorm:"column:performed_by;type:text"`
	Timestamp   time.Time `gorm:"column:timestamp;not null"`
}

func (TimelineEntry) TableName() string {
	return "timeline_entries"
}
