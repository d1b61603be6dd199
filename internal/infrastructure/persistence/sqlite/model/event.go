package model

import "time"

type Event struct {
	EventID           string     `gorm:"column:event_id;type:text;primaryKey"`
	Title             string     `gorm:"column:title;type:text;not null"`
	Description       string     `gorm:"column:description;type:text;not null;default:''"`
	Location          string     `gorm:"column:location;type:text;not null;default:''"`
	Category          string     `gorm:"column:category;type:text;not null;index"`
	Severity          string     `gorm:"column:severity;type:text;not null"`
	ReportedBy        string     `gorm:"column:reported_by;type:text;not null;default:''"`
	Status            string     `gorm:"column:status;type:text;not null;index"`
	InitiatedAt       time.Time  `gorm:"column:initiated_at;not null;index"`
	AllClearAt        *time.Time `gorm:"column:all_clear_at"`
	ResolvedAt        *time.Time `gorm:"column:resolved_at"`
	RootCause         *string    `gorm:"column:root_cause;type:text"`
	ReportNotes       *string    `gorm:"column:report_notes;type:text"`
	CorrectiveActions *string    `gorm:"column:corrective_actions;type:text"`
	ReportUpdatedAt   *time.Time `gorm:"column:report_updated_at"`
	Version           int64      `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null"`
}

func (Event) TableName() string {
	return "events"
}
