package emergency

import "time"

// Report is the after-action report attached to an event.
type Report struct {
	RootCause         *string
	Notes             *string
	CorrectiveActions *string
	UpdatedAt         time.Time
}

// ReportPatch is a partial update; nil fields keep their stored value.
type ReportPatch struct {
	RootCause         *string
	Notes             *string
	CorrectiveActions *string
}

func (p ReportPatch) Empty() bool {
	return p.RootCause == nil && p.Notes == nil && p.CorrectiveActions == nil
}

// Apply merges the patch onto current, which may be nil.
func (p ReportPatch) Apply(current *Report, now time.Time) Report {
	var next Report
	if current != nil {
		next = *current
	}
	if p.RootCause != nil {
		next.RootCause = cloneString(p.RootCause)
	}
	if p.Notes != nil {
		next.Notes = cloneString(p.Notes)
	}
	if p.CorrectiveActions != nil {
		next.CorrectiveActions = cloneString(p.CorrectiveActions)
	}
	next.UpdatedAt = now.UTC()
	return next
}

// EnsureReportEditable rejects report writes on terminal events.
func EnsureReportEditable(e Event) error {
	if e.IsTerminal() {
		return ErrRecordTerminal
	}
	return nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
