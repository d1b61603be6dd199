package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/errs"
	"safetrail/internal/usecase/emergency"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyles = map[domainemergency.Status]lipgloss.Style{
		domainemergency.StatusInitiated:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		domainemergency.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domainemergency.StatusAllClear:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		domainemergency.StatusResolved:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		domainemergency.StatusCancelled:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

type intakeFile struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Location    string `toml:"location"`
	Category    string `toml:"category"`
	Severity    string `toml:"severity"`
	ReportedBy  string `toml:"reported_by"`
}

func parseIntake(raw []byte) (emergency.CreateEventInput, error) {
	var file intakeFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return emergency.CreateEventInput{}, errs.Wrap(err, "decode intake toml")
	}
	return emergency.CreateEventInput{
		Title:       file.Title,
		Description: file.Description,
		Location:    file.Location,
		Category:    file.Category,
		Severity:    file.Severity,
		ReportedBy:  file.ReportedBy,
	}, nil
}

// resolveIntake reads --file when given and lets explicitly set flags win.
func resolveIntake(cmd *cobra.Command) (emergency.CreateEventInput, error) {
	var input emergency.CreateEventInput
	if path, _ := cmd.Flags().GetString("file"); strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return input, errs.Wrapf(err, "read intake file %q", path)
		}
		if input, err = parseIntake(raw); err != nil {
			return input, err
		}
	}

	for flag, dst := range map[string]*string{
		"title":       &input.Title,
		"description": &input.Description,
		"location":    &input.Location,
		"category":    &input.Category,
		"severity":    &input.Severity,
		"reported-by": &input.ReportedBy,
	} {
		if v := changedString(cmd, flag); v != nil {
			*dst = *v
		}
	}
	return input, nil
}

type reportView struct {
	RootCause         *string   `json:"root_cause" yaml:"root_cause"`
	Notes             *string   `json:"notes" yaml:"notes"`
	CorrectiveActions *string   `json:"corrective_actions" yaml:"corrective_actions"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

type entryView struct {
	Position    int64     `json:"position" yaml:"position"`
	Action      string    `json:"action" yaml:"action"`
	Notes       *string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	PerformedBy *string   `json:"performed_by,omitempty" yaml:"performed_by,omitempty"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

type detailView struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Category    string      `json:"category" yaml:"category"`
	Severity    string      `json:"severity" yaml:"severity"`
	Location    string      `json:"location,omitempty" yaml:"location,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	ReportedBy  string      `json:"reported_by,omitempty" yaml:"reported_by,omitempty"`
	Status      string      `json:"status" yaml:"status"`
	InitiatedAt time.Time   `json:"initiated_at" yaml:"initiated_at"`
	AllClearAt  *time.Time  `json:"all_clear_at,omitempty" yaml:"all_clear_at,omitempty"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	Elapsed     string      `json:"elapsed" yaml:"elapsed"`
	NextStatus  string      `json:"next_status,omitempty" yaml:"next_status,omitempty"`
	Report      *reportView `json:"report,omitempty" yaml:"report,omitempty"`
	Timeline    []entryView `json:"timeline" yaml:"timeline"`
}

func newDetailView(d emergency.EventDetail) detailView {
	e := d.Event
	view := detailView{
		ID:          e.ID,
		Title:       e.Title,
		Category:    e.Category,
		Severity:    string(e.Severity),
		Location:    e.Location,
		Description: e.Description,
		ReportedBy:  e.ReportedBy,
		Status:      string(e.Status),
		InitiatedAt: e.InitiatedAt,
		AllClearAt:  e.AllClearAt,
		ResolvedAt:  e.ResolvedAt,
		Elapsed:     d.ElapsedLabel,
		NextStatus:  d.NextStatusLabel,
		Timeline:    make([]entryView, 0, len(d.Timeline)),
	}
	if e.Report != nil {
		view.Report = &reportView{
			RootCause:         e.Report.RootCause,
			Notes:             e.Report.Notes,
			CorrectiveActions: e.Report.CorrectiveActions,
			UpdatedAt:         e.Report.UpdatedAt,
		}
	}
	for _, entry := range d.Timeline {
		view.Timeline = append(view.Timeline, entryView{
			Position:    entry.Position,
			Action:      entry.Action,
			Notes:       entry.Notes,
			PerformedBy: entry.PerformedBy,
			Timestamp:   entry.Timestamp,
		})
	}
	return view
}

func writeDetail(w io.Writer, d emergency.EventDetail, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newDetailView(d))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDetailView(d)); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		_, err := io.WriteString(w, renderDetailText(d))
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func renderDetailText(d emergency.EventDetail) string {
	e := d.Event
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(e.Title), renderStatus(e.Status))
	fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%s · %s · %s", e.ID, e.Category, e.Severity)))
	if e.Location != "" {
		fmt.Fprintf(&b, "Location:  %s\n", e.Location)
	}
	if e.ReportedBy != "" {
		fmt.Fprintf(&b, "Reported:  %s\n", e.ReportedBy)
	}
	fmt.Fprintf(&b, "Initiated: %s\n", e.InitiatedAt.Format(time.RFC3339))
	if e.AllClearAt != nil {
		fmt.Fprintf(&b, "All clear: %s\n", e.AllClearAt.Format(time.RFC3339))
	}
	if e.ResolvedAt != nil {
		fmt.Fprintf(&b, "Resolved:  %s\n", e.ResolvedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Duration:  %s\n", d.ElapsedLabel)
	if d.CanAdvance {
		fmt.Fprintf(&b, "Next:      %s\n", d.NextStatusLabel)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", e.Description)
	}

	if r := e.Report; r != nil {
		fmt.Fprintf(&b, "\n%s\n", sectionStyle.Render("Report"))
		fmt.Fprintf(&b, "Root cause:         %s\n", textOrDash(r.RootCause))
		fmt.Fprintf(&b, "Notes:              %s\n", textOrDash(r.Notes))
		fmt.Fprintf(&b, "Corrective actions: %s\n", textOrDash(r.CorrectiveActions))
	}

	fmt.Fprintf(&b, "\n%s\n", sectionStyle.Render("Timeline"))
	if len(d.Timeline) == 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("(no entries)"))
	}
	for _, entry := range d.Timeline {
		line := fmt.Sprintf("%3d  %s  %s", entry.Position, entry.Timestamp.Format(time.RFC3339), entry.Action)
		if entry.PerformedBy != nil {
			line += dimStyle.Render(" by " + *entry.PerformedBy)
		}
		fmt.Fprintf(&b, "%s\n", line)
		if entry.Notes != nil {
			fmt.Fprintf(&b, "     %s\n", dimStyle.Render(*entry.Notes))
		}
	}
	return b.String()
}

func writeEventList(w io.Writer, events []domainemergency.Event, summary domainemergency.Summary, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", sectionStyle.Render(fmt.Sprintf(
		"%d events · %d active · %d resolved · %d cancelled",
		summary.Total, summary.Active, summary.Resolved, summary.Cancelled,
	)))
	if len(events) == 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("(no matching events)"))
	}
	statusCell := lipgloss.NewStyle().Width(12)
	for _, e := range events {
		fmt.Fprintf(&b, "%s  %s %-8s %6s  %s\n",
			dimStyle.Render(e.ID),
			statusCell.Render(renderStatus(e.Status)),
			e.Severity,
			domainemergency.FormatDuration(domainemergency.Duration(e, now)),
			e.Title,
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderStatus(s domainemergency.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return s.Label()
	}
	return style.Render(s.Label())
}

func textOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}
