package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/usecase/emergency"
)

func sampleDetail() emergency.EventDetail {
	initiated := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	allClear := initiated.Add(45 * time.Minute)
	actor := "lead"
	cause := "frayed cable"
	return emergency.EventDetail{
		Event: domainemergency.Event{
			ID:          "evt-1",
			Title:       "Power outage",
			Category:    "electrical",
			Severity:    domainemergency.SeverityHigh,
			Status:      domainemergency.StatusAllClear,
			InitiatedAt: initiated,
			AllClearAt:  &allClear,
			Report:      &domainemergency.Report{RootCause: &cause, UpdatedAt: allClear},
		},
		Timeline: []domainemergency.TimelineEntry{
			{ID: "a", Position: 1, Action: "Status changed to In Progress", PerformedBy: &actor, Timestamp: initiated.Add(time.Minute)},
			{ID: "b", Position: 2, Action: "Status changed to All Clear", Timestamp: allClear},
		},
		Elapsed:         45 * time.Minute,
		ElapsedLabel:    "45m",
		NextStatusLabel: "Resolved",
		CanAdvance:      true,
		CanCancel:       true,
	}
}

func TestParseIntake(t *testing.T) {
	raw := []byte(`
title = "Gas leak"
category = "chemical"
severity = "critical"
location = "Lab 3"
reported_by = "night shift"
`)
	got, err := parseIntake(raw)
	if err != nil {
		t.Fatalf("parseIntake() error = %v", err)
	}
	want := emergency.CreateEventInput{
		Title:      "Gas leak",
		Category:   "chemical",
		Severity:   "critical",
		Location:   "Lab 3",
		ReportedBy: "night shift",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parseIntake() mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseIntake([]byte("title = ")); err == nil {
		t.Fatalf("parseIntake(invalid) error = nil")
	}
}

func TestWriteDetailFormats(t *testing.T) {
	detail := sampleDetail()

	var jsonOut bytes.Buffer
	if err := writeDetail(&jsonOut, detail, "json"); err != nil {
		t.Fatalf("writeDetail(json) error = %v", err)
	}
	var fromJSON detailView
	if err := json.Unmarshal(jsonOut.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decode json output: %v", err)
	}

	var yamlOut bytes.Buffer
	if err := writeDetail(&yamlOut, detail, "yaml"); err != nil {
		t.Fatalf("writeDetail(yaml) error = %v", err)
	}
	var fromYAML detailView
	if err := yaml.Unmarshal(yamlOut.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decode yaml output: %v", err)
	}

	if fromJSON.Status != "all_clear" || fromJSON.Elapsed != "45m" || len(fromJSON.Timeline) != 2 {
		t.Fatalf("json view = %+v", fromJSON)
	}
	if fromYAML.NextStatus != "Resolved" || fromYAML.Report == nil || *fromYAML.Report.RootCause != "frayed cable" {
		t.Fatalf("yaml view = %+v", fromYAML)
	}

	if err := writeDetail(&bytes.Buffer{}, detail, "xml"); err == nil {
		t.Fatalf("writeDetail(xml) error = nil")
	}
}

func TestRenderDetailText(t *testing.T) {
	text := renderDetailText(sampleDetail())
	for _, want := range []string{
		"Power outage",
		"All Clear",
		"Duration:  45m",
		"Next:      Resolved",
		"Root cause:         frayed cable",
		"Corrective actions: -",
		"Status changed to In Progress",
		"by lead",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("text output missing %q:\n%s", want, text)
		}
	}
}

func TestWriteEventList(t *testing.T) {
	detail := sampleDetail()
	now := detail.Event.InitiatedAt.Add(2 * time.Hour)
	summary := domainemergency.Summarize([]domainemergency.Event{detail.Event})

	var out bytes.Buffer
	if err := writeEventList(&out, []domainemergency.Event{detail.Event}, summary, now); err != nil {
		t.Fatalf("writeEventList() error = %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "1 events · 1 active") || !strings.Contains(text, "45m") || !strings.Contains(text, "Power outage") {
		t.Fatalf("list output = %q", text)
	}
}
