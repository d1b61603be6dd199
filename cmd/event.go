package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"safetrail/internal/bootstrap"
	"safetrail/internal/bootstrap/logging"
	domainemergency "safetrail/internal/domain/emergency"
	"safetrail/internal/errs"
	"safetrail/internal/usecase/emergency"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Create, progress and inspect emergency events",
}

var eventCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new emergency event",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *emergency.Service) error {
		ctx := cmd.Context()

		input, err := resolveIntake(cmd)
		if err != nil {
			return err
		}
		input.IdempotencyKey, _ = cmd.Flags().GetString("idempotency-key")
		event, err := svc.CreateEvent(ctx, input)
		if err != nil {
			return reportFailure(cmd, "create event", err)
		}
		logging.Info(ctx, "event created", slog.String("event_id", event.ID), slog.String("severity", string(event.Severity)))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created event: %s\n", event.ID); err != nil {
			return errs.Wrap(err, "write create output")
		}
		return nil
	}),
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events, newest first",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *emergency.Service) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := svc.ListEvents(ctx, emergency.ListEventsInput{Status: status, IncludeTerminal: all, Limit: limit})
		if err != nil {
			return reportFailure(cmd, "list events", err)
		}
		summary, err := svc.Summary(ctx)
		if err != nil {
			return reportFailure(cmd, "summarize events", err)
		}
		if err := writeEventList(cmd.OutOrStdout(), items, summary, time.Now().UTC()); err != nil {
			return errs.Wrap(err, "write list output")
		}
		return nil
	}),
}

var eventShowCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show an event with its timeline",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *emergency.Service) error {
		ctx := cmd.Context()

		output, _ := cmd.Flags().GetString("output")
		detail, err := svc.GetEvent(ctx, cmd.Flags().Arg(0))
		if err != nil {
			return reportFailure(cmd, "show event", err)
		}
		if err := writeDetail(cmd.OutOrStdout(), detail, output); err != nil {
			return errs.Wrap(err, "write show output")
		}
		return nil
	}),
}

var eventAdvanceCmd = &cobra.Command{
	Use:   "advance <event-id>",
	Short: "Move an event to its next status",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *emergency.Service) error {
		actor, _ := cmd.Flags().GetString("actor")
		return runTransition(cmd, svc, "advance event", func(ctx context.Context) (domainemergency.Event, error) {
			return svc.Advance(ctx, emergency.AdvanceInput{EventID: cmd.Flags().Arg(0), Actor: actor})
		})
	}),
}

var eventCancelCmd = &cobra.Command{
	Use:   "cancel <event-id>",
	Short: "Cancel an active event",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *emergency.Service) error {
		actor, _ := cmd.Flags().GetString("actor")
		reason, _ := cmd.Flags().GetString("reason")
		return runTransition(cmd, svc, "cancel event", func(ctx context.Context) (domainemergency.Event, error) {
			return svc.Cancel(ctx, emergency.CancelInput{EventID: cmd.Flags().Arg(0), Actor: actor, Reason: reason})
		})
	}),
}

var eventNoteCmd = &cobra.Command{
	Use:   "note <event-id>",
	Short: "Append a note to an event's timeline",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *emergency.Service) error {
		ctx := cmd.Context()

		action, _ := cmd.Flags().GetString("action")
		notes, _ := cmd.Flags().GetString("notes")
		actor, _ := cmd.Flags().GetString("actor")
		entry, err := svc.AddTimelineNote(ctx, emergency.AddTimelineNoteInput{
			EventID: cmd.Flags().Arg(0),
			Action:  action,
			Notes:   notes,
			Actor:   actor,
		})
		if err != nil {
			return reportFailure(cmd, "add timeline note", err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "appended entry #%d: %s\n", entry.Position, entry.Action); err != nil {
			return errs.Wrap(err, "write note output")
		}
		return nil
	}),
}

var eventReportCmd = &cobra.Command{
	Use:   "report <event-id>",
	Short: "Update the after-action report; omitted fields keep their value",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *emergency.Service) error {
		ctx := cmd.Context()

		input := emergency.SaveReportInput{
			EventID:           cmd.Flags().Arg(0),
			RootCause:         changedString(cmd, "root-cause"),
			Notes:             changedString(cmd, "notes"),
			CorrectiveActions: changedString(cmd, "corrective-actions"),
		}
		event, err := svc.SaveReport(ctx, input)
		if err != nil {
			return reportFailure(cmd, "save report", err)
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "report saved for event: %s\n", event.ID); err != nil {
			return errs.Wrap(err, "write report output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(eventCreateCmd, eventListCmd, eventShowCmd, eventAdvanceCmd, eventCancelCmd, eventNoteCmd, eventReportCmd)

	eventCreateCmd.Flags().String("file", "", "TOML intake file; flags override its values")
	eventCreateCmd.Flags().String("title", "", "Event title")
	eventCreateCmd.Flags().String("category", "", "Event category, for example fire or chemical")
	eventCreateCmd.Flags().String("severity", "", "Severity: low, medium, high or critical")
	eventCreateCmd.Flags().String("location", "", "Where the event happened")
	eventCreateCmd.Flags().String("description", "", "Free-form description")
	eventCreateCmd.Flags().String("reported-by", "", "Who reported the event")
	eventCreateCmd.Flags().String("idempotency-key", "", "Repeat-safe key; reusing it returns the first event")

	eventListCmd.Flags().String("status", "", "Only events in this status")
	eventListCmd.Flags().Bool("all", false, "Include resolved and cancelled events")
	eventListCmd.Flags().Int("limit", 0, "Maximum number of events (0 for no limit)")

	eventShowCmd.Flags().StringP("output", "o", "text", "Output format: text, json or yaml")

	eventAdvanceCmd.Flags().String("actor", "", "Who performed the change")

	eventCancelCmd.Flags().String("actor", "", "Who performed the change")
	eventCancelCmd.Flags().String("reason", "", "Why the event was cancelled")

	eventNoteCmd.Flags().String("action", "", "What happened")
	eventNoteCmd.Flags().String("notes", "", "Optional details")
	eventNoteCmd.Flags().String("actor", "", "Who performed the action")
	_ = eventNoteCmd.MarkFlagRequired("action")

	eventReportCmd.Flags().String("root-cause", "", "Root cause")
	eventReportCmd.Flags().String("notes", "", "Report notes")
	eventReportCmd.Flags().String("corrective-actions", "", "Corrective actions")
}

// runTransition runs a status change and, when only the status write landed,
// completes the owed timeline entry before reporting.
func runTransition(
	cmd *cobra.Command,
	svc *emergency.Service,
	op string,
	call func(ctx context.Context) (domainemergency.Event, error),
) error {
	ctx := cmd.Context()

	event, err := call(ctx)
	var partial *domainemergency.PartialWriteError
	if errors.As(err, &partial) {
		logging.Warn(ctx, "timeline entry missing after status change, resuming",
			slog.String("event_id", partial.EventID),
			slog.String("status", string(partial.Status)),
		)
		if _, resumeErr := svc.ResumeTimeline(ctx, partial); resumeErr != nil {
			return reportFailure(cmd, op, errors.Join(err, resumeErr))
		}
		detail, getErr := svc.GetEvent(ctx, partial.EventID)
		if getErr != nil {
			return reportFailure(cmd, op, getErr)
		}
		event, err = detail.Event, nil
	}
	if err != nil {
		return reportFailure(cmd, op, err)
	}
	logging.Info(ctx, "event status changed", slog.String("event_id", event.ID), slog.String("status", string(event.Status)))
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "event %s is now %s\n", event.ID, event.Status.Label()); err != nil {
		return errs.Wrap(err, "write transition output")
	}
	return nil
}

// reportFailure prints the user-facing message and returns the wrapped cause.
func reportFailure(cmd *cobra.Command, op string, err error) error {
	logging.Error(cmd.Context(), op+" failed",
		slog.String("code", domainemergency.ErrorCode(err)),
		slog.Any("err", errs.Loggable(err)),
	)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), domainemergency.Message(err))
	return errs.Wrap(err, op)
}

func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}
