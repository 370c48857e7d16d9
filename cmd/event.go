package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/expense-workflow/internal/core/events"
	"github.com/frahmantamala/expense-workflow/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect workflow events: list event types, publish a sample event`,
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflow event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.WorkflowEventTypes {
			fmt.Println(t)
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a sample workflow event",
	Long:  `Publish a sample workflow event to a logging subscriber for testing and debugging`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishSampleEvent(args[0])
	},
}

var (
	eventReportID int64
	eventActorID  int64
	eventComment  string
)

func sampleEvent(eventType string, now time.Time) (events.Event, error) {
	switch eventType {
	case events.EventTypeReportTransitioned:
		return events.NewReportTransitionedEvent(eventReportID, "SUBMITTED", "DRAFT", "MANAGER_REVIEW", eventActorID, eventComment, now), nil
	case events.EventTypeReportDeleted:
		return events.NewReportDeletedEvent(eventReportID, "DRAFT", eventActorID, now), nil
	default:
		return nil, fmt.Errorf("unknown event type %q, expected one of %v", eventType, events.WorkflowEventTypes)
	}
}

func publishSampleEvent(eventType string) error {
	lg := logger.LoggerWrapper()

	event, err := sampleEvent(eventType, time.Now().UTC())
	if err != nil {
		return err
	}

	bus := newWorkflowEventBus(lg)
	lg.Info("publishing sample event", "event_type", eventType, "event_id", event.EventID())

	if err := bus.PublishSync(context.Background(), event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	lg.Info("sample event published")
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventReportID, "report-id", 1, "Report id carried by the event")
	publishEventCmd.Flags().Int64Var(&eventActorID, "actor-id", 1, "Actor id carried by the event")
	publishEventCmd.Flags().StringVar(&eventComment, "comment", "", "Comment carried by transition events")

	eventCmd.AddCommand(listEventsCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
