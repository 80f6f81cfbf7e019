// Package notify provides Deliverer implementations for dispatching
// notifications to the user.
package notify

import (
	"context"
	"fmt"
	"os"

	"github.com/subwatch/subwatch/internal/cli"
	"github.com/subwatch/subwatch/internal/model"
)

// ConsoleDeliverer writes notifications to the terminal. It stands in for a
// platform push channel when subwatch runs as a local CLI.
type ConsoleDeliverer struct {
	out *os.File
}

// NewConsoleDeliverer creates a deliverer that writes to stdout.
func NewConsoleDeliverer() *ConsoleDeliverer {
	return &ConsoleDeliverer{out: os.Stdout}
}

// Deliver prints the notification, styled by priority.
func (d *ConsoleDeliverer) Deliver(_ context.Context, n *model.ScheduledNotification) error {
	style := cli.InfoStyle
	switch n.Priority {
	case model.PriorityHigh:
		style = cli.WarningStyle
	case model.PriorityLow:
		style = cli.SubtleStyle
	}

	if _, err := fmt.Fprintf(d.out, "%s %s\n  %s\n",
		style.Render("🔔"),
		cli.TitleStyle.Render(n.Title),
		n.Message,
	); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}

	return nil
}
