package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/present"
	"github.com/theakshaypant/meetbar/internal/util"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next upcoming event",
	Long:  `Show detailed information about the next timed event on your enabled calendars.`,
	RunE:  runNext,
}

func init() {
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	events, err := sess.sync(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	view := present.Build(events, visibility(ctx, sess.src), now, time.Local)
	if view.Next == nil {
		fmt.Println("No upcoming events found.")
		return nil
	}

	printNextEvent(*view.Next, now)
	return nil
}

func printNextEvent(item present.Item, now time.Time) {
	event := item.Event
	start, _ := event.StartTime()

	fmt.Println("─────────────────────────────────────────────────")
	fmt.Println("  NEXT EVENT")
	fmt.Println("─────────────────────────────────────────────────")
	fmt.Println()
	fmt.Printf("  ⏳ STARTS IN: %s\n", formatCountdown(start.Sub(now)))
	fmt.Println()

	fmt.Printf("  %s\n", item.Title)
	if event.Calendar.Name != "" {
		fmt.Printf("  📅 Calendar:    %s\n", event.Calendar.Name)
	}
	fmt.Printf("  🕐 When:        %s, %s\n", start.Local().Format("Mon, Jan 2"), item.TimeRange)
	if event.Location != "" {
		fmt.Printf("  📍 Location:    %s\n", event.Location)
	}
	if item.Meeting != nil {
		fmt.Printf("  📹 %-12s %s\n", item.Meeting.Service+":", util.MakeHyperlink(item.Meeting.URL, item.Meeting.URL))
	}
	if event.Status == core.StatusTentative {
		fmt.Println("  📊 Status:      Tentative ?")
	}
	if event.Description != "" {
		fmt.Println("  📝 Description:")
		for _, line := range strings.Split(util.HTMLToText(event.Description, 60), "\n") {
			if strings.TrimSpace(line) != "" {
				fmt.Printf("     %s\n", line)
			}
		}
	}
	if event.ExternalURL != "" {
		fmt.Printf("  🔗 Event:       %s\n", util.MakeHyperlink(event.ExternalURL, event.ExternalURL))
	}

	fmt.Println()
	fmt.Println("─────────────────────────────────────────────────")
}

func formatCountdown(d time.Duration) string {
	if d < 0 {
		return "NOW"
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, ", ")
}
