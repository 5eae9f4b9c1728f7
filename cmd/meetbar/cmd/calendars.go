package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/meetbar/internal/enablement"
	"github.com/theakshaypant/meetbar/internal/present"
)

var calendarsCmd = &cobra.Command{
	Use:     "calendars",
	Aliases: []string{"cal", "cals"},
	Short:   "List available calendars",
	Long: `List all calendars you have access to, grouped by account, with the
calendars whose events are shown marked [x].`,
	RunE: runCalendars,
}

var calendarsToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Show or hide a calendar's events",
	Long: `Flip whether a calendar's events are shown. The last enabled calendar
cannot be turned off.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalendarsToggle,
}

func init() {
	rootCmd.AddCommand(calendarsCmd)
	calendarsCmd.AddCommand(calendarsToggleCmd)
}

func loadCalendars(cmd *cobra.Command) ([]present.CalendarGroup, *enablement.Store, error) {
	ctx := cmd.Context()
	sess, err := openSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer sess.Close()

	cals, err := sess.src.ListCalendars(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	store := enablement.NewStore(openState(), log)
	set := store.Load(cals)
	return present.GroupCalendars(cals, set.Has), store, nil
}

func runCalendars(cmd *cobra.Command, args []string) error {
	groups, _, err := loadCalendars(cmd)
	if err != nil {
		return err
	}

	fmt.Println("📅 Available calendars:")
	fmt.Println("─────────────────────────────────────────────────")

	total := 0
	for _, g := range groups {
		fmt.Printf("\n  %s\n", g.Source)
		for _, c := range g.Calendars {
			mark := "[ ]"
			if c.Enabled {
				mark = "[x]"
			}
			fmt.Printf("    %s %s\n", mark, c.Title)
			fmt.Printf("        ID: %s\n", c.ID)
			total++
		}
	}

	fmt.Println()
	fmt.Printf("Total: %d calendars\n", total)
	fmt.Println("\nTip: Use 'meetbar calendars toggle <id>' to show or hide a calendar")

	return nil
}

func runCalendarsToggle(cmd *cobra.Command, args []string) error {
	id := args[0]
	groups, store, err := loadCalendars(cmd)
	if err != nil {
		return err
	}

	var title string
	for _, g := range groups {
		for _, c := range g.Calendars {
			if c.ID == id {
				title = c.Title
			}
		}
	}
	if title == "" {
		return fmt.Errorf("calendar '%s' not found\nUse 'meetbar calendars' to see available calendars", id)
	}

	before := store.Enabled().Has(id)
	after := store.Toggle(id).Has(id)
	switch {
	case before == after:
		fmt.Printf("'%s' is the last enabled calendar and stays on\n", title)
	case after:
		fmt.Printf("✓ Showing '%s'\n", title)
	default:
		fmt.Printf("✓ Hiding '%s'\n", title)
	}
	return nil
}
