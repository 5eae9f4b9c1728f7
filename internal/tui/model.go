// Package tui is the terminal popover: a grouped, countdown-annotated
// event list with calendar toggles and one-key meeting join.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/theakshaypant/meetbar/internal/app"
	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/present"
	"github.com/theakshaypant/meetbar/internal/util"
)

// Service is the part of the application the popover drives.
type Service interface {
	Permission() core.PermissionStatus
	RequestPermission(ctx context.Context) core.PermissionStatus
	OpenPermissionSettings(ctx context.Context)
	View() present.View
	Loading() bool
	Calendars() []present.CalendarGroup
	ToggleCalendar(id string) bool
	ForceSync(ctx context.Context) error
}

// KeyMap defines the keybindings for the TUI
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Open       key.Binding
	ViewEvent  key.Binding
	Refresh    key.Binding
	Calendars  key.Binding
	Toggle     key.Binding
	Back       key.Binding
	Grant      key.Binding
	Settings   key.Binding
	Tab        key.Binding
	Quit       key.Binding
	Help       key.Binding
}

var DefaultKeyMap = KeyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	ScrollUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "scroll up")),
	ScrollDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "scroll down")),
	Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "join meeting")),
	ViewEvent:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view event")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Calendars:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calendars")),
	Toggle:     key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
	Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Grant:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grant access")),
	Settings:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "open settings")),
	Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch panel")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Panel focus for compact mode
type PanelFocus int

const (
	FocusList PanelFocus = iota
	FocusDetail
)

// Screen is the page shown below the header.
type Screen int

const (
	ScreenEvents Screen = iota
	ScreenCalendars
)

// Model is the Bubble Tea model for the TUI
type Model struct {
	svc     Service
	opener  core.Opener
	updates <-chan app.Notification
	loc     *time.Location

	perm      core.PermissionStatus
	view      present.View
	items     []present.Item
	calendars []present.CalendarGroup
	entries   []present.CalendarEntry

	screen        Screen
	selectedIdx   int
	selectedID    string
	calendarIdx   int
	loading       bool
	syncing       bool
	requesting    bool
	err           error
	width         int
	height        int
	listWidth     int
	detailWidth   int
	contentHeight int
	keys          KeyMap
	listView      viewport.Model
	detailView    viewport.Model
	viewportReady bool
	compactMode   bool
	focusedPanel  PanelFocus
	showHelp      bool
}

// NewModel creates a popover over svc. updates may be nil; when set, the
// model re-reads svc on every notification.
func NewModel(svc Service, opener core.Opener, updates <-chan app.Notification, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	m := Model{
		svc:     svc,
		opener:  opener,
		updates: updates,
		loc:     loc,
		keys:    DefaultKeyMap,
	}
	m.reload()
	return m
}

// Notifications subscribes to a and returns a buffered channel of its
// notifications. Notifications are dropped while the buffer is full.
func Notifications(a interface {
	Subscribe(func(app.Notification)) func()
}) (<-chan app.Notification, func()) {
	ch := make(chan app.Notification, 16)
	cancel := a.Subscribe(func(n app.Notification) {
		select {
		case ch <- n:
		default:
		}
	})
	return ch, cancel
}

// Messages
type notificationMsg app.Notification

type permissionMsg struct {
	status core.PermissionStatus
}

type syncDoneMsg struct {
	err error
}

type openedMsg struct {
	err error
}

type tickMsg time.Time

func waitForNotification(ch <-chan app.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) requestPermission() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return permissionMsg{status: svc.RequestPermission(context.Background())}
	}
}

func (m Model) forceSync() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return syncDoneMsg{err: svc.ForceSync(context.Background())}
	}
}

func (m Model) openURL(url string) tea.Cmd {
	opener := m.opener
	return func() tea.Msg {
		return openedMsg{err: opener.Open(url)}
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForNotification(m.updates), tickCmd())
}

// reload re-reads state from the service, keeping the selection on the
// same event when it survives.
func (m *Model) reload() {
	m.perm = m.svc.Permission()
	m.loading = m.svc.Loading()
	m.view = m.svc.View()

	m.items = nil
	for _, g := range m.view.Groups {
		m.items = append(m.items, g.Items...)
	}

	m.selectedIdx = m.findSelection()
	if m.selectedIdx < len(m.items) {
		m.selectedID = m.items[m.selectedIdx].Event.ID
	}

	m.calendars = m.svc.Calendars()
	m.entries = nil
	for _, g := range m.calendars {
		m.entries = append(m.entries, g.Calendars...)
	}
	if m.calendarIdx >= len(m.entries) {
		m.calendarIdx = max(len(m.entries)-1, 0)
	}

	m.updateListContent()
	m.updateDetailContent()
}

// findSelection returns the index of the previously selected event, or
// of the next upcoming event, or 0.
func (m *Model) findSelection() int {
	if m.selectedID != "" {
		for i, it := range m.items {
			if it.Event.ID == m.selectedID {
				return i
			}
		}
	}
	for i, it := range m.items {
		if it.IsNext {
			return i
		}
	}
	return 0
}

func (m Model) selected() (present.Item, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.items) {
		return present.Item{}, false
	}
	return m.items[m.selectedIdx], true
}

// calculateLayout calculates responsive layout dimensions
func (m *Model) calculateLayout() {
	height := max(m.height, 10)

	// Header: ~2 lines, Help: ~2 lines, Padding: ~2 lines
	m.contentHeight = max(height-6, 5)

	m.compactMode = m.width < 70
	if m.compactMode {
		m.listWidth = max(m.width-4, 20)
		m.detailWidth = m.listWidth
		return
	}

	switch {
	case m.width < 100:
		m.listWidth = m.width * 45 / 100
	default:
		m.listWidth = min(m.width*35/100, 60)
	}
	m.listWidth = max(m.listWidth, 30)
	m.detailWidth = max(m.width-m.listWidth-5, 35)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.calculateLayout()

		listW, listH := max(m.listWidth-4, 10), max(m.contentHeight-4, 1)
		detailW, detailH := max(m.detailWidth-4, 10), max(m.contentHeight-4, 1)
		if !m.viewportReady {
			m.listView = viewport.New(listW, listH)
			m.listView.Style = lipgloss.NewStyle()
			m.detailView = viewport.New(detailW, detailH)
			m.detailView.Style = lipgloss.NewStyle()
			m.viewportReady = true
		} else {
			m.listView.Width, m.listView.Height = listW, listH
			m.detailView.Width, m.detailView.Height = detailW, detailH
		}
		m.updateListContent()
		m.updateDetailContent()
		m.scrollListToSelection()
		return m, nil

	case notificationMsg:
		m.reload()
		return m, waitForNotification(m.updates)

	case tickMsg:
		m.reload()
		return m, tickCmd()

	case permissionMsg:
		m.requesting = false
		m.reload()
		m.perm = msg.status
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		m.err = msg.err
		m.reload()
		return m, nil

	case openedMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Help) {
			m.showHelp = true
			return m, nil
		}
		if m.perm != core.PermissionGranted {
			return m.updatePermission(msg)
		}
		if m.screen == ScreenCalendars {
			return m.updateCalendars(msg)
		}
		return m.updateEvents(msg)
	}
	return m, nil
}

func (m Model) updatePermission(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Grant):
		if m.requesting || m.perm != core.PermissionNotDetermined {
			return m, nil
		}
		m.requesting = true
		return m, m.requestPermission()

	case key.Matches(msg, m.keys.Settings):
		if m.perm == core.PermissionDenied || m.perm == core.PermissionRestricted {
			m.svc.OpenPermissionSettings(context.Background())
		}
	}
	return m, nil
}

func (m Model) updateCalendars(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Calendars):
		m.screen = ScreenEvents
	case key.Matches(msg, m.keys.Up):
		if m.calendarIdx > 0 {
			m.calendarIdx--
		}
	case key.Matches(msg, m.keys.Down):
		if m.calendarIdx < len(m.entries)-1 {
			m.calendarIdx++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.calendarIdx < len(m.entries) {
			m.svc.ToggleCalendar(m.entries[m.calendarIdx].ID)
			m.reload()
		}
	}
	return m, nil
}

func (m Model) updateEvents(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.selectionChanged()
		}

	case key.Matches(msg, m.keys.Down):
		if m.selectedIdx < len(m.items)-1 {
			m.selectedIdx++
			m.selectionChanged()
		}

	case key.Matches(msg, m.keys.ScrollUp):
		if m.compactMode && m.focusedPanel == FocusList {
			m.listView.ViewUp()
		} else {
			m.detailView.ViewUp()
		}

	case key.Matches(msg, m.keys.ScrollDown):
		if m.compactMode && m.focusedPanel == FocusList {
			m.listView.ViewDown()
		} else {
			m.detailView.ViewDown()
		}

	case key.Matches(msg, m.keys.Tab):
		if m.focusedPanel == FocusList {
			m.focusedPanel = FocusDetail
		} else {
			m.focusedPanel = FocusList
		}

	case key.Matches(msg, m.keys.Calendars):
		m.screen = ScreenCalendars

	case key.Matches(msg, m.keys.Refresh):
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.err = nil
		return m, m.forceSync()

	case key.Matches(msg, m.keys.Open):
		if item, ok := m.selected(); ok && item.Meeting != nil {
			return m, m.openURL(item.Meeting.URL)
		}

	case key.Matches(msg, m.keys.ViewEvent):
		if item, ok := m.selected(); ok && item.Event.ExternalURL != "" {
			return m, m.openURL(item.Event.ExternalURL)
		}
	}
	return m, nil
}

func (m *Model) selectionChanged() {
	m.selectedID = m.items[m.selectedIdx].Event.ID
	m.updateListContent()
	m.scrollListToSelection()
	m.updateDetailContent()
	m.detailView.GotoTop()
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()

	var content string
	switch {
	case m.perm != core.PermissionGranted:
		content = m.renderPermission()
	case m.showHelp:
		content = m.renderHelpPanel()
	case m.screen == ScreenCalendars:
		content = m.renderCalendars()
	case m.loading && len(m.items) == 0:
		content = m.centered("Loading events...")
	case m.compactMode && m.focusedPanel == FocusDetail:
		content = m.renderDetailPanel()
	case m.compactMode:
		content = m.renderListPanel()
	default:
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderListPanel(), " ", m.renderDetailPanel())
	}

	return AppStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left, header, content, m.renderHelp()),
	)
}

func (m Model) centered(s string) string {
	return lipgloss.NewStyle().
		Width(m.width-4).
		Height(m.contentHeight).
		Align(lipgloss.Center, lipgloss.Center).
		Render(s)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("📅 meetbar")

	var status string
	switch {
	case m.syncing || m.loading:
		status = MutedStyle.Render("syncing…")
	case m.err != nil:
		status = ErrorStyle.Render(util.TruncateText("Error: "+m.err.Error(), max(m.width-20, 10)))
	case m.view.Next != nil:
		status = badge(*m.view.Next) + " " + MutedStyle.Render(util.TruncateText(m.view.Next.Title, 30))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status)
}

func (m Model) renderPermission() string {
	var lines []string
	switch m.perm {
	case core.PermissionLoading:
		lines = append(lines, "Checking calendar access…")
	case core.PermissionNotDetermined:
		lines = append(lines,
			TitleStyle.Render("Calendar access needed"),
			"meetbar shows your upcoming meetings and opens them on time.",
			"",
		)
		if m.requesting {
			lines = append(lines, MutedStyle.Render("Waiting for approval in your browser…"))
		} else {
			lines = append(lines, HelpKeyStyle.Render("g")+" grant access")
		}
	default:
		lines = append(lines,
			TitleStyle.Render("Calendar access denied"),
			"Allow access in your account settings, then come back.",
			"",
			HelpKeyStyle.Render("s")+" open settings",
		)
	}
	return m.centered(strings.Join(lines, "\n"))
}

// updateListContent renders the grouped event list into the list viewport.
func (m *Model) updateListContent() {
	if !m.viewportReady {
		return
	}
	if len(m.items) == 0 {
		m.listView.SetContent(MutedStyle.Render("No upcoming events"))
		return
	}

	var lines []string
	idx := 0
	for _, g := range m.view.Groups {
		lines = append(lines, GroupStyle.Render(g.Label))
		for _, it := range g.Items {
			lines = append(lines, m.renderListItem(it, idx == m.selectedIdx, m.listView.Width))
			idx++
		}
	}
	m.listView.SetContent(strings.Join(lines, "\n"))
}

// itemLine returns the list line of item i, counting group headers.
func (m Model) itemLine(i int) int {
	line, idx := 0, 0
	for _, g := range m.view.Groups {
		line++
		if i < idx+len(g.Items) {
			return line + i - idx
		}
		line += len(g.Items)
		idx += len(g.Items)
	}
	return line
}

// scrollListToSelection scrolls the list viewport to keep the selected item visible
func (m *Model) scrollListToSelection() {
	if !m.viewportReady || len(m.items) == 0 {
		return
	}
	top := m.itemLine(m.selectedIdx)
	if m.selectedIdx == 0 || (top > 0 && m.itemLine(m.selectedIdx-1) != top-1) {
		// keep the group header in view
		top--
	}
	bottom := m.itemLine(m.selectedIdx) + 1

	if top < m.listView.YOffset {
		m.listView.SetYOffset(top)
	}
	if bottom > m.listView.YOffset+m.listView.Height {
		m.listView.SetYOffset(bottom - m.listView.Height)
	}
}

func (m Model) renderListPanel() string {
	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("Events")
	if m.viewportReady && m.listView.TotalLineCount() > m.listView.Height && len(m.items) > 0 {
		header += MutedStyle.Render(fmt.Sprintf(" (%d/%d)", m.selectedIdx+1, len(m.items)))
	}
	return ListPanelStyle.Width(m.listWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, m.listView.View()),
	)
}

func (m Model) renderListItem(item present.Item, selected bool, maxWidth int) string {
	timeStyled := TimeStyle.Render(item.TimeRange)

	suffix := ""
	if item.Meeting != nil {
		suffix += " 📹"
	}
	if item.Event.InProgress(m.view.Now) {
		suffix += " 🟢"
	}
	countdown := ""
	if item.IsNext {
		countdown = " " + badge(item)
	}

	titleWidth := max(maxWidth-14-lipgloss.Width(suffix)-lipgloss.Width(countdown)-2, 10)
	line := fmt.Sprintf("%s %s%s%s", timeStyled, util.TruncateText(item.Title, titleWidth), suffix, countdown)

	if selected {
		return SelectedItemStyle.Render(line)
	}
	return NormalItemStyle.Render(line)
}

// badge renders the countdown of the next item, colored by urgency.
func badge(item present.Item) string {
	text := present.Countdown(item.MinutesUntil)
	switch item.Urgency {
	case present.UrgencyUrgent:
		return BadgeUrgentStyle.Render(text)
	case present.UrgencySoon:
		return BadgeSoonStyle.Render(text)
	default:
		return BadgeNormalStyle.Render(text)
	}
}

// updateDetailContent updates the viewport with the current event details
func (m *Model) updateDetailContent() {
	if !m.viewportReady {
		return
	}
	item, ok := m.selected()
	if !ok {
		m.detailView.SetContent("")
		return
	}

	event := item.Event
	width := m.detailView.Width
	var lines []string

	lines = append(lines, TitleStyle.Render(ansi.Wordwrap(item.Title, width, "")))

	if event.Calendar.Name != "" {
		lines = append(lines, renderField("📅 Calendar", event.Calendar.Name))
	}
	lines = append(lines, renderField("🕐 When", formatEventTime(event, m.loc)))
	if d, ok := eventDuration(event); ok {
		lines = append(lines, renderField("⏱️  Duration", formatDuration(d)))
	}
	if event.Status != "" {
		lines = append(lines, renderField("📊 Status", formatStatus(event.Status)))
	}

	now := m.view.Now
	switch {
	case event.InProgress(now):
		end, _ := event.End.Time()
		lines = append(lines, "", BadgeNormalStyle.Render("🟢 IN PROGRESS • "+formatDuration(end.Sub(now))+" remaining"))
	case item.IsNext:
		lines = append(lines, "", badge(item))
	}
	lines = append(lines, "")

	if event.Location != "" {
		lines = append(lines, renderWrappedField("📍 Location", event.Location, width))
	}

	if item.Meeting != nil {
		label := "📹 " + item.Meeting.Service
		labelWidth := lipgloss.Width(LabelStyle.Render(label)) + 1
		display := util.TruncateText(item.Meeting.URL, width-labelWidth)
		lines = append(lines, renderField(label, util.MakeHyperlink(item.Meeting.URL, LinkStyle.Render(display))))
	}

	if event.Description != "" {
		desc := util.HTMLToText(event.Description, width)
		lines = append(lines, "", LabelStyle.Render("📝 Description"), ValueStyle.Render(ansi.Wordwrap(desc, width, "")))
	}

	m.detailView.SetContent(strings.Join(lines, "\n"))
}

func (m Model) renderDetailPanel() string {
	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("Event Details")
	if _, ok := m.selected(); !ok {
		return DetailPanelStyle.Width(m.detailWidth).Height(m.contentHeight).Render(
			MutedStyle.Render("No event selected"),
		)
	}
	if m.viewportReady && m.detailView.TotalLineCount() > m.detailView.Height {
		header += MutedStyle.Render(fmt.Sprintf(" (%d%%)", int(m.detailView.ScrollPercent()*100)))
	}
	return DetailPanelStyle.Width(m.detailWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", m.detailView.View()),
	)
}

func (m Model) renderCalendars() string {
	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("Calendars")
	lines := []string{header, ""}
	if len(m.entries) == 0 {
		lines = append(lines, MutedStyle.Render("No calendars"))
	}

	idx := 0
	for _, g := range m.calendars {
		lines = append(lines, GroupStyle.Render(g.Source))
		for _, c := range g.Calendars {
			box := "[ ]"
			if c.Enabled {
				box = "[x]"
			}
			dot := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
			line := fmt.Sprintf("%s %s %s", box, dot, c.Title)
			if idx == m.calendarIdx {
				lines = append(lines, SelectedItemStyle.Render(line))
			} else {
				lines = append(lines, NormalItemStyle.Render(line))
			}
			idx++
		}
		lines = append(lines, "")
	}

	width := m.listWidth
	if !m.compactMode {
		width = m.listWidth + m.detailWidth + 1
	}
	return ListPanelStyle.Width(width).Height(m.contentHeight).Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	var keys []string
	switch {
	case m.perm != core.PermissionGranted:
		keys = []string{
			HelpKeyStyle.Render("g") + " grant",
			HelpKeyStyle.Render("s") + " settings",
			HelpKeyStyle.Render("q") + " quit",
		}
	case m.screen == ScreenCalendars:
		keys = []string{
			HelpKeyStyle.Render("↑/↓") + " nav",
			HelpKeyStyle.Render("space") + " toggle",
			HelpKeyStyle.Render("esc") + " back",
			HelpKeyStyle.Render("q") + " quit",
		}
	default:
		keys = []string{
			HelpKeyStyle.Render("↑/↓") + " nav",
			HelpKeyStyle.Render("tab") + " panel",
			HelpKeyStyle.Render("enter") + " join",
			HelpKeyStyle.Render("v") + " view",
			HelpKeyStyle.Render("c") + " calendars",
			HelpKeyStyle.Render("r") + " refresh",
			HelpKeyStyle.Render("q") + " quit",
		}
	}

	fullLine := strings.Join(keys, "  •  ")
	if lipgloss.Width(fullLine) > m.width-4 {
		return HelpStyle.Render(HelpKeyStyle.Render("?") + " help")
	}
	return HelpStyle.Render(fullLine)
}

func (m Model) renderHelpPanel() string {
	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("Keyboard Shortcuts")

	lines := []string{
		"",
		HelpKeyStyle.Render("  ↑ / k      ") + " Move up",
		HelpKeyStyle.Render("  ↓ / j      ") + " Move down",
		HelpKeyStyle.Render("  ctrl+u/d   ") + " Scroll detail panel",
		HelpKeyStyle.Render("  tab        ") + " Switch panel",
		HelpKeyStyle.Render("  enter      ") + " Join meeting",
		HelpKeyStyle.Render("  v          ") + " View event in calendar",
		HelpKeyStyle.Render("  c          ") + " Choose calendars",
		HelpKeyStyle.Render("  r          ") + " Refresh events",
		HelpKeyStyle.Render("  q / ctrl+c ") + " Quit",
		"",
		MutedStyle.Italic(true).Render("  Press any key to close"),
	}

	width := m.detailWidth
	if m.compactMode {
		width = m.listWidth
	}
	return DetailPanelStyle.Width(width).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n")),
	)
}

// Helper functions
func renderField(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

// renderWrappedField renders a label-value field, word-wrapping the value
// to fit within maxWidth. Continuation lines are indented to align with the value.
func renderWrappedField(label, value string, maxWidth int) string {
	labelRendered := LabelStyle.Render(label)
	labelWidth := lipgloss.Width(labelRendered) + 1
	valueWidth := max(maxWidth-labelWidth, 10)
	wrapLines := strings.Split(ansi.Wordwrap(value, valueWidth, ""), "\n")
	indent := strings.Repeat(" ", labelWidth)
	for i := 1; i < len(wrapLines); i++ {
		wrapLines[i] = indent + wrapLines[i]
	}
	return labelRendered + " " + ValueStyle.Render(strings.Join(wrapLines, "\n"))
}

func eventDuration(e core.Event) (time.Duration, bool) {
	start, ok := e.Start.Time()
	if !ok {
		return 0, false
	}
	end, ok := e.End.Time()
	if !ok {
		return 0, false
	}
	return end.Sub(start), true
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatEventTime(e core.Event, loc *time.Location) string {
	const day = "Mon, Jan 2"

	if e.IsAllDay || e.Start.DateTime == nil {
		start, ok := e.Start.Instant(loc)
		if !ok {
			return ""
		}
		s := start.Format(day)
		if end, ok := e.End.Instant(loc); ok && !end.Equal(start) {
			s += " - " + end.Format(day)
		}
		return s + " (all day)"
	}

	start := e.Start.DateTime.In(loc)
	end, ok := e.End.Time()
	if !ok {
		return start.Format(day + ", 15:04")
	}
	end = end.In(loc)
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s, %s - %s", start.Format(day), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format(day+" 15:04"), end.Format(day+" 15:04"))
}

func formatStatus(status string) string {
	switch status {
	case core.StatusConfirmed:
		return StatusConfirmedStyle.Render("Confirmed ✓")
	case core.StatusTentative:
		return StatusTentativeStyle.Render("Tentative ?")
	default:
		return MutedStyle.Render(status)
	}
}
