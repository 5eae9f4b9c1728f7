package outlook

import (
	"context"
	"fmt"
	"sort"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/util"
)

var selectFields = []string{
	"id", "subject", "body", "start", "end", "location", "isAllDay",
	"showAs", "onlineMeeting", "onlineMeetingUrl", "webLink", "isCancelled",
}

// ListCalendars fetches all calendars the user has access to.
func (o *Adapter) ListCalendars(ctx context.Context) ([]core.CalendarInfo, error) {
	client, err := o.ensureClient()
	if err != nil {
		return nil, err
	}

	result, err := client.Me().Calendars().Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.Calendarable](
		result,
		client.GetAdapter(),
		models.CreateCalendarCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return nil, fmt.Errorf("create page iterator: %w", err)
	}

	var infos []core.CalendarInfo
	names := make(map[string]string)
	err = pageIterator.Iterate(ctx, func(cal models.Calendarable) bool {
		id := derefStr(cal.GetId())
		if id == "" {
			return true
		}
		title := derefStr(cal.GetName())
		names[id] = title
		infos = append(infos, core.CalendarInfo{ID: id, Title: title, SourceName: ownerName(cal)})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate calendars: %w", err)
	}
	core.SortCalendars(infos)

	o.mu.Lock()
	o.calendars = names
	o.mu.Unlock()
	return infos, nil
}

// FetchEvents retrieves events from the user's calendars matching the given options.
func (o *Adapter) FetchEvents(ctx context.Context, opts core.FetchOptions) ([]core.Event, error) {
	client, err := o.ensureClient()
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	known := o.calendars
	o.mu.Unlock()
	if known == nil {
		if _, err := o.ListCalendars(ctx); err != nil {
			return nil, err
		}
		o.mu.Lock()
		known = o.calendars
		o.mu.Unlock()
	}

	calendarIDs := opts.CalendarIDs
	if len(calendarIDs) == 0 {
		for calID := range known {
			calendarIDs = append(calendarIDs, calID)
		}
		sort.Strings(calendarIDs)
	}

	var (
		results  []core.Event
		firstErr error
		fetched  int
	)
	for _, calID := range calendarIDs {
		name, exists := known[calID]
		if !exists {
			continue
		}
		events, err := o.fetchCalendar(ctx, client, calID, name, opts)
		if err != nil {
			o.log.Warn().Err(err).Str("calendar", calID).Msg("skipping calendar")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fetched++
		results = append(results, events...)
	}
	if fetched == 0 && firstErr != nil {
		return nil, firstErr
	}

	core.SortEvents(results, opts.Start.Location())
	return results, nil
}

func (o *Adapter) fetchCalendar(ctx context.Context, client *msgraphsdk.GraphServiceClient, calendarID, calendarName string, opts core.FetchOptions) ([]core.Event, error) {
	startStr := opts.Start.UTC().Format(time.RFC3339)
	endStr := opts.End.UTC().Format(time.RFC3339)
	orderBy := []string{"start/dateTime"}
	top := int32(100)

	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", `outlook.timezone="UTC"`)

	config := &users.ItemCalendarsItemCalendarViewRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemCalendarsItemCalendarViewRequestBuilderGetQueryParameters{
			StartDateTime: &startStr,
			EndDateTime:   &endStr,
			Select:        selectFields,
			Orderby:       orderBy,
			Top:           &top,
		},
		Headers: headers,
	}
	result, err := client.Me().Calendars().ByCalendarId(calendarID).CalendarView().Get(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar view: %w", err)
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.Eventable](
		result,
		client.GetAdapter(),
		models.CreateEventCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return nil, fmt.Errorf("create page iterator: %w", err)
	}

	var results []core.Event
	err = pageIterator.Iterate(ctx, func(item models.Eventable) bool {
		if event, ok := toEvent(o.id, item, calendarID, calendarName); ok {
			results = append(results, event)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return results, nil
}

// toEvent converts a Graph SDK event into a core.Event.
func toEvent(providerID string, item models.Eventable, calendarID, calendarName string) (core.Event, bool) {
	event := core.Event{
		ID:          derefStr(item.GetId()),
		ProviderID:  providerID,
		Calendar:    core.Calendar{ID: calendarID, Name: calendarName},
		Title:       derefStr(item.GetSubject()),
		ExternalURL: derefStr(item.GetWebLink()),
		Status:      eventStatus(item),
		IsAllDay:    derefBool(item.GetIsAllDay()),
	}

	if event.IsAllDay {
		start := datePart(item.GetStart())
		if start == "" {
			return core.Event{}, false
		}
		event.Start = core.On(start)
		if end := datePart(item.GetEnd()); end != "" {
			event.End = core.On(core.InclusiveEnd(start, end))
		}
	} else {
		start, ok := parseDateTime(item.GetStart())
		if !ok {
			return core.Event{}, false
		}
		event.Start = core.At(start)
		if end, ok := parseDateTime(item.GetEnd()); ok {
			event.End = core.At(end)
		}
	}

	// Meeting link (Teams, Zoom, etc.)
	if om := item.GetOnlineMeeting(); om != nil {
		event.MeetingURL = derefStr(om.GetJoinUrl())
	}
	if event.MeetingURL == "" {
		event.MeetingURL = derefStr(item.GetOnlineMeetingUrl())
	}

	if body := item.GetBody(); body != nil {
		content := derefStr(body.GetContent())
		if isHTML(body) {
			content = util.PlainText(content)
		}
		event.Description = content
	}

	if loc := item.GetLocation(); loc != nil {
		event.Location = derefStr(loc.GetDisplayName())
	}
	return event, true
}

func eventStatus(item models.Eventable) string {
	if derefBool(item.GetIsCancelled()) {
		return core.StatusCancelled
	}
	if showAs := item.GetShowAs(); showAs != nil && *showAs == models.TENTATIVE_FREEBUSYSTATUS {
		return core.StatusTentative
	}
	return core.StatusConfirmed
}
