package commands_test

import (
	"context"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
)

type listCall struct {
	user  string
	date  time.Time
	grain string
	name  string
}

type fakeCalendar struct {
	events []calendar.Event
	err    error

	lists   []listCall
	finds   []listCall
	created []calendar.NewEvent
	cancels []calendar.Event
	links   []string
}

func (f *fakeCalendar) ListEvents(_ context.Context, user string, date time.Time, grain string) ([]calendar.Event, error) {
	f.lists = append(f.lists, listCall{user: user, date: date, grain: grain})
	return f.events, f.err
}

func (f *fakeCalendar) FindEvents(_ context.Context, user string, date time.Time, grain, name string) ([]calendar.Event, error) {
	f.finds = append(f.finds, listCall{user: user, date: date, grain: grain, name: name})
	return f.events, f.err
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ string, ev calendar.NewEvent) error {
	f.created = append(f.created, ev)
	return f.err
}

func (f *fakeCalendar) CancelEvent(_ context.Context, _ string, start time.Time, title string) error {
	f.cancels = append(f.cancels, calendar.Event{Start: start, Title: title})
	return f.err
}

func (f *fakeCalendar) LinkAccount(_ context.Context, user, username string) error {
	f.links = append(f.links, user+"="+username)
	return f.err
}

func (f *fakeCalendar) calls() int {
	return len(f.lists) + len(f.finds) + len(f.created) + len(f.cancels) + len(f.links)
}
