package brief

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/inconshreveable/log15/v3"

	"TodayBrief/db"
	"TodayBrief/internal/asana"
	"TodayBrief/internal/profile"
	"TodayBrief/utils"
)

// DefaultTodaySections are the assignee sections that count as today, lowercased.
var DefaultTodaySections = []string{"today", "сегодня", "фокус"}

type Profiles interface {
	Get(ctx context.Context, telegramID int64) (profile.Profile, error)
}

// TaskAPI is the part of the Asana client the daily view needs.
type TaskAPI interface {
	UserTaskList(ctx context.Context, token, userGID, workspace string) (string, error)
	Tasks(ctx context.Context, token, listGID string) ([]asana.Task, error)
	ProjectNames(ctx context.Context, token, taskGID string) ([]string, error)
}

type NoteReader interface {
	TodayNote(ctx context.Context, userName string) (string, error)
}

// Aggregator builds the personal "today" view of one Telegram user.
type Aggregator struct {
	profiles  Profiles
	api       TaskAPI
	notes     NoteReader
	workspace string
	sections  map[string]struct{}
	format    Formatter
	loc       *time.Location
	now       func() time.Time
	log       log15.Logger
}

func NewAggregator(profiles Profiles, api TaskAPI, notes NoteReader, workspace string, sections []string, loc *time.Location, log log15.Logger) *Aggregator {
	if len(sections) == 0 {
		sections = DefaultTodaySections
	}
	set := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		set[normalize(s)] = struct{}{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		profiles:  profiles,
		api:       api,
		notes:     notes,
		workspace: workspace,
		sections:  set,
		format:    NewFormatter(),
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// Daily returns the user's tasks in a today section, with project names
// filled in from the parent chain where the task has none of its own.
func (a *Aggregator) Daily(ctx context.Context, telegramID int64) ([]Entry, profile.Profile, error) {
	p, err := a.profiles.Get(ctx, telegramID)
	if err != nil {
		return nil, profile.Profile{}, err
	}
	if p.Token == "" {
		return nil, p, profile.ErrNotProvisioned
	}

	listGID, err := a.api.UserTaskList(ctx, p.Token, p.UserGID, a.workspace)
	if err != nil {
		a.log.Error("failed to fetch task list", "user", telegramID, "name", p.UserName, "err", err)
		return nil, p, err
	}
	tasks, err := a.api.Tasks(ctx, p.Token, listGID)
	if err != nil {
		a.log.Error("failed to fetch tasks", "user", telegramID, "name", p.UserName, "err", err)
		return nil, p, err
	}

	var entries []Entry
	for _, t := range tasks {
		if _, ok := a.sections[normalize(t.SectionName())]; !ok {
			continue
		}
		names := t.ProjectNames()
		if len(names) == 0 {
			names, err = a.api.ProjectNames(ctx, p.Token, t.GID)
			if err != nil {
				a.log.Warn("failed to resolve project via parents", "user", telegramID, "task", t.GID, "err", err)
				names = nil
			}
		}
		entries = append(entries, Entry{
			Project: strings.Join(names, ", "),
			Name:    t.Name,
			URL:     t.PermalinkURL,
			Notes:   t.Notes,
			Due:     utils.ParseDueOn(t.DueOn),
		})
	}
	a.log.Info("fetched today tasks", "user", telegramID, "name", p.UserName, "total", len(tasks), "today", len(entries))
	return entries, p, nil
}

// Personal renders the daily view together with today's note.
func (a *Aggregator) Personal(ctx context.Context, telegramID int64) (string, error) {
	entries, p, err := a.Daily(ctx, telegramID)
	if err != nil {
		return "", err
	}
	date := a.now().In(a.loc)
	if len(entries) == 0 {
		return a.format.EmptyPersonal(date), nil
	}
	return a.format.Render(View{Date: date, Entries: entries, Note: a.todayNote(ctx, p.UserName)}), nil
}

func (a *Aggregator) todayNote(ctx context.Context, userName string) string {
	note, err := a.notes.TodayNote(ctx, userName)
	if errors.Is(err, db.ErrNotFound) {
		return ""
	}
	if err != nil {
		a.log.Warn("failed to read today note", "name", userName, "err", err)
		return ""
	}
	return note
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
