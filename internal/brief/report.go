package brief

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inconshreveable/log15/v3"

	"TodayBrief/config"
	"TodayBrief/db"
)

type filterMode int

const (
	skipListed filterMode = iota
	onlyListed
)

// Filter selects the users that appear in a report. Names compare
// case-insensitively after trimming.
type Filter struct {
	mode  filterMode
	names map[string]struct{}
}

// Skip keeps everyone except the listed names.
func Skip(names ...string) Filter { return newFilter(skipListed, names) }

// Include keeps only the listed names.
func Include(names ...string) Filter { return newFilter(onlyListed, names) }

func newFilter(mode filterMode, names []string) Filter {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = normalize(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return Filter{mode: mode, names: set}
}

func (f Filter) Allows(name string) bool {
	_, listed := f.names[normalize(name)]
	if f.mode == onlyListed {
		return listed
	}
	return !listed
}

func (f Filter) selectsNobody() bool {
	return f.mode == onlyListed && len(f.names) == 0
}

// Group is a named report: who is in it and how it is delivered.
type Group struct {
	Name   string
	Filter Filter
	// Split sends a user's report as several messages instead of cutting it.
	Split bool
}

// GroupNames in menu order.
var GroupNames = []string{"general", "pm", "ba", "av"}

// LookupGroup resolves a report name against the configured role groups.
// The general report skips everyone who belongs to a role group.
func LookupGroup(name string, groups config.Groups) (Group, error) {
	switch normalize(name) {
	case "", "general":
		return Group{Name: "general", Filter: Skip(groups.All()...)}, nil
	case "pm":
		return Group{Name: "pm", Filter: Include(groups.PM...)}, nil
	case "ba":
		return Group{Name: "ba", Filter: Include(groups.BA...)}, nil
	case "av":
		return Group{Name: "av", Filter: Include(groups.AV...), Split: true}, nil
	}
	return Group{}, fmt.Errorf("unknown report group %q", name)
}

// UserReport is the day's tasks and note of one user.
type UserReport struct {
	UserName string
	Handle   string
	Note     string
	Entries  []Entry
}

type ReportStore interface {
	TodayTasks(ctx context.Context) ([]db.TaskRow, error)
	TodayNotes(ctx context.Context) ([]db.Note, error)
	HandlesByName(ctx context.Context, names []string) (map[string]string, error)
}

// Reporter builds broadcast reports from the rows the extraction job wrote today.
type Reporter struct {
	store  ReportStore
	format Formatter
	loc    *time.Location
	now    func() time.Time
	log    log15.Logger
}

func NewReporter(store ReportStore, loc *time.Location, log log15.Logger) *Reporter {
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{store: store, format: NewFormatter(), loc: loc, now: time.Now, log: log}
}

// Build returns one report per user the filter selects, in row order.
// No data yields an empty slice and a nil error; a failed query yields an error.
func (r *Reporter) Build(ctx context.Context, requestedBy string, f Filter) ([]UserReport, error) {
	if f.selectsNobody() {
		r.log.Info("report group has no members", "requested_by", requestedBy)
		return []UserReport{}, nil
	}

	rows, err := r.store.TodayTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	notes, err := r.store.TodayNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	index := make(map[string]int)
	reports := []UserReport{}
	for _, row := range rows {
		if !f.Allows(row.UserName) {
			continue
		}
		i, ok := index[row.UserName]
		if !ok {
			i = len(reports)
			index[row.UserName] = i
			reports = append(reports, UserReport{UserName: row.UserName})
		}
		reports[i].Entries = append(reports[i].Entries, entryFromRow(row))
	}
	if len(reports) == 0 {
		r.log.Info("no report data for today", "requested_by", requestedBy, "rows", len(rows))
		return reports, nil
	}

	for _, n := range notes {
		if i, ok := index[n.UserName]; ok && reports[i].Note == "" {
			reports[i].Note = n.Note
		}
	}

	names := make([]string, len(reports))
	for i, rep := range reports {
		names[i] = rep.UserName
	}
	handles, err := r.store.HandlesByName(ctx, names)
	if err != nil {
		r.log.Warn("failed to load telegram handles", "err", err)
	}
	for i := range reports {
		reports[i].Handle = handles[reports[i].UserName]
	}

	r.log.Info("built report", "requested_by", requestedBy, "users", len(reports))
	return reports, nil
}

// Messages renders reports for sending. An empty result becomes the single
// "no data" message.
func (r *Reporter) Messages(reports []UserReport, split bool) []string {
	date := r.now().In(r.loc)
	if len(reports) == 0 {
		return []string{r.format.EmptyReport(date)}
	}
	var out []string
	for _, rep := range reports {
		v := View{Date: date, UserName: rep.UserName, Handle: rep.Handle, Entries: rep.Entries, Note: rep.Note}
		if split {
			out = append(out, r.format.Split(v)...)
		} else {
			out = append(out, r.format.Render(v))
		}
	}
	return out
}

func entryFromRow(row db.TaskRow) Entry {
	e := Entry{Name: row.TaskName, URL: row.URL}
	if row.ProjectName != nil {
		e.Project = strings.TrimSpace(*row.ProjectName)
	}
	if row.Notes != nil {
		e.Notes = *row.Notes
	}
	if row.DueOn != nil {
		e.Due = *row.DueOn
	}
	return e
}
