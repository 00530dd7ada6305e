package brief

import (
	"fmt"
	"html"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"TodayBrief/utils"
)

const (
	DefaultMaxMessageLen = 4000
	DefaultMaxNoteLen    = 150

	// Ellipsis marks every cut, in notes and in whole messages.
	Ellipsis  = " (...)"
	NoProject = "No project"

	noDeadline = "No DL"
)

// Entry is one task as shown to a user.
type Entry struct {
	Project string
	Name    string
	URL     string
	Notes   string
	Due     time.Time // zero when undated
}

// View is everything rendered into one personal or group message.
// UserName is empty for the personal view.
type View struct {
	Date     time.Time
	UserName string
	Handle   string
	Entries  []Entry
	Note     string
}

// Formatter renders views as Telegram HTML. Lengths are counted in runes.
type Formatter struct {
	MaxMessageLen int
	MaxNoteLen    int
}

func NewFormatter() Formatter {
	return Formatter{MaxMessageLen: DefaultMaxMessageLen, MaxNoteLen: DefaultMaxNoteLen}
}

func (f Formatter) EmptyPersonal(date time.Time) string {
	return dateHeader(date) + "<code>No task for today</code>"
}

func (f Formatter) EmptyReport(date time.Time) string {
	return dateHeader(date) + "<code>No data is present for now</code>"
}

// Render builds a single message. When it would be too long the body is cut
// after the last entry that fits and marked with Ellipsis; the note section
// is always kept.
func (f Formatter) Render(v View) string {
	head := f.header(v)
	pieces := f.pieces(v.Entries)
	note := f.noteSection(v.Note)

	var full strings.Builder
	full.WriteString(head)
	for _, p := range pieces {
		full.WriteString(p.text)
	}
	if f.MaxMessageLen <= 0 || runeLen(full.String())+runeLen(note) <= f.MaxMessageLen {
		return full.String() + note
	}

	tail := "\n" + Ellipsis
	if note != "" {
		tail += "\n\n"
	}
	budget := f.MaxMessageLen - runeLen(note) - runeLen(tail)

	body := head
	for i, p := range pieces {
		if runeLen(body)+runeLen(p.text) > budget {
			if i == 0 {
				body += f.fit(p, budget-runeLen(body))
			}
			break
		}
		body += p.text
	}
	return strings.TrimRight(body, "\n") + tail + note
}

// Split breaks a view into as many messages as needed. Breaks fall between
// entries; a group continues in the next message without repeating its title.
func (f Formatter) Split(v View) []string {
	units := []piece{{text: f.header(v)}}
	units = append(units, f.pieces(v.Entries)...)
	if note := f.noteSection(v.Note); note != "" {
		units = append(units, piece{text: note})
	}

	var msgs []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimRight(cur.String(), "\n"); s != "" {
			msgs = append(msgs, s)
		}
		cur.Reset()
	}
	for _, u := range units {
		text := u.text
		if f.MaxMessageLen > 0 && runeLen(text) > f.MaxMessageLen {
			text = f.fit(u, f.MaxMessageLen)
		}
		if f.MaxMessageLen > 0 && runeLen(cur.String())+runeLen(text) > f.MaxMessageLen {
			flush()
		}
		cur.WriteString(text)
	}
	flush()
	return msgs
}

func dateHeader(date time.Time) string {
	return "<b>" + date.Format(utils.HeaderDateLayout) + "</b>\n\n"
}

func (f Formatter) header(v View) string {
	if v.UserName == "" {
		return dateHeader(v.Date)
	}
	h := "<b>" + html.EscapeString(v.UserName) + "</b>"
	if handle := strings.TrimPrefix(strings.TrimSpace(v.Handle), "@"); handle != "" {
		h += " @" + html.EscapeString(handle)
	}
	return h + "\n" + v.Date.Format(utils.HeaderDateLayout) + "\n\n"
}

// piece is a run of message text that ends on an entry boundary. Pieces
// rendering an entry keep it so an oversized one can be re-rendered shorter.
type piece struct {
	text           string
	prefix, suffix string
	idx            int
	entry          *Entry
}

// pieces renders the entries grouped by project: the project title travels
// with its first entry and the blank line closing a group with its last one.
func (f Formatter) pieces(entries []Entry) []piece {
	var out []piece
	for _, g := range groupEntries(entries) {
		for i := range g.entries {
			p := piece{idx: i + 1, entry: &g.entries[i]}
			if i == 0 {
				p.prefix = "━\n<b>" + html.EscapeString(g.name) + "</b>\n"
			}
			if i == len(g.entries)-1 {
				p.suffix = "\n"
			}
			p.text = p.prefix + f.entry(p.idx, *p.entry, p.entry.Name) + p.suffix
			out = append(out, p)
		}
	}
	return out
}

func (f Formatter) entry(idx int, e Entry, name string) string {
	due := noDeadline
	if !e.Due.IsZero() {
		due = e.Due.Format(utils.DueDateLayout)
	}
	notes := "-"
	if strings.TrimSpace(e.Notes) != "" {
		notes = html.EscapeString(truncateRunes(e.Notes, f.MaxNoteLen))
	}
	return fmt.Sprintf("%d. <a href=\"%s\">%s</a> · <code>%s</code>\n%s\n\n",
		idx, html.EscapeString(e.URL), html.EscapeString(name), due, notes)
}

func (f Formatter) noteSection(note string) string {
	if strings.TrimSpace(note) == "" {
		return ""
	}
	return "<b>✲ Note:</b>\n" + html.EscapeString(truncateRunes(note, f.MaxNoteLen)) + "\n\n"
}

// fit shortens the task name of an oversized piece until it takes at most
// limit runes, dropping the task notes when the name alone cannot get there.
// The raw name is cut before escaping so no entity is split.
func (f Formatter) fit(p piece, limit int) string {
	if runeLen(p.text) <= limit {
		return p.text
	}
	if p.entry == nil {
		return string([]rune(p.text)[:max(limit-runeLen(Ellipsis), 0)]) + Ellipsis
	}
	e := *p.entry
	if out, ok := f.shortenName(p, e, limit); ok {
		return out
	}
	if strings.TrimSpace(e.Notes) != "" {
		e.Notes = ""
		if out, ok := f.shortenName(p, e, limit); ok {
			return out
		}
	}
	return strings.TrimSpace(Ellipsis)
}

func (f Formatter) shortenName(p piece, e Entry, limit int) (string, bool) {
	if out := p.prefix + f.entry(p.idx, e, e.Name) + p.suffix; runeLen(out) <= limit {
		return out, true
	}
	name := []rune(e.Name)
	for n := len(name) - 1; n >= 0; n-- {
		short := strings.TrimRightFunc(string(name[:n]), unicode.IsSpace) + Ellipsis
		if out := p.prefix + f.entry(p.idx, e, short) + p.suffix; runeLen(out) <= limit {
			return out, true
		}
	}
	return "", false
}

type group struct {
	name    string
	entries []Entry
}

// groupEntries groups by trimmed project name, orders groups by name and
// entries by due date with undated entries last. Equal dates keep their order.
func groupEntries(entries []Entry) []group {
	index := make(map[string]int)
	var groups []group
	for _, e := range entries {
		name := strings.TrimSpace(e.Project)
		if name == "" {
			name = NoProject
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, group{name: name})
		}
		groups[i].entries = append(groups[i].entries, e)
	}

	slices.SortFunc(groups, func(a, b group) int { return strings.Compare(a.name, b.name) })
	for i := range groups {
		slices.SortStableFunc(groups[i].entries, compareDue)
	}
	return groups
}

func compareDue(a, b Entry) int {
	switch {
	case a.Due.IsZero() && b.Due.IsZero():
		return 0
	case a.Due.IsZero():
		return 1
	case b.Due.IsZero():
		return -1
	}
	return a.Due.Compare(b.Due)
}

// truncateRunes keeps the first max-3 runes of a longer s and appends Ellipsis.
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - 3
	if keep < 0 {
		keep = 0
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:keep]), unicode.IsSpace) + Ellipsis
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
