package asana

import "strings"

// User is the subset of an Asana user the bot reads.
type User struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Ref is a compact reference to another object (project, section, parent task).
type Ref struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Task is the subset of an Asana task used for the daily view.
type Task struct {
	GID             string `json:"gid"`
	Name            string `json:"name"`
	DueOn           string `json:"due_on"`
	Notes           string `json:"notes"`
	PermalinkURL    string `json:"permalink_url"`
	Projects        []Ref  `json:"projects"`
	AssigneeSection *Ref   `json:"assignee_section"`
	Parent          *Ref   `json:"parent"`
}

func (t Task) ProjectNames() []string {
	names := make([]string, 0, len(t.Projects))
	for _, p := range t.Projects {
		if n := strings.TrimSpace(p.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (t Task) SectionName() string {
	if t.AssigneeSection == nil {
		return ""
	}
	return t.AssigneeSection.Name
}

type nextPage struct {
	Offset string `json:"offset"`
}

type envelope[T any] struct {
	Data     T         `json:"data"`
	NextPage *nextPage `json:"next_page"`
}
