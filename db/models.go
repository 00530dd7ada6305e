package db

import "time"

// ProvisionedUser is a row of the externally maintained users table holding
// each member's permanent Asana token.
type ProvisionedUser struct {
	Name      string `gorm:"column:name;primaryKey"`
	UserGID   string `gorm:"column:user_gid"`
	UserToken string `gorm:"column:user_token"`
}

func (ProvisionedUser) TableName() string { return "users" }

// Binding maps a Telegram identity to an Asana identity. One row per Telegram user.
type Binding struct {
	UserID    int64     `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	TGUser    *string   `gorm:"column:tg_user"`
	UserName  string    `gorm:"column:user_name;not null"`
	UserToken string    `gorm:"column:user_token;not null"`
	UserGID   string    `gorm:"column:user_gid"`
	DateAdded time.Time `gorm:"column:date_added;type:date"`
}

func (Binding) TableName() string { return "bot" }

// TaskRow is one task of one user, written daily by the extraction job.
type TaskRow struct {
	ID            uint       `gorm:"primaryKey"`
	ProjectName   *string    `gorm:"column:project_name"`
	UserName      string     `gorm:"column:user_name;index"`
	TaskName      string     `gorm:"column:task_name"`
	DueOn         *time.Time `gorm:"column:due_on;type:date"`
	Notes         *string    `gorm:"column:notes;type:text"`
	URL           string     `gorm:"column:url"`
	DateExtracted time.Time  `gorm:"column:date_extracted;type:date;index"`
}

func (TaskRow) TableName() string { return "tasks" }

type Note struct {
	ID        uint      `gorm:"primaryKey"`
	UserName  string    `gorm:"column:user_name;not null;uniqueIndex:ux_notes_user_day,priority:1"`
	Note      string    `gorm:"column:note;type:text;not null"`
	DateAdded time.Time `gorm:"column:date_added;type:date;not null;uniqueIndex:ux_notes_user_day,priority:2"`
}

func (Note) TableName() string { return "notes" }
