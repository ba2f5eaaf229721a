package models

import "database/sql"

type TaskStatus string

const (
	Pending    TaskStatus = "pending"
	InProgress TaskStatus = "in_progress"
	Completed  TaskStatus = "completed"
)

type TaskPriority string

const (
	Low    TaskPriority = "low"
	Medium TaskPriority = "medium"
	High   TaskPriority = "high"
)

var (
	TaskStatuses   = []TaskStatus{Pending, InProgress, Completed}
	TaskPriorities = []TaskPriority{Low, Medium, High}
)

func (s TaskStatus) Label() string {
	switch s {
	case Pending:
		return "Pending"
	case InProgress:
		return "In Progress"
	case Completed:
		return "Completed"
	}
	return string(s)
}

func (p TaskPriority) Label() string {
	switch p {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	}
	return string(p)
}

type Task struct {
	CreatedAt   NullTime       `db:"created_at"`
	UpdatedAt   NullTime       `db:"updated_at"`
	DueDate     NullTime       `db:"due_date"`
	Id          int64          `db:"id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Status      TaskStatus     `db:"status"`
	Priority    TaskPriority   `db:"priority"`
}

type TaskRow struct {
	Id            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	StatusLabel   string `json:"status_label"`
	Priority      string `json:"priority"`
	PriorityLabel string `json:"priority_label"`
	DueDate       string `json:"due_date"`
	CreatedAt     string `json:"created_at"`
}

type TaskRequest struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Status      string `form:"status" json:"status"`
	Priority    string `form:"priority" json:"priority"`
	DueDate     string `form:"due_date" json:"due_date"`
}
