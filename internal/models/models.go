package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the wire and storage format used for calendar dates.
const DateLayout = "2006-01-02"

// User is an account owned by the external auth system.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary strips a user down to the fields attached to projects.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the identity attached to a project as leader or member.
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Project groups tasks under a single leader and a set of members.
type Project struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Price          float64       `json:"price"`
	StartDate      *Date         `json:"start_date"`
	EndDate        *Date         `json:"end_date"`
	LeaderID       int64         `json:"leader_id"`
	Leader         UserSummary   `json:"leader"`
	Members        []UserSummary `json:"members"`
	Tasks          []Task        `json:"tasks,omitempty"`
	CompletedTasks int           `json:"completed_tasks"`
	TotalTasks     int           `json:"total_tasks"`
	Progress       float64       `json:"progress"`
	DaysRemaining  *int          `json:"days_remaining"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// HasMember reports whether userID appears in the membership set.
// The leader is not implied here; see the access package for that rule.
func (p Project) HasMember(userID int64) bool {
	for _, m := range p.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberIDs lists the ids of the membership set in stored order.
func (p Project) MemberIDs() []int64 {
	ids := make([]int64, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// Derive fills the computed progress fields relative to today.
func (p *Project) Derive(today time.Time) {
	p.Progress = Progress(p.CompletedTasks, p.TotalTasks)
	p.DaysRemaining = nil
	if p.EndDate != nil {
		days := p.EndDate.DaysFrom(today)
		p.DaysRemaining = &days
	}
}

// TaskStatus is the binary state of a task.
type TaskStatus string

const (
	StatusCreated   TaskStatus = "created"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	return s == StatusCreated || s == StatusCompleted
}

// Toggle flips between created and completed.
func (s TaskStatus) Toggle() TaskStatus {
	if s == StatusCompleted {
		return StatusCreated
	}
	return StatusCompleted
}

// Task is a unit of work inside a project.
type Task struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	UserID      *int64     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Progress returns the completion percentage, 0 when there are no tasks.
func Progress(completed, total int) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return float64(completed) / float64(total) * 100
}

// RoundPrice rounds a price to cents.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// Date is a calendar date without time of day or zone.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", raw)
	}
	return Date{Time: t}, nil
}

// NewDate truncates t to its calendar date in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// DaysFrom returns the whole days from today until d, rounded up.
func (d Date) DaysFrom(today time.Time) int {
	diff := d.Time.Sub(NewDate(today).Time)
	return int(math.Ceil(diff.Hours() / 24))
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
