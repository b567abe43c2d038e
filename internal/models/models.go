package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType is the closed set of question kinds a questionnaire may contain.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TextAnswer     QuestionType = "text"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, TextAnswer:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == SingleChoice || t == MultipleChoice
}

// QuestionnaireStatus is the lifecycle state of a questionnaire.
// Transitions only move forward: Draft -> Active -> Closed.
type QuestionnaireStatus string

const (
	StatusDraft  QuestionnaireStatus = "draft"
	StatusActive QuestionnaireStatus = "active"
	StatusClosed QuestionnaireStatus = "closed"
)

// User mirrors the chat identity of anyone who has ever messaged the bot.
// The IsAdmin column is a snapshot of the configured admin list at the time
// of the last update; authorization always consults the live config.
type User struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Username  string
	FirstName string
	LastName  string
	IsAdmin   bool
	CreatedAt time.Time
}

// DisplayName renders a user the way the admin-facing summaries show them.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" || u.LastName != "" {
		name := u.FirstName
		if u.LastName != "" {
			if name != "" {
				name += " "
			}
			name += u.LastName
		}
		return name
	}
	return fmt.Sprintf("User %d", u.ID)
}

// Questionnaire is a named survey definition owned by the admin who created it.
type Questionnaire struct {
	ID          int64 `gorm:"primaryKey"`
	Title       string
	Description string
	CreatedBy   int64 `gorm:"index"`
	Status      QuestionnaireStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Question is one prompt within a questionnaire. Questions are append-only:
// once persisted they are never edited or reordered. Position is dense and
// 1-based, assigned by the store at insertion time.
type Question struct {
	ID              int64 `gorm:"primaryKey"`
	QuestionnaireID int64 `gorm:"index"`
	Text            string
	Type            QuestionType
	Options         StringList `gorm:"type:text"`
	IsRequired      bool
	Position        int
}

// Attempt tracks one participant's pass through a questionnaire. The
// composite key means at most one live attempt per (questionnaire, user)
// pair; starting again resets this record in place.
type Attempt struct {
	QuestionnaireID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID          int64 `gorm:"primaryKey;autoIncrement:false"`
	StartedAt       time.Time
	CompletedAt     *time.Time
	IsCompleted     bool
}

// Answer holds exactly one payload shape depending on the question type:
// Text for free text, SelectedOption for single choice, SelectedOptions for
// multiple choice. Re-answering the same question overwrites the row.
type Answer struct {
	ID              int64 `gorm:"primaryKey"`
	QuestionnaireID int64 `gorm:"uniqueIndex:idx_answer_key"`
	UserID          int64 `gorm:"uniqueIndex:idx_answer_key"`
	QuestionID      int64 `gorm:"uniqueIndex:idx_answer_key"`
	Text            string
	SelectedOption  *int
	SelectedOptions IntList `gorm:"type:text"`
	CreatedAt       time.Time
}

// AttemptStats is the started/completed counter pair shown in list views.
type AttemptStats struct {
	Started   int64
	Completed int64
}

// AttemptWithAnswers joins one attempt with its user and the answers given
// so far, keyed by question ID. Used by summaries and the xlsx export.
type AttemptWithAnswers struct {
	User        User
	StartedAt   time.Time
	CompletedAt *time.Time
	IsCompleted bool
	Answers     map[int64]Answer
}

// StringList stores a []string as a JSON text column, matching the schema
// the bot has always used for option lists.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	return scanJSONColumn(src, l)
}

// IntList stores a []int as a JSON text column (multi-choice answers).
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IntList) Scan(src any) error {
	return scanJSONColumn(src, l)
}

func scanJSONColumn(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
