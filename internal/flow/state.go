package flow

import (
	"sync"

	"surveybot/internal/models"
)

// Mode discriminates which machine owns a user's conversation state.
type Mode int

const (
	ModeAuthoring Mode = iota + 1
	ModeAnswering
)

// Stage is the authoring machine's step tag.
type Stage int

const (
	StageTitle Stage = iota + 1
	StageDescription
	StageQuestionsMenu
	StageQuestionType
	StageQuestionText
	StageQuestionOptions
)

// DraftQuestion accumulates one question across the type/text/options steps.
type DraftQuestion struct {
	Type    models.QuestionType
	Text    string
	Options []string
}

// State is one user's in-progress flow. It is transient, process-lifetime
// only: created when a flow starts, mutated on every valid step, deleted on
// completion, cancellation, or restart.
type State struct {
	Mode Mode

	// Authoring fields.
	Stage           Stage
	QuestionnaireID int64
	Title           string
	Description     string
	Draft           DraftQuestion

	// Answering fields. Questions is snapshotted at start time, so edits
	// by the admin never affect an attempt already in progress.
	Questions []models.Question
	Cursor    int
}

// StateTable maps user IDs to their current conversation state. Cross-user
// access is embarrassingly parallel; the one hazard is two concurrent
// events for the same user racing on the same entry, so the table hands
// out a per-user lock that the engine holds for the whole handling path.
type StateTable struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu    sync.Mutex
	state *State
}

// NewStateTable returns an empty table.
func NewStateTable() *StateTable {
	return &StateTable{entries: make(map[int64]*entry)}
}

func (t *StateTable) entryFor(userID int64) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok {
		e = &entry{}
		t.entries[userID] = e
	}
	return e
}

// Lock serializes handling for one user and returns the unlock func.
func (t *StateTable) Lock(userID int64) func() {
	e := t.entryFor(userID)
	e.mu.Lock()
	return e.mu.Unlock
}

// Get returns the user's state, or ok=false when no flow is in progress.
func (t *StateTable) Get(userID int64) (*State, bool) {
	e := t.entryFor(userID)
	if e.state == nil {
		return nil, false
	}
	return e.state, true
}

// Set installs or replaces the user's state.
func (t *StateTable) Set(userID int64, s *State) {
	t.entryFor(userID).state = s
}

// Clear removes the user's state. Clearing an absent entry is a no-op.
func (t *StateTable) Clear(userID int64) {
	t.entryFor(userID).state = nil
}
