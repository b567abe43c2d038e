package flow

import (
	"go.uber.org/zap"
)

// Limits caps the size of authored questionnaires. Zero values mean the
// corresponding limit is not enforced.
type Limits struct {
	MaxQuestions int
	MaxOptions   int
}

// Engine hosts both state machines. All public methods serialize per user
// ID via the state table's locking discipline; cross-user calls run
// concurrently without coordination.
type Engine struct {
	store   Store
	states  *StateTable
	isAdmin func(int64) bool
	limits  Limits
	log     *zap.Logger
}

// NewEngine wires the engine with its collaborators. isAdmin is the static
// access-control predicate from configuration.
func NewEngine(store Store, states *StateTable, isAdmin func(int64) bool, limits Limits, log *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		states:  states,
		isAdmin: isAdmin,
		limits:  limits,
		log:     log,
	}
}

// HandleText routes an inbound free-text message by the sender's current
// conversation state. When no flow is in progress the message is ignored:
// the returned reply is empty and err is nil. That is a deliberate no-op,
// not an error.
func (e *Engine) HandleText(userID int64, text string) (Reply, error) {
	unlock := e.states.Lock(userID)
	defer unlock()

	state, ok := e.states.Get(userID)
	if !ok {
		return Reply{}, nil
	}

	switch state.Mode {
	case ModeAuthoring:
		return e.handleAuthoringText(userID, state, text)
	case ModeAnswering:
		return e.handleAnsweringText(userID, state, text)
	}
	return Reply{}, nil
}

// HandleAction dispatches a decoded button press. Actions that belong to
// the authoring machine or answer restart are handled here; management
// actions (activate, close, results, export, link) have dedicated methods
// because they produce attachments the transport layer assembles.
func (e *Engine) HandleAction(userID int64, a Action) (Reply, error) {
	switch a.Kind {
	case ActionAdminCreate:
		return e.StartAuthoring(userID)
	case ActionCancelAuthoring:
		return e.CancelAuthoring(userID)
	case ActionRestartAuthoring:
		return e.ResumeAuthoring(userID, a.QuestionnaireID)
	case ActionAddQuestion:
		return e.BeginQuestion(userID, a.QuestionnaireID)
	case ActionChooseType:
		return e.ChooseQuestionType(userID, a.QuestionnaireID, a.QuestionType)
	case ActionBackToMenu:
		return e.BackToMenu(userID, a.QuestionnaireID)
	case ActionFinishOptions:
		return e.FinishOptions(userID, a.QuestionnaireID)
	case ActionFinishQuestionnaire:
		return e.FinishQuestionnaire(userID, a.QuestionnaireID)
	case ActionRestartSurvey:
		return e.StartAnswering(userID, a.QuestionnaireID)
	}
	return Reply{}, nil
}

// requireAdmin is the AuthorizationError gate for admin-only entry points.
func (e *Engine) requireAdmin(userID int64) (Reply, error) {
	if e.isAdmin(userID) {
		return Reply{}, nil
	}
	err := &AuthorizationError{Msg: "admin privileges required"}
	return Reply{Text: "❌ Access denied. Admin privileges required."}, err
}

func cancelButton() [][]Button {
	return [][]Button{{{
		Label:  "🔄 Cancel Creation",
		Action: Action{Kind: ActionCancelAuthoring},
	}}}
}

func restartSurveyButton(questionnaireID int64) [][]Button {
	return [][]Button{{{
		Label:  "🔄 Restart Survey",
		Action: Action{Kind: ActionRestartSurvey, QuestionnaireID: questionnaireID},
	}}}
}
