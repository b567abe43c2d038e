package flow

import (
	"fmt"
	"strconv"
	"strings"

	"surveybot/internal/models"
)

// ActionKind is the closed set of button actions the bot understands.
// Callback strings are decoded into an Action exactly once, at the
// transport boundary; everything past that point dispatches on the kind.
type ActionKind int

const (
	ActionNone ActionKind = iota

	// Admin panel.
	ActionAdminCreate
	ActionAdminList
	ActionAdminResults
	ActionAdminExport

	// Authoring.
	ActionCancelAuthoring
	ActionRestartAuthoring
	ActionAddQuestion
	ActionChooseType
	ActionBackToMenu
	ActionFinishOptions
	ActionFinishQuestionnaire

	// Questionnaire management.
	ActionActivate
	ActionClose
	ActionResults
	ActionExport
	ActionGetLink

	// Answering.
	ActionRestartSurvey
)

// Action is one decoded button press.
type Action struct {
	Kind            ActionKind
	QuestionnaireID int64
	QuestionType    models.QuestionType // set for ActionChooseType only
}

// Button pairs a label with the action its press produces.
type Button struct {
	Label  string
	Action Action
}

// Reply is a render-ready outbound message plus the next available actions.
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Empty reports whether there is nothing to send (deliberate no-op).
func (r Reply) Empty() bool {
	return r.Text == "" && len(r.Buttons) == 0
}

// Wire prefixes. These are the strings embedded in inline keyboards; they
// exist only inside Encode/Decode.
const (
	cbAdminCreate      = "admin_create"
	cbAdminList        = "admin_list"
	cbAdminResults     = "admin_results"
	cbAdminExport      = "admin_export"
	cbCancelCreation   = "cancel_creation"
	cbRestartCreation  = "restart_creation_"
	cbAddQuestion      = "add_question_"
	cbFinishQnr        = "finish_questionnaire_"
	cbQuestionType     = "question_type_"
	cbBackToMenu       = "back_to_menu_"
	cbFinishOptions    = "finish_options_"
	cbActivate         = "activate_"
	cbClose            = "close_"
	cbResults          = "results_"
	cbExport           = "export_"
	cbGetLink          = "get_link_"
	cbRestartSurvey    = "restart_survey_"
	cbTypeKeySingle    = "single"
	cbTypeKeyMultiple  = "multiple"
	cbTypeKeyText      = "text"
)

// Encode renders an action as callback data.
func (a Action) Encode() string {
	switch a.Kind {
	case ActionAdminCreate:
		return cbAdminCreate
	case ActionAdminList:
		return cbAdminList
	case ActionAdminResults:
		return cbAdminResults
	case ActionAdminExport:
		return cbAdminExport
	case ActionCancelAuthoring:
		return cbCancelCreation
	case ActionRestartAuthoring:
		return cbRestartCreation + itoa(a.QuestionnaireID)
	case ActionAddQuestion:
		return cbAddQuestion + itoa(a.QuestionnaireID)
	case ActionFinishQuestionnaire:
		return cbFinishQnr + itoa(a.QuestionnaireID)
	case ActionChooseType:
		return cbQuestionType + typeKey(a.QuestionType) + "_" + itoa(a.QuestionnaireID)
	case ActionBackToMenu:
		return cbBackToMenu + itoa(a.QuestionnaireID)
	case ActionFinishOptions:
		return cbFinishOptions + itoa(a.QuestionnaireID)
	case ActionActivate:
		return cbActivate + itoa(a.QuestionnaireID)
	case ActionClose:
		return cbClose + itoa(a.QuestionnaireID)
	case ActionResults:
		return cbResults + itoa(a.QuestionnaireID)
	case ActionExport:
		return cbExport + itoa(a.QuestionnaireID)
	case ActionGetLink:
		return cbGetLink + itoa(a.QuestionnaireID)
	case ActionRestartSurvey:
		return cbRestartSurvey + itoa(a.QuestionnaireID)
	}
	return ""
}

// DecodeAction parses callback data into a typed action.
func DecodeAction(data string) (Action, error) {
	switch data {
	case cbAdminCreate:
		return Action{Kind: ActionAdminCreate}, nil
	case cbAdminList:
		return Action{Kind: ActionAdminList}, nil
	case cbAdminResults:
		return Action{Kind: ActionAdminResults}, nil
	case cbAdminExport:
		return Action{Kind: ActionAdminExport}, nil
	case cbCancelCreation:
		return Action{Kind: ActionCancelAuthoring}, nil
	}

	if rest, ok := strings.CutPrefix(data, cbQuestionType); ok {
		key, idPart, found := strings.Cut(rest, "_")
		if !found {
			return Action{}, fmt.Errorf("malformed callback %q", data)
		}
		qt, err := typeFromKey(key)
		if err != nil {
			return Action{}, err
		}
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("malformed callback %q: %w", data, err)
		}
		return Action{Kind: ActionChooseType, QuestionnaireID: id, QuestionType: qt}, nil
	}

	prefixed := []struct {
		prefix string
		kind   ActionKind
	}{
		{cbRestartCreation, ActionRestartAuthoring},
		{cbAddQuestion, ActionAddQuestion},
		{cbFinishQnr, ActionFinishQuestionnaire},
		{cbBackToMenu, ActionBackToMenu},
		{cbFinishOptions, ActionFinishOptions},
		{cbActivate, ActionActivate},
		{cbRestartSurvey, ActionRestartSurvey},
		{cbGetLink, ActionGetLink},
		{cbClose, ActionClose},
		{cbResults, ActionResults},
		{cbExport, ActionExport},
	}
	for _, p := range prefixed {
		if rest, ok := strings.CutPrefix(data, p.prefix); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return Action{}, fmt.Errorf("malformed callback %q: %w", data, err)
			}
			return Action{Kind: p.kind, QuestionnaireID: id}, nil
		}
	}
	return Action{}, fmt.Errorf("unknown callback %q", data)
}

func typeKey(t models.QuestionType) string {
	switch t {
	case models.SingleChoice:
		return cbTypeKeySingle
	case models.MultipleChoice:
		return cbTypeKeyMultiple
	case models.TextAnswer:
		return cbTypeKeyText
	}
	return ""
}

func typeFromKey(key string) (models.QuestionType, error) {
	switch key {
	case cbTypeKeySingle:
		return models.SingleChoice, nil
	case cbTypeKeyMultiple:
		return models.MultipleChoice, nil
	case cbTypeKeyText:
		return models.TextAnswer, nil
	}
	return "", fmt.Errorf("unknown question type key %q", key)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
