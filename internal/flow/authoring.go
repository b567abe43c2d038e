package flow

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"surveybot/internal/models"
)

// Authoring drives an admin through creating a questionnaire:
// title -> description -> repeated question-add cycles -> finish.
// The questionnaire row is created as soon as the description arrives;
// cancelling later does not roll it back, it just stays in Draft.

// StartAuthoring begins a fresh authoring flow for an admin.
func (e *Engine) StartAuthoring(userID int64) (Reply, error) {
	if reply, err := e.requireAdmin(userID); err != nil {
		return reply, err
	}

	unlock := e.states.Lock(userID)
	defer unlock()

	e.states.Set(userID, &State{Mode: ModeAuthoring, Stage: StageTitle})
	return Reply{
		Text:    "📝 **Create New Questionnaire**\n\nStep 1: Please enter the questionnaire title:",
		Buttons: cancelButton(),
	}, nil
}

// CancelAuthoring clears state without persisting the in-progress question.
func (e *Engine) CancelAuthoring(userID int64) (Reply, error) {
	unlock := e.states.Lock(userID)
	defer unlock()

	e.states.Clear(userID)
	return Reply{Text: "❌ Questionnaire creation cancelled."}, nil
}

// ResumeAuthoring re-enters the questions menu for an existing Draft
// questionnaire, keeping its persisted title, description and questions.
func (e *Engine) ResumeAuthoring(userID, questionnaireID int64) (Reply, error) {
	if reply, err := e.requireAdmin(userID); err != nil {
		return reply, err
	}

	unlock := e.states.Lock(userID)
	defer unlock()

	q, err := e.store.GetQuestionnaire(questionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("get questionnaire", err)
	}
	if q == nil {
		return Reply{Text: "❌ Questionnaire not found."}, preconditionf("questionnaire %d not found", questionnaireID)
	}
	if q.CreatedBy != userID {
		return Reply{Text: "❌ Access denied. Admin privileges required."},
			&AuthorizationError{Msg: "questionnaire owned by another admin"}
	}

	e.states.Set(userID, &State{
		Mode:            ModeAuthoring,
		Stage:           StageQuestionsMenu,
		QuestionnaireID: questionnaireID,
		Title:           q.Title,
		Description:     q.Description,
	})
	return e.questionsMenuReply(questionnaireID)
}

// BeginQuestion moves the flow to the question-type selection step.
func (e *Engine) BeginQuestion(userID, questionnaireID int64) (Reply, error) {
	if reply, err := e.requireAdmin(userID); err != nil {
		return reply, err
	}

	unlock := e.states.Lock(userID)
	defer unlock()

	state, reply, err := e.authoringState(userID, questionnaireID)
	if err != nil {
		return reply, err
	}

	state.Stage = StageQuestionType
	state.Draft = DraftQuestion{}

	return Reply{
		Text: "❓ **Select Question Type:**\n\n" +
			"🔘 **Single Choice** - User selects one option\n" +
			"☑️ **Multiple Choice** - User can select multiple options\n" +
			"📝 **Text Answer** - User types a free-form answer",
		Buttons: [][]Button{
			{{Label: "🔘 Single Choice", Action: Action{Kind: ActionChooseType, QuestionnaireID: questionnaireID, QuestionType: models.SingleChoice}}},
			{{Label: "☑️ Multiple Choice", Action: Action{Kind: ActionChooseType, QuestionnaireID: questionnaireID, QuestionType: models.MultipleChoice}}},
			{{Label: "📝 Text Answer", Action: Action{Kind: ActionChooseType, QuestionnaireID: questionnaireID, QuestionType: models.TextAnswer}}},
			{{Label: "🔙 Back to Menu", Action: Action{Kind: ActionBackToMenu, QuestionnaireID: questionnaireID}}},
		},
	}, nil
}

// ChooseQuestionType records the selection and asks for the question text.
func (e *Engine) ChooseQuestionType(userID, questionnaireID int64, qt models.QuestionType) (Reply, error) {
	if reply, err := e.requireAdmin(userID); err != nil {
		return reply, err
	}

	unlock := e.states.Lock(userID)
	defer unlock()

	state, reply, err := e.authoringState(userID, questionnaireID)
	if err != nil {
		return reply, err
	}
	if !qt.Valid() {
		return Reply{Text: "❌ Unknown question type."}, validationf("unknown question type %q", qt)
	}

	state.Stage = StageQuestionText
	state.Draft = DraftQuestion{Type: qt}

	return Reply{
		Text: fmt.Sprintf("📝 **%s Question**\n\nPlease type your question text:", typeTitle(qt)),
		Buttons: [][]Button{
			{{Label: "🔄 Change Type", Action: Action{Kind: ActionAddQuestion, QuestionnaireID: questionnaireID}}},
			{{Label: "🔙 Back to Menu", Action: Action{Kind: ActionBackToMenu, QuestionnaireID: questionnaireID}}},
		},
	}, nil
}

// BackToMenu abandons the in-progress question and shows the menu again.
func (e *Engine) BackToMenu(userID, questionnaireID int64) (Reply, error) {
	if reply, err := e.requireAdmin(userID); err != nil {
		return reply, err
	}

	unlock := e.states.Lock(userID)
	defer unlock()

	state, reply, err := e.authoringState(userID, questionnaireID)
	if err != nil {
		return reply, err
	}

	state.Stage = StageQuestionsMenu
	state.Draft = DraftQuestion{}
	return e.questionsMenuReply(questionnaireID)
}

// FinishOptions persists the accumulated choice question. It rejects with a
// retryable error when fewer than 2 options were collected; the flow stays
// on the options step so the admin can keep typing options.
func (e *Engine) FinishOptions(userID, questionnaireID int64) (Reply, error) {
	if reply, err := e.requireAdmin(userID); err != nil {
		return reply, err
	}

	unlock := e.states.Lock(userID)
	defer unlock()

	state, reply, err := e.authoringState(userID, questionnaireID)
	if err != nil {
		return reply, err
	}
	if state.Stage != StageQuestionOptions {
		return Reply{Text: "❌ No active question creation session."},
			preconditionf("finish options outside the options step")
	}
	if len(state.Draft.Options) < 2 {
		return Reply{Text: "❌ You need at least 2 options for choice questions."},
			validationf("need at least 2 options, got %d", len(state.Draft.Options))
	}

	// Leave the options step the moment the question is written: a failure
	// rendering the menu below must not leave a retried finish able to
	// persist the same question twice.
	qt := state.Draft.Type
	if reply, err := e.persistDraftQuestion(state); err != nil {
		return reply, err
	}
	state.Stage = StageQuestionsMenu
	state.Draft = DraftQuestion{}

	reply, err = e.questionsMenuReply(questionnaireID)
	if err != nil {
		return reply, err
	}
	reply.Text = fmt.Sprintf("✅ %s question added successfully!\n\n%s", typeTitle(qt), reply.Text)
	return reply, nil
}

// FinishQuestionnaire ends the authoring flow. Requires at least one
// persisted question; on success the conversation state is cleared and the
// questionnaire stays in Draft until the admin activates it.
func (e *Engine) FinishQuestionnaire(userID, questionnaireID int64) (Reply, error) {
	if reply, err := e.requireAdmin(userID); err != nil {
		return reply, err
	}

	unlock := e.states.Lock(userID)
	defer unlock()

	if _, reply, err := e.authoringState(userID, questionnaireID); err != nil {
		return reply, err
	}

	questions, err := e.store.ListQuestions(questionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("list questions", err)
	}
	if len(questions) == 0 {
		return Reply{Text: "❌ You must add at least one question before finishing."},
			preconditionf("questionnaire %d has no questions", questionnaireID)
	}

	q, err := e.store.GetQuestionnaire(questionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("get questionnaire", err)
	}
	if q == nil {
		return Reply{Text: "❌ Questionnaire not found."}, preconditionf("questionnaire %d not found", questionnaireID)
	}

	e.states.Clear(userID)
	e.log.Info("questionnaire authored",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.Int64("admin_id", userID),
		zap.Int("questions", len(questions)))

	return Reply{Text: fmt.Sprintf(
		"🎉 **Questionnaire Created Successfully!**\n\n"+
			"📋 **%s**\n"+
			"❓ Questions: %d\n"+
			"📝 Status: Draft\n\n"+
			"Your questionnaire is ready! Use /my_questionnaires to activate it and get the sharing link.",
		q.Title, len(questions))}, nil
}

// handleAuthoringText advances the authoring machine on a free-text step.
// The caller holds the user's lock.
func (e *Engine) handleAuthoringText(userID int64, state *State, text string) (Reply, error) {
	switch state.Stage {
	case StageTitle:
		title := strings.TrimSpace(text)
		if title == "" {
			return Reply{Text: "❌ Title cannot be empty. Please enter the questionnaire title:", Buttons: cancelButton()},
				validationf("empty title")
		}
		state.Title = title
		state.Stage = StageDescription
		return Reply{
			Text:    "📝 **Create New Questionnaire**\n\nStep 2: Please enter the questionnaire description:",
			Buttons: cancelButton(),
		}, nil

	case StageDescription:
		// Any text is accepted here, even empty. Permissive on purpose.
		state.Description = strings.TrimSpace(text)
		id, err := e.store.CreateQuestionnaire(state.Title, state.Description, userID)
		if err != nil {
			return storeFailureReply(), storeErr("create questionnaire", err)
		}
		state.QuestionnaireID = id
		state.Stage = StageQuestionsMenu
		return Reply{
			Text: fmt.Sprintf(
				"✅ Questionnaire '%s' created!\n\n"+
					"📋 **Question Management**\n\n"+
					"➕ **Add Question** - Add a new question\n"+
					"✅ **Finish** - Complete and save questionnaire",
				state.Title),
			Buttons: menuButtons(id),
		}, nil

	case StageQuestionText:
		qText := strings.TrimSpace(text)
		if qText == "" {
			return Reply{Text: "❌ Question text cannot be empty. Please type your question text:"},
				validationf("empty question text")
		}
		state.Draft.Text = qText

		if state.Draft.Type.HasOptions() {
			state.Stage = StageQuestionOptions
			state.Draft.Options = nil
			return Reply{
				Text: fmt.Sprintf(
					"📝 **Question:** %s\n\n"+
						"Now add options for this question.\n"+
						"Type each option and press Enter.\n"+
						"When finished, use the button below.", qText),
				Buttons: [][]Button{
					{{Label: "🔄 Change Question", Action: Action{Kind: ActionAddQuestion, QuestionnaireID: state.QuestionnaireID}}},
					{{Label: "🔙 Back to Menu", Action: Action{Kind: ActionBackToMenu, QuestionnaireID: state.QuestionnaireID}}},
				},
			}, nil
		}

		// Text questions need no options; persist immediately.
		if reply, err := e.persistDraftQuestion(state); err != nil {
			return reply, err
		}
		state.Stage = StageQuestionsMenu
		state.Draft = DraftQuestion{}
		reply, err := e.questionsMenuReply(state.QuestionnaireID)
		if err != nil {
			return reply, err
		}
		reply.Text = "✅ Text question added successfully!\n\n" + reply.Text
		return reply, nil

	case StageQuestionOptions:
		option := strings.TrimSpace(text)
		if option == "" {
			return Reply{Text: "❌ Option cannot be empty. Type another option:"},
				validationf("empty option")
		}
		if e.limits.MaxOptions > 0 && len(state.Draft.Options) >= e.limits.MaxOptions {
			return Reply{Text: fmt.Sprintf("❌ A question can have at most %d options. Finish the question with the button below.", e.limits.MaxOptions)},
				validationf("option limit of %d reached", e.limits.MaxOptions)
		}
		state.Draft.Options = append(state.Draft.Options, option)

		var list strings.Builder
		for i, opt := range state.Draft.Options {
			fmt.Fprintf(&list, "%d. %s\n", i+1, opt)
		}
		return Reply{
			Text: fmt.Sprintf(
				"📝 **Question:** %s\n\n"+
					"**Options so far:**\n%s\n"+
					"➕ Type another option or finish with the button below.\n"+
					"(Minimum 2 options required)",
				state.Draft.Text, list.String()),
			Buttons: [][]Button{
				{{Label: "✅ Finish Options", Action: Action{Kind: ActionFinishOptions, QuestionnaireID: state.QuestionnaireID}}},
				{{Label: "🔄 Restart Question", Action: Action{Kind: ActionAddQuestion, QuestionnaireID: state.QuestionnaireID}}},
				{{Label: "🔙 Back to Menu", Action: Action{Kind: ActionBackToMenu, QuestionnaireID: state.QuestionnaireID}}},
			},
		}, nil
	}

	// Free text during menu or type-selection steps is ignored; those
	// steps only move via buttons.
	return Reply{}, nil
}

// persistDraftQuestion writes the accumulated draft to the store, leaving
// the state untouched when the write fails so the step can be retried.
func (e *Engine) persistDraftQuestion(state *State) (Reply, error) {
	existing, err := e.store.ListQuestions(state.QuestionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("list questions", err)
	}
	if e.limits.MaxQuestions > 0 && len(existing) >= e.limits.MaxQuestions {
		return Reply{Text: fmt.Sprintf("❌ This questionnaire already has the maximum of %d questions.", e.limits.MaxQuestions)},
			validationf("question limit of %d reached", e.limits.MaxQuestions)
	}

	question := models.Question{
		QuestionnaireID: state.QuestionnaireID,
		Text:            state.Draft.Text,
		Type:            state.Draft.Type,
		IsRequired:      true,
	}
	if state.Draft.Type.HasOptions() {
		question.Options = append(models.StringList{}, state.Draft.Options...)
	}

	if _, err := e.store.AddQuestion(question); err != nil {
		return storeFailureReply(), storeErr("add question", err)
	}
	return Reply{}, nil
}

// questionsMenuReply rebuilds the questions menu from persisted data.
func (e *Engine) questionsMenuReply(questionnaireID int64) (Reply, error) {
	q, err := e.store.GetQuestionnaire(questionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("get questionnaire", err)
	}
	if q == nil {
		return Reply{Text: "❌ Questionnaire not found."}, preconditionf("questionnaire %d not found", questionnaireID)
	}
	questions, err := e.store.ListQuestions(questionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("list questions", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 **%s**\n\n", q.Title)
	fmt.Fprintf(&b, "📋 Description: %s\n\n", orDefault(q.Description, "No description"))
	fmt.Fprintf(&b, "❓ Current Questions: %d\n\n", len(questions))
	if len(questions) > 0 {
		b.WriteString("**Questions:**\n")
		for i, question := range questions {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, typeIcon(question.Type), question.Text)
		}
	}

	return Reply{Text: b.String(), Buttons: menuButtons(questionnaireID)}, nil
}

func menuButtons(questionnaireID int64) [][]Button {
	return [][]Button{
		{{Label: "➕ Add Question", Action: Action{Kind: ActionAddQuestion, QuestionnaireID: questionnaireID}}},
		{{Label: "✅ Finish Questionnaire", Action: Action{Kind: ActionFinishQuestionnaire, QuestionnaireID: questionnaireID}}},
		{{Label: "🔄 Cancel", Action: Action{Kind: ActionCancelAuthoring}}},
	}
}

// authoringState fetches the caller's state and checks it belongs to the
// authoring machine AND to the questionnaire named by the button. Button
// presses carry the questionnaire ID over the wire, so a crafted or stale
// callback could otherwise steer an open session into a questionnaire the
// session never authorized. The caller holds the user's lock.
func (e *Engine) authoringState(userID, questionnaireID int64) (*State, Reply, error) {
	state, ok := e.states.Get(userID)
	if !ok || state.Mode != ModeAuthoring {
		return nil, Reply{Text: "❌ No active question creation session."},
			preconditionf("no active creation session")
	}
	if state.QuestionnaireID != questionnaireID {
		return nil, Reply{Text: "❌ This button belongs to a different questionnaire."},
			&AuthorizationError{Msg: "questionnaire not part of this session"}
	}
	return state, Reply{}, nil
}

func storeFailureReply() Reply {
	return Reply{Text: "❌ An error occurred. Please try again."}
}
