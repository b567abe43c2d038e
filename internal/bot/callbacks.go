package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surveybot/internal/export"
	"surveybot/internal/flow"
	"surveybot/internal/qr"
)

// dispatchAction routes a decoded button press. Conversational actions go
// straight to the engine; management actions are assembled here because
// they produce attachments (QR images, xlsx files) the engine does not
// know how to send.
func (b *Bot) dispatchAction(chatID, userID int64, action flow.Action) {
	switch action.Kind {
	case flow.ActionAdminList:
		b.commandList(chatID, userID, manageButtons)
	case flow.ActionAdminResults:
		b.commandList(chatID, userID, resultsButtons)
	case flow.ActionAdminExport:
		b.commandList(chatID, userID, exportButtons)
	case flow.ActionActivate:
		b.actionActivate(chatID, userID, action.QuestionnaireID)
	case flow.ActionClose:
		b.actionClose(chatID, userID, action.QuestionnaireID)
	case flow.ActionResults:
		b.actionResults(chatID, userID, action.QuestionnaireID)
	case flow.ActionExport:
		b.actionExport(chatID, userID, action.QuestionnaireID)
	case flow.ActionGetLink:
		b.actionGetLink(chatID, userID, action.QuestionnaireID)
	default:
		reply, err := b.engine.HandleAction(userID, action)
		if err != nil {
			b.logFlowError("callback", userID, err)
		}
		b.sendReply(chatID, reply)
	}
}

func (b *Bot) actionActivate(chatID, userID, questionnaireID int64) {
	q, err := b.engine.Activate(userID, questionnaireID)
	if err != nil {
		b.logFlowError("activate", userID, err)
		b.sendText(chatID, errorText(err))
		return
	}
	link := qr.Link(b.Username(), q.ID)
	b.sendText(chatID, fmt.Sprintf("🚀 **Questionnaire '%s' is now live!**\n\nShare this link with participants:\n%s", q.Title, link))
	b.sendQR(chatID, q.ID)
}

func (b *Bot) actionClose(chatID, userID, questionnaireID int64) {
	if err := b.engine.Close(userID, questionnaireID); err != nil {
		b.logFlowError("close", userID, err)
		b.sendText(chatID, errorText(err))
		return
	}
	b.sendText(chatID, "🔒 Questionnaire closed. Participants can no longer submit responses.")
}

func (b *Bot) actionResults(chatID, userID, questionnaireID int64) {
	summary, err := b.engine.Summary(userID, questionnaireID)
	if err != nil {
		b.logFlowError("results", userID, err)
		b.sendText(chatID, errorText(err))
		return
	}
	b.sendText(chatID, summary)
}

func (b *Bot) actionExport(chatID, userID, questionnaireID int64) {
	q, err := b.engine.AuthorizeOwner(userID, questionnaireID)
	if err != nil {
		b.logFlowError("export", userID, err)
		b.sendText(chatID, errorText(err))
		return
	}
	questions, err := b.store.ListQuestions(questionnaireID)
	if err != nil {
		b.log.Error("Failed to list questions for export", zap.Int64("questionnaire_id", questionnaireID), zap.Error(err))
		b.sendText(chatID, "❌ An error occurred. Please try again.")
		return
	}
	attempts, err := b.store.ListAttemptsWithAnswers(questionnaireID)
	if err != nil {
		b.log.Error("Failed to list attempts for export", zap.Int64("questionnaire_id", questionnaireID), zap.Error(err))
		b.sendText(chatID, "❌ An error occurred. Please try again.")
		return
	}

	buf, err := export.Workbook(*q, questions, attempts)
	if err != nil {
		b.log.Error("Failed to build export workbook", zap.Int64("questionnaire_id", questionnaireID), zap.Error(err))
		b.sendText(chatID, "❌ An error occurred. Please try again.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.FileName(*q),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📤 Results for '%s'", q.Title)
	if _, err := b.api.Send(doc); err != nil {
		b.log.Error("Failed to send export document", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) actionGetLink(chatID, userID, questionnaireID int64) {
	q, err := b.engine.AuthorizeOwner(userID, questionnaireID)
	if err != nil {
		b.logFlowError("get_link", userID, err)
		b.sendText(chatID, errorText(err))
		return
	}
	link := qr.Link(b.Username(), q.ID)
	b.sendText(chatID, fmt.Sprintf("🔗 **Survey link for '%s':**\n%s", q.Title, link))
	b.sendQR(chatID, q.ID)
}

func (b *Bot) sendQR(chatID, questionnaireID int64) {
	png, err := qr.PNG(b.Username(), questionnaireID)
	if err != nil {
		b.log.Error("Failed to encode QR code", zap.Int64("questionnaire_id", questionnaireID), zap.Error(err))
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("survey_%d.png", questionnaireID),
		Bytes: png,
	})
	photo.Caption = "📱 Scan to open the survey"
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("Failed to send QR photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
