package bot

import (
	"fmt"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surveybot/internal/flow"
	"surveybot/internal/models"
)

const helpText = `🤖 **Survey Bot Help**

**For everyone:**
/start - Start the bot or open a survey link
/help - Show this message

**For admins:**
/admin - Open the admin panel
/create_questionnaire - Create a new questionnaire
/my_questionnaires - Manage your questionnaires
/view_results - View response summaries
/export_results - Export responses to Excel
/import <file> - Import a questionnaire from a YAML template`

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.commandStart(chatID, userID, msg.CommandArguments())
	case "help":
		b.sendText(chatID, helpText)
	case "admin":
		b.commandAdmin(chatID, userID)
	case "create_questionnaire":
		reply, err := b.engine.StartAuthoring(userID)
		if err != nil {
			b.logFlowError("command", userID, err)
		}
		b.sendReply(chatID, reply)
	case "my_questionnaires":
		b.commandList(chatID, userID, manageButtons)
	case "view_results":
		b.commandList(chatID, userID, resultsButtons)
	case "export_results":
		b.commandList(chatID, userID, exportButtons)
	case "import":
		b.commandImport(chatID, userID, msg.CommandArguments())
	default:
		b.sendText(chatID, "❓ Unknown command. Use /help to see what I can do.")
	}
}

// commandStart greets the user, or enters a survey when the deep link
// payload names one ("survey_<id>").
func (b *Bot) commandStart(chatID, userID int64, payload string) {
	payload = strings.TrimSpace(payload)
	if rest, ok := strings.CutPrefix(payload, "survey_"); ok {
		if id, ok := parseID(rest); ok {
			reply, err := b.engine.StartAnswering(userID, id)
			if err != nil {
				b.logFlowError("deeplink", userID, err)
			}
			b.sendReply(chatID, reply)
			return
		}
		b.sendText(chatID, "❌ Survey not found.")
		return
	}

	greeting := "👋 Welcome to Survey Bot!\n\nOpen a survey link to start answering, or use /help to see all commands."
	if b.isAdmin(userID) {
		greeting += "\n\nYou are an admin: use /admin to manage questionnaires."
	}
	b.sendText(chatID, greeting)
}

func (b *Bot) commandAdmin(chatID, userID int64) {
	if !b.isAdmin(userID) {
		b.sendText(chatID, "❌ Access denied. Admin privileges required.")
		return
	}
	b.sendReply(chatID, flow.Reply{
		Text: "🛠 **Admin Panel**\n\nWhat would you like to do?",
		Buttons: [][]flow.Button{
			{{Label: "➕ Create Questionnaire", Action: flow.Action{Kind: flow.ActionAdminCreate}}},
			{{Label: "📋 My Questionnaires", Action: flow.Action{Kind: flow.ActionAdminList}}},
			{{Label: "📊 View Results", Action: flow.Action{Kind: flow.ActionAdminResults}}},
			{{Label: "📤 Export Results", Action: flow.Action{Kind: flow.ActionAdminExport}}},
		},
	})
}

// commandList renders the caller's questionnaires, one card per message,
// with the action buttons the current command calls for.
func (b *Bot) commandList(chatID, userID int64, buttons func(models.Questionnaire) [][]flow.Button) {
	cards, err := b.engine.ListQuestionnaires(userID)
	if err != nil {
		b.logFlowError("list", userID, err)
		b.sendText(chatID, errorText(err))
		return
	}
	if len(cards) == 0 {
		b.sendText(chatID, "📭 You have no questionnaires yet. Use /create_questionnaire to make one.")
		return
	}
	for _, card := range cards {
		b.sendReply(chatID, flow.Reply{
			Text:    flow.FormatQuestionnaireInfo(card.Questionnaire, card.QuestionCount, card.Stats),
			Buttons: buttons(card.Questionnaire),
		})
	}
}

func (b *Bot) commandImport(chatID, userID int64, arg string) {
	if !b.isAdmin(userID) {
		b.sendText(chatID, "❌ Access denied. Admin privileges required.")
		return
	}
	arg = strings.TrimSpace(arg)
	if arg == "" {
		b.sendText(chatID, "📄 Usage: /import <template file>\n\nTemplates are YAML files in the configured templates directory.")
		return
	}
	// The argument is a bare file name inside the templates directory, never
	// a path. Rejecting separators keeps the lookup inside that directory.
	if strings.ContainsAny(arg, `/\`) || arg != filepath.Base(arg) {
		b.sendText(chatID, "❌ Invalid template name.")
		return
	}

	tpl, err := models.LoadTemplate(filepath.Join(b.templatesDir, arg))
	if err != nil {
		b.sendText(chatID, fmt.Sprintf("❌ Could not load template: %v", err))
		return
	}

	id, err := b.engine.ImportTemplate(userID, tpl)
	if err != nil {
		b.logFlowError("import", userID, err)
		b.sendText(chatID, errorText(err))
		return
	}
	b.log.Info("Template imported",
		zap.Int64("questionnaire_id", id),
		zap.Int64("admin_id", userID),
		zap.String("file", arg))
	b.sendReply(chatID, flow.Reply{
		Text: fmt.Sprintf("✅ Questionnaire '%s' imported with %d questions. It is in draft; activate it when ready.", tpl.Title, len(tpl.Questions)),
		Buttons: [][]flow.Button{{
			{Label: "🚀 Activate", Action: flow.Action{Kind: flow.ActionActivate, QuestionnaireID: id}},
		}},
	})
}

// manageButtons are the management card actions for /my_questionnaires.
// Which ones make sense depends on the questionnaire status.
func manageButtons(q models.Questionnaire) [][]flow.Button {
	var rows [][]flow.Button
	switch q.Status {
	case models.StatusDraft:
		rows = append(rows, []flow.Button{
			{Label: "✏️ Continue Editing", Action: flow.Action{Kind: flow.ActionRestartAuthoring, QuestionnaireID: q.ID}},
			{Label: "🚀 Activate", Action: flow.Action{Kind: flow.ActionActivate, QuestionnaireID: q.ID}},
		})
	case models.StatusActive:
		rows = append(rows, []flow.Button{
			{Label: "🔗 Get Link", Action: flow.Action{Kind: flow.ActionGetLink, QuestionnaireID: q.ID}},
			{Label: "🔒 Close", Action: flow.Action{Kind: flow.ActionClose, QuestionnaireID: q.ID}},
		})
	}
	rows = append(rows, []flow.Button{
		{Label: "📊 Results", Action: flow.Action{Kind: flow.ActionResults, QuestionnaireID: q.ID}},
		{Label: "📤 Export", Action: flow.Action{Kind: flow.ActionExport, QuestionnaireID: q.ID}},
	})
	return rows
}

func resultsButtons(q models.Questionnaire) [][]flow.Button {
	return [][]flow.Button{{
		{Label: "📊 View Results", Action: flow.Action{Kind: flow.ActionResults, QuestionnaireID: q.ID}},
	}}
}

func exportButtons(q models.Questionnaire) [][]flow.Button {
	return [][]flow.Button{{
		{Label: "📤 Export to Excel", Action: flow.Action{Kind: flow.ActionExport, QuestionnaireID: q.ID}},
	}}
}
