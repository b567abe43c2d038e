package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surveybot/internal/flow"
	"surveybot/internal/models"
)

// Bot is the Telegram transport. It owns nothing conversational: every
// inbound event is decoded here, handed to the flow engine, and the
// render-ready reply is sent back. Updates may arrive from long polling or
// from the webhook server; both feed the same channel.
type Bot struct {
	api          *tgbotapi.BotAPI
	engine       *flow.Engine
	store        flow.Store
	isAdmin      func(int64) bool
	templatesDir string
	log          *zap.Logger
}

// New authenticates against the Bot API and wires the transport.
func New(token string, engine *flow.Engine, store flow.Store, isAdmin func(int64) bool, templatesDir string, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info("Authorized on Telegram", zap.String("bot", api.Self.UserName))
	return &Bot{
		api:          api,
		engine:       engine,
		store:        store,
		isAdmin:      isAdmin,
		templatesDir: templatesDir,
		log:          log,
	}, nil
}

// Username returns the bot's Telegram username, used in deep links.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// RegisterWebhook tells Telegram to post updates to baseURL/webhook/<token>.
func (b *Bot) RegisterWebhook(baseURL string) error {
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + "/webhook/" + b.api.Token)
	if err != nil {
		return err
	}
	_, err = b.api.Request(wh)
	return err
}

// PollingUpdates starts long polling and returns the update channel.
func (b *Bot) PollingUpdates() tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	return b.api.GetUpdatesChan(cfg)
}

// Run consumes updates until the context is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	b.rememberUser(msg.From)

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	reply, err := b.engine.HandleText(msg.From.ID, msg.Text)
	if err != nil {
		b.logFlowError("text", msg.From.ID, err)
	}
	b.sendReply(msg.Chat.ID, reply)
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	// Acknowledge immediately so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("Failed to answer callback query", zap.Error(err))
	}
	if cb.From == nil || cb.Message == nil {
		return
	}
	b.rememberUser(cb.From)

	action, err := flow.DecodeAction(cb.Data)
	if err != nil {
		b.log.Warn("Dropping malformed callback",
			zap.Int64("user_id", cb.From.ID),
			zap.String("data", cb.Data),
			zap.Error(err))
		return
	}
	b.dispatchAction(cb.Message.Chat.ID, cb.From.ID, action)
}

// rememberUser records the sender. Storage failures are logged, never
// surfaced: identity bookkeeping must not break a conversation.
func (b *Bot) rememberUser(from *tgbotapi.User) {
	err := b.store.UpsertUser(models.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		IsAdmin:   b.isAdmin(from.ID),
	})
	if err != nil {
		b.log.Error("Failed to upsert user", zap.Int64("user_id", from.ID), zap.Error(err))
	}
}

func (b *Bot) sendReply(chatID int64, reply flow.Reply) {
	if reply.Empty() {
		return
	}
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup, ok := inlineKeyboard(reply.Buttons); ok {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendReply(chatID, flow.Reply{Text: text})
}

// inlineKeyboard converts engine buttons to a Telegram inline keyboard.
func inlineKeyboard(buttons [][]flow.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		out := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			out = append(out, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Action.Encode()))
		}
		rows = append(rows, out)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

// errorText maps engine errors without a rendered reply to user-facing copy.
func errorText(err error) string {
	var authErr *flow.AuthorizationError
	if errors.As(err, &authErr) {
		return "❌ Access denied. Admin privileges required."
	}
	var preErr *flow.PreconditionError
	if errors.As(err, &preErr) {
		return "❌ " + preErr.Msg
	}
	var valErr *flow.ValidationError
	if errors.As(err, &valErr) {
		return "❌ " + valErr.Msg
	}
	return "❌ An error occurred. Please try again."
}

func (b *Bot) logFlowError(source string, userID int64, err error) {
	var serr *flow.StoreError
	if errors.As(err, &serr) {
		b.log.Error("Store operation failed",
			zap.String("source", source),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	b.log.Debug("Flow rejected input",
		zap.String("source", source),
		zap.Int64("user_id", userID),
		zap.Error(err))
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil
}
