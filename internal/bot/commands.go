package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mixelka/commentbot/pkg/models"
)

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdStart
	cmdHelp
	cmdComment
	cmdStats
	cmdSettings
)

func (k commandKind) String() string {
	switch k {
	case cmdStart:
		return "/start"
	case cmdHelp:
		return "/help"
	case cmdComment:
		return "/comment"
	case cmdStats:
		return "/stats"
	case cmdSettings:
		return "/settings"
	default:
		return "unknown"
	}
}

const (
	startText = "Hello! I'm your AI Comment Bot. Reply to any message with /comment to get an AI-generated comment."

	helpText = "Available commands:\n" +
		"/start - Initialize the bot\n" +
		"/help - Show this help message\n" +
		"/comment - Generate an AI comment on a replied message\n" +
		"/stats - Show usage statistics\n" +
		"/settings - Configure bot settings"

	settingsText = "Settings feature coming soon!"

	unknownText = "Unknown command. Type /help for a list of commands."

	replyRequiredText = "Please reply to a message with /comment to generate a comment."
	textOnlyText      = "I can only comment on text messages."
	generatingText    = "Generating comment..."
	apologyText       = "Sorry, I couldn't generate a comment at this time."
)

// parseCommand maps the lower-cased token before the first space, minus the
// leading slash, to a command
func parseCommand(text string) commandKind {
	name := strings.TrimSpace(text)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(strings.TrimPrefix(name, "/"))

	switch name {
	case "start":
		return cmdStart
	case "help":
		return cmdHelp
	case "comment":
		return cmdComment
	case "stats":
		return cmdStats
	case "settings":
		return cmdSettings
	default:
		return cmdUnknown
	}
}

// dispatch routes a command message to its handler. Every recognized command
// counts toward commandsUsed exactly once, whatever its branch does.
func (s *Service) dispatch(ctx context.Context, transport Transport, creds models.Credentials, msg *models.InboundMessage) {
	kind := parseCommand(msg.Text)
	if kind != cmdUnknown {
		s.stats.IncrementCommandsUsed()
		s.stats.RecordActivity("Command executed: " + kind.String())
	}

	switch kind {
	case cmdStart:
		s.send(ctx, transport, msg.ChatID, startText)
	case cmdHelp:
		s.send(ctx, transport, msg.ChatID, helpText)
	case cmdComment:
		s.handleComment(ctx, transport, creds, msg)
	case cmdStats:
		s.send(ctx, transport, msg.ChatID, s.statsText())
	case cmdSettings:
		s.send(ctx, transport, msg.ChatID, settingsText)
	default:
		s.send(ctx, transport, msg.ChatID, unknownText)
	}
}

// handleComment generates an AI comment on the replied-to message. The chat
// always receives a reply: guidance when there is no usable target, the
// comment on success, an apology when the completion fails.
func (s *Service) handleComment(ctx context.Context, transport Transport, creds models.Credentials, msg *models.InboundMessage) {
	if msg.Reply == nil {
		s.send(ctx, transport, msg.ChatID, replyRequiredText)
		return
	}
	if msg.Reply.Text == "" {
		s.send(ctx, transport, msg.ChatID, textOnlyText)
		return
	}

	s.send(ctx, transport, msg.ChatID, generatingText)
	s.stats.RecordActivity("User requested AI comment")

	comment, err := s.completer.GenerateComment(ctx, creds.OpenAIAPIKey, msg.Reply.Text)
	if err != nil {
		s.logger.Error("failed to generate comment", "error", err)
		s.send(ctx, transport, msg.ChatID, apologyText)
		return
	}

	s.stats.IncrementAIResponses()
	s.stats.RecordActivity("Bot responded to comment request")
	s.send(ctx, transport, msg.ChatID, comment)
}

func (s *Service) statsText() string {
	snapshot := s.stats.Snapshot()
	return fmt.Sprintf(
		"Usage statistics:\n"+
			"Total messages: %d\n"+
			"Messages today: %d\n"+
			"Commands used: %d\n"+
			"AI comments generated: %d",
		snapshot.TotalMessages,
		snapshot.MessagesToday,
		snapshot.CommandsUsed,
		snapshot.AIResponsesGenerated,
	)
}

// send delivers best-effort: a lost message is logged and forgotten so the
// polling loop never stalls on a send failure
func (s *Service) send(ctx context.Context, transport Transport, chatID int64, text string) {
	if err := transport.SendText(ctx, chatID, text); err != nil {
		s.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// SupportedCommands returns the static command list shown on the panel
func SupportedCommands() []models.Command {
	return []models.Command{
		{Command: "/start", Description: "Initialize the bot and see welcome message", Category: "Basic", Example: "/start"},
		{Command: "/help", Description: "Show available commands and their descriptions", Category: "Basic", Example: "/help"},
		{Command: "/comment", Description: "Generate an AI comment on the replied message", Category: "AI", Example: "/comment"},
		{Command: "/stats", Description: "Display your usage statistics", Category: "Admin", Example: "/stats"},
		{Command: "/settings", Description: "Configure bot settings for this chat", Category: "Admin", Example: "/settings"},
	}
}
