package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/observer-backend/internal/data/repos"
	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/narrative"
	"github.com/yungbote/observer-backend/internal/observability"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
	"github.com/yungbote/observer-backend/internal/realtime"
)

const (
	chatActivityKey   = "chat_message"
	maxChatTextLength = 2000
	defaultChatLimit  = 50
	maxChatLimit      = 200
)

var chatIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

type PostMessageResult struct {
	Message *types.ChatMessage `json:"message"`
	Npc     NpcMatchResult     `json:"npc"`
	XP      *XPGrantResult     `json:"xp,omitempty"`
}

type ChatService interface {
	PostMessage(ctx context.Context, chatID, sender, senderUserID, text string) (PostMessageResult, error)
	ListMessages(ctx context.Context, chatID string, limit int) ([]*types.ChatMessage, error)
	AppendNpcMessage(ctx context.Context, chatID string, persona narrative.Persona, content, keyword string) (*types.ChatMessage, error)
	// OnMessage runs the trigger matcher and schedules the reply, if any.
	OnMessage(ctx context.Context, chatID, sender, text string, senderIsNpc bool) NpcMatchResult
	// Close cancels pending persona replies.
	Close()
}

type chatService struct {
	log       *logger.Logger
	messages  repos.ChatMessageRepo
	events    EventService
	matcher   *NpcMatcher
	responder *NpcResponder
	emit      SSEEmitter
}

// ChatOption tunes a ChatService at construction.
type ChatOption func(*chatOptions)

type chatOptions struct {
	replyTimeout time.Duration
}

// WithNpcReplyTimeout bounds a single delayed NPC delivery. Zero keeps the
// responder default.
func WithNpcReplyTimeout(d time.Duration) ChatOption {
	return func(o *chatOptions) { o.replyTimeout = d }
}

func NewChatService(
	baseLog *logger.Logger,
	messages repos.ChatMessageRepo,
	events EventService,
	matcher *NpcMatcher,
	emit SSEEmitter,
	opts ...ChatOption,
) ChatService {
	var o chatOptions
	for _, opt := range opts {
		opt(&o)
	}
	s := &chatService{
		log:      baseLog.With("service", "ChatService"),
		messages: messages,
		events:   events,
		matcher:  matcher,
		emit:     emitterOrNop(emit),
	}
	s.responder = NewNpcResponder(baseLog, s.deliverNpcReply, o.replyTimeout)
	return s
}

func validateChatID(chatID string) error {
	if !chatIDPattern.MatchString(chatID) {
		return invalidArg("chat id %q is malformed", chatID)
	}
	return nil
}

func (s *chatService) PostMessage(ctx context.Context, chatID, sender, senderUserID, text string) (PostMessageResult, error) {
	chatID = strings.TrimSpace(chatID)
	sender = strings.TrimSpace(sender)
	text = strings.TrimSpace(text)
	if err := validateChatID(chatID); err != nil {
		return PostMessageResult{}, err
	}
	if sender == "" {
		return PostMessageResult{}, invalidArg("sender is required")
	}
	if text == "" || len(text) > maxChatTextLength {
		return PostMessageResult{}, invalidArg("text must be 1-%d bytes", maxChatTextLength)
	}

	msg, err := s.messages.Create(dbctx.From(ctx), &types.ChatMessage{
		ChatID:       chatID,
		Sender:       sender,
		SenderUserID: strings.TrimSpace(senderUserID),
		Content:      text,
	})
	if err != nil {
		return PostMessageResult{}, storeErr("create chat message", err)
	}
	s.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChatChannel(chatID),
		Event:   realtime.SSEEventChatMessage,
		Data:    msg,
	})

	out := PostMessageResult{Message: msg}
	if msg.SenderUserID != "" && s.events != nil {
		xp, xpErr := s.events.GrantXP(ctx, GrantXPRequest{
			UserID:      msg.SenderUserID,
			ActivityKey: chatActivityKey,
			Instance:    msg.ID,
		})
		switch {
		case xpErr == nil:
			out.XP = &xp
		case errors.Is(xpErr, ErrAlreadyFired):
		default:
			// the message is already stored; chat XP is best effort
			s.log.Warn("chat xp grant failed", "error", xpErr, "chat_id", chatID, "user_id", msg.SenderUserID)
		}
	}

	out.Npc = s.OnMessage(ctx, chatID, sender, text, false)
	return out, nil
}

func (s *chatService) OnMessage(ctx context.Context, chatID, sender, text string, senderIsNpc bool) NpcMatchResult {
	if s.matcher == nil {
		return NpcMatchResult{}
	}
	_, span := observability.StartSpan(ctx, "chat.on_message",
		attribute.String("chat.id", chatID),
		attribute.Bool("chat.sender_is_npc", senderIsNpc),
	)
	defer span.End()

	res := s.matcher.Match(sender, text, senderIsNpc)
	if !res.Responded {
		return res
	}
	span.SetAttributes(attribute.String("npc.persona", res.Npc), attribute.Int("npc.delay_ms", res.DelayMs))
	observability.Current().IncNpcMatch(res.Npc)

	persona, ok := s.matcher.Persona(res.Npc)
	if !ok || !s.responder.Schedule(chatID, persona, res) {
		return NpcMatchResult{}
	}
	return res
}

func (s *chatService) deliverNpcReply(ctx context.Context, chatID string, persona narrative.Persona, match NpcMatchResult) error {
	_, err := s.AppendNpcMessage(ctx, chatID, persona, match.Response, match.Keyword)
	return err
}

func (s *chatService) AppendNpcMessage(ctx context.Context, chatID string, persona narrative.Persona, content, keyword string) (*types.ChatMessage, error) {
	if err := validateChatID(chatID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		content = "..."
	}
	meta, err := json.Marshal(map[string]string{
		"color_theme": persona.ColorTheme,
		"keyword":     keyword,
	})
	if err != nil {
		return nil, fmt.Errorf("encode npc metadata: %w", err)
	}
	msg, err := s.messages.Create(dbctx.From(ctx), &types.ChatMessage{
		ChatID:   chatID,
		Sender:   persona.Username,
		IsNPC:    true,
		Content:  content,
		Metadata: datatypes.JSON(meta),
	})
	if err != nil {
		return nil, storeErr("create npc message", err)
	}
	s.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChatChannel(chatID),
		Event:   realtime.SSEEventChatMessage,
		Data:    msg,
	})
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, chatID string, limit int) ([]*types.ChatMessage, error) {
	chatID = strings.TrimSpace(chatID)
	if err := validateChatID(chatID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultChatLimit
	}
	if limit > maxChatLimit {
		limit = maxChatLimit
	}
	rows, err := s.messages.ListRecent(dbctx.From(ctx), chatID, limit)
	if err != nil {
		return nil, storeErr("list chat messages", err)
	}
	return rows, nil
}

func (s *chatService) Close() {
	if n := s.responder.Stop(); n > 0 {
		s.log.Info("cancelled pending npc replies", "count", n)
	}
}
