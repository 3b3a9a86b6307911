package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seafood-agent/internal/catalog"
	"seafood-agent/internal/domain"
	"seafood-agent/internal/intent"
	"seafood-agent/internal/ledger"
	"seafood-agent/internal/quote"
	"seafood-agent/internal/store"
)

const (
	defaultMaxContext = 12
	defaultMaxMessage = 1000
)

// ContextStore is the per-conversation chat log plus its context record.
// AppendTurn and PutContext are the item-by-item fallback when the
// transactional SaveExchange fails.
type ContextStore interface {
	Recent(ctx context.Context, conversationID string, k int) ([]domain.ChatTurn, error)
	GetContext(ctx context.Context, conversationID string) (domain.ConversationContext, error)
	SaveExchange(ctx context.Context, user, assistant domain.ChatTurn, cc domain.ConversationContext) error
	AppendTurn(ctx context.Context, turn domain.ChatTurn) error
	PutContext(ctx context.Context, cc domain.ConversationContext) error
}

// Interpreter classifies messages and extracts quote line items.
type Interpreter interface {
	Classify(ctx context.Context, text string, history []domain.ChatTurn) intent.Result
	Extract(ctx context.Context, text string, products []string) (quote.Extraction, error)
}

// Backend is the relational side. A nil Store means the database could not
// be reached at startup; every data command then answers "not connected".
type Backend struct {
	Store   *store.Store
	Ledger  *ledger.Ledger
	Quotes  *quote.Service
	Catalog *catalog.Service
}

func (b Backend) complete() bool {
	return b.Store != nil && b.Ledger != nil && b.Quotes != nil && b.Catalog != nil
}

type Config struct {
	MaxContextItems  int
	MaxMessageLength int
	ShareBaseURL     string
}

// Assistant is the action dispatcher behind the chat webhook.
type Assistant struct {
	contexts ContextStore
	router   Interpreter
	backend  Backend
	log      *zap.Logger

	maxContextItems  int
	maxMessageLength int
	shareBaseURL     string

	now func() time.Time
}

type MessageInput struct {
	ConversationID string
	Text           string
}

type MessageOutput struct {
	ConversationID string
	Reply          string
}

func NewAssistant(cs ContextStore, router Interpreter, backend Backend, log *zap.Logger, cfg Config) (*Assistant, error) {
	if cs == nil {
		return nil, errors.New("usecase: context store must not be nil")
	}
	if router == nil {
		return nil, errors.New("usecase: router must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxContextItems <= 0 {
		cfg.MaxContextItems = defaultMaxContext
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaultMaxMessage
	}
	return &Assistant{
		contexts:         cs,
		router:           router,
		backend:          backend,
		log:              log,
		maxContextItems:  cfg.MaxContextItems,
		maxMessageLength: cfg.MaxMessageLength,
		shareBaseURL:     strings.TrimRight(strings.TrimSpace(cfg.ShareBaseURL), "/"),
		now:              func() time.Time { return time.Now().UTC() },
	}, nil
}

// turn carries everything one message needs while it is being handled.
type turn struct {
	convID  string
	text    string
	history []domain.ChatTurn
	cc      *domain.ConversationContext
	message string
}

// HandleMessage runs one message to completion. Only input validation fails
// with an error; every other problem becomes the reply text.
func (a *Assistant) HandleMessage(ctx context.Context, in MessageInput) (MessageOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return MessageOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(text) > a.maxMessageLength {
		return MessageOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		convID = newUUID()
	}
	log := a.log.With(zap.String("conversation_id", convID))
	received := a.now()

	history, err := a.contexts.Recent(ctx, convID, a.maxContextItems)
	if err != nil {
		log.Warn("history unavailable", zap.Error(err))
		history = nil
	}
	cc, err := a.contexts.GetContext(ctx, convID)
	if err != nil {
		log.Warn("context record unavailable", zap.Error(err))
		cc = domain.ConversationContext{}
	}
	cc.ConversationID = convID

	t := &turn{convID: convID, text: text, history: history, cc: &cc}
	reply := a.respond(ctx, log, t)

	user := domain.ChatTurn{ConversationID: convID, Role: domain.RoleUser, Text: text, CreatedAt: received}
	bot := domain.ChatTurn{ConversationID: convID, Role: domain.RoleAssistant, Text: reply, CreatedAt: a.now()}
	a.save(ctx, log, user, bot, cc)
	return MessageOutput{ConversationID: convID, Reply: reply}, nil
}

// save persists the exchange. When the transactional write fails the turns
// and the context record are written one by one so the next message still
// sees them.
func (a *Assistant) save(ctx context.Context, log *zap.Logger, user, bot domain.ChatTurn, cc domain.ConversationContext) {
	err := a.contexts.SaveExchange(ctx, user, bot, cc)
	if err == nil {
		return
	}
	log.Warn("transactional save failed, writing items one by one", zap.Error(err))
	for _, turn := range []domain.ChatTurn{user, bot} {
		if err := a.contexts.AppendTurn(ctx, turn); err != nil {
			log.Error("failed to append turn", zap.String("role", string(turn.Role)), zap.Error(err))
			return
		}
	}
	if err := a.contexts.PutContext(ctx, cc); err != nil {
		log.Error("failed to save context record", zap.Error(err))
	}
}

func (a *Assistant) respond(ctx context.Context, log *zap.Logger, t *turn) string {
	if pending, ok := a.pending(t); ok {
		t.cc.Pending = nil
		resolved, err := intent.ResolveReply(t.text, pending)
		if err != nil {
			log.Info("clarification abandoned", zap.Error(err))
			return clarificationError(err, len(pending.Options))
		}
		t.text = resolved
	}

	res := a.router.Classify(ctx, t.text, t.history)
	t.message = res.Message
	decision := intent.Gate(res)
	log.Info("intent classified",
		zap.String("intent", res.Intent.Tag()),
		zap.Float64("confidence", res.Confidence),
		zap.Stringer("decision", decision))

	switch decision {
	case intent.Clarify:
		options := intent.MenuOptions(res)
		if len(options) == 0 {
			return conversational(res)
		}
		menu, p := intent.BuildMenu(t.text, options)
		t.cc.Pending = &p
		return menu
	case intent.Converse:
		return conversational(res)
	case intent.ExecuteLowConfidence:
		log.Warn("low_confidence_intent",
			zap.String("intent", res.Intent.Tag()),
			zap.Float64("confidence", res.Confidence))
	}

	reply, err := a.dispatch(ctx, t, res.Intent)
	if err != nil {
		log.Info("command failed",
			zap.String("intent", res.Intent.Tag()),
			zap.String("code", string(codeOf(err))),
			zap.Error(err))
		return RenderError(err)
	}
	return reply
}

// pending prefers the context record; the chat log is the fallback when no
// record was loaded.
func (a *Assistant) pending(t *turn) (domain.PendingClarification, bool) {
	if t.cc.Pending != nil && len(t.cc.Pending.Options) > 0 {
		return *t.cc.Pending, true
	}
	if t.cc.UpdatedAt.IsZero() {
		return intent.DetectPending(t.history)
	}
	return domain.PendingClarification{}, false
}

func clarificationError(err error, n int) string {
	if errors.Is(err, intent.ErrChoiceOutOfRange) {
		return "⚠️ Esa opción no existe, elige un número del 1 al " + strconv.Itoa(n) + ". Vuelve a escribir la instrucción completa."
	}
	return "⚠️ No reconocí la opción. Vuelve a escribir la instrucción completa."
}

func conversational(res intent.Result) string {
	if msg := strings.TrimSpace(res.Message); msg != "" {
		return msg
	}
	return "🤔 No entendí bien. Escribe \"ayuda\" para ver lo que puedo hacer."
}

func (a *Assistant) connected(ctx context.Context) error {
	if !a.backend.complete() {
		return domain.ErrNotConnected
	}
	if err := a.backend.Store.Ping(ctx); err != nil {
		a.log.Error("database ping failed", zap.Error(err))
		return domain.ErrNotConnected
	}
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}
