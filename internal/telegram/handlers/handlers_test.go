package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/integration/llm"
	"github.com/futig/omnistudy/internal/pkg/formatter"
	pkgRetry "github.com/futig/omnistudy/internal/pkg/retry"
	"github.com/futig/omnistudy/internal/pkg/validator"
	"github.com/futig/omnistudy/internal/quiz"
	"github.com/futig/omnistudy/internal/repository"
	"github.com/futig/omnistudy/internal/telegram/keyboard"
	"github.com/futig/omnistudy/internal/telegram/render"
	"github.com/futig/omnistudy/internal/telegram/state"
	"github.com/futig/omnistudy/internal/usecase/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	testUserID int64 = 42
	testChatID int64 = 4242
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	attempts int
	failures int
	err      error
	nextID   int
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts++
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, f.err
	}

	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeBot) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func (f *fakeBot) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBot) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBot) documents() []tgbotapi.DocumentConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

type testEnv struct {
	bot      *fakeBot
	chatUC   *chat.ChatUsecase
	quizzes  *quiz.Registry
	states   *state.Manager
	commands *CommandHandler
	text     *TextHandler
	callback *CallbackHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	bot := &fakeBot{}
	quizzes := quiz.NewRegistry(logger)
	chatUC := chat.NewUsecase(
		repository.NewConversationCache(time.Hour, time.Hour),
		llm.NewMockConnector(logger),
		quizzes,
		formatter.NewFactory(),
		logger,
	)
	states := state.NewManager(repository.NewTelegramStateCache(time.Hour, time.Hour))
	v := validator.NewValidator(100)

	deps := Deps{
		Bot:          bot,
		StateManager: states,
		ChatUC:       chatUC,
		Keyboard:     keyboard.NewBuilder(),
		Sender:       NewMessageSender(bot, &pkgRetry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}, logger),
		Logger:       logger,
	}

	return &testEnv{
		bot:      bot,
		chatUC:   chatUC,
		quizzes:  quizzes,
		states:   states,
		commands: NewCommandHandler(deps),
		text:     NewTextHandler(deps, v),
		callback: NewCallbackHandler(deps, v),
	}
}

func (e *testEnv) command(t *testing.T, command string) {
	t.Helper()
	if err := e.commands.Handle(context.Background(), &Message{ChatID: testChatID, UserID: testUserID, Command: command}); err != nil {
		t.Fatalf("/%s: %v", command, err)
	}
}

func (e *testEnv) say(t *testing.T, text string) {
	t.Helper()
	if err := e.text.Handle(context.Background(), &Message{ChatID: testChatID, UserID: testUserID, Text: text}); err != nil {
		t.Fatalf("text %q: %v", text, err)
	}
}

func (e *testEnv) press(t *testing.T, messageID int, data string) {
	t.Helper()
	msg := &Message{ChatID: testChatID, UserID: testUserID, MessageID: messageID, CallbackData: data, CallbackID: "cb"}
	if err := e.callback.Handle(context.Background(), msg); err != nil {
		t.Fatalf("callback %q: %v", data, err)
	}
}

func (e *testEnv) session(t *testing.T) *state.TelegramSession {
	t.Helper()
	s, err := e.states.GetSession(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	return s
}

func lastMessage(t *testing.T, bot *fakeBot) tgbotapi.MessageConfig {
	t.Helper()
	msgs := bot.messages()
	if len(msgs) == 0 {
		t.Fatalf("no messages sent")
	}
	return msgs[len(msgs)-1]
}

func lastEdit(t *testing.T, bot *fakeBot) tgbotapi.EditMessageTextConfig {
	t.Helper()
	edits := bot.edits()
	if len(edits) == 0 {
		t.Fatalf("no edits sent")
	}
	return edits[len(edits)-1]
}

func buttons(t *testing.T, markup interface{}) []tgbotapi.InlineKeyboardButton {
	t.Helper()
	var kb tgbotapi.InlineKeyboardMarkup
	switch m := markup.(type) {
	case tgbotapi.InlineKeyboardMarkup:
		kb = m
	case *tgbotapi.InlineKeyboardMarkup:
		if m == nil {
			return nil
		}
		kb = *m
	default:
		t.Fatalf("unexpected markup %T", markup)
	}
	var out []tgbotapi.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}

func callbackData(b tgbotapi.InlineKeyboardButton) string {
	if b.CallbackData == nil {
		return ""
	}
	return *b.CallbackData
}

func TestStart_CreatesConversationAndShowsModes(t *testing.T) {
	env := newTestEnv(t)

	env.command(t, CommandStart)

	if env.session(t).ConversationID == "" {
		t.Fatalf("start must bind a conversation")
	}

	msg := lastMessage(t, env.bot)
	if msg.Text != render.MsgWelcome {
		t.Fatalf("unexpected welcome: %q", msg.Text)
	}
	if msg.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", msg.ParseMode)
	}

	btns := buttons(t, msg.ReplyMarkup)
	if len(btns) != 4 {
		t.Fatalf("expected 4 mode buttons, got %d", len(btns))
	}
	if btns[0].Text != "✅ EXPLAIN" || callbackData(btns[0]) != "mode:EXPLAIN" {
		t.Fatalf("default mode must be marked: %+v", btns[0])
	}
}

func TestStart_ReplacesPreviousConversation(t *testing.T) {
	env := newTestEnv(t)

	env.command(t, CommandStart)
	first := env.session(t).ConversationID
	env.command(t, CommandStart)
	second := env.session(t).ConversationID

	if first == second {
		t.Fatalf("start must open a new conversation")
	}
	if _, err := env.chatUC.GetConversation(context.Background(), first); !errors.Is(err, entity.ErrConversationNotFound) {
		t.Fatalf("previous conversation must be dropped, got %v", err)
	}
}

func TestModeCallback_StoresModeAndEchoesHint(t *testing.T) {
	env := newTestEnv(t)
	env.command(t, CommandStart)

	env.press(t, 1, "mode:STUDY_PLAN")

	data, err := env.states.GetStateData(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("GetStateData: %v", err)
	}
	if data.CurrentMode() != entity.ModeStudyPlan {
		t.Fatalf("expected STUDY_PLAN, got %s", data.CurrentMode())
	}

	edit := lastEdit(t, env.bot)
	if edit.MessageID != 1 || !strings.Contains(edit.Text, "STUDY PLAN") {
		t.Fatalf("mode keyboard not refreshed: %+v", edit)
	}

	msg := lastMessage(t, env.bot)
	if !strings.Contains(msg.Text, "What&#39;s your goal?") {
		t.Fatalf("input hint not echoed: %q", msg.Text)
	}
}

func TestModeCallback_RejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t)

	env.press(t, 1, "mode:DANCE")

	if msg := lastMessage(t, env.bot); msg.Text != render.ErrInvalidInput {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
	data, _ := env.states.GetStateData(context.Background(), testUserID)
	if data.CurrentMode() != entity.ModeExplain {
		t.Fatalf("mode must stay EXPLAIN, got %s", data.CurrentMode())
	}
}

func TestText_ExplainWithoutStartOpensConversation(t *testing.T) {
	env := newTestEnv(t)

	env.say(t, "photosynthesis")

	if env.session(t).ConversationID == "" {
		t.Fatalf("first message must open a conversation")
	}

	msg := lastMessage(t, env.bot)
	if !strings.Contains(msg.Text, "<b>photosynthesis (MOCK)</b>") {
		t.Fatalf("heading not bolded: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "<b>Sources</b>") || !strings.Contains(msg.Text, "Wikipedia") {
		t.Fatalf("sources not listed: %q", msg.Text)
	}
	if msg.ReplyMarkup != nil {
		t.Fatalf("plain replies carry no keyboard")
	}

	if env.bot.requestCount() == 0 {
		t.Fatalf("typing indicator not sent")
	}
}

func TestText_QuizPlaythrough(t *testing.T) {
	env := newTestEnv(t)
	env.command(t, CommandStart)
	env.press(t, 1, "mode:QUIZ")
	env.bot.reset()

	env.say(t, "Study skills")

	msgs := env.bot.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected caption and widget, got %d messages", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "<b>Study skills (MOCK)</b>") {
		t.Fatalf("unexpected caption: %q", msgs[0].Text)
	}

	widget := msgs[1]
	if !strings.Contains(widget.Text, "Question 1 of 3") {
		t.Fatalf("unexpected widget: %q", widget.Text)
	}
	options := buttons(t, widget.ReplyMarkup)
	if len(options) != 4 || options[0].Text != "A" || options[3].Text != "D" {
		t.Fatalf("unexpected option buttons: %+v", options)
	}
	parts := strings.Split(callbackData(options[1]), ":")
	if len(parts) != 3 || parts[0] != "quiz" || parts[2] != "1" {
		t.Fatalf("unexpected option callback: %q", callbackData(options[1]))
	}
	quizID := parts[1]

	data, _ := env.states.GetStateData(context.Background(), testUserID)
	if len(data.QuizMessageIDs) != 1 || data.QuizMessageIDs[0] != quizID {
		t.Fatalf("quiz not tracked: %+v", data.QuizMessageIDs)
	}

	// Q1: correct is B
	env.press(t, 7, "quiz:"+quizID+":1")
	edit := lastEdit(t, env.bot)
	if edit.MessageID != 7 || !strings.Contains(edit.Text, render.MsgQuizCorrect) {
		t.Fatalf("expected correct feedback: %q", edit.Text)
	}
	next := buttons(t, edit.ReplyMarkup)
	if len(next) != 1 || next[0].Text != render.BtnNextQuestion || callbackData(next[0]) != "qnext:"+quizID {
		t.Fatalf("unexpected next button: %+v", next)
	}

	// A second answer on a revealed question changes nothing
	env.press(t, 7, "quiz:"+quizID+":0")
	if !strings.Contains(lastEdit(t, env.bot).Text, render.MsgQuizCorrect) {
		t.Fatalf("revealed question must keep its verdict")
	}

	env.press(t, 7, "qnext:"+quizID)
	if !strings.Contains(lastEdit(t, env.bot).Text, "Question 2 of 3") {
		t.Fatalf("expected second question")
	}

	// Q2: correct is A
	env.press(t, 7, "quiz:"+quizID+":0")
	env.press(t, 7, "qnext:"+quizID)

	// Q3: correct is C, answer wrong
	env.press(t, 7, "quiz:"+quizID+":3")
	edit = lastEdit(t, env.bot)
	if !strings.Contains(edit.Text, render.MsgQuizWrong) || !strings.Contains(edit.Text, "Retrieval practice") {
		t.Fatalf("expected wrong feedback with explanation: %q", edit.Text)
	}
	if finish := buttons(t, edit.ReplyMarkup); finish[0].Text != render.BtnFinishQuiz {
		t.Fatalf("last question must offer finish: %+v", finish)
	}

	env.press(t, 7, "qnext:"+quizID)
	edit = lastEdit(t, env.bot)
	if !strings.Contains(edit.Text, "You scored 2 out of 3 (67%)") {
		t.Fatalf("unexpected completion: %q", edit.Text)
	}
	if edit.ReplyMarkup != nil {
		t.Fatalf("finished quiz must drop its keyboard")
	}
}

func TestText_StudyPlanExport(t *testing.T) {
	env := newTestEnv(t)
	env.command(t, CommandStart)
	env.press(t, 1, "mode:STUDY_PLAN")

	env.say(t, "Learn Go")

	msg := lastMessage(t, env.bot)
	if !strings.Contains(msg.Text, "<b>1. ") {
		t.Fatalf("plan items not rendered: %q", msg.Text)
	}
	btns := buttons(t, msg.ReplyMarkup)
	if len(btns) != 3 {
		t.Fatalf("expected 3 export buttons, got %d", len(btns))
	}
	for _, b := range btns {
		if !strings.HasPrefix(callbackData(b), "dl:") {
			t.Fatalf("unexpected export callback: %q", callbackData(b))
		}
	}

	env.press(t, 9, callbackData(btns[0]))

	docs := env.bot.documents()
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	file, ok := docs[0].File.(tgbotapi.FileBytes)
	if !ok || !strings.HasSuffix(file.Name, ".md") || len(file.Bytes) == 0 {
		t.Fatalf("unexpected document: %+v", docs[0].File)
	}
}

func TestText_IgnoredWhileBusy(t *testing.T) {
	env := newTestEnv(t)
	env.command(t, CommandStart)
	env.bot.reset()

	store, err := env.chatUC.GetConversation(context.Background(), env.session(t).ConversationID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	store.TryBegin()
	defer store.SetBusy(false)

	env.say(t, "hello")

	if n := len(env.bot.messages()); n != 0 {
		t.Fatalf("busy conversation must ignore input, %d messages sent", n)
	}
	if store.Len() != 1 {
		t.Fatalf("transcript changed while busy")
	}
}

func TestText_RejectsUnsupportedAndOversizedInput(t *testing.T) {
	env := newTestEnv(t)

	if err := env.text.Handle(context.Background(), &Message{ChatID: testChatID, UserID: testUserID, Unsupported: true}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if msg := lastMessage(t, env.bot); msg.Text != render.ErrUnsupportedInput {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}

	env.say(t, strings.Repeat("x", 101))
	if msg := lastMessage(t, env.bot); msg.Text != render.ErrInputTooLong {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}

	env.bot.reset()
	env.say(t, "   ")
	if n := len(env.bot.messages()); n != 0 {
		t.Fatalf("blank input must be ignored")
	}
}

func TestReset_DropsConversationKeepsMode(t *testing.T) {
	env := newTestEnv(t)
	env.command(t, CommandStart)
	env.press(t, 1, "mode:QUIZ")
	env.say(t, "Cells")
	conversationID := env.session(t).ConversationID

	if env.quizzes.Len() != 1 {
		t.Fatalf("expected one open quiz run")
	}

	env.command(t, CommandReset)

	if msg := lastMessage(t, env.bot); msg.Text != render.MsgConversationReset {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
	if _, err := env.chatUC.GetConversation(context.Background(), conversationID); !errors.Is(err, entity.ErrConversationNotFound) {
		t.Fatalf("conversation must be deleted, got %v", err)
	}
	if env.quizzes.Len() != 0 {
		t.Fatalf("quiz runs must be discarded")
	}

	data, _ := env.states.GetStateData(context.Background(), testUserID)
	if data.CurrentMode() != entity.ModeQuiz || len(data.QuizMessageIDs) != 0 {
		t.Fatalf("unexpected state after reset: %+v", data)
	}
	if env.session(t).ConversationID != "" {
		t.Fatalf("session must be unbound")
	}
}

func TestReset_WithoutConversation(t *testing.T) {
	env := newTestEnv(t)

	env.command(t, CommandReset)

	if msg := lastMessage(t, env.bot); msg.Text != render.MsgNoConversation {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestQuizCallback_AfterResetReportsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.command(t, CommandStart)
	env.command(t, CommandReset)

	env.press(t, 3, "quiz:missing:0")

	if msg := lastMessage(t, env.bot); msg.Text != render.ErrNotFound {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestCommand_HelpAndUnknown(t *testing.T) {
	env := newTestEnv(t)

	env.command(t, CommandHelp)
	if msg := lastMessage(t, env.bot); msg.Text != render.MsgHelp {
		t.Fatalf("unexpected help: %q", msg.Text)
	}

	env.command(t, "dance")
	if msg := lastMessage(t, env.bot); msg.Text != render.ErrUnknownCommand {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestMessageSender_RetriesTransientErrors(t *testing.T) {
	bot := &fakeBot{failures: 2, err: errors.New("connection reset")}
	sender := NewMessageSender(bot, &pkgRetry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}, zap.NewNop())

	if _, err := sender.Send(context.Background(), testChatID, "hi", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if bot.attempts != 3 || len(bot.sent) != 1 {
		t.Fatalf("expected 3 attempts and 1 delivery, got %d/%d", bot.attempts, len(bot.sent))
	}
}

func TestMessageSender_DoesNotRetryClientErrors(t *testing.T) {
	bot := &fakeBot{failures: 5, err: &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}}
	sender := NewMessageSender(bot, &pkgRetry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}, zap.NewNop())

	if _, err := sender.Send(context.Background(), testChatID, "hi", nil); err == nil {
		t.Fatalf("expected error")
	}
	if bot.attempts != 1 {
		t.Fatalf("client errors must not be retried, got %d attempts", bot.attempts)
	}
}

func TestMessageSender_EditIgnoresNotModified(t *testing.T) {
	bot := &fakeBot{failures: 1, err: &tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}}
	sender := NewMessageSender(bot, nil, zap.NewNop())

	if err := sender.Edit(context.Background(), testChatID, 1, "same", nil); err != nil {
		t.Fatalf("not modified must be ignored, got %v", err)
	}
}

func TestMessageSender_SplitsLongText(t *testing.T) {
	bot := &fakeBot{}
	sender := NewMessageSender(bot, nil, zap.NewNop())
	kb := keyboard.NewBuilder().ExportKeyboard("m1")

	text := strings.Repeat(strings.Repeat("a", 99)+"\n", 50)
	if _, err := sender.Send(context.Background(), testChatID, text, kb); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := bot.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(msgs))
	}
	if msgs[0].ReplyMarkup != nil || msgs[1].ReplyMarkup == nil {
		t.Fatalf("keyboard must be attached to the last chunk only")
	}
}

func TestTypingNotifier_StopIsIdempotent(t *testing.T) {
	bot := &fakeBot{}
	n := NewTypingNotifier(bot, testChatID, zap.NewNop())

	n.Start(context.Background())
	n.Stop()
	n.Stop()

	if bot.requestCount() == 0 {
		t.Fatalf("typing action must be sent on start")
	}
}
