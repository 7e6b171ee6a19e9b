package messenger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lise-messenger/database"
	"lise-messenger/model"
	"lise-messenger/realtime"
	"lise-messenger/session"
	"lise-messenger/utils"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances one second per reading so consecutive writes never share a timestamp.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type emitterMock struct {
	mock.Mock
}

func (m *emitterMock) Emit(ctx context.Context, action string, payload any) error {
	args := m.Called(ctx, action, payload)
	return args.Error(0)
}

type fixture struct {
	db  *gorm.DB
	hub *realtime.Hub
	svc *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, db.Create(&[]model.Profile{
		{ID: "a", Username: "ayse", FullName: "Ayse Yilmaz", Email: "a@lise.test", Password: "x"},
		{ID: "b", Username: "burak", FullName: "Burak Demir", Email: "b@lise.test", Password: "x"},
		{ID: "c", Username: "cem", FullName: "Cem Kaya", Email: "c@lise.test", Password: "x"},
	}).Error)

	hub := realtime.NewHub(zerolog.Nop())
	clock := &stepClock{t: base}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return &fixture{db: db, hub: hub, svc: NewService(db, hub, zerolog.Nop(), opts...)}
}

func as(profileID string) context.Context {
	return session.WithProfile(context.Background(), profileID)
}

func (f *fixture) direct(t *testing.T, a, b string) model.Conversation {
	t.Helper()
	conv, err := f.svc.CreateConversation(as(a), nil, false, []string{b})
	require.NoError(t, err)
	return conv
}

func (f *fixture) group(t *testing.T, creator string, members ...string) model.Conversation {
	t.Helper()
	title := "Matematik"
	conv, err := f.svc.CreateConversation(as(creator), &title, true, members)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, from, conversationID, content string) model.Message {
	t.Helper()
	msg, err := f.svc.SendMessage(as(from), conversationID, content)
	require.NoError(t, err)
	return msg
}

func (f *fixture) receipt(t *testing.T, messageID, profileID string) model.MessageReadStatus {
	t.Helper()
	var rs model.MessageReadStatus
	require.NoError(t, f.db.Where("message_id = ? AND profile_id = ?", messageID, profileID).Take(&rs).Error)
	return rs
}

func TestCreateConversation_DirectIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first := f.direct(t, "a", "b")
	second := f.direct(t, "a", "b")
	reversed := f.direct(t, "b", "a")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, reversed.ID)

	var count int64
	require.NoError(t, f.db.Model(&model.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Len(t, second.Participants, 2)
}

func TestCreateConversation_DirectNeedsExactlyTwo(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateConversation(as("a"), nil, false, []string{"b", "c"})
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = f.svc.CreateConversation(as("a"), nil, false, []string{"a", " "})
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	_, err = f.svc.CreateConversation(as("a"), nil, false, []string{"ghost"})
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
}

func TestCreateConversation_GroupMarksCreatorAdmin(t *testing.T) {
	f := newFixture(t)

	conv := f.group(t, "a", "b", "c", "b")

	assert.True(t, conv.IsGroup)
	require.NotNil(t, conv.Title)
	assert.Equal(t, "Matematik", *conv.Title)
	require.Len(t, conv.Participants, 3)
	for _, p := range conv.Participants {
		assert.Equal(t, p.ProfileID == "a", p.IsAdmin, p.ProfileID)
	}

	// Groups are never folded into a direct lookup.
	_, found, err := f.svc.FindDirectConversation(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateConversation_RequiresIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateConversation(context.Background(), nil, false, []string{"b"})
	assert.ErrorIs(t, err, utils.ErrAuthenticationRequired)
}

func TestFindDirectConversation_ArgumentOrder(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")

	got, found, err := f.svc.FindDirectConversation(context.Background(), "b", "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, conv.ID, got.ID)

	_, found, err = f.svc.FindDirectConversation(context.Background(), "a", "c")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = f.svc.FindDirectConversation(context.Background(), "a", "a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateConversation_DirectAfterMemberLeft(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")

	removed, err := f.svc.RemoveParticipant(as("b"), conv.ID, "b")
	require.NoError(t, err)
	require.True(t, removed)

	_, found, err := f.svc.FindDirectConversation(as("a"), "a", "b")
	require.NoError(t, err)
	assert.False(t, found)

	again, err := f.svc.CreateConversation(as("b"), nil, false, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
	require.Len(t, again.Participants, 2)

	msg := f.send(t, "b", again.ID, "tekrar merhaba")
	assert.Equal(t, "b", msg.SenderID)

	found2, ok, err := f.svc.FindDirectConversation(as("a"), "b", "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, conv.ID, found2.ID)
}

func TestDirectKey(t *testing.T) {
	assert.Equal(t, "a:b", DirectKey("a", "b"))
	assert.Equal(t, "a:b", DirectKey("b", "a"))
}

func TestSendAndRead_Scenario(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")

	sent := f.send(t, "a", conv.ID, "hello")
	assert.Equal(t, "ayse", sent.Sender.Username)
	assert.Equal(t, "Ayse Yilmaz", sent.Sender.FullName)
	assert.False(t, f.receipt(t, sent.ID, "a").IsRead)
	assert.False(t, f.receipt(t, sent.ID, "b").IsRead)

	msgs, err := f.svc.GetMessages(as("b"), conv.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.False(t, msgs[0].IsEdited)
	assert.False(t, msgs[0].IsDeleted)
	assert.Equal(t, "ayse", msgs[0].Sender.Username)

	forB := f.receipt(t, sent.ID, "b")
	assert.True(t, forB.IsRead)
	assert.NotNil(t, forB.ReadAt)
	assert.False(t, f.receipt(t, sent.ID, "a").IsRead)
}

func TestSendMessage_BumpsConversation(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")

	msg := f.send(t, "a", conv.ID, "selam")

	var stored model.Conversation
	require.NoError(t, f.db.Where("id = ?", conv.ID).Take(&stored).Error)
	assert.True(t, stored.UpdatedAt.Equal(msg.CreatedAt))
	assert.True(t, stored.UpdatedAt.After(conv.UpdatedAt))
}

func TestSendMessage_Access(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")

	_, err := f.svc.SendMessage(as("c"), conv.ID, "hi")
	assert.Equal(t, utils.CodePermissionDenied, utils.CodeOf(err))

	_, err = f.svc.SendMessage(as("a"), "missing", "hi")
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))

	_, err = f.svc.SendMessage(context.Background(), conv.ID, "hi")
	assert.ErrorIs(t, err, utils.ErrAuthenticationRequired)
}

func TestGetMessages_NewestFirstWithoutDeleted(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")

	m1 := f.send(t, "a", conv.ID, "bir")
	m2 := f.send(t, "b", conv.ID, "iki")
	m3 := f.send(t, "a", conv.ID, "uc")

	res, err := f.svc.DeleteMessage(as("b"), m2.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, res.Outcome)

	msgs, err := f.svc.GetMessages(as("a"), conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m3.ID, msgs[0].ID)
	assert.Equal(t, m1.ID, msgs[1].ID)
	for _, m := range msgs {
		assert.False(t, m.IsDeleted)
	}

	page, err := f.svc.GetMessages(as("a"), conv.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, m1.ID, page[0].ID)
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		limit, offset, wantLimit, wantOffset int
	}{
		{0, 0, DefaultMessageLimit, 0},
		{-3, -1, DefaultMessageLimit, 0},
		{10, 5, 10, 5},
		{1000, 0, MaxMessageLimit, 0},
	}
	for _, tc := range cases {
		limit, offset := clampPage(tc.limit, tc.offset)
		assert.Equal(t, tc.wantLimit, limit)
		assert.Equal(t, tc.wantOffset, offset)
	}
}

func TestEditMessage_UpdatesContentAndTimestamps(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")
	sent := f.send(t, "a", conv.ID, "hello")

	res, err := f.svc.EditMessage(as("a"), sent.ID, "hello edited")
	require.NoError(t, err)
	require.True(t, res.Applied())
	require.NotNil(t, res.Message)
	assert.Equal(t, "ayse", res.Message.Sender.Username)

	msgs, err := f.svc.GetMessages(as("a"), conv.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello edited", msgs[0].Content)
	assert.True(t, msgs[0].IsEdited)
	assert.True(t, msgs[0].CreatedAt.Equal(sent.CreatedAt))
	assert.True(t, msgs[0].UpdatedAt.After(sent.UpdatedAt))
}

func TestEditMessage_ByOtherProfileLeavesContent(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")
	sent := f.send(t, "a", conv.ID, "hello")

	res, err := f.svc.EditMessage(as("b"), sent.ID, "hijacked")
	require.NoError(t, err)
	assert.Equal(t, OutcomeForbidden, res.Outcome)
	assert.Nil(t, res.Message)
	assert.Equal(t, utils.CodePermissionDenied, utils.CodeOf(res.Err()))

	res, err = f.svc.DeleteMessage(as("b"), sent.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeForbidden, res.Outcome)

	msgs, err := f.svc.GetMessages(as("b"), conv.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.False(t, msgs[0].IsEdited)
}

func TestDeleteMessage_IsTerminal(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")
	sent := f.send(t, "a", conv.ID, "hello")

	res, err := f.svc.DeleteMessage(as("a"), sent.ID)
	require.NoError(t, err)
	require.True(t, res.Applied())
	assert.True(t, res.Message.IsDeleted)

	res, err = f.svc.DeleteMessage(as("a"), sent.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)

	res, err = f.svc.EditMessage(as("a"), sent.ID, "back")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(res.Err()))

	res, err = f.svc.EditMessage(as("a"), "missing", "x")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)

	// The row is kept with its content.
	var stored model.Message
	require.NoError(t, f.db.Where("id = ?", sent.ID).Take(&stored).Error)
	assert.Equal(t, "hello", stored.Content)
	assert.True(t, stored.IsDeleted)
}

func TestModerateMessage_IgnoresSender(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")
	sent := f.send(t, "a", conv.ID, "uygunsuz")

	res, err := f.svc.ModerateMessage(context.Background(), sent.ID)
	require.NoError(t, err)
	assert.True(t, res.Applied())

	res, err = f.svc.ModerateMessage(context.Background(), sent.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}

func TestMarkMessagesRead_EmptyInputSkipsDatabase(t *testing.T) {
	f := newFixture(t)

	var calls int
	count := func(*gorm.DB) { calls++ }
	require.NoError(t, f.db.Callback().Query().Before("gorm:query").Register("test:count_query", count))
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:count_update", count))

	assert.NotPanics(t, func() {
		f.svc.MarkMessagesRead(as("a"), nil)
		f.svc.MarkMessagesRead(as("a"), []string{})
	})
	assert.Zero(t, calls)
}

func TestMarkMessagesRead_FailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")
	sent := f.send(t, "a", conv.ID, "hello")

	assert.NotPanics(t, func() {
		f.svc.MarkMessagesRead(context.Background(), []string{sent.ID})
	})
	assert.False(t, f.receipt(t, sent.ID, "b").IsRead)

	f.svc.MarkMessagesRead(as("b"), []string{sent.ID, "unknown"})
	first := f.receipt(t, sent.ID, "b")
	require.True(t, first.IsRead)

	// Already read receipts keep their first read time.
	f.svc.MarkMessagesRead(as("b"), []string{sent.ID})
	assert.True(t, f.receipt(t, sent.ID, "b").ReadAt.Equal(*first.ReadAt))
}

func TestListConversations_ActivityOrderAndUnread(t *testing.T) {
	f := newFixture(t)
	older := f.direct(t, "a", "b")
	newer := f.group(t, "a", "b", "c")

	f.send(t, "a", older.ID, "one")
	f.send(t, "a", older.ID, "two")

	rows, err := f.svc.ListConversations(context.Background(), "b")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, int64(2), rows[0].UnreadCount)
	require.NotNil(t, rows[0].LatestMessageContent)
	assert.Equal(t, "two", *rows[0].LatestMessageContent)
	assert.Equal(t, newer.ID, rows[1].ID)
	assert.Equal(t, int64(3), rows[1].ParticipantCount)
	assert.Nil(t, rows[1].LatestMessageID)

	_, err = f.svc.GetMessages(as("b"), older.ID, 50, 0)
	require.NoError(t, err)
	rows, err = f.svc.ListConversations(context.Background(), "b")
	require.NoError(t, err)
	assert.Zero(t, rows[0].UnreadCount)

	_, err = f.svc.ListConversations(context.Background(), " ")
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
}

func TestConversationDetailsAndTitle(t *testing.T) {
	f := newFixture(t)
	conv := f.group(t, "a", "b")

	got, err := f.svc.GetConversationDetails(as("b"), conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, "ayse", got.Participants[0].Profile.Username)

	_, err = f.svc.GetConversationDetails(as("c"), conv.ID)
	assert.Equal(t, utils.CodePermissionDenied, utils.CodeOf(err))
	_, err = f.svc.GetConversationDetails(as("a"), "missing")
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))

	renamed, err := f.svc.UpdateConversationTitle(as("b"), conv.ID, "  Fizik  ")
	require.NoError(t, err)
	require.NotNil(t, renamed.Title)
	assert.Equal(t, "Fizik", *renamed.Title)

	cleared, err := f.svc.UpdateConversationTitle(as("a"), conv.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.Title)
}

func TestDeleteConversation_AdminOnlyAndRemovesRows(t *testing.T) {
	f := newFixture(t)
	conv := f.group(t, "a", "b")
	f.send(t, "b", conv.ID, "hi")

	err := f.svc.DeleteConversation(as("b"), conv.ID)
	assert.Equal(t, utils.CodePermissionDenied, utils.CodeOf(err))

	require.NoError(t, f.svc.DeleteConversation(as("a"), conv.ID))

	for _, m := range []any{&model.Conversation{}, &model.Participant{}, &model.Message{}, &model.MessageReadStatus{}} {
		var n int64
		require.NoError(t, f.db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}

	err = f.svc.PurgeConversation(context.Background(), conv.ID)
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))
}

func TestGetParticipants_ReturnsEveryMember(t *testing.T) {
	f := newFixture(t)
	conv := f.group(t, "a", "b", "c")

	participants, err := f.svc.GetParticipants(as("c"), conv.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)

	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Profile.Username)
	}
	assert.ElementsMatch(t, []string{"ayse", "burak", "cem"}, names)
}

func TestAddParticipant(t *testing.T) {
	f := newFixture(t)
	direct := f.direct(t, "a", "b")
	group := f.group(t, "a", "b")

	err := f.svc.AddParticipant(as("a"), direct.ID, "c", false)
	assert.Equal(t, utils.CodeFailedPrecondition, utils.CodeOf(err))

	err = f.svc.AddParticipant(as("c"), group.ID, "c", false)
	assert.Equal(t, utils.CodePermissionDenied, utils.CodeOf(err))

	err = f.svc.AddParticipant(as("b"), group.ID, "ghost", false)
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))

	require.NoError(t, f.svc.AddParticipant(as("b"), group.ID, "c", false))
	require.NoError(t, f.svc.AddParticipant(as("b"), group.ID, "c", true))

	participants, err := f.svc.GetParticipants(as("c"), group.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 3)

	rows, err := f.svc.ListConversations(context.Background(), "c")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsAdmin)
}

func TestAddParticipant_DirectKeepsItsPair(t *testing.T) {
	f := newFixture(t)
	conv := f.direct(t, "a", "b")

	// Re-adding a current member is a no-op even when the conversation is full.
	require.NoError(t, f.svc.AddParticipant(as("a"), conv.ID, "b", false))

	_, err := f.svc.RemoveParticipant(as("b"), conv.ID, "b")
	require.NoError(t, err)

	err = f.svc.AddParticipant(as("a"), conv.ID, "c", false)
	assert.Equal(t, utils.CodeFailedPrecondition, utils.CodeOf(err))

	require.NoError(t, f.svc.AddParticipant(as("a"), conv.ID, "b", false))
	participants, err := f.svc.GetParticipants(as("b"), conv.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)
}

func TestRemoveParticipant(t *testing.T) {
	f := newFixture(t)
	conv := f.group(t, "a", "b", "c")

	_, err := f.svc.RemoveParticipant(as("b"), conv.ID, "c")
	assert.Equal(t, utils.CodePermissionDenied, utils.CodeOf(err))

	removed, err := f.svc.RemoveParticipant(as("a"), conv.ID, "c")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.svc.RemoveParticipant(as("a"), conv.ID, "c")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = f.svc.RemoveParticipant(as("b"), conv.ID, "b")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = f.svc.RemoveParticipant(as("a"), conv.ID, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	// The conversation outlives its last member.
	var n int64
	require.NoError(t, f.db.Model(&model.Conversation{}).Where("id = ?", conv.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSystemMembership(t *testing.T) {
	f := newFixture(t)
	conv := f.group(t, "a", "b")

	require.NoError(t, f.svc.SystemAddParticipant(context.Background(), conv.ID, "c", false))
	removed, err := f.svc.SystemRemoveParticipant(context.Background(), conv.ID, "b")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = f.svc.SystemRemoveParticipant(context.Background(), "missing", "b")
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))
}

func TestEmitter_ReceivesDomainEvents(t *testing.T) {
	em := &emitterMock{}
	em.On("Emit", mock.Anything, ActionConversationCreated, mock.Anything).Return(nil).Once()
	em.On("Emit", mock.Anything, ActionMessageCreated, mock.Anything).Return(nil).Once()
	em.On("Emit", mock.Anything, ActionMessageUpdated, mock.Anything).Return(assert.AnError).Once()

	f := newFixture(t, WithEmitter(em))
	conv := f.direct(t, "a", "b")
	sent := f.send(t, "a", conv.ID, "hello")

	// Emit failures do not fail the committed edit.
	res, err := f.svc.EditMessage(as("a"), sent.ID, "edited")
	require.NoError(t, err)
	assert.True(t, res.Applied())

	em.AssertExpectations(t)
}

func TestSearchProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.SearchProfiles(ctx, "BU", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "burak", got[0].Username)

	got, err = f.svc.SearchProfiles(ctx, "kaya", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.svc.SearchProfiles(ctx, "c", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cem", got[0].Username)

	got, err = f.svc.SearchProfiles(ctx, "%", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.svc.SearchProfiles(ctx, "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	p, err := f.svc.FindProfileByUsername(ctx, "AYSE")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)

	_, err = f.svc.GetProfile(ctx, "nobody")
	assert.Equal(t, utils.CodeNotFound, utils.CodeOf(err))
}
