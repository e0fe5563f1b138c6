package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/chatly-app/chatly/config"
	"github.com/chatly-app/chatly/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAuthRepo struct {
	users           map[uuid.UUID]models.User
	caseInsensitive bool
	findByIDsErr    error
}

func newFakeAuthRepo(users ...models.User) *fakeAuthRepo {
	repo := &fakeAuthRepo{users: make(map[uuid.UUID]models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeAuthRepo) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return nil, fmt.Errorf("duplicate key value violates unique constraint \"idx_users_username\"")
		}
		if existing.Email == user.Email {
			return nil, fmt.Errorf("duplicate key value violates unique constraint \"idx_users_email\"")
		}
	}
	f.users[user.ID] = *user
	return user, nil
}

func (f *fakeAuthRepo) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (f *fakeAuthRepo) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuthRepo) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if f.matches(u.Username, username) {
			user := u
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuthRepo) FindUsersByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	if f.findByIDsErr != nil {
		return nil, f.findByIDsErr
	}
	var users []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeAuthRepo) IsUsernameTaken(_ context.Context, username string, excludeID uuid.UUID) (bool, error) {
	for _, u := range f.users {
		if u.ID != excludeID && f.matches(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAuthRepo) UpdateUsername(_ context.Context, userID uuid.UUID, username string) error {
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, other := range f.users {
		if other.ID != userID && f.matches(other.Username, username) {
			return fmt.Errorf("duplicate key value violates unique constraint \"idx_users_username\"")
		}
	}
	user.Username = username
	f.users[userID] = user
	return nil
}

func (f *fakeAuthRepo) AddToBlackList(_ context.Context, entry *models.Blacklist) error {
	return nil
}

func (f *fakeAuthRepo) IsTokenInBlacklist(_ context.Context, token string) bool {
	return false
}

func (f *fakeAuthRepo) matches(a, b string) bool {
	if f.caseInsensitive {
		return strings.EqualFold(a, b)
	}
	return a == b
}

type fakeMessageRepo struct {
	messages    []models.Message
	createCalls int
	createErr   error
	// latestErr injects a failure for one counterpart's latest-message query.
	latestErrFor uuid.UUID
	latestErr    error
}

func (f *fakeMessageRepo) CreateMessage(_ context.Context, message *models.Message) (*models.Message, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	message.CreatedAt = time.Now()
	f.messages = append(f.messages, *message)
	return message, nil
}

func (f *fakeMessageRepo) FindMessagesByParticipant(_ context.Context, userID uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) FindMessagesBetween(_ context.Context, a, b uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessageRepo) FindLatestMessageBetween(_ context.Context, a, b uuid.UUID) (*models.Message, error) {
	if f.latestErr != nil && (b == f.latestErrFor || a == f.latestErrFor) {
		return nil, f.latestErr
	}
	thread, _ := f.FindMessagesBetween(context.Background(), a, b)
	if len(thread) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	latest := thread[len(thread)-1]
	return &latest, nil
}

func newTestChatService(messageRepo *fakeMessageRepo, authRepo *fakeAuthRepo) ChatService {
	return NewChatService(messageRepo, authRepo, &config.Config{})
}

func makeUser(username string) models.User {
	return models.User{
		Model:    models.Model{ID: uuid.New()},
		Username: username,
		Email:    username + "@example.com",
	}
}

func message(from, to models.User, content string, at time.Time) models.Message {
	return models.Message{
		ID:         uuid.New(),
		SenderID:   from.ID,
		ReceiverID: to.ID,
		Content:    content,
		CreatedAt:  at,
	}
}

func Test_ListConversations_Empty_For_User_With_No_Messages(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	svc := newTestChatService(&fakeMessageRepo{}, newFakeAuthRepo(alice))

	summaries, err := svc.ListConversations(context.Background(), alice.ID)
	req.Nil(err)
	req.Empty(summaries)
}

func Test_ListConversations_One_Summary_Per_Counterpart(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	clara := makeUser("clara")
	at := time.Now().UTC()

	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(alice, bob, "hi bob", at),
		message(bob, alice, "hi alice", at.Add(1*time.Minute)),
		message(alice, bob, "how are you", at.Add(2*time.Minute)),
		message(clara, alice, "hello", at.Add(3*time.Minute)),
	}}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob, clara))

	summaries, err := svc.ListConversations(context.Background(), alice.ID)
	req.Nil(err)
	req.Len(summaries, 2)

	// Both directions with bob collapse into one entry.
	ids := []uuid.UUID{summaries[0].Counterpart.ID, summaries[1].Counterpart.ID}
	req.Contains(ids, bob.ID)
	req.Contains(ids, clara.ID)
}

func Test_ListConversations_Latest_Message_Wins(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	t1 := time.Now().UTC()

	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(alice, bob, "first", t1),
		message(bob, alice, "second", t1.Add(1*time.Minute)),
		message(alice, bob, "third", t1.Add(2*time.Minute)),
	}}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob))

	summaries, err := svc.ListConversations(context.Background(), alice.ID)
	req.Nil(err)
	req.Len(summaries, 1)
	req.Equal("third", summaries[0].LastMessageBody)
	req.NotNil(summaries[0].LastMessageAt)
	req.True(summaries[0].LastMessageAt.Equal(t1.Add(2 * time.Minute)))
}

func Test_ListConversations_Sorted_By_Last_Message_Desc(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	clara := makeUser("clara")
	dave := makeUser("dave")
	at := time.Now().UTC()

	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(alice, bob, "old", at),
		message(clara, alice, "newest", at.Add(2*time.Hour)),
		message(dave, alice, "middle", at.Add(1*time.Hour)),
	}}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob, clara, dave))

	summaries, err := svc.ListConversations(context.Background(), alice.ID)
	req.Nil(err)
	req.Len(summaries, 3)
	req.Equal(clara.ID, summaries[0].Counterpart.ID)
	req.Equal(dave.ID, summaries[1].Counterpart.ID)
	req.Equal(bob.ID, summaries[2].Counterpart.ID)
}

func Test_ListConversations_Drops_Counterparts_Without_Profile(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	ghost := makeUser("ghost")
	at := time.Now().UTC()

	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(ghost, alice, "boo", at),
	}}
	// ghost has messages but no profile row anymore.
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice))

	summaries, err := svc.ListConversations(context.Background(), alice.ID)
	req.Nil(err)
	req.Empty(summaries)
}

func Test_ListConversations_Degrades_Entry_On_Latest_Lookup_Failure(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	clara := makeUser("clara")
	at := time.Now().UTC()

	messageRepo := &fakeMessageRepo{
		messages: []models.Message{
			message(alice, bob, "hi", at),
			message(alice, clara, "hey", at.Add(1*time.Minute)),
		},
		latestErrFor: bob.ID,
		latestErr:    fmt.Errorf("connection reset"),
	}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob, clara))

	summaries, err := svc.ListConversations(context.Background(), alice.ID)
	req.Nil(err)
	req.Len(summaries, 2)

	for _, summary := range summaries {
		if summary.Counterpart.ID == bob.ID {
			req.Empty(summary.LastMessageBody)
			req.Nil(summary.LastMessageAt)
		} else {
			req.Equal("hey", summary.LastMessageBody)
		}
	}
}

func Test_ListConversations_Two_Party_Scenario(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	t1 := time.Now().UTC()

	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(alice, bob, "hi", t1),
	}}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob))

	aliceView, err := svc.ListConversations(context.Background(), alice.ID)
	req.Nil(err)
	req.Len(aliceView, 1)
	req.Equal(bob.ID, aliceView[0].Counterpart.ID)
	req.Equal("hi", aliceView[0].LastMessageBody)
	req.True(aliceView[0].LastMessageAt.Equal(t1))

	bobView, err := svc.ListConversations(context.Background(), bob.ID)
	req.Nil(err)
	req.Len(bobView, 1)
	req.Equal(alice.ID, bobView[0].Counterpart.ID)
	req.Equal("hi", bobView[0].LastMessageBody)
}

func Test_GetThread_Ascending_And_Symmetric(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	at := time.Now().UTC()

	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(bob, alice, "second", at.Add(1*time.Minute)),
		message(alice, bob, "first", at),
		message(alice, bob, "third", at.Add(2*time.Minute)),
	}}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob))

	aliceThread, err := svc.GetThread(context.Background(), alice.ID, bob.ID)
	req.Nil(err)
	req.Len(aliceThread, 3)
	for i := 1; i < len(aliceThread); i++ {
		req.False(aliceThread[i].CreatedAt.Before(aliceThread[i-1].CreatedAt))
	}

	bobThread, err := svc.GetThread(context.Background(), bob.ID, alice.ID)
	req.Nil(err)
	req.Equal(aliceThread, bobThread)
}

func Test_GetThread_Empty_Is_Not_An_Error(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	svc := newTestChatService(&fakeMessageRepo{}, newFakeAuthRepo(alice, bob))

	thread, err := svc.GetThread(context.Background(), alice.ID, bob.ID)
	req.Nil(err)
	req.Empty(thread)
}

func Test_GetThreadWithUsername_Enriches_With_Usernames(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	at := time.Now().UTC()

	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(alice, bob, "hi", at),
		message(bob, alice, "hello", at.Add(1*time.Minute)),
	}}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob))

	views, err := svc.GetThreadWithUsername(context.Background(), &alice, "bob")
	req.Nil(err)
	req.Len(views, 2)
	req.Equal("alice", views[0].Sender)
	req.Equal("bob", views[0].Receiver)
	req.Equal("bob", views[1].Sender)
	req.Equal("alice", views[1].Receiver)
}

func Test_SendMessage_Blank_Body_Writes_Nothing(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	messageRepo := &fakeMessageRepo{}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob))

	_, err := svc.SendMessage(context.Background(), &alice, &models.SendMessageRequest{
		Content:    "   ",
		ReceiverID: bob.ID.String(),
	})
	req.NotNil(err)
	req.Equal(400, err.Status)
	req.Zero(messageRepo.createCalls)
}

func Test_SendMessage_Receiver_By_Username(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	messageRepo := &fakeMessageRepo{}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice, bob))

	created, err := svc.SendMessage(context.Background(), &alice, &models.SendMessageRequest{
		Content:  "  hi bob  ",
		Receiver: "bob",
	})
	req.Nil(err)
	req.Equal("hi bob", created.Content)
	req.Equal(alice.ID, created.SenderID)
	req.Equal(bob.ID, created.ReceiverID)
	req.Equal(1, messageRepo.createCalls)
}

func Test_SendMessage_Unknown_Receiver_Fails_Validation(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	messageRepo := &fakeMessageRepo{}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice))

	_, err := svc.SendMessage(context.Background(), &alice, &models.SendMessageRequest{
		Content:  "hello?",
		Receiver: "nobody",
	})
	req.NotNil(err)
	req.Equal(400, err.Status)
	req.Zero(messageRepo.createCalls)
}

func Test_SendMessage_Requires_A_Receiver(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	svc := newTestChatService(&fakeMessageRepo{}, newFakeAuthRepo(alice))

	_, err := svc.SendMessage(context.Background(), &alice, &models.SendMessageRequest{Content: "hi"})
	req.NotNil(err)
	req.Equal(400, err.Status)
}

func Test_SendMessage_Rejects_Self_Messages(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	messageRepo := &fakeMessageRepo{}
	svc := newTestChatService(messageRepo, newFakeAuthRepo(alice))

	_, err := svc.SendMessage(context.Background(), &alice, &models.SendMessageRequest{
		Content:  "note to self",
		Receiver: "alice",
	})
	req.NotNil(err)
	req.Equal(400, err.Status)
	req.Zero(messageRepo.createCalls)
}

func Test_RenameUser_Taken_Name_Is_Rejected(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	authRepo := newFakeAuthRepo(alice, bob)
	svc := newTestChatService(&fakeMessageRepo{}, authRepo)

	err := svc.RenameUser(context.Background(), alice.ID, "bob")
	req.NotNil(err)
	req.Equal(400, err.Status)

	unchanged, findErr := authRepo.FindUserByID(context.Background(), alice.ID)
	req.NoError(findErr)
	req.Equal("alice", unchanged.Username)
}

func Test_RenameUser_Own_Name_Is_Allowed(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	authRepo := newFakeAuthRepo(alice)
	svc := newTestChatService(&fakeMessageRepo{}, authRepo)

	err := svc.RenameUser(context.Background(), alice.ID, "alice")
	req.Nil(err)
}

func Test_RenameUser_Updates_Display_Name_Only(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("bob")
	at := time.Now().UTC()
	authRepo := newFakeAuthRepo(alice, bob)
	messageRepo := &fakeMessageRepo{messages: []models.Message{
		message(alice, bob, "hi", at),
	}}
	svc := newTestChatService(messageRepo, authRepo)

	err := svc.RenameUser(context.Background(), alice.ID, "alicia")
	req.Nil(err)

	renamed, findErr := authRepo.FindUserByID(context.Background(), alice.ID)
	req.NoError(findErr)
	req.Equal("alicia", renamed.Username)

	// Message rows are keyed by id, so the thread survives the rename intact.
	thread, threadErr := svc.GetThread(context.Background(), alice.ID, bob.ID)
	req.Nil(threadErr)
	req.Len(thread, 1)
	req.Equal(alice.ID, thread[0].SenderID)
}

func Test_RenameUser_Blank_Name_Is_Rejected(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	svc := newTestChatService(&fakeMessageRepo{}, newFakeAuthRepo(alice))

	err := svc.RenameUser(context.Background(), alice.ID, "   ")
	req.NotNil(err)
	req.Equal(400, err.Status)
}

func Test_RenameUser_Case_Insensitive_Mode(t *testing.T) {
	req := require.New(t)
	alice := makeUser("alice")
	bob := makeUser("Bob")
	authRepo := newFakeAuthRepo(alice, bob)
	authRepo.caseInsensitive = true
	svc := newTestChatService(&fakeMessageRepo{}, authRepo)

	err := svc.RenameUser(context.Background(), alice.ID, "bob")
	req.NotNil(err)
	req.Equal(400, err.Status)
}
