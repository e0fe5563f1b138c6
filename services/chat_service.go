package services

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/chatly-app/chatly/config"
	"github.com/chatly-app/chatly/db"
	apiError "github.com/chatly-app/chatly/errors"
	"github.com/chatly-app/chatly/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// latestMessageWorkers bounds the per-counterpart latest-message fan-out.
const latestMessageWorkers = 4

// ChatService derives conversations from the raw message log and writes new
// messages. It holds no state of its own; every call is a pure function of
// the caller's id and the store's contents.
type ChatService interface {
	ListConversations(ctx context.Context, currentUserID uuid.UUID) ([]models.ConversationSummary, *apiError.Error)
	GetThread(ctx context.Context, currentUserID, counterpartID uuid.UUID) ([]models.Message, *apiError.Error)
	GetThreadWithUsername(ctx context.Context, currentUser *models.User, otherUsername string) ([]models.MessageView, *apiError.Error)
	SendMessage(ctx context.Context, sender *models.User, request *models.SendMessageRequest) (*models.Message, *apiError.Error)
	RenameUser(ctx context.Context, userID uuid.UUID, newUsername string) *apiError.Error
}

type chatService struct {
	Config      *config.Config
	authRepo    db.AuthRepository
	messageRepo db.MessageRepository
}

func NewChatService(messageRepo db.MessageRepository, authRepo db.AuthRepository, conf *config.Config) ChatService {
	return &chatService{
		Config:      conf,
		authRepo:    authRepo,
		messageRepo: messageRepo,
	}
}

type latestLookup struct {
	message *models.Message
	skip    bool
}

// ListConversations returns one summary per user the caller has exchanged
// messages with, newest conversation first. A failure on the initial message
// query fails the whole call; a failure resolving one counterpart's latest
// message only degrades that entry.
func (s *chatService) ListConversations(ctx context.Context, currentUserID uuid.UUID) ([]models.ConversationSummary, *apiError.Error) {
	messages, err := s.messageRepo.FindMessagesByParticipant(ctx, currentUserID)
	if err != nil {
		log.Printf("ListConversations message query failed: %v", err)
		return nil, apiError.New("conversation list unavailable", http.StatusInternalServerError)
	}

	counterpartIDs := lo.Uniq(lo.Map(messages, func(m models.Message, _ int) uuid.UUID {
		if m.SenderID == currentUserID {
			return m.ReceiverID
		}
		return m.SenderID
	}))

	latest := s.fetchLatestMessages(ctx, currentUserID, counterpartIDs)

	profiles, err := s.authRepo.FindUsersByIDs(ctx, counterpartIDs)
	if err != nil {
		log.Printf("ListConversations profile lookup failed: %v", err)
		return nil, apiError.New("conversation list unavailable", http.StatusInternalServerError)
	}
	profileByID := lo.KeyBy(profiles, func(u models.User) uuid.UUID { return u.ID })

	summaries := make([]models.ConversationSummary, 0, len(counterpartIDs))
	for _, id := range counterpartIDs {
		profile, ok := profileByID[id]
		if !ok {
			// Referential drift (deleted account) must not break the list.
			log.Printf("ListConversations: dropping counterpart %s, no profile", id)
			continue
		}
		lookup := latest[id]
		if lookup.skip {
			continue
		}
		summary := models.ConversationSummary{Counterpart: profile}
		if lookup.message != nil {
			summary.LastMessageBody = lookup.message.Content
			at := lookup.message.CreatedAt
			summary.LastMessageAt = &at
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessageAt, summaries[j].LastMessageAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
	return summaries, nil
}

// fetchLatestMessages resolves the most recent message with each counterpart
// through a bounded worker pool. A pair with no messages at all is marked for
// skipping; a query failure leaves the entry with a nil message.
func (s *chatService) fetchLatestMessages(ctx context.Context, currentUserID uuid.UUID, counterpartIDs []uuid.UUID) map[uuid.UUID]latestLookup {
	results := make(map[uuid.UUID]latestLookup, len(counterpartIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, latestMessageWorkers)

	for _, counterpartID := range counterpartIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(counterpartID uuid.UUID) {
			defer wg.Done()
			defer func() { <-sem }()

			message, err := s.messageRepo.FindLatestMessageBetween(ctx, currentUserID, counterpartID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				results[counterpartID] = latestLookup{message: message}
			case errors.Is(err, gorm.ErrRecordNotFound):
				results[counterpartID] = latestLookup{skip: true}
			default:
				log.Printf("latest message lookup failed for %s: %v", counterpartID, err)
				results[counterpartID] = latestLookup{}
			}
		}(counterpartID)
	}
	wg.Wait()
	return results
}

// GetThread returns the full message history with one counterpart, oldest
// first. An empty thread is a valid new conversation, not an error.
func (s *chatService) GetThread(ctx context.Context, currentUserID, counterpartID uuid.UUID) ([]models.Message, *apiError.Error) {
	messages, err := s.messageRepo.FindMessagesBetween(ctx, currentUserID, counterpartID)
	if err != nil {
		log.Printf("GetThread query failed: %v", err)
		return nil, apiError.New("failed to fetch messages", http.StatusInternalServerError)
	}
	return messages, nil
}

// GetThreadWithUsername resolves the counterpart by username and returns the
// thread enriched with usernames for display.
func (s *chatService) GetThreadWithUsername(ctx context.Context, currentUser *models.User, otherUsername string) ([]models.MessageView, *apiError.Error) {
	other, err := s.authRepo.FindUserByUsername(ctx, otherUsername)
	if err != nil {
		log.Printf("GetThreadWithUsername counterpart lookup failed: %v", err)
		return nil, apiError.New("other user not found", http.StatusInternalServerError)
	}

	messages, apiErr := s.GetThread(ctx, currentUser.ID, other.ID)
	if apiErr != nil {
		return nil, apiErr
	}

	views := lo.Map(messages, func(m models.Message, _ int) models.MessageView {
		view := models.MessageView{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		}
		if m.SenderID == currentUser.ID {
			view.Sender = currentUser.Username
			view.Receiver = other.Username
		} else {
			view.Sender = other.Username
			view.Receiver = currentUser.Username
		}
		return view
	})
	return views, nil
}

// SendMessage validates and inserts one immutable message. The receiver may
// be named by id or by username.
func (s *chatService) SendMessage(ctx context.Context, sender *models.User, request *models.SendMessageRequest) (*models.Message, *apiError.Error) {
	if sender == nil {
		return nil, apiError.ErrUnauthorized
	}
	if err := models.ValidateWhiteSpaces(request); err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}
	if request.Content == "" {
		return nil, apiError.New("message is empty", http.StatusBadRequest)
	}

	receiver, apiErr := s.resolveReceiver(ctx, request)
	if apiErr != nil {
		return nil, apiErr
	}
	if receiver.ID == sender.ID {
		return nil, apiError.New("cannot send a message to yourself", http.StatusBadRequest)
	}

	message := &models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    request.Content,
	}
	created, err := s.messageRepo.CreateMessage(ctx, message)
	if err != nil {
		log.Printf("SendMessage insert failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return created, nil
}

func (s *chatService) resolveReceiver(ctx context.Context, request *models.SendMessageRequest) (*models.User, *apiError.Error) {
	switch {
	case request.ReceiverID != "":
		receiverID, err := uuid.Parse(request.ReceiverID)
		if err != nil {
			return nil, apiError.New("invalid receiver id", http.StatusBadRequest)
		}
		receiver, err := s.authRepo.FindUserByID(ctx, receiverID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apiError.New("receiver not found", http.StatusBadRequest)
			}
			log.Printf("receiver lookup failed: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		return receiver, nil
	case request.Receiver != "":
		receiver, err := s.authRepo.FindUserByUsername(ctx, request.Receiver)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apiError.New("receiver not found", http.StatusBadRequest)
			}
			log.Printf("receiver lookup failed: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		return receiver, nil
	default:
		return nil, apiError.New("receiver is required", http.StatusBadRequest)
	}
}

// RenameUser updates the caller's username. The pre-check is a fast path;
// the unique index decides the race between concurrent renames, and its
// violation is reported the same way.
func (s *chatService) RenameUser(ctx context.Context, userID uuid.UUID, newUsername string) *apiError.Error {
	request := &models.UpdateUsernameRequest{Username: newUsername}
	if err := models.ValidateWhiteSpaces(request); err != nil {
		return apiError.New(err.Error(), http.StatusBadRequest)
	}
	if request.Username == "" {
		return apiError.New("username is empty", http.StatusBadRequest)
	}

	taken, err := s.authRepo.IsUsernameTaken(ctx, request.Username, userID)
	if err != nil {
		log.Printf("RenameUser uniqueness check failed: %v", err)
		return apiError.ErrInternalServerError
	}
	if taken {
		return apiError.ErrUsernameTaken
	}

	if err := s.authRepo.UpdateUsername(ctx, userID, request.Username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError.ErrNotFound
		}
		if apiError.IsUniqueConstraintError(err, "username") {
			return apiError.ErrUsernameTaken
		}
		log.Printf("RenameUser update failed: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}
