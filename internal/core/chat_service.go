package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"gwi.com/chart-bot/internal/parser"
	"gwi.com/chart-bot/internal/store"
)

const genericReplyError = "I'm sorry, I encountered an error while processing your request."

// ChatService owns conversations: user-scoped CRUD plus the prompt flow that
// records a request, generates a reply and names untitled conversations.
type ChatService struct {
	store        store.ConversationStore
	charts       *ChartService
	titles       TitleGenerator
	titleTimeout time.Duration
	logger       *zap.Logger

	wg sync.WaitGroup
}

// NewChatService accepts a nil titles generator; conversations then keep
// whatever title they were created with.
func NewChatService(st store.ConversationStore, charts *ChartService, titles TitleGenerator, titleTimeout time.Duration, logger *zap.Logger) *ChatService {
	return &ChatService{
		store:        st,
		charts:       charts,
		titles:       titles,
		titleTimeout: titleTimeout,
		logger:       logger,
	}
}

func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]store.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

func (s *ChatService) GetConversation(ctx context.Context, id, userID string) (*store.Conversation, error) {
	c, err := s.store.GetConversation(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if c == nil {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (s *ChatService) CreateConversation(ctx context.Context, userID, title string) (*store.Conversation, error) {
	return s.store.CreateConversation(ctx, userID, strings.TrimSpace(title))
}

func (s *ChatService) UpdateConversation(ctx context.Context, id, userID string, update store.ConversationUpdate) (*store.Conversation, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		update.Title = &title
	}
	return s.store.UpdateConversation(ctx, id, userID, update)
}

func (s *ChatService) ToggleFavorite(ctx context.Context, id, userID string) (bool, error) {
	return s.store.ToggleFavorite(ctx, id, userID)
}

func (s *ChatService) DeleteConversation(ctx context.Context, id, userID string) error {
	return s.store.DeleteConversation(ctx, id, userID)
}

func (s *ChatService) AddMessage(ctx context.Context, conversationID, userID string, msg *store.Message) error {
	return s.store.AddMessage(ctx, conversationID, userID, msg)
}

func (s *ChatService) DeleteMessage(ctx context.Context, conversationID, messageID, userID string) error {
	return s.store.DeleteMessage(ctx, conversationID, messageID, userID)
}

func (s *ChatService) UpdateChartTitle(ctx context.Context, conversationID, messageID, userID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", store.ErrInvalidMessage)
	}
	return s.store.UpdateChartTitle(ctx, conversationID, messageID, userID, title)
}

// Prompt stores the user's message, generates a reply and stores that too.
// A failed generation is still recorded as a text reply carrying the
// user-facing error; the error is returned alongside it.
func (s *ChatService) Prompt(ctx context.Context, conversationID, userID, message, chartType string) (*store.Message, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}
	// Reject bad input before anything is stored.
	if chartType != "" && !parser.ChartType(chartType).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChartType, chartType)
	}
	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	userMsg := &store.Message{Content: message, Type: store.MessageText, Role: store.RoleUser}
	if err := s.store.AddMessage(ctx, conversationID, userID, userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	resp, genErr := s.charts.Generate(ctx, message, chartType)
	var reply *store.Message
	if genErr != nil {
		s.logger.Warn("reply generation failed", zap.String("conversationID", conversationID), zap.Error(genErr))
		reply = &store.Message{Content: replyError(genErr), Type: store.MessageText, Role: store.RoleAssistant}
	} else {
		reply = replyMessage(resp)
	}

	if err := s.store.AddMessage(ctx, conversationID, userID, reply); err != nil {
		return nil, fmt.Errorf("failed to store reply: %w", err)
	}

	if conv.Title == "" {
		s.nameConversation(ctx, conversationID, userID, message)
	}
	return reply, genErr
}

// Wait blocks until every pending title generation has finished.
func (s *ChatService) Wait() {
	s.wg.Wait()
}

func (s *ChatService) nameConversation(ctx context.Context, conversationID, userID, basis string) {
	if s.titles == nil {
		return
	}
	// The request may finish before the title does.
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, s.titleTimeout)
		defer cancel()

		title, err := s.titles.GenerateTitle(ctx, basis)
		if err != nil {
			s.logger.Warn("failed to generate title", zap.String("conversationID", conversationID), zap.Error(err))
			return
		}
		title = CleanTitle(title)
		if title == "" {
			return
		}

		if _, err := s.store.UpdateConversation(ctx, conversationID, userID, store.ConversationUpdate{Title: &title}); err != nil {
			s.logger.Warn("failed to save generated title",
				zap.String("conversationID", conversationID),
				zap.String("title", title),
				zap.Error(err))
			return
		}
		s.logger.Info("generated conversation title", zap.String("conversationID", conversationID), zap.String("title", title))
	}()
}

func replyError(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return genericReplyError
}

func replyMessage(resp *parser.Response) *store.Message {
	msg := &store.Message{Role: store.RoleAssistant}
	switch resp.Type {
	case parser.TypeChart:
		msg.Type = store.MessageChart
		msg.Content = resp.Title
		data := make([]any, 0, len(resp.Data)+len(resp.Series))
		for _, p := range resp.Data {
			data = append(data, p)
		}
		for _, series := range resp.Series {
			data = append(data, series)
		}
		msg.ChartData = &store.ChartData{
			Type:        string(resp.ChartType),
			Title:       resp.Title,
			Description: resp.Description,
			Data:        data,
		}
	case parser.TypeDiagram:
		msg.Type = store.MessageDiagram
		msg.Content = resp.Title
		msg.DiagramData = &store.DiagramData{
			Type:  resp.DiagramType,
			Title: resp.Title,
			Code:  resp.Code,
		}
	default:
		msg.Type = store.MessageText
		msg.Content = resp.Content
	}
	return msg
}
