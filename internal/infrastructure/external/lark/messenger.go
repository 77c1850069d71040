package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
)

// Messenger implements port.MessageSender by posting text messages to Lark group chats
type Messenger struct {
	client *SDKClient
	logger *zap.Logger
}

// NewMessenger creates a new Lark message sender adapter
func NewMessenger(client *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// NewMessageSender returns a Lark messenger when credentials are configured
// and a no-op sender otherwise.
func NewMessageSender(cfg Config, logger *zap.Logger) port.MessageSender {
	if !cfg.Enabled() {
		logger.Info("Lark credentials not configured, notifications disabled")
		return NoopSender{}
	}
	return NewMessenger(NewSDKClient(cfg, logger), logger)
}

// SendText sends a plain text message to a chat
func (m *Messenger) SendText(ctx context.Context, chatID string, text string) error {
	if chatID == "" {
		return fmt.Errorf("chatID cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	content, err := textContent(text)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := m.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("chat_id", chatID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("chat_id", chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("chat_id", chatID))

	return nil
}

// textContent builds the JSON body Lark expects for msg_type=text
func textContent(text string) (string, error) {
	b, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(b), nil
}

// NoopSender discards messages. Used when Lark is not configured.
type NoopSender struct{}

// SendText does nothing
func (NoopSender) SendText(ctx context.Context, chatID string, text string) error {
	return nil
}
