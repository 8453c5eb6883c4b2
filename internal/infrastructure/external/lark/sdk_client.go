// Package lark posts batch summaries to a Lark group chat.
package lark

import (
	"context"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	// ChatID is the group chat that receives batch summaries
	ChatID string
	// BaseURL overrides the open platform domain
	BaseURL string
}

// SDKClient sends bot messages through the Lark open platform SDK.
// Tenant tokens are fetched and cached by the SDK.
type SDKClient struct {
	client *lark.Client
	chatID string
	logger *zap.Logger
}

// NewSDKClient creates a bot client for cfg.AppID
func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelWarn),
		lark.WithEnableTokenCache(true),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}

	return &SDKClient{
		client: lark.NewClient(cfg.AppID, cfg.AppSecret, opts...),
		chatID: cfg.ChatID,
		logger: logger,
	}
}

// ChatID returns the notification chat
func (c *SDKClient) ChatID() string {
	return c.chatID
}

// SendInteractive posts an interactive card to chatID and returns the new
// message id. content is the card JSON.
func (c *SDKClient) SendInteractive(ctx context.Context, chatID, content string) (string, error) {
	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(larkIm.ReceiveIdTypeChatId).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkIm.MsgTypeInteractive).
			Content(content).
			Build()).
		Build()

	resp, err := c.client.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		c.logger.Warn("Lark rejected message",
			zap.String("chat_id", chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	if resp.Data == nil || resp.Data.MessageId == nil {
		return "", nil
	}
	return *resp.Data.MessageId, nil
}
