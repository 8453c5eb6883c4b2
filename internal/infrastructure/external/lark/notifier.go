package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// Messenger delivers a card to a chat; *SDKClient is the production one
type Messenger interface {
	ChatID() string
	SendInteractive(ctx context.Context, chatID, content string) (string, error)
}

// Notifier posts batch run summaries to a Lark group chat as interactive cards
type Notifier struct {
	sdk    Messenger
	logger *zap.Logger
}

var _ port.BatchNotifier = (*Notifier)(nil)

// NewNotifier creates a new batch notifier
func NewNotifier(sdk Messenger, logger *zap.Logger) *Notifier {
	return &Notifier{sdk: sdk, logger: logger}
}

// NotifyBatchFinished sends one card per finished run
func (n *Notifier) NotifyBatchFinished(ctx context.Context, record *entity.BatchRunRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	chatID := n.sdk.ChatID()
	if chatID == "" {
		return fmt.Errorf("chat id cannot be empty")
	}

	content, err := json.Marshal(buildBatchCard(record))
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	messageID, err := n.sdk.SendInteractive(ctx, chatID, string(content))
	if err != nil {
		n.logger.Error("Failed to send batch card",
			zap.String("run_id", record.ID),
			zap.Error(err))
		return err
	}

	n.logger.Info("Batch card sent",
		zap.String("run_id", record.ID),
		zap.String("message_id", messageID))
	return nil
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag  string    `json:"tag"`
	Text *cardText `json:"text,omitempty"`
}

type cardHeader struct {
	Title    cardText `json:"title"`
	Template string   `json:"template"`
}

type card struct {
	Config   map[string]bool `json:"config"`
	Header   cardHeader      `json:"header"`
	Elements []cardElement   `json:"elements"`
}

func buildBatchCard(record *entity.BatchRunRecord) card {
	template := "green"
	switch {
	case record.Status == entity.BatchStatusCancelled:
		template = "grey"
	case record.Succeeded == 0:
		template = "red"
	case record.Failed > 0:
		template = "orange"
	}

	title := fmt.Sprintf("%s batch %s", record.ReportType.Config().Label, record.Status)

	var b strings.Builder
	fmt.Fprintf(&b, "**Period:** %s to %s (%s)\n", record.PeriodStart, record.PeriodEnd, record.PeriodKind)
	fmt.Fprintf(&b, "**Generated:** %d of %d", record.Succeeded, record.Requested)
	if record.Failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", record.Failed)
	}
	fmt.Fprintf(&b, "\n**Qualified:** %d\n", record.Qualified)
	fmt.Fprintf(&b, "**Bonus total:** $%s\n", record.TotalBonus)
	fmt.Fprintf(&b, "**Trigger:** %s", record.Trigger)

	return card{
		Config: map[string]bool{"wide_screen_mode": true},
		Header: cardHeader{
			Title:    cardText{Tag: "plain_text", Content: title},
			Template: template,
		},
		Elements: []cardElement{
			{Tag: "div", Text: &cardText{Tag: "lark_md", Content: b.String()}},
		},
	}
}
