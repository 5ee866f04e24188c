package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"rpsarena/events"
	"rpsarena/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	colorWarning = 0xF1C40F
	colorInfo    = 0x3498DB
	colorDanger  = 0xE74C3C
)

// WebhookExecutor is the part of the discordgo session the notifier needs
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts operator alerts to a Discord channel webhook
type DiscordNotifier struct {
	executor     WebhookExecutor
	webhookID    string
	webhookToken string
}

// NewDiscordNotifier creates a notifier for a webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Webhook calls authenticate with the webhook token, so the session needs no bot token
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return newDiscordNotifierWithExecutor(session, id, token), nil
}

func newDiscordNotifierWithExecutor(executor WebhookExecutor, id, token string) *DiscordNotifier {
	return &DiscordNotifier{
		executor:     executor,
		webhookID:    id,
		webhookToken: token,
	}
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid discord webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid discord webhook URL: expected .../webhooks/<id>/<token>")
}

// Register subscribes the notifier to the events operators care about
func (n *DiscordNotifier) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeMatchCancelled, n.handle)
	bus.Subscribe(events.EventTypeRepairCompleted, n.handle)
}

func (n *DiscordNotifier) handle(ctx context.Context, event events.Event) {
	embed := n.embedFor(event)
	if embed == nil {
		return
	}
	if err := n.send(embed); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Warn("Failed to post discord notification")
	}
}

func (n *DiscordNotifier) embedFor(event events.Event) *discordgo.MessageEmbed {
	switch e := event.(type) {
	case events.MatchCancelledEvent:
		// Player cancellations are routine; only the sweeper's are worth a ping
		if e.Reason != models.RefundReasonStaleSweep {
			return nil
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Game", Value: e.MatchID},
			{Name: "Stake", Value: fmt.Sprintf("%d", e.Stake), Inline: true},
		}
		if e.IdleFor != "" {
			fields = append(fields, &discordgo.MessageEmbedField{Name: "Idle for", Value: e.IdleFor, Inline: true})
		}
		return &discordgo.MessageEmbed{
			Title:  "Stale game cancelled",
			Color:  colorWarning,
			Fields: fields,
		}

	case events.RepairCompletedEvent:
		if e.Report == nil {
			return nil
		}
		color := colorInfo
		failed := 0
		for _, item := range e.Report.Items {
			if item.Action == models.RepairActionFailed {
				failed++
			}
		}
		if failed > 0 {
			color = colorDanger
		}
		return &discordgo.MessageEmbed{
			Title: "Wager repair completed",
			Color: color,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Scanned", Value: fmt.Sprintf("%d", e.Report.Scanned), Inline: true},
				{Name: "Refunded", Value: fmt.Sprintf("%d", e.Report.Refunded), Inline: true},
				{Name: "Failed", Value: fmt.Sprintf("%d", failed), Inline: true},
			},
		}
	}
	return nil
}

func (n *DiscordNotifier) send(embed *discordgo.MessageEmbed) error {
	_, err := n.executor.WebhookExecute(n.webhookID, n.webhookToken, false, &discordgo.WebhookParams{
		Username: "rpsarena",
		Embeds:   []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("failed to execute discord webhook: %w", err)
	}
	return nil
}
