package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/donaldgifford/film-deal-tracker/internal/metrics"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// Discord allows at most 10 embeds per message.
const maxEmbeds = 10

const (
	colorCriterion = 0x1F1F1F
	colorArrow     = 0xE74C3C
	colorVinegar   = 0x9B59B6
	colorKino      = 0x3498DB
	colorShout     = 0xF1C40F
	colorOther     = 0x95A5A6
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Dispatch sends the deals as one Discord message. Beyond the embed limit
// the remaining deals are summarized in a final embed.
func (d *DiscordNotifier) Dispatch(ctx context.Context, subscriberID string, deals []domain.Deal) error {
	if len(deals) == 0 {
		return nil
	}

	shown := len(deals)
	if shown > maxEmbeds {
		shown = maxEmbeds - 1
	}

	embeds := make([]discordEmbed, 0, maxEmbeds)
	for i := range shown {
		embeds = append(embeds, buildEmbed(&deals[i]))
	}
	if rest := len(deals) - shown; rest > 0 {
		embeds = append(embeds, discordEmbed{
			Title:       fmt.Sprintf("... and %d more deals", rest),
			Color:       colorOther,
			Description: "Check the latest run report for the full list.",
		})
	}

	payload := discordWebhookPayload{
		Content: fmt.Sprintf("%d new deal(s) for %s", len(deals), subscriberID),
		Embeds:  embeds,
	}
	return d.post(ctx, payload)
}

func buildEmbed(deal *domain.Deal) discordEmbed {
	o := &deal.Offer
	return discordEmbed{
		Title: DealTitle(deal),
		URL:   o.URL,
		Color: labelColor(o.Label),
		Fields: []discordEmbedField{
			{Name: "Price", Value: FormatPrice(o), Inline: true},
			{Name: "Vendor", Value: o.Vendor, Inline: true},
			{Name: "Format", Value: formatName(o.Format), Inline: true},
		},
	}
}

func labelColor(l domain.Label) int {
	switch l {
	case domain.LabelCriterion:
		return colorCriterion
	case domain.LabelArrow:
		return colorArrow
	case domain.LabelVinegarSyndrome:
		return colorVinegar
	case domain.LabelKinoLorber:
		return colorKino
	case domain.LabelShoutFactory:
		return colorShout
	default:
		return colorOther
	}
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
