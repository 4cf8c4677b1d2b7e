package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/film-deal-tracker/internal/metrics"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func testDeal(label domain.Label, price string) domain.Deal {
	return domain.Deal{
		Entry: domain.WatchlistEntry{
			SubscriberID:   "sub-1",
			CanonicalTitle: "House",
			ReleaseYear:    1977,
		},
		Offer: domain.Offer{
			Label:       label,
			EditionName: "House (Criterion Collection) Blu-ray",
			Format:      domain.FormatBluRay,
			Price:       decimal.RequireFromString(price),
			Currency:    "USD",
			Vendor:      "Barnes & Noble",
			URL:         "https://www.barnesandnoble.com/w/house",
		},
	}
}

func TestDiscordNotifier_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deal       domain.Deal
		statusCode int
		wantErr    bool
		errMsg     string
		wantColor  int
	}{
		{
			name:       "criterion deal sends embed",
			deal:       testDeal(domain.LabelCriterion, "24.99"),
			statusCode: http.StatusNoContent,
			wantColor:  colorCriterion,
		},
		{
			name:       "arrow deal uses arrow color",
			deal:       testDeal(domain.LabelArrow, "29.95"),
			statusCode: http.StatusNoContent,
			wantColor:  colorArrow,
		},
		{
			name:       "other label uses neutral color",
			deal:       testDeal(domain.LabelOther, "9.99"),
			statusCode: http.StatusNoContent,
			wantColor:  colorOther,
		},
		{
			name:       "discord returns 429 rate limited",
			deal:       testDeal(domain.LabelCriterion, "24.99"),
			statusCode: http.StatusTooManyRequests,
			wantErr:    true,
			errMsg:     "rate limited",
		},
		{
			name:       "discord returns 400 error",
			deal:       testDeal(domain.LabelCriterion, "24.99"),
			statusCode: http.StatusBadRequest,
			wantErr:    true,
			errMsg:     "discord returned 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received discordWebhookPayload

			srv := httptest.NewServer(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
					assert.Equal(t, http.MethodPost, r.Method)

					err := json.NewDecoder(r.Body).Decode(&received)
					assert.NoError(t, err)

					w.WriteHeader(tt.statusCode)
				}),
			)
			defer srv.Close()

			d := NewDiscordNotifier(srv.URL)
			err := d.Dispatch(context.Background(), "sub-1", []domain.Deal{tt.deal})

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			require.Len(t, received.Embeds, 1)
			assert.Contains(t, received.Content, "sub-1")

			embed := received.Embeds[0]
			assert.Equal(t, tt.wantColor, embed.Color)
			assert.Contains(t, embed.Title, "House (1977)")
			assert.Contains(t, embed.Title, tt.deal.Offer.Label.DisplayName())
			assert.Equal(t, tt.deal.Offer.URL, embed.URL)

			fieldMap := make(map[string]string)
			for _, f := range embed.Fields {
				fieldMap[f.Name] = f.Value
			}
			assert.Equal(t, "$"+tt.deal.Offer.Price.StringFixed(2), fieldMap["Price"])
			assert.Equal(t, "Barnes & Noble", fieldMap["Vendor"])
			assert.Equal(t, "Blu-ray", fieldMap["Format"])
		})
	}
}

func TestDiscordNotifier_DispatchOverflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deals      int
		wantEmbeds int
		wantMore   string
	}{
		{name: "under limit", deals: 3, wantEmbeds: 3},
		{name: "at limit", deals: 10, wantEmbeds: 10},
		{name: "over limit summarizes the rest", deals: 14, wantEmbeds: 10, wantMore: "... and 5 more deals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var received discordWebhookPayload
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			deals := make([]domain.Deal, tt.deals)
			for i := range deals {
				deals[i] = testDeal(domain.LabelCriterion, fmt.Sprintf("%d.00", 10+i))
			}

			require.NoError(t, NewDiscordNotifier(srv.URL).Dispatch(context.Background(), "sub-1", deals))
			require.Len(t, received.Embeds, tt.wantEmbeds)
			if tt.wantMore != "" {
				assert.Equal(t, tt.wantMore, received.Embeds[len(received.Embeds)-1].Title)
			}
		})
	}
}

func TestDiscordNotifier_EmptyBatchSendsNothing(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscordNotifier(srv.URL).Dispatch(context.Background(), "sub-1", nil))
	assert.False(t, called)
}

func TestDiscordNotifier_NetworkError(t *testing.T) {
	t.Parallel()

	d := NewDiscordNotifier("http://127.0.0.1:1") // nothing listening
	err := d.Dispatch(context.Background(), "sub-1", []domain.Deal{testDeal(domain.LabelArrow, "20")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending discord webhook")
}

func TestDiscordNotifier_InvalidWebhookURL(t *testing.T) {
	t.Parallel()

	d := NewDiscordNotifier("://not-a-valid-url")
	err := d.Dispatch(context.Background(), "sub-1", []domain.Deal{testDeal(domain.LabelArrow, "20")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating discord request")
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{}
	d := NewDiscordNotifier("https://example.com", WithHTTPClient(custom))
	assert.Same(t, custom, d.client)
}

func getNotificationHistogramSampleCount() uint64 {
	ch := make(chan prometheus.Metric, 1)
	metrics.NotificationDuration.Collect(ch)
	m := <-ch
	pb := &dto.Metric{}
	_ = m.Write(pb)
	return pb.GetHistogram().GetSampleCount()
}

func TestDispatch_ObservesNotificationDuration(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	before := getNotificationHistogramSampleCount()

	d := NewDiscordNotifier(srv.URL)
	err := d.Dispatch(context.Background(), "sub-1", []domain.Deal{testDeal(domain.LabelCriterion, "24.99")})
	require.NoError(t, err)

	after := getNotificationHistogramSampleCount()
	assert.Greater(t, after, before, "NotificationDuration histogram sample count should increase")
}
