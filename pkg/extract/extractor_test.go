package extract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/film-deal-tracker/pkg/extract"
	extractMocks "github.com/donaldgifford/film-deal-tracker/pkg/extract/mocks"
	"github.com/donaldgifford/film-deal-tracker/pkg/logger"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestExtractor(s extract.Searcher, opts ...extract.ListingExtractorOption) *extract.ListingExtractor {
	base := []extract.ListingExtractorOption{
		extract.WithClock(func() time.Time { return fixedNow }),
		extract.WithLogger(logger.Discard()),
	}
	return extract.NewListingExtractor(s, append(base, opts...)...)
}

var houseAliases = []domain.Alias{
	{SourceTitle: "House", ResolvedTitle: "House", Confidence: 1},
	{SourceTitle: "House", ResolvedTitle: "Hausu", Confidence: 0.9},
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		`"House" 1977 (blu-ray OR 4K) (criterion OR arrow OR "shout factory" OR "vinegar syndrome" OR kino)`,
		extract.BuildQuery("House", 1977),
	)
	assert.Equal(t,
		`"Hausu" (blu-ray OR 4K) (criterion OR arrow OR "shout factory" OR "vinegar syndrome" OR kino)`,
		extract.BuildQuery("Hausu", 0),
	)
}

func TestExtract_MergesAliasesAndFilters(t *testing.T) {
	t.Parallel()

	ms := extractMocks.NewMockSearcher(t)
	ms.EXPECT().Search(mock.Anything, extract.BuildQuery("House", 1977)).Return([]byte(`{"shopping_results":[
		{"title":"House (Criterion Collection) [Blu-ray]","price":"$28.00","source":"Criterion","link":"https://c/house"},
		{"title":"House (Criterion Collection) [Blu-ray]","price":"$24.00","source":"Barnes & Noble","link":"https://bn/house"},
		{"title":"House of Mortal Sin Blu-ray Kino Lorber","price":"$19.99","source":"Kino","link":"https://k/hms"},
		{"title":"House DVD","price":"$9.99","source":"Walmart","link":"https://w/house"},
		{"title":"House 4K Criterion","price":"Call for price","source":"Amazon","link":"https://a/house"}
	]}`), nil).Once()
	ms.EXPECT().Search(mock.Anything, extract.BuildQuery("Hausu", 1977)).Return([]byte(`{"organic_results":[
		{"title":"Hausu 4K UHD Criterion","link":"https://www.criterion.com/hausu4k","snippet":"Pre-order $39.95"},
		{"title":"Hausu (1977) Blu-ray","link":"https://www.example.com/hausu","snippet":"$12.00"}
	]}`), nil).Once()

	ex := newTestExtractor(ms)
	res, err := ex.Extract(context.Background(), extract.Request{
		Aliases:     houseAliases,
		Filter:      domain.LabelFilter{domain.LabelCriterion},
		ReleaseYear: 1977,
	})
	require.NoError(t, err)

	require.Len(t, res.Offers, 3)
	assert.Equal(t, "24", res.Offers[0].Price.String())
	assert.Equal(t, "Barnes & Noble", res.Offers[0].Vendor)
	assert.Equal(t, "28", res.Offers[1].Price.String())
	assert.Equal(t, "39.95", res.Offers[2].Price.String())
	assert.Equal(t, domain.Format4K, res.Offers[2].Format)
	assert.InDelta(t, 0.9, res.Offers[2].AliasConfidence, 1e-9)
	for _, o := range res.Offers {
		assert.Equal(t, domain.LabelCriterion, o.Label)
		assert.Equal(t, fixedNow, o.ObservedAt)
	}

	assert.Equal(t, 2, res.Queries)
	assert.Equal(t, 1, res.Skipped[extract.SkipTitle])
	assert.Equal(t, 1, res.Skipped[extract.SkipExcluded])
	assert.Equal(t, 1, res.Skipped[extract.SkipPrice])
	assert.Equal(t, 1, res.Skipped[extract.SkipLabel])
}

func TestExtract_EmptyResultsIsSuccess(t *testing.T) {
	t.Parallel()

	ms := extractMocks.NewMockSearcher(t)
	ms.EXPECT().Search(mock.Anything, mock.Anything).
		Return([]byte(`{"shopping_results":[]}`), nil).Once()

	ex := newTestExtractor(ms)
	res, err := ex.Extract(context.Background(), extract.Request{Aliases: houseAliases[:1]})
	require.NoError(t, err)
	assert.Empty(t, res.Offers)
}

func TestExtract_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
		err     error
	}{
		{name: "search error", err: errors.New("connection refused")},
		{name: "provider error", payload: []byte(`{"error":"Invalid API key."}`)},
		{name: "unrecognized shape", payload: []byte(`{"knowledge_graph":{}}`)},
		{name: "malformed payload", payload: []byte(`<html>oops</html>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ms := extractMocks.NewMockSearcher(t)
			ms.EXPECT().Search(mock.Anything, mock.Anything).Return(tt.payload, tt.err).Once()

			ex := newTestExtractor(ms)
			res, err := ex.Extract(context.Background(), extract.Request{Aliases: houseAliases})
			require.Error(t, err)
			assert.ErrorIs(t, err, extract.ErrExtractionFailed)
			assert.Nil(t, res)
		})
	}
}

func TestExtract_Timeout(t *testing.T) {
	t.Parallel()

	ms := extractMocks.NewMockSearcher(t)
	ms.EXPECT().Search(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).Once()

	ex := newTestExtractor(ms, extract.WithTimeout(10*time.Millisecond))
	_, err := ex.Extract(context.Background(), extract.Request{Aliases: houseAliases})
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtract_NonPositiveTimeoutKeepsDefault(t *testing.T) {
	t.Parallel()

	for _, d := range []time.Duration{0, -time.Second} {
		t.Run(d.String(), func(t *testing.T) {
			t.Parallel()

			ms := extractMocks.NewMockSearcher(t)
			ms.EXPECT().Search(mock.Anything, mock.Anything).
				RunAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					return []byte(`{"shopping_results":[]}`), nil
				}).Once()

			ex := newTestExtractor(ms, extract.WithTimeout(d), extract.WithMaxAliases(1))
			res, err := ex.Extract(context.Background(), extract.Request{Aliases: houseAliases})
			require.NoError(t, err)
			assert.Equal(t, 1, res.Queries)
		})
	}
}

func TestExtract_MaxAliases(t *testing.T) {
	t.Parallel()

	ms := extractMocks.NewMockSearcher(t)
	ms.EXPECT().Search(mock.Anything, mock.Anything).
		Return([]byte(`{"shopping_results":[]}`), nil).Once()

	ex := newTestExtractor(ms, extract.WithMaxAliases(1))
	res, err := ex.Extract(context.Background(), extract.Request{Aliases: houseAliases})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Queries)
}

func TestExtract_NoAliases(t *testing.T) {
	t.Parallel()

	ex := newTestExtractor(extractMocks.NewMockSearcher(t))
	_, err := ex.Extract(context.Background(), extract.Request{})
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}
