package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

type mockSheetsAPI struct {
	ensureFunc func(ctx context.Context, spreadsheetID, title string) (int64, error)
	clearFunc  func(ctx context.Context, spreadsheetID, rng string) error
	writeFunc  func(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) (int64, error)
	formatFunc func(ctx context.Context, spreadsheetID string, sheetID, columns int64) error
	calls      []string
}

func (m *mockSheetsAPI) EnsureWorksheet(ctx context.Context, spreadsheetID, title string) (int64, error) {
	m.calls = append(m.calls, "ensure")
	if m.ensureFunc != nil {
		return m.ensureFunc(ctx, spreadsheetID, title)
	}
	return 7, nil
}

func (m *mockSheetsAPI) Clear(ctx context.Context, spreadsheetID, rng string) error {
	m.calls = append(m.calls, "clear")
	if m.clearFunc != nil {
		return m.clearFunc(ctx, spreadsheetID, rng)
	}
	return nil
}

func (m *mockSheetsAPI) Write(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) (int64, error) {
	m.calls = append(m.calls, "write")
	if m.writeFunc != nil {
		return m.writeFunc(ctx, spreadsheetID, rng, rows)
	}
	return 1, nil
}

func (m *mockSheetsAPI) FormatHeader(ctx context.Context, spreadsheetID string, sheetID, columns int64) error {
	m.calls = append(m.calls, "format")
	if m.formatFunc != nil {
		return m.formatFunc(ctx, spreadsheetID, sheetID, columns)
	}
	return nil
}

func sampleRecommendationSet() *models.RecommendationSet {
	return &models.RecommendationSet{
		TopPicks: []models.RecommendationPick{
			{
				Rank: 1, Symbol: "BP.L", CompanyName: "BP p.l.c.",
				Recommendation: models.RecommendationBuy, TargetPrice: 500, ConfidenceScore: 8,
				KeyReasons: []string{"Oversold RSI"}, RiskLevel: models.RiskMedium,
				TimeHorizon: "1-3 days", ExpectedReturn: "3%",
			},
			{
				Rank: 2, Symbol: "VOD.L", CompanyName: "Vodafone",
				Recommendation: models.RecommendationHold, KeyReasons: []string{"a", "b", "c", "d"},
				RiskLevel: models.RiskLow, TimeHorizon: "1-3 days", ExpectedReturn: "0%",
			},
		},
		MarketOverview: "Mixed session",
		TopSectors:     []string{"Energy", "Banks"},
		KeyRisks:       []string{"Rates"},
	}
}

func TestFormatRecommendationRows(t *testing.T) {
	now := time.Date(2024, 5, 7, 7, 30, 0, 0, time.UTC)
	rows := FormatRecommendationRows(sampleRecommendationSet(), now)

	require.Len(t, rows, 1+2+4+4+2)
	assert.Equal(t, SheetColumns, rows[0])
	assert.Len(t, rows[0], 13)

	first := rows[1]
	require.Len(t, first, 13)
	assert.Equal(t, "2024-05-07 07:30", first[0])
	assert.Equal(t, 1, first[1])
	assert.Equal(t, "BP.L", first[2])
	assert.Equal(t, "BUY", first[4])
	assert.Equal(t, 500.0, first[5])
	assert.Equal(t, "MEDIUM", first[7])
	assert.Equal(t, []interface{}{"Oversold RSI", "", ""}, first[10:])

	assert.Equal(t, []interface{}{"a", "b", "c"}, rows[2][10:])

	assert.Empty(t, rows[3])
	assert.Equal(t, []interface{}{"MARKET OVERVIEW"}, rows[4])
	assert.Equal(t, []interface{}{"Mixed session"}, rows[5])
	assert.Empty(t, rows[6])
	assert.Equal(t, []interface{}{"TOP SECTORS"}, rows[7])
	assert.Equal(t, []interface{}{"Energy"}, rows[8])
	assert.Equal(t, []interface{}{"Banks"}, rows[9])
	assert.Empty(t, rows[10])
	assert.Equal(t, []interface{}{"KEY RISKS"}, rows[11])
	assert.Equal(t, []interface{}{"Rates"}, rows[12])
}

func TestFormatRecommendationRows_NoPicks(t *testing.T) {
	rows := FormatRecommendationRows(&models.RecommendationSet{}, time.Now())
	require.Len(t, rows, 8)
	assert.Equal(t, []interface{}{"MARKET OVERVIEW"}, rows[2])
	assert.Equal(t, []interface{}{"TOP SECTORS"}, rows[5])
	assert.Equal(t, []interface{}{"KEY RISKS"}, rows[7])
}

func TestSheetsService_Publish(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	var clearedRange, writtenRange string
	var formattedSheet int64
	api := &mockSheetsAPI{
		clearFunc: func(_ context.Context, id, rng string) error {
			assert.Equal(t, "sheet-123", id)
			clearedRange = rng
			return nil
		},
		writeFunc: func(_ context.Context, _, rng string, rows [][]interface{}) (int64, error) {
			writtenRange = rng
			assert.Equal(t, "2024-05-07 07:30", rows[1][0])
			return int64(len(rows)), nil
		},
		formatFunc: func(_ context.Context, _ string, sheetID, columns int64) error {
			formattedSheet = sheetID
			assert.Equal(t, int64(13), columns)
			return nil
		},
	}

	service := newSheetsServiceWithAPI(api, "sheet-123", "")
	service.now = func() time.Time { return time.Date(2024, 5, 7, 7, 30, 0, 0, time.UTC) }

	require.NoError(t, service.Publish(context.Background(), sampleRecommendationSet()))
	assert.Equal(t, []string{"ensure", "clear", "write", "format"}, api.calls)
	assert.Equal(t, "Daily_Stock_Picks!A:Z", clearedRange)
	assert.Equal(t, "Daily_Stock_Picks!A1", writtenRange)
	assert.Equal(t, int64(7), formattedSheet)
}

func TestSheetsService_Publish_FormatFailureIsNotFatal(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	api := &mockSheetsAPI{
		formatFunc: func(context.Context, string, int64, int64) error {
			return errors.New("quota exceeded")
		},
	}
	service := newSheetsServiceWithAPI(api, "sheet-123", "Picks")
	assert.NoError(t, service.Publish(context.Background(), sampleRecommendationSet()))
}

func TestSheetsService_Publish_WriteFailure(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	api := &mockSheetsAPI{
		writeFunc: func(context.Context, string, string, [][]interface{}) (int64, error) {
			return 0, errors.New("permission denied")
		},
	}
	service := newSheetsServiceWithAPI(api, "sheet-123", "Picks")
	err := service.Publish(context.Background(), sampleRecommendationSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write worksheet")
	assert.NotContains(t, api.calls, "format")
}

func TestSheetsService_Publish_Nil(t *testing.T) {
	service := newSheetsServiceWithAPI(&mockSheetsAPI{}, "sheet-123", "Picks")
	assert.Error(t, service.Publish(context.Background(), nil))
}
