package services

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// SheetColumns is the header row of the published worksheet
var SheetColumns = []interface{}{
	"Date",
	"Rank",
	"Symbol",
	"Company Name",
	"Recommendation",
	"Target Price (£)",
	"Confidence Score",
	"Risk Level",
	"Expected Return",
	"Time Horizon",
	"Key Reason 1",
	"Key Reason 2",
	"Key Reason 3",
}

const sheetDateFormat = "2006-01-02 15:04"

// sheetsAPI is the set of spreadsheet operations the publisher needs (mockable in tests)
type sheetsAPI interface {
	EnsureWorksheet(ctx context.Context, spreadsheetID, title string) (int64, error)
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Write(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) (int64, error)
	FormatHeader(ctx context.Context, spreadsheetID string, sheetID int64, columns int64) error
}

type googleSheetsAPI struct {
	srv *sheets.Service
}

func (g *googleSheetsAPI) EnsureWorksheet(ctx context.Context, spreadsheetID, title string) (int64, error) {
	ss, err := g.srv.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}

	resp, err := g.srv.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to add worksheet %s: %w", title, err)
	}
	observability.Info("created worksheet", "worksheet", title)

	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		return resp.Replies[0].AddSheet.Properties.SheetId, nil
	}
	return 0, nil
}

func (g *googleSheetsAPI) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := g.srv.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *googleSheetsAPI) Write(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) (int64, error) {
	resp, err := g.srv.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}
	return resp.UpdatedCells, nil
}

func (g *googleSheetsAPI) FormatHeader(ctx context.Context, spreadsheetID string, sheetID int64, columns int64) error {
	_, err := g.srv.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    0,
						EndRowIndex:      1,
						StartColumnIndex: 0,
						EndColumnIndex:   columns,
						ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat:      &sheets.TextFormat{Bold: true},
							BackgroundColor: &sheets.Color{Red: 0.8, Green: 0.9, Blue: 1.0},
						},
					},
					Fields: "userEnteredFormat(textFormat,backgroundColor)",
				},
			},
			{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:         sheetID,
						Dimension:       "COLUMNS",
						StartIndex:      0,
						EndIndex:        columns,
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			},
		},
	}).Context(ctx).Do()
	return err
}

// SheetsService publishes a recommendation set to a Google Sheets worksheet,
// replacing whatever the worksheet held before
type SheetsService struct {
	api           sheetsAPI
	spreadsheetID string
	worksheet     string
	now           func() time.Time
}

// NewSheetsService authenticates with a service account credentials file
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID, worksheet string) (*SheetsService, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("GOOGLE_SHEET_ID is required")
	}
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return newSheetsServiceWithAPI(&googleSheetsAPI{srv: srv}, spreadsheetID, worksheet), nil
}

func newSheetsServiceWithAPI(api sheetsAPI, spreadsheetID, worksheet string) *SheetsService {
	if worksheet == "" {
		worksheet = "Daily_Stock_Picks"
	}
	return &SheetsService{
		api:           api,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		now:           time.Now,
	}
}

// Publish ensures the worksheet exists, clears it and writes the formatted set.
// A header formatting failure is logged but does not fail the publish.
func (s *SheetsService) Publish(ctx context.Context, set *models.RecommendationSet) error {
	if set == nil {
		return fmt.Errorf("nothing to publish")
	}

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerSheets, "publish")
	timer := metrics.NewTimer()

	_, err := WithCircuitBreaker(ctx, BreakerSheets, func() (struct{}, error) {
		sheetID, err := s.api.EnsureWorksheet(ctx, s.spreadsheetID, s.worksheet)
		if err != nil {
			return struct{}{}, err
		}

		if err := s.api.Clear(ctx, s.spreadsheetID, s.worksheet+"!A:Z"); err != nil {
			return struct{}{}, fmt.Errorf("failed to clear worksheet: %w", err)
		}

		rows := FormatRecommendationRows(set, s.now())
		cells, err := s.api.Write(ctx, s.spreadsheetID, s.worksheet+"!A1", rows)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to write worksheet: %w", err)
		}
		observability.Info("updated worksheet", "worksheet", s.worksheet, "cells", cells)

		if err := s.api.FormatHeader(ctx, s.spreadsheetID, sheetID, int64(len(SheetColumns))); err != nil {
			observability.Warn("failed to format worksheet header", "worksheet", s.worksheet, "error", err)
		}
		return struct{}{}, nil
	})

	timer.ObserveExternalAPI(BreakerSheets, "publish")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerSheets, "publish", categorizeAPIError(err))
	}
	return err
}

// FormatRecommendationRows lays out a recommendation set as worksheet rows:
// the header, one row per pick, then the market overview, top sectors and
// key risks blocks separated by blank rows
func FormatRecommendationRows(set *models.RecommendationSet, now time.Time) [][]interface{} {
	date := now.Format(sheetDateFormat)
	rows := [][]interface{}{SheetColumns}

	for _, pick := range set.TopPicks {
		reasons := make([]string, 3)
		copy(reasons, pick.KeyReasons)

		rows = append(rows, []interface{}{
			date,
			pick.Rank,
			pick.Symbol,
			pick.CompanyName,
			string(pick.Recommendation),
			pick.TargetPrice,
			pick.ConfidenceScore,
			string(pick.RiskLevel),
			pick.ExpectedReturn,
			pick.TimeHorizon,
			reasons[0],
			reasons[1],
			reasons[2],
		})
	}

	rows = append(rows, []interface{}{}, []interface{}{"MARKET OVERVIEW"}, []interface{}{set.MarketOverview}, []interface{}{})

	rows = append(rows, []interface{}{"TOP SECTORS"})
	for _, sector := range set.TopSectors {
		rows = append(rows, []interface{}{sector})
	}
	rows = append(rows, []interface{}{})

	rows = append(rows, []interface{}{"KEY RISKS"})
	for _, risk := range set.KeyRisks {
		rows = append(rows, []interface{}{risk})
	}
	return rows
}
