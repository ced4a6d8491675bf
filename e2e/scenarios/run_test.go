//go:build e2e
// +build e2e

package scenarios

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Abhishek8108/uk-stock-analyzer/e2e"
	"github.com/Abhishek8108/uk-stock-analyzer/models"
)

func setupHarness(t *testing.T) *e2e.TestHarness {
	t.Helper()
	harness := e2e.NewTestHarness(t)
	if err := harness.Setup(); err != nil {
		t.Fatalf("failed to setup test harness: %v", err)
	}
	t.Cleanup(harness.Teardown)
	return harness
}

// startTestRun triggers a test-mode run over the API and waits for it to finish.
func startTestRun(t *testing.T, harness *e2e.TestHarness) *models.ScreenerRun {
	t.Helper()

	resp := harness.DoRequest(http.MethodPost, "/api/runs?mode=test", "")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if !harness.WaitForIdle(30 * time.Second) {
		t.Fatal("run did not finish in time")
	}

	resp = harness.DoRequest(http.MethodGet, "/api/runs/latest", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var run models.ScreenerRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("failed to decode run: %v", err)
	}
	return &run
}

func TestScreenerRun_Success(t *testing.T) {
	harness := setupHarness(t)
	run := startTestRun(t, harness)

	if run.Status != models.ScreenerRunStatusCompleted {
		t.Fatalf("expected completed run, got %s (%s)", run.Status, run.Error)
	}
	if !run.Published {
		t.Error("expected run to be published")
	}
	if run.Mode != models.RunModeTest {
		t.Errorf("expected test mode, got %s", run.Mode)
	}

	t.Run("symbols without history are skipped", func(t *testing.T) {
		if len(run.Analyses) != 2 {
			t.Fatalf("expected 2 analyses, got %d", len(run.Analyses))
		}
		for _, a := range run.Analyses {
			if a.Symbol == "MISSING.L" {
				t.Error("MISSING.L should have been skipped")
			}
			if a.Sentiment.NewsCount != 5 {
				t.Errorf("%s: expected 5 news articles, got %d", a.Symbol, a.Sentiment.NewsCount)
			}
		}
	})

	t.Run("picks with unusable target prices are dropped", func(t *testing.T) {
		if run.Recommendations == nil {
			t.Fatal("expected recommendations")
		}
		picks := run.Recommendations.TopPicks
		if len(picks) != 1 {
			t.Fatalf("expected 1 pick, got %d", len(picks))
		}
		if picks[0].Symbol != "BP.L" || picks[0].TargetPrice != 520 {
			t.Errorf("unexpected pick: %+v", picks[0])
		}
		if run.Recommendations.MarketOverview == "" {
			t.Error("expected market overview")
		}
	})

	t.Run("ranking prompt covers every analysed stock", func(t *testing.T) {
		requests := harness.MockServer().ChatRequests()
		if len(requests) != 1 {
			t.Fatalf("expected 1 chat request, got %d", len(requests))
		}
		req := requests[0]
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("expected system and user messages, got %+v", req.Messages)
		}
		prompt := req.Messages[1].Content
		for _, want := range []string{"Stock: BP.L", "Stock: VOD.L"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
		if strings.Contains(prompt, "MISSING.L") {
			t.Error("prompt should not mention skipped symbols")
		}
	})

	t.Run("news is searched by company or ticker", func(t *testing.T) {
		var queries []string
		for _, entry := range harness.MockServer().GetRequestLog() {
			if strings.HasSuffix(entry.Path, "/everything") {
				queries = append(queries, entry.Query)
			}
		}
		if len(queries) != 2 {
			t.Fatalf("expected 2 news queries, got %d", len(queries))
		}
	})

	t.Run("published rows", func(t *testing.T) {
		rows := harness.Publisher().Rows()
		if len(rows) < 2 {
			t.Fatalf("expected header and pick rows, got %d rows", len(rows))
		}
		if len(rows[0]) != 13 || rows[0][0] != "Date" {
			t.Errorf("unexpected header row: %v", rows[0])
		}
		if rows[1][2] != "BP.L" {
			t.Errorf("expected BP.L in first pick row, got %v", rows[1][2])
		}
	})

	t.Run("run is listed in history", func(t *testing.T) {
		resp := harness.DoRequest(http.MethodGet, "/api/runs/"+run.ID.String(), "")
		if resp.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.Code)
		}

		resp = harness.DoRequest(http.MethodGet, "/api/runs", "")
		var runs []models.ScreenerRun
		if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
			t.Fatalf("failed to decode runs: %v", err)
		}
		if len(runs) == 0 || runs[0].ID != run.ID {
			t.Errorf("expected latest run first in history")
		}
	})
}

func TestScreenerRun_MalformedRanking(t *testing.T) {
	harness := setupHarness(t)
	harness.MockServer().SetRawRankingReply("I could not rank these stocks today.")

	run := startTestRun(t, harness)

	if run.Status != models.ScreenerRunStatusFailed {
		t.Fatalf("expected failed run, got %s", run.Status)
	}
	if !strings.Contains(run.Error, "ranking failed") {
		t.Errorf("expected ranking error, got %q", run.Error)
	}
	if len(harness.Publisher().Published()) != 0 {
		t.Error("nothing should be published for a failed run")
	}
}

func TestScreenerRun_PublishFailure(t *testing.T) {
	harness := setupHarness(t)
	harness.Publisher().SetError(errors.New("quota exceeded"))

	run := startTestRun(t, harness)

	if run.Status != models.ScreenerRunStatusFailed {
		t.Fatalf("expected failed run, got %s", run.Status)
	}
	if run.Published {
		t.Error("run should not be marked published")
	}
	if !strings.Contains(run.Error, "publish failed") {
		t.Errorf("expected publish error, got %q", run.Error)
	}
}

func TestScreenerRun_Conflict(t *testing.T) {
	harness := setupHarness(t)

	first := harness.DoRequest(http.MethodPost, "/api/runs?mode=test", "")
	second := harness.DoRequest(http.MethodPost, "/api/runs?mode=test", "")
	harness.WaitForIdle(30 * time.Second)

	if first.Code != http.StatusAccepted {
		t.Fatalf("expected first run accepted, got %d", first.Code)
	}
	if second.Code != http.StatusConflict {
		t.Errorf("expected 409 while a run is active, got %d", second.Code)
	}
}

// Runs last: repeated NewsAPI failures may open the news circuit breaker.
func TestScreenerRun_NewsUnavailable(t *testing.T) {
	harness := setupHarness(t)
	harness.MockServer().SetNewsAPIError(errors.New("upstream unavailable"))

	run := startTestRun(t, harness)

	if run.Status != models.ScreenerRunStatusCompleted {
		t.Fatalf("expected completed run, got %s (%s)", run.Status, run.Error)
	}
	for _, a := range run.Analyses {
		if a.Sentiment.SentimentScore != 0.5 || a.Sentiment.NewsCount != 0 {
			t.Errorf("%s: expected neutral sentiment, got %+v", a.Symbol, a.Sentiment)
		}
	}
}
