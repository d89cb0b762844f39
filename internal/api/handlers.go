package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kamilpajak/flakewatch/internal/flakiness"
	"github.com/kamilpajak/flakewatch/pkg/models"
)

// handleSuccessRates serves the live snapshot, or a windowed projection when
// both start and end are given as RFC 3339 timestamps.
func (s *Server) handleSuccessRates(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Query(window))
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", 7)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.ClassifyTrends(days))
}

func (s *Server) handleFlakinessReport(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", flakiness.DefaultAnalysisDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var report *models.ProjectFlakinessReport
	if t := r.URL.Query().Get("threshold"); t != "" {
		threshold, err := strconv.ParseFloat(t, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		report, err = s.analyzer.AnalyzeWithThreshold(r.Context(), days, flakiness.DefaultMinRuns, threshold)
		if err != nil {
			s.logger.Warn("report persist failed", zap.Error(err))
		}
	} else {
		var err error
		report, err = s.analyzer.Analyze(r.Context(), days, flakiness.DefaultMinRuns)
		if err != nil {
			s.logger.Warn("report persist failed", zap.Error(err))
		}
	}

	// Persist failures are not fatal for reads: the report itself was
	// computed from in-memory history.
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFlakyTests(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", flakiness.DefaultMostFlakyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	measures, err := s.analyzer.MostFlaky(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, measures)
}

// handleRecordRun ingests a batch and re-analyzes flakiness before
// responding, so a UI polling right after submission sees fresh signals.
func (s *Server) handleRecordRun(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "ingest rate limit exceeded")
		return
	}

	var batch models.Batch
	if err := readJSON(r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := batch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	batchesIngested.Inc()
	outcomesRecorded.Add(float64(len(batch.Outcomes)))

	report, err := s.analyzer.UpdateWithNewResult(r.Context(), &batch)
	if err != nil {
		persistFailures.Inc()
		s.logger.Error("record run failed", zap.String("batch_id", batch.BatchID), zap.Error(err))
		if report == nil {
			writeError(w, http.StatusInternalServerError, "failed to record run")
			return
		}
	}
	analysesRun.Inc()

	writeJSON(w, http.StatusAccepted, report)
}

func parseWindow(r *http.Request) (*models.TimeWindow, error) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("start and end must be given together")
	}

	startTS, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start: %v", err)
	}
	endTS, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end: %v", err)
	}
	if endTS.Before(startTS) {
		return nil, fmt.Errorf("end is before start")
	}
	return &models.TimeWindow{Start: startTS, End: endTS}, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
