package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/normalize"
	"github.com/mark3labs/mcp-go/mcp"
)

// parseRange reads the optional start/end arguments. Missing bounds are
// open, so the default window is the whole journal.
func parseRange(req mcp.CallToolRequest) (journal.Range, error) {
	var r journal.Range
	if s := req.GetString("start", ""); s != "" {
		t, err := normalize.ParseDate(s)
		if err != nil {
			return r, fmt.Errorf("start %q: %w", s, err)
		}
		r.Start = t
	}
	if s := req.GetString("end", ""); s != "" {
		t, err := normalize.ParseDate(s)
		if err != nil {
			return r, fmt.Errorf("end %q: %w", s, err)
		}
		r.End = t
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return r, fmt.Errorf("end is before start")
	}
	return r, nil
}

// --- Tool definitions ---

var (
	startArg = mcp.WithString("start", mcp.Description("Start date (YYYY-MM-DD or ISO 8601), inclusive. Defaults to the first session."))
	endArg   = mcp.WithString("end", mcp.Description("End date (YYYY-MM-DD or ISO 8601), inclusive. Defaults to the last session."))
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Headline numbers: total volume (weight x reps, each set counted once), training days, average working weight, set and rep totals, first and last workout. Also reports malformed weights and dates found in the data."),
	startArg,
	endArg,
)

var toolGetVolumeByCategory = mcp.NewTool("get_volume_by_category",
	mcp.WithDescription("Training volume per muscle group, largest first. Exercises hitting several groups (e.g. 'Legs/Glutes') count toward each of them."),
	startArg,
	endArg,
)

var toolGetDailyVolume = mcp.NewTool("get_daily_volume",
	mcp.WithDescription("Total volume per training day, oldest first."),
	startArg,
	endArg,
)

var toolGetExerciseProgression = mcp.NewTool("get_exercise_progression",
	mcp.WithDescription("Per-day history of one exercise: max weight, volume, average reps and set count."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name as logged (see list_exercises)")),
	startArg,
	endArg,
)

var toolGetWeekdayConsistency = mcp.NewTool("get_weekday_consistency",
	mcp.WithDescription("Number of distinct training days per weekday, Monday to Sunday. Always seven rows."),
	startArg,
	endArg,
)

var toolGetTopExercises = mcp.NewTool("get_top_exercises",
	mcp.WithDescription("Exercises with the most logged sets."),
	mcp.WithNumber("n", mcp.Description("Number of exercises to return. Defaults to 10.")),
	startArg,
	endArg,
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("All distinct exercise names in the journal, sorted."),
	startArg,
	endArg,
)

var toolClassifyExercise = mcp.NewTool("classify_exercise",
	mcp.WithDescription("Show which muscle group an exercise name maps to and which rule matched (exact name, contained name, keyword or fallback)."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Exercise name")),
)

var toolImportTextLog = mcp.NewTool("import_text_log",
	mcp.WithDescription("Import a workout written in the text log format. The session replaces any existing session on the same date.\n\nFormat:\nDate:2026-01-25\nBench Press(50Kg)\n1->10\n2->8"),
	mcp.WithString("log", mcp.Required(), mcp.Description("Text log with a Date: line, exercise headers and set lines")),
)

// --- Tool handlers ---

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := parseRange(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	v, err := h.ds.Summary(ctx, r)
	return h.result("get_training_summary", v, err)
}

func (h *handlers) getVolumeByCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := parseRange(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	v, err := h.ds.VolumeByCategory(ctx, r)
	return h.result("get_volume_by_category", v, err)
}

func (h *handlers) getDailyVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := parseRange(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	v, err := h.ds.DailyVolume(ctx, r)
	return h.result("get_daily_volume", v, err)
}

func (h *handlers) getExerciseProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil || strings.TrimSpace(exercise) == "" {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	r, err := parseRange(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	v, err := h.ds.Progression(ctx, exercise, r)
	return h.result("get_exercise_progression", v, err)
}

func (h *handlers) getWeekdayConsistency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := parseRange(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	v, err := h.ds.Consistency(ctx, r)
	return h.result("get_weekday_consistency", v, err)
}

func (h *handlers) getTopExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := req.GetInt("n", 10)
	if n <= 0 {
		return mcp.NewToolResultError("n must be positive"), nil
	}
	r, err := parseRange(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	v, err := h.ds.TopExercises(ctx, n, r)
	return h.result("get_top_exercises", v, err)
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := parseRange(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	v, err := h.ds.Exercises(ctx, r)
	return h.result("list_exercises", v, err)
}

func (h *handlers) classifyExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	m, err := h.ds.Classify(ctx, name)
	return h.result("classify_exercise", m, err)
}

func (h *handlers) importTextLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("log")
	if err != nil {
		return mcp.NewToolResultError("log parameter is required"), nil
	}
	res, err := h.ds.ImportText(ctx, strings.NewReader(text))
	if err != nil {
		h.log.Error("mcp import_text_log", "error", err)
		return mcp.NewToolResultError("import failed: " + err.Error()), nil
	}
	if res.SetsReceived == 0 {
		return mcp.NewToolResultError("no sets found in log; nothing imported"), nil
	}
	return h.result("import_text_log", res, nil)
}

func (h *handlers) result(tool string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		h.log.Error("mcp "+tool, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
