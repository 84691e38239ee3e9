package store

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9_]+`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "of": {}, "in": {}, "on": {}, "for": {},
	"and": {}, "or": {}, "is": {}, "it": {}, "at": {}, "by": {}, "with": {},
}

// Tokenize lowercases and splits text into keyword candidates, dropping
// short tokens and stopwords, and deduplicating.
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	seen := map[string]struct{}{}
	var out []string
	for _, tok := range matches {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// recordKeywordUsageTx upserts (keyword, toolName) rows within tx,
// incrementing usage_count and, conditionally, success_count. The score
// column can't be computed from the new counts in the same statement (the
// incremented values aren't visible to the VALUES clause), so each row is
// recomputed in a second pass via recomputeScoreTx.
func recordKeywordUsageTx(ctx context.Context, tx pgx.Tx, keywords []string, toolName string, toolType ToolType, success bool) error {
	successDelta := 0
	if success {
		successDelta = 1
	}
	for _, kw := range keywords {
		_, err := tx.Exec(ctx, `
			INSERT INTO keyword_tool_scores (keyword, tool_name, tool_type, score, usage_count, success_count, last_used)
			VALUES ($1, $2, $3, $4, 1, $5, now())
			ON CONFLICT (keyword, tool_name) DO UPDATE SET
				usage_count = keyword_tool_scores.usage_count + 1,
				success_count = keyword_tool_scores.success_count + $5,
				tool_type = EXCLUDED.tool_type,
				last_used = now()
		`, kw, toolName, string(toolType), computeInitialScore(successDelta, 1), successDelta)
		if err != nil {
			return fmt.Errorf("failed to upsert keyword score for %q: %w", kw, err)
		}
		if err := recomputeScoreTx(ctx, tx, kw, toolName); err != nil {
			return err
		}
	}
	return nil
}

func recomputeScoreTx(ctx context.Context, tx pgx.Tx, keyword, toolName string) error {
	var usage, successCount int
	err := tx.QueryRow(ctx, `
		SELECT usage_count, success_count FROM keyword_tool_scores WHERE keyword = $1 AND tool_name = $2
	`, keyword, toolName).Scan(&usage, &successCount)
	if err != nil {
		return fmt.Errorf("failed to read keyword score: %w", err)
	}
	score := Clamp(scoreFromCounts(successCount, usage))
	_, err = tx.Exec(ctx, `UPDATE keyword_tool_scores SET score = $3 WHERE keyword = $1 AND tool_name = $2`, keyword, toolName, score)
	if err != nil {
		return fmt.Errorf("failed to write keyword score: %w", err)
	}
	return nil
}

// scoreFromCounts is monotonic in success rate and in usage (log). Base
// weight 4.0 spread over the success rate, plus a small exploration bonus
// that grows logarithmically with usage so frequently-exercised tools
// aren't starved relative to rarely-used ones with a lucky streak, then
// clamped to [0.1, 5.0].
func scoreFromCounts(successCount, usageCount int) float64 {
	if usageCount <= 0 {
		return 1.0
	}
	successRate := float64(successCount) / float64(usageCount)
	explorationBonus := 0.15 * math.Log1p(float64(usageCount))
	return Clamp(0.1 + successRate*4.0 + explorationBonus)
}

func computeInitialScore(successDelta, usageDelta int) float64 {
	return Clamp(scoreFromCounts(successDelta, usageDelta))
}

// ApplyRoutingFeedback adjusts every (keyword, toolName) row by +0.2 when
// chosen, -0.1 otherwise, clamped to [MinScore, MaxScore].
func (s *Store) ApplyRoutingFeedback(ctx context.Context, toolName string, keywords []string, chosen bool) error {
	delta := -0.1
	if chosen {
		delta = 0.2
	}
	for _, kw := range keywords {
		_, err := s.Pool.Exec(ctx, `
			UPDATE keyword_tool_scores
			SET score = GREATEST($3, LEAST($4, score + $1))
			WHERE keyword = $2 AND tool_name = $5
		`, delta, kw, MinScore, MaxScore, toolName)
		if err != nil {
			return fmt.Errorf("failed to apply routing feedback for %q: %w", kw, err)
		}
	}
	return nil
}

// RoutingSuggestion is one ranked result from SuggestTools.
type RoutingSuggestion struct {
	ToolName   string   `json:"tool_name"`
	ToolType   ToolType `json:"tool_type"`
	Score      float64  `json:"score"`
	UsageCount int      `json:"usage_count"`
	MatchCount int      `json:"match_count"`
}

// SuggestTools returns the top K tools whose keyword set overlaps
// keywords, ordered by (match-count desc, score desc, usage desc),
// optionally filtered by toolType and a minScore floor.
func (s *Store) SuggestTools(ctx context.Context, keywords []string, toolType string, minScore float64, limit int) ([]RoutingSuggestion, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	query := `
		SELECT tool_name, tool_type, max(score) AS best_score, sum(usage_count) AS total_usage, count(DISTINCT keyword) AS match_count
		FROM keyword_tool_scores
		WHERE keyword = ANY($1) AND score >= $2
	`
	args := []any{keywords, minScore}
	if toolType != "" {
		args = append(args, toolType)
		query += fmt.Sprintf(" AND tool_type = $%d", len(args))
	}
	query += " GROUP BY tool_name, tool_type"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routing suggestions: %w", err)
	}
	defer rows.Close()

	var out []RoutingSuggestion
	for rows.Next() {
		var r RoutingSuggestion
		var toolTypeStr string
		if err := rows.Scan(&r.ToolName, &toolTypeStr, &r.Score, &r.UsageCount, &r.MatchCount); err != nil {
			return nil, fmt.Errorf("failed to scan routing suggestion: %w", err)
		}
		r.ToolType = ToolType(toolTypeStr)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Ties (same match-count and score) are broken by usage desc, then
	// by tool_name ascending as a final, deterministic tiebreaker.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchCount != out[j].MatchCount {
			return out[i].MatchCount > out[j].MatchCount
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].ToolName < out[j].ToolName
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CompatOutput renders a pipe-delimited line per suggestion for shell
// consumers.
func CompatOutput(suggestions []RoutingSuggestion) string {
	lines := make([]string, 0, len(suggestions))
	for _, sgst := range suggestions {
		lines = append(lines, fmt.Sprintf("%s|%s|%.2f|%d", sgst.ToolName, sgst.ToolType, sgst.Score, sgst.UsageCount))
	}
	return strings.Join(lines, "\n")
}

// RoutingStats summarizes the keyword_tool_scores table for GET /routing/stats.
type RoutingStats struct {
	TotalRows     int     `json:"total_rows"`
	DistinctTools int     `json:"distinct_tools"`
	AverageScore  float64 `json:"average_score"`
}

// GetRoutingStats computes RoutingStats.
func (s *Store) GetRoutingStats(ctx context.Context) (*RoutingStats, error) {
	var stats RoutingStats
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*), count(DISTINCT tool_name), COALESCE(avg(score), 0)
		FROM keyword_tool_scores
	`).Scan(&stats.TotalRows, &stats.DistinctTools, &stats.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("failed to compute routing stats: %w", err)
	}
	return &stats, nil
}
