package main

import "fmt"

// AggregateRankingRow is one display-ready row of the aggregate ranking
// table: 1-based position, display name, and the average formatted with
// exactly two decimals.
type AggregateRankingRow struct {
	Position      int    `json:"position"`
	Model         string `json:"model"`
	DisplayName   string `json:"display_name"`
	AverageRank   string `json:"average_rank"`
	RankingsCount int    `json:"rankings_count"`
}

// BuildAggregateRankingRows turns backend aggregate entries into table rows.
// The backend already orders entries best-first; this keeps that order as-is,
// so entries with equal averages stay exactly where they were supplied.
func BuildAggregateRankingRows(entries []AggregateRanking) []AggregateRankingRow {
	rows := make([]AggregateRankingRow, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, AggregateRankingRow{
			Position:      i + 1,
			Model:         entry.Model,
			DisplayName:   GetShortModelName(entry.Model),
			AverageRank:   fmt.Sprintf("%.2f", entry.AverageRank),
			RankingsCount: entry.RankingsCount,
		})
	}
	return rows
}
