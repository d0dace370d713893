package tracker

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "text/csv"
	case "pdf":
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Export renders the whole list, sorted by title, as json, csv or pdf.
func (t *Tracker) Export(ctx context.Context, userID, format string) ([]byte, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" && format != "pdf" {
		return nil, types.Invalidf("unknown format %s", format)
	}

	items, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	Sort(items, SortTitle, false)

	switch format {
	case "json":
		return json.MarshalIndent(items, "", "  ")
	case "csv":
		return exportCSV(items)
	default:
		return exportPDF(items, ComputeStats(items))
	}
}

func exportCSV(items []*types.ListItem) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"anime_id", "title", "status", "progress", "episodes", "score", "notes", "updated_at"})
	for _, it := range items {
		_ = w.Write([]string{
			strconv.Itoa(it.AnimeID),
			it.Title,
			string(it.Status),
			strconv.Itoa(it.Progress),
			strconv.Itoa(it.Episodes),
			strconv.FormatFloat(it.Score, 'f', -1, 64),
			it.Notes,
			it.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func exportPDF(items []*types.ListItem, stats *types.Stats) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "AnimeIT list")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("%d titles, %d episodes watched, mean score %.2f",
		stats.Total, stats.EpisodesWatched, stats.MeanScore))
	pdf.Ln(10)

	for _, it := range items {
		episodes := "?"
		if it.Episodes > 0 {
			episodes = strconv.Itoa(it.Episodes)
		}
		line := fmt.Sprintf("%s [%s] %d/%s score=%.1f", it.Title, it.Status, it.Progress, episodes, it.Score)
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
