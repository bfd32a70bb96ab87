package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

const maxCorrPairs = 10

// Markdown renders a compact sectioned report of the run.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Source))
	}
	if r.CleanRows > 0 && r.CleanRows < r.Rows {
		b.WriteString(fmt.Sprintf("Rows: %d (%d after cleaning)\n", r.Rows, r.CleanRows))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Schema)))
	if r.Users.Nrow() > 0 {
		b.WriteString(fmt.Sprintf("Users: %d\n", r.Users.Nrow()))
	}
	b.WriteString("\n[SCHEMA]\n")
	stats := make(map[string]int, len(r.Stats))
	for i, s := range r.Stats {
		stats[s.Name] = i
	}
	for _, c := range r.Schema {
		missPct := 0.0
		if r.Rows > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(r.Rows)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (missing %.1f%%)", safeName(c.Name), c.Kind, missPct))
		if i, ok := stats[c.Name]; ok {
			s := r.Stats[i]
			b.WriteString(fmt.Sprintf("; min %s, median %s, mean %s, max %s, std %s",
				num(s.Min), num(s.Median), num(s.Mean), num(s.Max), num(s.Std)))
		}
		b.WriteString("\n")
	}
	if len(r.Fences) > 0 {
		b.WriteString("\nOutlier fences (values clipped):\n")
		for _, f := range r.Fences {
			b.WriteString(fmt.Sprintf("- %s: [%s, %s]\n", f.Column, num(f.Lower), num(f.Upper)))
		}
	}

	if len(r.Handsets) > 0 {
		b.WriteString("\n[TOP HANDSETS]\n")
		for i, h := range r.Handsets {
			b.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, safeVal(h.Value), h.Count))
		}
		if len(r.Manufacturers) > 0 {
			b.WriteString("\nManufacturers: ")
			for i, m := range r.Manufacturers {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(m.Value), m.Count))
			}
			b.WriteString("\n")
		}
		for _, p := range r.PerMaker {
			b.WriteString(fmt.Sprintf("- %s / %s: %d\n", safeVal(p.Manufacturer), safeVal(p.Handset), p.Count))
		}
		if len(r.Traffic) > 0 {
			b.WriteString("\nTraffic leaders (DL / UL bytes):\n")
			for _, t := range r.Traffic {
				b.WriteString(fmt.Sprintf("- %s: %s / %s\n", safeVal(t.Handset), num(t.Download), num(t.Upload)))
			}
		}
	}

	if r.Users.Nrow() > 0 {
		b.WriteString("\n[USER AGGREGATES]\n")
		for _, col := range UserMetrics {
			vals, err := dataset.Floats(r.Users, col)
			if err != nil {
				continue
			}
			sum, n := 0.0, 0
			for _, v := range vals {
				if !math.IsNaN(v) {
					sum += v
					n++
				}
			}
			if n == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: total %s, mean per user %s\n", col, num(sum), num(sum/float64(n))))
		}
	}

	if len(r.Deciles) > 0 {
		b.WriteString("\n[DECILES]\n")
		b.WriteString("| decile | users | total_data_volume | avg_duration |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, d := range r.Deciles {
			b.WriteString(fmt.Sprintf("| %d | %d | %s | %s |\n", d.Decile, d.Users, num(d.TotalDataVolume), num(d.AvgDuration)))
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(maxCorrPairs) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if r.PCA != nil {
		b.WriteString("\n[PCA]\n")
		b.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(r.PCA.Columns, ", ")))
		total := 0.0
		for i, v := range r.PCA.ExplainedVarianceRatio {
			b.WriteString(fmt.Sprintf("- PC%d: %.1f%% of variance\n", i+1, v*100))
			total += v
		}
		b.WriteString(fmt.Sprintf("Together: %.1f%%\n", total*100))
	}

	if len(r.Elbow) > 0 || r.Model != nil {
		b.WriteString("\n[CLUSTERS]\n")
		if len(r.Elbow) > 0 {
			b.WriteString("WCSS by k: ")
			for i, p := range r.Elbow {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%d=%s", p.K, num(p.Inertia)))
			}
			b.WriteString("\n")
		}
		if m := r.Model; m != nil {
			b.WriteString(fmt.Sprintf("k=%d, inertia %s, %d iterations\n", m.K(), num(m.Inertia), m.Iterations))
			sizes := m.Sizes()
			for c, center := range m.Centers {
				b.WriteString(fmt.Sprintf("- cluster %d (%d users):", c, sizes[c]))
				for j, v := range center {
					name := fmt.Sprintf("f%d", j)
					if j < len(m.Features) {
						name = m.Features[j]
					}
					b.WriteString(fmt.Sprintf(" %s=%s", name, num(v)))
				}
				b.WriteString("\n")
			}
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
