// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Summarises the prospect list by status with bar charts
package viz

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/harperreed/prospekt/models"
)

type DashboardStats struct {
	// Live (non-archived) prospects per status, in stage order
	ByStatus []StatusStats

	Total    int
	Archived int

	// First contact within the last 7 days
	RecentContacts []models.Prospect

	// Live prospects without a parsable first contact date
	Undated int
}

type StatusStats struct {
	Status string
	Count  int
}

// GenerateDashboardStats summarises records. labels fixes the order of the
// status rows; statuses outside labels follow in first-seen order.
func GenerateDashboardStats(records []models.Prospect, labels []string, now time.Time) *DashboardStats {
	stats := &DashboardStats{}
	counts := make(map[string]int)
	order := slices.Clone(labels)

	weekAgo := now.AddDate(0, 0, -7)
	for _, p := range records {
		stats.Total++
		if p.Archived {
			stats.Archived++
			continue
		}
		if !slices.Contains(order, p.Status) {
			order = append(order, p.Status)
		}
		counts[p.Status]++

		t, ok := p.FirstContactTime()
		switch {
		case !ok:
			stats.Undated++
		case !t.Before(weekAgo) && !t.After(now):
			stats.RecentContacts = append(stats.RecentContacts, p)
		}
	}

	for _, status := range order {
		stats.ByStatus = append(stats.ByStatus, StatusStats{Status: status, Count: counts[status]})
	}
	return stats
}

// Live is the number of non-archived prospects.
func (s *DashboardStats) Live() int {
	return s.Total - s.Archived
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  PROSPEKT DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE\n")
	renderStatuses(&out, stats.ByStatus)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  📇 %d live  🗄  %d archived  📅 %d contacted this week\n\n",
		stats.Live(), stats.Archived, len(stats.RecentContacts)))

	if stats.Undated > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		out.WriteString(fmt.Sprintf("  ⚠️  %d prospects - no first contact date\n", stats.Undated))
	}

	return out.String()
}

func renderStatuses(out *strings.Builder, rows []StatusStats) {
	maxCount := 0
	for _, row := range rows {
		maxCount = max(maxCount, row.Count)
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, row := range rows {
		// 0-10 blocks
		barLength := (row.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-22s %s  %2d\n", stageLabel(row.Status), bar, row.Count))
	}
}
