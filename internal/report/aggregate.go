// Package report aggregates attendance records into status counts and rates.
package report

import (
	"math"
	"sort"
	"strings"
)

// TopCourses is the number of courses kept by department rankings.
const TopCourses = 5

// Known attendance statuses. Every summary reports all of them, zero or not.
var statuses = []string{"present", "absent", "excused", "late"}

// StatusCount is one GROUP BY status row.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CourseCount is one GROUP BY course, status row.
type CourseCount struct {
	Course string
	Status string
	Count  int
}

// Summary is the aggregate of a set of attendance records.
type Summary struct {
	ByStatus []StatusCount `json:"by_status"`
	Total    int           `json:"total"`
	Rate     float64       `json:"rate"`
}

// CourseSummary is a Summary for one course.
type CourseSummary struct {
	Course string `json:"course"`
	Summary
}

// Rate returns present/total as a percentage rounded to two decimals, or 0 when total is 0.
func Rate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}

// Summarize folds status counts into a Summary listing every known status in
// order, followed by any unknown ones. Counts always sum to Total.
func Summarize(counts []StatusCount) Summary {
	s := Summary{ByStatus: make([]StatusCount, len(statuses))}
	index := make(map[string]int, len(statuses))
	for i, st := range statuses {
		s.ByStatus[i] = StatusCount{Status: st}
		index[st] = i
	}
	for _, c := range counts {
		st := strings.ToLower(c.Status)
		i, ok := index[st]
		if !ok {
			i = len(s.ByStatus)
			index[st] = i
			s.ByStatus = append(s.ByStatus, StatusCount{Status: st})
		}
		s.ByStatus[i].Count += c.Count
		s.Total += c.Count
	}
	s.Rate = Rate(s.ByStatus[index["present"]].Count, s.Total)
	return s
}

// ByCourse groups course rows into per-course summaries ordered by course name.
func ByCourse(rows []CourseCount) []CourseSummary {
	grouped := map[string][]StatusCount{}
	var names []string
	for _, r := range rows {
		if _, ok := grouped[r.Course]; !ok {
			names = append(names, r.Course)
		}
		grouped[r.Course] = append(grouped[r.Course], StatusCount{Status: r.Status, Count: r.Count})
	}
	sort.Strings(names)
	out := make([]CourseSummary, 0, len(names))
	for _, name := range names {
		out = append(out, CourseSummary{Course: name, Summary: Summarize(grouped[name])})
	}
	return out
}

// RankCourses orders courses by rate, highest first, and keeps at most limit.
// Ties keep course name order.
func RankCourses(courses []CourseSummary, limit int) []CourseSummary {
	ranked := make([]CourseSummary, len(courses))
	copy(ranked, courses)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Rate != ranked[j].Rate {
			return ranked[i].Rate > ranked[j].Rate
		}
		return ranked[i].Course < ranked[j].Course
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
