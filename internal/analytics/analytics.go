// Package analytics aggregates every student's progress into the admin dashboard.
package analytics

import (
	"fmt"
	"math"
	"slices"

	"quizmap-service/internal/domain"
)

// LowScorePercent is the accuracy below which an attempted subject needs attention.
const LowScorePercent = 60

const mostWeakLimit = 3

type WeakQuestionStat struct {
	Prompt string `json:"question"`
	Count  int    `json:"count"`
}

type SubjectStats struct {
	Key             string             `json:"key"`
	Completions     int                `json:"completions"`
	AverageAccuracy int                `json:"averageAccuracy"`
	MostWeak        []WeakQuestionStat `json:"mostWeak"`
}

type AreaStatus string

const (
	StatusLowScore     AreaStatus = "low_score"
	StatusNotAttempted AreaStatus = "not_attempted"
)

// Area is a subject flagged for a student.
type Area struct {
	Subject string     `json:"subject"`
	Status  AreaStatus `json:"status"`
	Percent int        `json:"percent,omitempty"`
}

// Label is the human-readable status shown on the dashboard.
func (a Area) Label() string {
	if a.Status == StatusLowScore {
		return fmt.Sprintf("Low Score (%d%%)", a.Percent)
	}
	return "Not Attempted"
}

type StudentReport struct {
	Name           string `json:"name"`
	Avatar         string `json:"avatar"`
	Score          int    `json:"score"`
	Level          int    `json:"level"`
	CompletedCount int    `json:"completedCount"`
	Areas          []Area `json:"areas"`
}

type Dashboard struct {
	TotalStudents     int                      `json:"totalStudents"`
	AverageScore      int                      `json:"averageScore"`
	OverallCompletion int                      `json:"overallCompletion"`
	TotalQuizzesTaken int                      `json:"totalQuizzesTaken"`
	TopPerformer      *domain.LeaderboardEntry `json:"topPerformer"`
	Subjects          []SubjectStats           `json:"subjects"`
	Students          []StudentReport          `json:"students"`
}

// Compute is a read-only aggregation over every non-admin profile and the catalog.
func Compute(roster domain.Roster, c domain.Catalog) Dashboard {
	students := roster.Students()
	d := Dashboard{
		TotalStudents: len(students),
		Subjects:      make([]SubjectStats, 0, c.Len()),
		Students:      make([]StudentReport, 0, len(students)),
	}

	totalScore, totalCompleted := 0, 0
	for _, p := range students {
		totalScore += p.Score
		totalCompleted += len(p.CompletedSubjects)
		if d.TopPerformer == nil || p.Score > d.TopPerformer.Score {
			d.TopPerformer = &domain.LeaderboardEntry{Name: p.Name, Score: p.Score, Avatar: p.Avatar}
		}
	}
	d.TotalQuizzesTaken = totalCompleted
	if len(students) > 0 {
		d.AverageScore = percentOf(totalScore, len(students), 1)
		if c.Len() > 0 {
			d.OverallCompletion = percentOf(totalCompleted, len(students)*c.Len(), 100)
		}
	}

	for _, s := range c.Subjects {
		d.Subjects = append(d.Subjects, subjectStats(s.Key, students))
	}
	for _, p := range students {
		d.Students = append(d.Students, StudentReport{
			Name:           p.Name,
			Avatar:         p.Avatar,
			Score:          p.Score,
			Level:          p.Level(),
			CompletedCount: len(p.CompletedSubjects),
			Areas:          areasForImprovement(p, c),
		})
	}
	return d
}

func subjectStats(key string, students []domain.PlayerProfile) SubjectStats {
	stats := SubjectStats{Key: key, MostWeak: []WeakQuestionStat{}}
	correct, total := 0, 0
	var weak []WeakQuestionStat
	for _, p := range students {
		if p.HasCompleted(key) {
			stats.Completions++
		}
		if sp, ok := p.SubjectProgress[key]; ok && sp.Total > 0 {
			correct += sp.Correct
			total += sp.Total
		}
		for _, q := range p.WeakQuestions[key] {
			i := slices.IndexFunc(weak, func(w WeakQuestionStat) bool { return w.Prompt == q.Prompt })
			if i < 0 {
				weak = append(weak, WeakQuestionStat{Prompt: q.Prompt, Count: 1})
			} else {
				weak[i].Count++
			}
		}
	}
	if total > 0 {
		stats.AverageAccuracy = percentOf(correct, total, 100)
	}
	slices.SortStableFunc(weak, func(a, b WeakQuestionStat) int { return b.Count - a.Count })
	if len(weak) > mostWeakLimit {
		weak = weak[:mostWeakLimit]
	}
	stats.MostWeak = append(stats.MostWeak, weak...)
	return stats
}

func areasForImprovement(p domain.PlayerProfile, c domain.Catalog) []Area {
	areas := []Area{}
	for _, s := range c.Subjects {
		sp, ok := p.SubjectProgress[s.Key]
		switch {
		case ok && sp.Total > 0:
			pct := float64(sp.Correct) * 100 / float64(sp.Total)
			if pct < LowScorePercent {
				areas = append(areas, Area{Subject: s.Key, Status: StatusLowScore, Percent: roundHalfUp(pct)})
			}
		case !p.HasCompleted(s.Key):
			areas = append(areas, Area{Subject: s.Key, Status: StatusNotAttempted})
		}
	}
	return areas
}

func percentOf(num, den, scale int) int {
	return roundHalfUp(float64(num) * float64(scale) / float64(den))
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
