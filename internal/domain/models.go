package domain

import (
	"maps"
	"slices"
	"strings"
)

// AdminName is the reserved player name that unlocks catalog editing and analytics.
const AdminName = "admin"

// IsAdmin reports whether name is the reserved admin name (case-insensitive).
func IsAdmin(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), AdminName)
}

// MapPosition places a subject on the learning map; values are percentage strings like "10%".
type MapPosition struct {
	Top  string `json:"top" yaml:"top"`
	Left string `json:"left" yaml:"left"`
}

// Subject is a gated unit of quiz content.
type Subject struct {
	Key           string      `json:"key"`
	Title         string      `json:"title"`
	Prerequisites []string    `json:"prerequisites"`
	MapPosition   MapPosition `json:"mapPosition"`
	Questions     []Question  `json:"questions"`
}

// Clone returns a deep copy of the subject.
func (s Subject) Clone() Subject {
	s.Prerequisites = slices.Clone(s.Prerequisites)
	qs := make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		qs[i] = q.Clone()
	}
	s.Questions = qs
	return s
}

// Catalog holds subjects in display order.
type Catalog struct {
	Subjects []Subject `json:"subjects"`
}

// Get looks up a subject by key.
func (c Catalog) Get(key string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.Key == key {
			return s, true
		}
	}
	return Subject{}, false
}

// Has reports whether key names a subject.
func (c Catalog) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys lists subject keys in catalog order.
func (c Catalog) Keys() []string {
	keys := make([]string, len(c.Subjects))
	for i, s := range c.Subjects {
		keys[i] = s.Key
	}
	return keys
}

// Len is the number of subjects.
func (c Catalog) Len() int { return len(c.Subjects) }

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := Catalog{Subjects: make([]Subject, len(c.Subjects))}
	for i, s := range c.Subjects {
		out.Subjects[i] = s.Clone()
	}
	return out
}

// SubjectProgress is the last-attempt snapshot for one subject.
type SubjectProgress struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// PlayerProfile is the persistent career of one player.
type PlayerProfile struct {
	Name              string                     `json:"name"`
	Avatar            string                     `json:"avatar"`
	Score             int                        `json:"score"`
	CompletedSubjects []string                   `json:"completedSubjects"`
	SubjectProgress   map[string]SubjectProgress `json:"subjectProgress"`
	Badges            []string                   `json:"badges"`
	WeakQuestions     map[string][]Question      `json:"weakQuestions"`
	Streak            int                        `json:"streak"`
	LastQuizDate      string                     `json:"lastQuizDate,omitempty"` // YYYY-MM-DD, empty when never played
}

// Clone returns a deep copy so that callers can mutate it freely.
func (p PlayerProfile) Clone() PlayerProfile {
	p.CompletedSubjects = slices.Clone(p.CompletedSubjects)
	p.Badges = slices.Clone(p.Badges)
	if p.SubjectProgress != nil {
		p.SubjectProgress = maps.Clone(p.SubjectProgress)
	} else {
		p.SubjectProgress = make(map[string]SubjectProgress)
	}
	weak := make(map[string][]Question, len(p.WeakQuestions))
	for k, qs := range p.WeakQuestions {
		cp := make([]Question, len(qs))
		for i, q := range qs {
			cp[i] = q.Clone()
		}
		weak[k] = cp
	}
	p.WeakQuestions = weak
	return p
}

// HasCompleted reports whether key is in the completed set.
func (p PlayerProfile) HasCompleted(key string) bool {
	return slices.Contains(p.CompletedSubjects, key)
}

// HasBadge reports whether the badge id has been awarded.
func (p PlayerProfile) HasBadge(id string) bool {
	return slices.Contains(p.Badges, id)
}

// Level is the display level derived from score.
func (p PlayerProfile) Level() int {
	return p.Score/100 + 1
}

// WeakCount is the number of questions waiting for personalized review.
func (p PlayerProfile) WeakCount() int {
	n := 0
	for _, qs := range p.WeakQuestions {
		n += len(qs)
	}
	return n
}

// Roster is the full player table in first-registration order.
type Roster struct {
	Players []PlayerProfile `json:"players"`
}

// Get looks up a profile by case-sensitive name.
func (r Roster) Get(name string) (PlayerProfile, bool) {
	for _, p := range r.Players {
		if p.Name == name {
			return p, true
		}
	}
	return PlayerProfile{}, false
}

// Put replaces the profile with the same name or appends a new one.
func (r Roster) Put(p PlayerProfile) Roster {
	players := slices.Clone(r.Players)
	for i := range players {
		if players[i].Name == p.Name {
			players[i] = p
			return Roster{Players: players}
		}
	}
	return Roster{Players: append(players, p)}
}

// Students excludes the reserved admin profile.
func (r Roster) Students() []PlayerProfile {
	out := make([]PlayerProfile, 0, len(r.Players))
	for _, p := range r.Players {
		if !IsAdmin(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// LeaderboardEntry is a denormalized snapshot of one player's latest score.
type LeaderboardEntry struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Avatar string `json:"avatar"`
}

// Identity ties a device token to a display name and avatar.
type Identity struct {
	Token  string `json:"token"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}
