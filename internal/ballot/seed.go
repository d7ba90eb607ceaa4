package ballot

import (
	"fmt"
	"strings"
)

// Part is a voting track.
type Part string

const (
	PartFrontend Part = "FRONTEND"
	PartBackend  Part = "BACKEND"
)

// Parts lists every part in display order.
var Parts = []Part{PartFrontend, PartBackend}

// ParsePart accepts the wire names and the short forms fe/front and
// be/back, case-insensitively.
func ParsePart(s string) (Part, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "frontend", "front", "fe", "front-end":
		return PartFrontend, nil
	case "backend", "back", "be", "back-end":
		return PartBackend, nil
	}
	return "", fmt.Errorf("%w: %q (want frontend or backend)", ErrUnknownPart, s)
}

// Label returns the display name of the part.
func (p Part) Label() string {
	switch p {
	case PartFrontend:
		return "Front-End"
	case PartBackend:
		return "Back-End"
	}
	return string(p)
}

// Candidate is a person who can receive votes.
type Candidate struct {
	ID           string
	Name         string
	Part         Part
	Team         string
	Introduction string
}

// Team is a project team that can receive votes.
type Team struct {
	ID      string
	Name    string
	Part    Part
	Members []string
}

const placeholderIntro = "Candidate introduction goes here."

var candidates = []Candidate{
	{ID: "fe1-member-1", Name: "백승선", Part: PartFrontend, Team: "DIGGINDIE"},
	{ID: "fe1-member-2", Name: "조성아", Part: PartFrontend, Team: "DIGGINDIE"},
	{ID: "fe2-member-1", Name: "손주완", Part: PartFrontend, Team: "MODELLY"},
	{ID: "fe2-member-2", Name: "정윤지", Part: PartFrontend, Team: "MODELLY"},
	{ID: "fe3-member-1", Name: "정성훈", Part: PartFrontend, Team: "CATCHUP"},
	{ID: "fe3-member-2", Name: "장자윤", Part: PartFrontend, Team: "CATCHUP"},
	{ID: "fe4-member-1", Name: "신용섭", Part: PartFrontend, Team: "MENUAL"},
	{ID: "fe4-member-2", Name: "최무헌", Part: PartFrontend, Team: "MENUAL"},
	{ID: "fe5-member-1", Name: "김윤성", Part: PartFrontend, Team: "STORIX"},
	{ID: "fe5-member-2", Name: "이채연", Part: PartFrontend, Team: "STORIX"},

	{ID: "be1-member-1", Name: "변호영", Part: PartBackend, Team: "DIGGINDIE"},
	{ID: "be1-member-2", Name: "이윤지", Part: PartBackend, Team: "DIGGINDIE"},
	{ID: "be2-member-1", Name: "이연호", Part: PartBackend, Team: "MODELLY"},
	{ID: "be2-member-2", Name: "이준영", Part: PartBackend, Team: "MODELLY"},
	{ID: "be3-member-1", Name: "배승식", Part: PartBackend, Team: "CATCHUP"},
	{ID: "be3-member-2", Name: "신혁", Part: PartBackend, Team: "CATCHUP"},
	{ID: "be4-member-1", Name: "이지원", Part: PartBackend, Team: "MENUAL"},
	{ID: "be4-member-2", Name: "변하영", Part: PartBackend, Team: "MENUAL"},
	{ID: "be5-member-1", Name: "서가영", Part: PartBackend, Team: "STORIX"},
	{ID: "be5-member-2", Name: "이수아", Part: PartBackend, Team: "STORIX"},
}

var teams = []Team{
	{ID: "fe-team-1", Name: "DiggIndie", Part: PartFrontend, Members: []string{"fe1-member-1", "fe1-member-2"}},
	{ID: "fe-team-2", Name: "모델리", Part: PartFrontend, Members: []string{"fe2-member-1", "fe2-member-2"}},
	{ID: "fe-team-3", Name: "캐치업", Part: PartFrontend, Members: []string{"fe3-member-1", "fe3-member-2"}},
	{ID: "fe-team-4", Name: "menual", Part: PartFrontend, Members: []string{"fe4-member-1", "fe4-member-2"}},
	{ID: "fe-team-5", Name: "STORIX", Part: PartFrontend, Members: []string{"fe5-member-1", "fe5-member-2"}},

	{ID: "be-team-1", Name: "DiggIndie", Part: PartBackend, Members: []string{"be1-member-1", "be1-member-2"}},
	{ID: "be-team-2", Name: "모델리", Part: PartBackend, Members: []string{"be2-member-1", "be2-member-2"}},
	{ID: "be-team-3", Name: "캐치업", Part: PartBackend, Members: []string{"be3-member-1", "be3-member-2"}},
	{ID: "be-team-4", Name: "menual", Part: PartBackend, Members: []string{"be4-member-1", "be4-member-2"}},
	{ID: "be-team-5", Name: "STORIX", Part: PartBackend, Members: []string{"be5-member-1", "be5-member-2"}},
}

// Candidates returns the candidates of part in seed order. An empty part
// returns every candidate.
func Candidates(part Part) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if part == "" || c.Part == part {
			c.Introduction = placeholderIntro
			out = append(out, c)
		}
	}
	return out
}

// CandidateByID looks up a candidate.
func CandidateByID(id string) (Candidate, bool) {
	for _, c := range candidates {
		if c.ID == id {
			c.Introduction = placeholderIntro
			return c, true
		}
	}
	return Candidate{}, false
}

// Teams returns the teams of part in seed order.
func Teams(part Part) []Team {
	out := make([]Team, 0, len(teams))
	for _, t := range teams {
		if part == "" || t.Part == part {
			t.Members = append([]string(nil), t.Members...)
			out = append(out, t)
		}
	}
	return out
}

// TeamByID looks up a team.
func TeamByID(id string) (Team, bool) {
	for _, t := range teams {
		if t.ID == id {
			t.Members = append([]string(nil), t.Members...)
			return t, true
		}
	}
	return Team{}, false
}
