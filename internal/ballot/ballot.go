// Package ballot holds the candidate and team seed and the vote endpoints.
package ballot

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-ballot/internal/api"
)

// Endpoint paths, relative to the API base URL.
const (
	PathVotes   = "/v1/votes"
	PathResults = "/v1/votes/results"
)

// Kind distinguishes candidate entries from team entries.
type Kind string

const (
	KindCandidate Kind = "candidate"
	KindTeam      Kind = "team"
)

// Doer is the subset of api.Client the service needs.
type Doer interface {
	Get(ctx context.Context, path string, out any, opts ...api.RequestOption) error
	Post(ctx context.Context, path string, body, out any, opts ...api.RequestOption) error
}

// Entry is anything a vote can be cast for.
type Entry struct {
	ID   string
	Name string
	Team string
	Part Part
	Kind Kind
}

// Entries returns the candidates or the teams of part as entries.
func Entries(part Part, kind Kind) []Entry {
	var out []Entry
	switch kind {
	case KindTeam:
		for _, t := range Teams(part) {
			out = append(out, Entry{ID: t.ID, Name: t.Name, Team: t.Name, Part: t.Part, Kind: KindTeam})
		}
	default:
		for _, c := range Candidates(part) {
			out = append(out, Entry{ID: c.ID, Name: c.Name, Team: c.Team, Part: c.Part, Kind: KindCandidate})
		}
	}
	return out
}

// Lookup resolves id to an entry of part. Team ids and candidate ids
// share the candidateId field on the wire.
func Lookup(part Part, id string) (Entry, error) {
	if c, ok := CandidateByID(id); ok && c.Part == part {
		return Entry{ID: c.ID, Name: c.Name, Team: c.Team, Part: c.Part, Kind: KindCandidate}, nil
	}
	if t, ok := TeamByID(id); ok && t.Part == part {
		return Entry{ID: t.ID, Name: t.Name, Team: t.Name, Part: t.Part, Kind: KindTeam}, nil
	}
	return Entry{}, fmt.Errorf("%w: %q in %s", ErrUnknownCandidate, id, part.Label())
}

// VoteRequest is the vote payload.
type VoteRequest struct {
	Part        Part   `json:"part"`
	CandidateID string `json:"candidateId"`
}

// ResultItem is one tally. Team tallies carry teamId, candidate tallies
// carry candidateId; some servers answer team tallies under candidateId.
type ResultItem struct {
	CandidateID string `json:"candidateId,omitempty"`
	TeamID      string `json:"teamId,omitempty"`
	Votes       int    `json:"votes"`
}

// ResultsResponse is the body of the results endpoint.
type ResultsResponse struct {
	Results []ResultItem `json:"results"`
}

// Tallies maps an entry id to its vote count.
type Tallies map[string]int

// Service calls the vote endpoints.
type Service struct {
	client Doer
}

// NewService returns a Service using client.
func NewService(client Doer) *Service {
	return &Service{client: client}
}

// CastVote votes for a candidate or team of part. Unknown ids are
// rejected before the request.
func (s *Service) CastVote(ctx context.Context, part Part, id string) (Entry, error) {
	entry, err := Lookup(part, id)
	if err != nil {
		return Entry{}, err
	}

	req := VoteRequest{Part: part, CandidateID: entry.ID}
	if err := s.client.Post(ctx, PathVotes, req, nil); err != nil {
		return Entry{}, fmt.Errorf("vote: %w", err)
	}
	return entry, nil
}

// Results fetches the tallies of part.
func (s *Service) Results(ctx context.Context, part Part) (Tallies, error) {
	var resp ResultsResponse
	q := url.Values{"part": {string(part)}}
	if err := s.client.Get(ctx, PathResults, &resp, api.WithQuery(q)); err != nil {
		return nil, fmt.Errorf("results for %s: %w", part.Label(), err)
	}

	tallies := make(Tallies, len(resp.Results))
	for _, item := range resp.Results {
		id := item.TeamID
		if id == "" {
			id = item.CandidateID
		}
		if id == "" {
			continue
		}
		tallies[id] = item.Votes
	}
	return tallies, nil
}

// ResultsForParts fetches several parts concurrently. The first failure
// cancels the rest and is returned.
func (s *Service) ResultsForParts(ctx context.Context, parts []Part) (map[Part]Tallies, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	out := make(map[Part]Tallies, len(parts))

	for _, part := range parts {
		g.Go(func() error {
			t, err := s.Results(ctx, part)
			if err != nil {
				return err
			}
			mu.Lock()
			out[part] = t
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Standing is an entry with its votes and rank. Equal vote counts share a
// rank (1, 1, 3).
type Standing struct {
	Entry
	Votes int
	Rank  int
}

// Rank joins tallies to entries and sorts by votes descending, then name.
// Entries without a tally have zero votes; tallies for unknown ids are
// ignored.
func Rank(entries []Entry, tallies Tallies) []Standing {
	out := make([]Standing, 0, len(entries))
	for _, e := range entries {
		out = append(out, Standing{Entry: e, Votes: tallies[e.ID]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})

	for i := range out {
		if i > 0 && out[i].Votes == out[i-1].Votes {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}

// Total sums the votes of standings.
func Total(standings []Standing) int {
	n := 0
	for _, s := range standings {
		n += s.Votes
	}
	return n
}
