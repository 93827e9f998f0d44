// Package taxonomy ranks, de-duplicates and merges taxonomy catalog records.
//
// Search and FindDuplicates are pure functions over already-fetched records.
// Merge is the only operation with side effects and runs entirely through the
// Mutator handed to it by a TxRunner.
package taxonomy

import (
	"sort"
	"strings"

	"github.com/fancyplanties/planty/internal/model"
)

// Scores for each way a query can hit a record. A record takes the highest
// score that applies to it.
const (
	ScoreExactCommonName    = 100
	ScorePrefixCommonName   = 90
	ScoreExactBinomial      = 85
	ScorePrefixBinomial     = 80
	ScoreExactGenus         = 75
	ScoreExactSpecies       = 70
	ScoreExactFamily        = 65
	ScoreContainsCommonName = 60
	ScoreContainsGenus      = 50
	ScoreContainsSpecies    = 45
	ScoreContainsFamily     = 40
	ScoreContainsOther      = 30
)

type Match struct {
	Record model.TaxonomyRecord `json:"record"`
	Score  int                  `json:"score"`
}

// Search returns every record that contains the query (case-insensitively) in
// its family, genus, species, cultivar, common name or "genus species" field,
// ordered by score, then verified records first, then common name, then id.
// A blank query matches nothing.
func Search(query string, candidates []model.TaxonomyRecord) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Match{}
	}
	out := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if score := Score(q, c); score > 0 {
			out = append(out, Match{Record: c, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessMatch(out[i], out[j])
	})
	return out
}

// Score returns the precedence-table score of a lowercased query against one
// record, or 0 when nothing matches.
func Score(q string, r model.TaxonomyRecord) int {
	common := strings.ToLower(r.CommonName)
	genus := strings.ToLower(r.Genus)
	species := strings.ToLower(r.Species)
	family := strings.ToLower(r.Family)
	cultivar := strings.ToLower(r.CultivarName())
	binomial := genus + " " + species

	// Checked highest first; the first hit is the maximum.
	switch {
	case common != "" && common == q:
		return ScoreExactCommonName
	case strings.HasPrefix(common, q):
		return ScorePrefixCommonName
	case binomial == q:
		return ScoreExactBinomial
	case strings.HasPrefix(binomial, q):
		return ScorePrefixBinomial
	case genus == q:
		return ScoreExactGenus
	case species == q:
		return ScoreExactSpecies
	case family == q:
		return ScoreExactFamily
	case strings.Contains(common, q):
		return ScoreContainsCommonName
	case strings.Contains(genus, q):
		return ScoreContainsGenus
	case strings.Contains(species, q):
		return ScoreContainsSpecies
	case strings.Contains(family, q):
		return ScoreContainsFamily
	case strings.Contains(cultivar, q), strings.Contains(binomial, q):
		return ScoreContainsOther
	default:
		return 0
	}
}

func lessMatch(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Record.Verified != b.Record.Verified {
		return a.Record.Verified
	}
	an, bn := strings.ToLower(a.Record.CommonName), strings.ToLower(b.Record.CommonName)
	if an != bn {
		return an < bn
	}
	return a.Record.ID < b.Record.ID
}

// Page slices ranked matches for pagination. Out of range offsets yield an
// empty page; a non-positive limit means no limit.
func Page(matches []Match, offset, limit int) []Match {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matches) {
		return []Match{}
	}
	end := len(matches)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matches[offset:end]
}
