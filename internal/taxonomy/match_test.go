package taxonomy

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fancyplanties/planty/internal/model"
)

func strPtr(s string) *string { return &s }

func catalog() []model.TaxonomyRecord {
	return []model.TaxonomyRecord{
		{ID: 1, Family: "Araceae", Genus: "Monstera", Species: "deliciosa", CommonName: "Swiss Cheese Plant", Verified: true},
		{ID: 2, Family: "Araceae", Genus: "Monstera", Species: "adansonii", CommonName: "Monkey Mask", Verified: true},
		{ID: 3, Family: "Araceae", Genus: "Monstera", Species: "deliciosa", Cultivar: strPtr("Thai Constellation"), CommonName: "Thai Con", Verified: false},
		{ID: 4, Family: "Araceae", Genus: "Epipremnum", Species: "aureum", CommonName: "Pothos", Verified: true},
		{ID: 5, Family: "Araceae", Genus: "Philodendron", Species: "hederaceum", CommonName: "Heartleaf Philodendron", Verified: false},
		{ID: 6, Family: "Asparagaceae", Genus: "Dracaena", Species: "trifasciata", CommonName: "Snake Plant", Verified: true},
		{ID: 7, Family: "Araceae", Genus: "Rhaphidophora", Species: "tetrasperma", CommonName: "Mini Monstera", Verified: false},
	}
}

func ids(ms []Match) []int64 {
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Record.ID)
	}
	return out
}

func scores(ms []Match) []int {
	out := make([]int, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Score)
	}
	return out
}

func TestSearchExactBinomialOutranksSubstrings(t *testing.T) {
	t.Parallel()
	got := Search("monstera deliciosa", catalog())
	// Both deliciosa records hit the exact binomial; verified wins the tie.
	if diff := cmp.Diff([]int64{1, 3}, ids(got)); diff != "" {
		t.Fatalf("ranked ids mismatch (-want +got):\n%s", diff)
	}
	if got[0].Score != ScoreExactBinomial {
		t.Fatalf("expected exact binomial score %d, got %d", ScoreExactBinomial, got[0].Score)
	}
}

func TestSearchGenusQueryRanking(t *testing.T) {
	t.Parallel()
	got := Search("Monstera", catalog())
	// Monstera records all prefix the binomial (80); "Mini Monstera" only
	// contains the query in its common name (60).
	wantIDs := []int64{2, 1, 3, 7}
	wantScores := []int{ScorePrefixBinomial, ScorePrefixBinomial, ScorePrefixBinomial, ScoreContainsCommonName}
	if diff := cmp.Diff(wantIDs, ids(got)); diff != "" {
		t.Fatalf("ranked ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantScores, scores(got)); diff != "" {
		t.Fatalf("scores mismatch (-want +got):\n%s", diff)
	}
}

func TestScorePrecedenceTable(t *testing.T) {
	t.Parallel()
	r := model.TaxonomyRecord{Family: "Araceae", Genus: "Monstera", Species: "deliciosa", Cultivar: strPtr("Albo Variegata"), CommonName: "Swiss Cheese Plant"}
	tests := []struct {
		query string
		want  int
	}{
		{query: "swiss cheese plant", want: ScoreExactCommonName},
		{query: "swiss", want: ScorePrefixCommonName},
		{query: "monstera deliciosa", want: ScoreExactBinomial},
		{query: "monstera del", want: ScorePrefixBinomial},
		{query: "deliciosa", want: ScoreExactSpecies},
		{query: "araceae", want: ScoreExactFamily},
		{query: "cheese", want: ScoreContainsCommonName},
		{query: "nster", want: ScoreContainsGenus},
		{query: "licio", want: ScoreContainsSpecies},
		{query: "racea", want: ScoreContainsFamily},
		{query: "variegata", want: ScoreContainsOther},
		{query: "a d", want: ScoreContainsOther},
		{query: "ficus", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := Score(tt.query, r); got != tt.want {
				t.Fatalf("Score(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestScoreGenusQueryTakesBinomialPrefix(t *testing.T) {
	t.Parallel()
	// A query equal to the genus always prefixes "genus species", so the
	// higher binomial prefix score applies.
	r := model.TaxonomyRecord{Family: "Moraceae", Genus: "Ficus", Species: "lyrata", CommonName: "Fiddle Leaf Fig"}
	if got := Score("ficus", r); got != ScorePrefixBinomial {
		t.Fatalf("expected binomial prefix to win, got %d", got)
	}
}

func TestSearchIsCaseInsensitiveAndSkipsBlankQuery(t *testing.T) {
	t.Parallel()
	upper := Search("POTHOS", catalog())
	lower := Search("pothos", catalog())
	if diff := cmp.Diff(ids(lower), ids(upper)); diff != "" {
		t.Fatalf("case changed ranking (-lower +upper):\n%s", diff)
	}
	if len(upper) != 1 || upper[0].Score != ScoreExactCommonName {
		t.Fatalf("expected single exact common name hit, got %+v", upper)
	}
	if got := Search("   ", catalog()); len(got) != 0 {
		t.Fatalf("expected blank query to match nothing, got %d", len(got))
	}
}

func TestSearchTieBreakIsStableAcrossCalls(t *testing.T) {
	t.Parallel()
	records := []model.TaxonomyRecord{
		{ID: 10, Family: "Araceae", Genus: "Alocasia", Species: "zebrina", CommonName: "zebra", Verified: false},
		{ID: 11, Family: "Araceae", Genus: "Alocasia", Species: "amazonica", CommonName: "Amazon", Verified: false},
		{ID: 12, Family: "Araceae", Genus: "Alocasia", Species: "cuprea", CommonName: "Mirror", Verified: true},
		{ID: 13, Family: "Araceae", Genus: "Alocasia", Species: "amazonica", CommonName: "amazon", Verified: false},
	}
	first := Search("araceae", records)
	want := []int64{12, 11, 13, 10}
	if diff := cmp.Diff(want, ids(first)); diff != "" {
		t.Fatalf("tie-break order mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < 20; i++ {
		// Reverse input order to make sure ranking ignores it.
		rev := make([]model.TaxonomyRecord, len(records))
		for j := range records {
			rev[len(records)-1-j] = records[j]
		}
		if diff := cmp.Diff(ids(first), ids(Search("araceae", rev))); diff != "" {
			t.Fatalf("ranking changed on call %d:\n%s", i, diff)
		}
	}
}

func TestPage(t *testing.T) {
	t.Parallel()
	all := Search("araceae", catalog())
	if len(all) != 6 {
		t.Fatalf("expected 6 araceae matches, got %d", len(all))
	}
	if got := Page(all, 0, 4); len(got) != 4 {
		t.Fatalf("expected first page of 4, got %d", len(got))
	}
	if got := Page(all, 4, 4); len(got) != 2 {
		t.Fatalf("expected second page of 2, got %d", len(got))
	}
	if got := Page(all, 10, 4); len(got) != 0 {
		t.Fatalf("expected empty page past end, got %d", len(got))
	}
	if got := Page(all, -1, 0); len(got) != 6 {
		t.Fatalf("expected unbounded page, got %d", len(got))
	}
}
