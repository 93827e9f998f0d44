package taxonomy

import (
	"sort"

	"github.com/fancyplanties/planty/internal/model"
)

// RefCounts is how many records depend on one taxonomy record.
type RefCounts struct {
	Subjects     int `json:"subjects"`
	Propagations int `json:"propagations"`
}

func (r RefCounts) Total() int {
	return r.Subjects + r.Propagations
}

type DuplicateMember struct {
	Record model.TaxonomyRecord `json:"record"`
	Refs   RefCounts            `json:"refs"`
}

type DuplicateGroup struct {
	Genus   string            `json:"genus"`
	Species string            `json:"species"`
	Members []DuplicateMember `json:"members"`
}

type speciesKey struct {
	genus   string
	species string
}

// FindDuplicates groups records by exact (genus, species) and returns only the
// groups with two or more members. Groups are ordered by genus then species,
// members by id. refs supplies each member's dependent counts; records absent
// from it report zero.
func FindDuplicates(records []model.TaxonomyRecord, refs map[int64]RefCounts) []DuplicateGroup {
	groups := make(map[speciesKey][]model.TaxonomyRecord, len(records))
	for _, r := range records {
		k := speciesKey{genus: r.Genus, species: r.Species}
		groups[k] = append(groups[k], r)
	}

	out := make([]DuplicateGroup, 0)
	for k, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		g := DuplicateGroup{Genus: k.genus, Species: k.species, Members: make([]DuplicateMember, 0, len(members))}
		for _, m := range members {
			g.Members = append(g.Members, DuplicateMember{Record: m, Refs: refs[m.ID]})
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Genus != out[j].Genus {
			return out[i].Genus < out[j].Genus
		}
		return out[i].Species < out[j].Species
	})
	return out
}
