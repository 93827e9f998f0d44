package model

import "time"

type TaxonomyRecord struct {
	ID         int64     `json:"id" yaml:"-"`
	Family     string    `json:"family" yaml:"family"`
	Genus      string    `json:"genus" yaml:"genus"`
	Species    string    `json:"species" yaml:"species"`
	Cultivar   *string   `json:"cultivar,omitempty" yaml:"cultivar,omitempty"`
	CommonName string    `json:"common_name" yaml:"common_name"`
	Verified   bool      `json:"verified" yaml:"verified"`
	OwnerID    string    `json:"owner_id,omitempty" yaml:"-"`
	CreatedAt  time.Time `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"-"`
}

// CultivarName returns the cultivar or "" when the record has none.
func (r TaxonomyRecord) CultivarName() string {
	if r.Cultivar == nil {
		return ""
	}
	return *r.Cultivar
}

// BinomialName is the synthesized "genus species" field.
func (r TaxonomyRecord) BinomialName() string {
	return r.Genus + " " + r.Species
}

type CareSubject struct {
	ID                 int64      `json:"id"`
	TaxonomyID         int64      `json:"taxonomy_id"`
	OwnerID            string     `json:"owner_id,omitempty"`
	Nickname           string     `json:"nickname"`
	Location           string     `json:"location"`
	FertilizerSchedule string     `json:"fertilizer_schedule"`
	LastFertilized     *time.Time `json:"last_fertilized,omitempty"`
	FertilizerDue      *time.Time `json:"fertilizer_due,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	Active             bool       `json:"active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type CareEvent struct {
	ID             int64         `json:"id"`
	SubjectID      int64         `json:"subject_id"`
	Type           CareEventType `json:"type"`
	PerformedAt    time.Time     `json:"performed_at"`
	FertilizerType string        `json:"fertilizer_type,omitempty"`
	PotSize        string        `json:"pot_size,omitempty"`
	SoilType       string        `json:"soil_type,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

type PropagationRecord struct {
	ID              int64             `json:"id"`
	TaxonomyID      int64             `json:"taxonomy_id"`
	ParentSubjectID *int64            `json:"parent_subject_id,omitempty"`
	OwnerID         string            `json:"owner_id,omitempty"`
	Nickname        string            `json:"nickname"`
	Location        string            `json:"location"`
	Status          PropagationStatus `json:"status"`
	Source          PropagationSource `json:"source"`
	ExternalSource  ExternalSource    `json:"external_source,omitempty"`
	SourceDetails   string            `json:"source_details,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	Notes           string            `json:"notes,omitempty"`
	Active          bool              `json:"active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
