package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCareEventType     = errors.New("invalid care event type")
	ErrInvalidPropagationStatus = errors.New("invalid propagation status")
	ErrInvalidPropagationSource = errors.New("invalid propagation source")
	ErrInvalidStatusTransition  = errors.New("invalid propagation status transition")
)

type CareEventType string

const (
	CareFertilizer CareEventType = "fertilizer"
	CareWater      CareEventType = "water"
	CareRepot      CareEventType = "repot"
	CarePrune      CareEventType = "prune"
	CareInspect    CareEventType = "inspect"
	CareOther      CareEventType = "other"
)

var careEventTypes = []CareEventType{CareFertilizer, CareWater, CareRepot, CarePrune, CareInspect, CareOther}

func ParseCareEventType(s string) (CareEventType, error) {
	v := CareEventType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range careEventTypes {
		if v == t {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrInvalidCareEventType, s)
}

// PropagationStatus values are ordered; a propagation only ever moves forward.
type PropagationStatus string

const (
	StatusStarted     PropagationStatus = "started"
	StatusRooting     PropagationStatus = "rooting"
	StatusPlanted     PropagationStatus = "planted"
	StatusEstablished PropagationStatus = "established"
)

var statusOrder = map[PropagationStatus]int{
	StatusStarted:     0,
	StatusRooting:     1,
	StatusPlanted:     2,
	StatusEstablished: 3,
}

func ParsePropagationStatus(s string) (PropagationStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "ready" {
		return StatusPlanted, nil
	}
	status := PropagationStatus(v)
	if _, ok := statusOrder[status]; !ok {
		return "", fmt.Errorf("%w %q", ErrInvalidPropagationStatus, s)
	}
	return status, nil
}

func (s PropagationStatus) Terminal() bool {
	return s == StatusEstablished
}

// CanAdvanceTo reports whether next is strictly later in the status sequence.
func (s PropagationStatus) CanAdvanceTo(next PropagationStatus) bool {
	cur, ok := statusOrder[s]
	if !ok {
		return false
	}
	n, ok := statusOrder[next]
	if !ok {
		return false
	}
	return n > cur
}

type PropagationSource string

const (
	SourceInternal PropagationSource = "internal"
	SourceExternal PropagationSource = "external"
)

type ExternalSource string

const (
	ExternalGift     ExternalSource = "gift"
	ExternalTrade    ExternalSource = "trade"
	ExternalPurchase ExternalSource = "purchase"
	ExternalOther    ExternalSource = "other"
)

// ParsePropagationSource validates a source classification. External sources
// must name one of gift, trade, purchase or other; internal ones must not.
func ParsePropagationSource(source, external string) (PropagationSource, ExternalSource, error) {
	src := PropagationSource(strings.ToLower(strings.TrimSpace(source)))
	ext := ExternalSource(strings.ToLower(strings.TrimSpace(external)))
	switch src {
	case "", SourceInternal:
		if ext != "" {
			return "", "", fmt.Errorf("%w: internal propagations have no external source", ErrInvalidPropagationSource)
		}
		return SourceInternal, "", nil
	case SourceExternal:
		switch ext {
		case ExternalGift, ExternalTrade, ExternalPurchase, ExternalOther:
			return src, ext, nil
		default:
			return "", "", fmt.Errorf("%w: external source must be gift, trade, purchase, or other (got %q)", ErrInvalidPropagationSource, external)
		}
	default:
		return "", "", fmt.Errorf("%w %q", ErrInvalidPropagationSource, source)
	}
}
