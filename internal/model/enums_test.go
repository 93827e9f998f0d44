package model

import (
	"errors"
	"testing"
)

func TestParseCareEventType(t *testing.T) {
	t.Parallel()
	got, err := ParseCareEventType(" Fertilizer ")
	if err != nil {
		t.Fatalf("parse fertilizer: %v", err)
	}
	if got != CareFertilizer {
		t.Fatalf("expected fertilizer, got %q", got)
	}
	if _, err := ParseCareEventType("mist"); !errors.Is(err, ErrInvalidCareEventType) {
		t.Fatalf("expected ErrInvalidCareEventType, got %v", err)
	}
}

func TestPropagationStatusOnlyAdvancesForward(t *testing.T) {
	t.Parallel()
	if !StatusStarted.CanAdvanceTo(StatusRooting) {
		t.Fatalf("started -> rooting should be allowed")
	}
	if !StatusStarted.CanAdvanceTo(StatusEstablished) {
		t.Fatalf("skipping ahead should be allowed")
	}
	if StatusPlanted.CanAdvanceTo(StatusRooting) {
		t.Fatalf("planted -> rooting should be rejected")
	}
	if StatusEstablished.CanAdvanceTo(StatusEstablished) {
		t.Fatalf("established is terminal")
	}
	if !StatusEstablished.Terminal() {
		t.Fatalf("expected established to be terminal")
	}
}

func TestParsePropagationStatusAcceptsReadyAlias(t *testing.T) {
	t.Parallel()
	got, err := ParsePropagationStatus("READY")
	if err != nil {
		t.Fatalf("parse ready: %v", err)
	}
	if got != StatusPlanted {
		t.Fatalf("expected ready to map to planted, got %q", got)
	}
	if _, err := ParsePropagationStatus("sprouted"); !errors.Is(err, ErrInvalidPropagationStatus) {
		t.Fatalf("expected ErrInvalidPropagationStatus, got %v", err)
	}
}

func TestParsePropagationSource(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		source   string
		external string
		wantSrc  PropagationSource
		wantExt  ExternalSource
		wantErr  bool
	}{
		{name: "default internal", wantSrc: SourceInternal},
		{name: "explicit internal", source: "internal", wantSrc: SourceInternal},
		{name: "internal with external kind", source: "internal", external: "gift", wantErr: true},
		{name: "external gift", source: "external", external: "Gift", wantSrc: SourceExternal, wantExt: ExternalGift},
		{name: "external missing kind", source: "external", wantErr: true},
		{name: "external unknown kind", source: "external", external: "stolen", wantErr: true},
		{name: "unknown source", source: "nursery", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, ext, err := ParsePropagationSource(tt.source, tt.external)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPropagationSource) {
					t.Fatalf("expected ErrInvalidPropagationSource, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src != tt.wantSrc || ext != tt.wantExt {
				t.Fatalf("got (%q, %q), want (%q, %q)", src, ext, tt.wantSrc, tt.wantExt)
			}
		})
	}
}
