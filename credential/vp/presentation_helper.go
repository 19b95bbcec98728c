package vp

import (
	"encoding/json"
	"fmt"

	"github.com/pilacorp/go-vc-signing/credential/common/cborcodec"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
)

var (
	presentationKeys         = []string{"id", "type", "verifiableCredential", "holder", "proof"}
	requiredPresentationKeys = []string{"type", "verifiableCredential"}
)

type presentationAlias Presentation

func (p Presentation) MarshalJSON() ([]byte, error) {
	return json.Marshal(presentationAlias(p.normalize()))
}

func (p *Presentation) UnmarshalJSON(data []byte) error {
	var alias presentationAlias
	if err := jsonmap.StrictUnmarshal(data, &alias, presentationKeys, requiredPresentationKeys); err != nil {
		return fmt.Errorf("invalid presentation: %w", err)
	}
	return p.accept(Presentation(alias))
}

func (p Presentation) MarshalCBOR() ([]byte, error) {
	return cborcodec.Marshal(presentationAlias(p.normalize()))
}

func (p *Presentation) UnmarshalCBOR(data []byte) error {
	var alias presentationAlias
	if err := cborcodec.StrictUnmarshal(data, &alias, presentationKeys, requiredPresentationKeys); err != nil {
		return fmt.Errorf("invalid presentation: %w", err)
	}
	return p.accept(Presentation(alias))
}

func (p *Presentation) accept(decoded Presentation) error {
	decoded = decoded.normalize()
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("invalid presentation: %w", err)
	}
	*p = decoded
	return nil
}

func (p Presentation) normalize() Presentation {
	if p.Proof != nil {
		proof := *p.Proof
		proof.Created = proof.Created.UTC()
		p.Proof = &proof
	}
	return p
}
