package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-vc-signing/credential/common/cborcodec"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
)

const (
	// DataIntegrityProofType is the only proof type this library emits or accepts.
	DataIntegrityProofType = "DataIntegrityProof"
	// AssertionMethod is the proof purpose used for issued documents.
	AssertionMethod = "assertionMethod"
)

var proofKeys = []string{"type", "created", "cryptosuite", "proofPurpose", "proofValue"}

// Proof represents a Data Integrity proof over a credential or presentation.
// ProofValue holds the raw signature; in JSON it is carried as a base58btc
// multibase string.
type Proof struct {
	Type         string    `json:"type"`
	Created      time.Time `json:"created"`
	Cryptosuite  string    `json:"cryptosuite"`
	ProofPurpose string    `json:"proofPurpose"`
	ProofValue   []byte    `json:"proofValue"`
}

type proofJSON struct {
	Type         string    `json:"type"`
	Created      time.Time `json:"created"`
	Cryptosuite  string    `json:"cryptosuite"`
	ProofPurpose string    `json:"proofPurpose"`
	ProofValue   string    `json:"proofValue"`
}

// proofAlias has Proof's fields without its methods.
type proofAlias Proof

func (p Proof) MarshalJSON() ([]byte, error) {
	value, err := multibase.Encode(multibase.Base58BTC, p.ProofValue)
	if err != nil {
		return nil, fmt.Errorf("failed to encode proof value: %w", err)
	}
	return json.Marshal(proofJSON{
		Type:         p.Type,
		Created:      p.Created.UTC(),
		Cryptosuite:  p.Cryptosuite,
		ProofPurpose: p.ProofPurpose,
		ProofValue:   value,
	})
}

func (p *Proof) UnmarshalJSON(data []byte) error {
	var raw proofJSON
	if err := jsonmap.StrictUnmarshal(data, &raw, proofKeys, proofKeys); err != nil {
		return fmt.Errorf("invalid proof: %w", err)
	}
	_, value, err := multibase.Decode(raw.ProofValue)
	if err != nil {
		return fmt.Errorf("invalid proof value: %w", err)
	}

	*p = Proof{
		Type:         raw.Type,
		Created:      raw.Created.UTC(),
		Cryptosuite:  raw.Cryptosuite,
		ProofPurpose: raw.ProofPurpose,
		ProofValue:   value,
	}
	return nil
}

func (p *Proof) UnmarshalCBOR(data []byte) error {
	var raw proofAlias
	if err := cborcodec.StrictUnmarshal(data, &raw, proofKeys, proofKeys); err != nil {
		return fmt.Errorf("invalid proof: %w", err)
	}
	raw.Created = raw.Created.UTC()
	*p = Proof(raw)
	return nil
}
