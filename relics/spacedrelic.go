package relics

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v2"
)

// SpacedRelic pairs a Relic with a spacer bitmap: bit i means "insert a
// middle dot before letter i+1" for display only; spacers never change
// identity. Grounded on original_source/src/relics/spaced_relic.rs.
type SpacedRelic struct {
	Relic   Relic
	Spacers uint32
}

// metadataKey is the CBOR/YAML inscription-metadata map key carrying a
// sealing ticker, matching spaced_relic.rs's METADATA_KEY.
const metadataKey = "BONE"

func (s SpacedRelic) String() string {
	name := s.Relic.String()
	var b strings.Builder
	for i, c := range []byte(name) {
		b.WriteByte(c)
		if i < len(name)-1 && s.Spacers&(1<<uint(i)) != 0 {
			b.WriteString("•")
		}
	}
	return b.String()
}

// ParseSpacedRelic parses the "A•BC" display form, rejecting leading,
// trailing, and doubled spacers.
func ParseSpacedRelic(s string) (SpacedRelic, error) {
	var letters strings.Builder
	var spacers uint32
	for _, r := range s {
		switch {
		case r == '.' || r == '•':
			i := letters.Len()
			if i == 0 {
				return SpacedRelic{}, fmt.Errorf("relics: leading spacer")
			}
			flag := uint32(1) << uint(i-1)
			if spacers&flag != 0 {
				return SpacedRelic{}, fmt.Errorf("relics: double spacer")
			}
			spacers |= flag
		case r >= 'A' && r <= 'Z':
			letters.WriteRune(r)
		default:
			return SpacedRelic{}, fmt.Errorf("relics: invalid character %q", r)
		}
	}
	if letters.Len() == 0 {
		return SpacedRelic{}, fmt.Errorf("relics: empty relic name")
	}
	if spacers&(uint32(1)<<uint(letters.Len()-1)) != 0 {
		return SpacedRelic{}, fmt.Errorf("relics: trailing spacer")
	}
	relic, err := ParseRelic(letters.String())
	if err != nil {
		return SpacedRelic{}, err
	}
	return SpacedRelic{Relic: relic, Spacers: spacers}, nil
}

// metadataDoc is the YAML document shape component T (manifest metadata)
// round-trips through, matching spaced_relic.rs's to_metadata_yaml.
type metadataDoc struct {
	Bone string `yaml:"BONE"`
}

// ToMetadataYAML renders the spaced relic as the YAML document an
// inscription's sealing metadata carries under the "BONE" key.
func (s SpacedRelic) ToMetadataYAML() ([]byte, error) {
	return yaml.Marshal(metadataDoc{Bone: s.String()})
}

// FromMetadataYAML extracts a sealing ticker from inscription metadata
// previously produced by ToMetadataYAML.
func FromMetadataYAML(doc []byte) (SpacedRelic, bool, error) {
	var m metadataDoc
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return SpacedRelic{}, false, err
	}
	if m.Bone == "" {
		return SpacedRelic{}, false, nil
	}
	sr, err := ParseSpacedRelic(m.Bone)
	if err != nil {
		return SpacedRelic{}, false, err
	}
	return sr, true, nil
}

// FromMetadataCBOR extracts a sealing ticker from an inscription's raw
// CBOR metadata bytes, the actual on-chain encoding (spec §4.3/§4.5
// step 2). The metadata is a CBOR map; a missing or malformed "BONE"
// entry is reported as ok=false, not an error, since most inscriptions
// carry no sealing metadata at all.
func FromMetadataCBOR(raw []byte) (SpacedRelic, bool) {
	var m map[string]string
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return SpacedRelic{}, false
	}
	ticker, ok := m[metadataKey]
	if !ok {
		return SpacedRelic{}, false
	}
	sr, err := ParseSpacedRelic(ticker)
	if err != nil {
		return SpacedRelic{}, false
	}
	return sr, true
}

// ToMetadataCBOR renders the spaced relic as the CBOR map an
// inscription's sealing metadata carries on-chain under the "BONE" key.
func (s SpacedRelic) ToMetadataCBOR() ([]byte, error) {
	return cbor.Marshal(map[string]string{metadataKey: s.String()})
}
