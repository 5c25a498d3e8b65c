package relics

// Flag is a single bit in the Keepsake flags bitmap (tag Flags). Bit
// positions are assigned in the order spec.md §4.2 enumerates them; the
// upstream Rust source's flag.rs was not recovered from the retrieval
// pack (original_source/_INDEX.md omits it), so this ordering is this
// port's own assignment rather than a literal port. Round-trip
// self-consistency (encode then decode yields the same flags) is what
// matters for correctness, not matching an unrecoverable bit layout.
type Flag uint16

const (
	FlagSealing Flag = 1 << iota
	FlagEnshrining
	FlagMintTerms
	FlagBoostTerms
	FlagSwap
	FlagSwapExactInput
	FlagSummoning
	FlagGated
	FlagLockSubsidy
	FlagRelease
	FlagTurbo
	FlagMultiMint
	FlagMultiUnmint
	FlagManifest
	FlagCenotaph
)

// knownFlagMask is the union of every flag bit this port recognizes; any
// bit outside it set in a decoded message is UnrecognizedFlag.
const knownFlagMask = FlagSealing | FlagEnshrining | FlagMintTerms | FlagBoostTerms |
	FlagSwap | FlagSwapExactInput | FlagSummoning | FlagGated | FlagLockSubsidy |
	FlagRelease | FlagTurbo | FlagMultiMint | FlagMultiUnmint | FlagManifest | FlagCenotaph

// Flags is the decoded flags bitmap with convenience accessors.
type Flags uint16

func (f Flags) Has(flag Flag) bool { return Flags(flag)&f != 0 }

func (f *Flags) Set(flag Flag)   { *f |= Flags(flag) }
func (f *Flags) Clear(flag Flag) { *f &^= Flags(flag) }

// Unrecognized reports whether any bit outside knownFlagMask is set.
func (f Flags) Unrecognized() bool {
	return uint16(f)&^uint16(knownFlagMask) != 0
}
