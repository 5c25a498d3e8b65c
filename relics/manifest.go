package relics

// ManifestUnsupported is returned by anything that would otherwise act
// on a Keepsake's Manifest flag. The manifest mechanism batches a large
// set of enshrinings/mints from a single reveal using an out-of-band
// document whose format spec.md leaves undefined (open question,
// resolved in SPEC_FULL.md §9: decode the flag and flaw-reject any
// attempt to act on it rather than guessing a document schema).
var ManifestUnsupported = relicErr(ErrManifestUnsupported)
