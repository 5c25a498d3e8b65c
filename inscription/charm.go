package inscription

// Charm is a bitfield of notable properties attached to an inscription
// at creation time. original_source/src/charm.rs itself was not part
// of the retrieval pack (only its call sites in entry.rs/index.rs and
// the relic updater survived), so this port defines its own bit
// assignment; only Burned is consulted by the relic updater's
// base-token synthetic mint (spec §4.5 step 1), the rest round-trip
// for display purposes only.
type Charm uint16

const (
	CharmCoin Charm = 1 << iota
	CharmCursed
	CharmEpic
	CharmLegendary
	CharmLost
	CharmNineball
	CharmRare
	CharmReinscription
	CharmUnbound
	CharmUncommon
	CharmVindicated
	// CharmBurned marks an inscription whose final resting output spent
	// to a covenant with no spendable owner (CORE_ANCHOR), the signal
	// the relic updater's base-token synthetic mint watches for.
	CharmBurned
)

func (c Charm) Set(flag Charm) Charm   { return c | flag }
func (c Charm) Has(flag Charm) bool    { return c&flag != 0 }
func (c Charm) Clear(flag Charm) Charm { return c &^ flag }
