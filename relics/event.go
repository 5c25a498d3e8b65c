package relics

import "math/big"

// RelicOperation names the high-level action that produced an event,
// grounded on original_source/src/index/event.rs's RelicOperation enum.
type RelicOperation string

const (
	OpSeal      RelicOperation = "seal"
	OpEnshrine  RelicOperation = "enshrine"
	OpMint      RelicOperation = "mint"
	OpMultiMint RelicOperation = "multi_mint"
	OpUnmint    RelicOperation = "unmint"
	OpSwap      RelicOperation = "swap"
	OpSummon    RelicOperation = "summon"
	OpEncase    RelicOperation = "encase"
	OpRelease   RelicOperation = "release"
	OpClaim     RelicOperation = "claim"
)

// EventKind discriminates EventInfo's variants.
type EventKind string

const (
	EventInscriptionCreated      EventKind = "inscription_created"
	EventInscriptionTransferred  EventKind = "inscription_transferred"
	EventRelicSealed             EventKind = "relic_sealed"
	EventRelicBurned             EventKind = "relic_burned"
	EventRelicEnshrined          EventKind = "relic_enshrined"
	EventRelicMinted             EventKind = "relic_minted"
	EventRelicMultiMinted        EventKind = "relic_multi_minted"
	EventRelicUnminted           EventKind = "relic_unminted"
	EventRelicSpent              EventKind = "relic_spent"
	EventRelicReceived           EventKind = "relic_received"
	EventRelicTransferred        EventKind = "relic_transferred"
	EventRelicSwapped            EventKind = "relic_swapped"
	EventRelicClaimed            EventKind = "relic_claimed"
	EventRelicSubsidyLocked      EventKind = "relic_subsidy_locked"
	EventSyndicateSummoned       EventKind = "syndicate_summoned"
	EventChestEncased            EventKind = "chest_encased"
	EventChestReleased           EventKind = "chest_released"
	EventRelicError              EventKind = "relic_error"
)

// EventInfo is the payload of a single Event, grounded field-for-field
// on event.rs's EventInfo enum. Only the fields relevant to Kind are
// populated; the rest are left at their zero value.
type EventInfo struct {
	Kind EventKind

	// InscriptionCreated / InscriptionTransferred
	InscriptionSequence uint64

	// shared by most Relic* variants
	RelicID RelicID
	Amount  *big.Int
	Output  uint32

	// RelicMinted / RelicMultiMinted
	Price *big.Int
	Count uint8

	// RelicSwapped
	SwapInput        RelicID
	SwapOutput       RelicID
	SwapInputAmount  *big.Int
	SwapOutputAmount *big.Int
	Fee              *big.Int

	// SyndicateSummoned / ChestEncased / ChestReleased
	Syndicate RelicID
	Sequence  uint32

	// RelicError
	Operation RelicOperation
	Err       error
}

// Event is a single emitted occurrence, timestamped by its position in
// the chain (spec §4.9's event stream consumed by the read API and any
// external subscriber).
type Event struct {
	BlockHeight uint64
	EventIndex  uint32
	Txid        [32]byte
	Info        EventInfo
}

// IsRelicHistory reports whether the event belongs in a relic's history
// feed (every Relic* variant except the bookkeeping-only SubsidyLocked
// and RelicError).
func (e *Event) IsRelicHistory() bool {
	switch e.Info.Kind {
	case EventRelicSealed, EventRelicBurned, EventRelicEnshrined, EventRelicMinted,
		EventRelicMultiMinted, EventRelicUnminted, EventRelicSpent, EventRelicReceived,
		EventRelicTransferred, EventRelicSwapped, EventRelicClaimed:
		return true
	default:
		return false
	}
}

// RelicIDOf returns the relic id the event concerns, if any.
func (e *Event) RelicIDOf() (RelicID, bool) {
	switch e.Info.Kind {
	case EventRelicSealed, EventRelicBurned, EventRelicEnshrined, EventRelicMinted,
		EventRelicMultiMinted, EventRelicUnminted, EventRelicSpent, EventRelicReceived,
		EventRelicTransferred, EventRelicClaimed, EventRelicSubsidyLocked:
		return e.Info.RelicID, true
	case EventRelicSwapped:
		return e.Info.SwapOutput, true
	default:
		return RelicID{}, false
	}
}

// EventEmitter accumulates the events of every transaction in one
// block and assigns each one its block-relative sequence number,
// grounded on event.rs's EventEmitter.
type EventEmitter struct {
	blockHeight        uint64
	eventIndex         uint32
	events             []Event
	byRelicID          map[RelicID][]int
	byTxid             map[[32]byte][]int
}

// NewEventEmitter starts an emitter for the block at height.
func NewEventEmitter(blockHeight uint64) *EventEmitter {
	return &EventEmitter{
		blockHeight: blockHeight,
		byRelicID:   make(map[RelicID][]int),
		byTxid:      make(map[[32]byte][]int),
	}
}

// Emit records info as having occurred in txid, assigning it the next
// event index in this block.
func (e *EventEmitter) Emit(txid [32]byte, info EventInfo) Event {
	ev := Event{BlockHeight: e.blockHeight, EventIndex: e.eventIndex, Txid: txid, Info: info}
	e.eventIndex++
	idx := len(e.events)
	e.events = append(e.events, ev)
	if id, ok := ev.RelicIDOf(); ok {
		e.byRelicID[id] = append(e.byRelicID[id], idx)
	}
	e.byTxid[txid] = append(e.byTxid[txid], idx)
	return ev
}

// Events returns every event emitted so far, in emission order.
func (e *EventEmitter) Events() []Event {
	return e.events
}

// ForRelic returns every event concerning id, in emission order.
func (e *EventEmitter) ForRelic(id RelicID) []Event {
	idxs := e.byRelicID[id]
	out := make([]Event, len(idxs))
	for i, idx := range idxs {
		out[i] = e.events[idx]
	}
	return out
}

// ForTxid returns every event emitted while processing txid.
func (e *EventEmitter) ForTxid(txid [32]byte) []Event {
	idxs := e.byTxid[txid]
	out := make([]Event, len(idxs))
	for i, idx := range idxs {
		out[i] = e.events[idx]
	}
	return out
}
