package relics

import (
	"fmt"
	"math/big"
)

// varintErrorCode mirrors consensus.ErrorCode's string-constant pattern.
type varintErrorCode string

const (
	varintErrUnterminated varintErrorCode = "RELIC_ERR_VARINT_UNTERMINATED"
	varintErrOverflow     varintErrorCode = "RELIC_ERR_VARINT_OVERFLOW"
	varintErrOverlong     varintErrorCode = "RELIC_ERR_VARINT_OVERLONG"
)

type varintError struct{ code varintErrorCode }

func (e *varintError) Error() string { return string(e.code) }

var (
	ErrVarintUnterminated error = &varintError{varintErrUnterminated}
	ErrVarintOverflow     error = &varintError{varintErrOverflow}
	ErrVarintOverlong     error = &varintError{varintErrOverlong}
)

// RelicError is the typed protocol-error band (spec §7 band 1): these
// never abort the enclosing transaction, they attach to an error event
// and leave balances unchanged.
type RelicError struct {
	Code RelicErrorCode
	// Detail carries the variant's payload, e.g. the offending cap or
	// price for MintCap/MintInsufficientBalance.
	Detail *big.Int
}

type RelicErrorCode string

const (
	ErrUnmintable                 RelicErrorCode = "unmintable"
	ErrMintCap                    RelicErrorCode = "mint-cap"
	ErrMintInsufficientBalance    RelicErrorCode = "mint-insufficient-balance"
	ErrMintBlockCapExceeded       RelicErrorCode = "mint-block-cap-exceeded"
	ErrMaxMintPerTxExceeded       RelicErrorCode = "max-mint-per-tx-exceeded"
	ErrMintBaseLimitExceeded      RelicErrorCode = "mint-base-limit-exceeded"
	ErrUnmintNotAllowed           RelicErrorCode = "unmint-not-allowed"
	ErrNoMintsToUnmint            RelicErrorCode = "no-mints-to-unmint"
	ErrUnmintInsufficientBalance  RelicErrorCode = "unmint-insufficient-balance"
	ErrSwapNotAvailable           RelicErrorCode = "swap-not-available"
	ErrSwapHeightNotReached       RelicErrorCode = "swap-height-not-reached"
	ErrSwapFailed                 RelicErrorCode = "swap-failed"
	ErrSwapInsufficientBalance    RelicErrorCode = "swap-insufficient-balance"
	ErrSealingAlreadyExists       RelicErrorCode = "sealing-already-exists"
	ErrSealingInsufficientBalance RelicErrorCode = "sealing-insufficient-balance"
	ErrSealingBaseToken           RelicErrorCode = "sealing-base-token"
	ErrSealingNotFound            RelicErrorCode = "sealing-not-found"
	ErrInscriptionMissing         RelicErrorCode = "inscription-missing"
	ErrInscriptionMetadataMissing RelicErrorCode = "inscription-metadata-missing"
	ErrInvalidMetadata            RelicErrorCode = "invalid-metadata"
	ErrRelicAlreadyEnshrined      RelicErrorCode = "relic-already-enshrined"
	ErrRelicNotFound              RelicErrorCode = "relic-not-found"
	ErrRelicOwnerOnly             RelicErrorCode = "relic-owner-only"
	ErrRelicSubsidyLocked         RelicErrorCode = "relic-subsidy-locked"
	ErrSyndicateStart             RelicErrorCode = "syndicate-start"
	ErrSyndicateEnd               RelicErrorCode = "syndicate-end"
	ErrSyndicateCap               RelicErrorCode = "syndicate-cap"
	ErrSyndicateIsGated           RelicErrorCode = "syndicate-is-gated"
	ErrSyndicateNotFound          RelicErrorCode = "syndicate-not-found"
	ErrChestInsufficientBalance   RelicErrorCode = "chest-insufficient-balance"
	ErrChestNotFound              RelicErrorCode = "chest-not-found"
	ErrChestLocked                RelicErrorCode = "chest-locked"
	ErrNoClaimableBalance         RelicErrorCode = "no-claimable-balance"
	ErrPriceComputationError      RelicErrorCode = "price-computation-error"
	ErrManifestUnsupported        RelicErrorCode = "manifest-unsupported"
	ErrInvalidEnshrining          RelicErrorCode = "invalid-enshrining"
	ErrInvalidSwap                RelicErrorCode = "invalid-swap"
	ErrInsufficientLiquidity      RelicErrorCode = "insufficient-liquidity"
	ErrSlippage                   RelicErrorCode = "slippage"
)

func (e *RelicError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail != nil {
		return fmt.Sprintf("%s(%s)", e.Code, e.Detail.String())
	}
	return string(e.Code)
}

func relicErr(code RelicErrorCode) error {
	return &RelicError{Code: code}
}

func relicErrDetail(code RelicErrorCode, detail *big.Int) error {
	return &RelicError{Code: code, Detail: detail}
}

func relicErrU64(code RelicErrorCode, detail uint64) error {
	return &RelicError{Code: code, Detail: new(big.Int).SetUint64(detail)}
}
