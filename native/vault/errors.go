package vault

import cerrs "zusdchain/core/errors"

var (
	ErrNilState                    = cerrs.New(cerrs.KindValidation, "vault: state not configured")
	ErrInvalidAmount               = cerrs.New(cerrs.KindValidation, "vault: amount must be positive")
	ErrZeroDebtNotAllowed          = cerrs.New(cerrs.KindValidation, "vault: trove debt must be positive")
	ErrTroveNotFound               = cerrs.New(cerrs.KindValidation, "vault: trove not found")
	ErrTroveExists                 = cerrs.New(cerrs.KindValidation, "vault: trove already open")
	ErrNothingToRedeem             = cerrs.New(cerrs.KindValidation, "vault: nothing to redeem")
	ErrEmptyBatch                  = cerrs.New(cerrs.KindValidation, "vault: empty trove batch")
	ErrDuplicateTrove              = cerrs.New(cerrs.KindValidation, "vault: duplicate trove in batch")
	ErrUnauthorized                = cerrs.New(cerrs.KindAuthorization, "vault: caller is not the trove owner")
	ErrInvalidNeighborHint         = cerrs.New(cerrs.KindConsistency, "vault: neighbor hints do not bracket trove ratio")
	ErrInvalidRedemptionOrder      = cerrs.New(cerrs.KindConsistency, "vault: redemption list not ordered by ascending collateral ratio")
	ErrDenomMismatch               = cerrs.New(cerrs.KindConsistency, "vault: trove collateral denom does not match declared denom")
	ErrBelowMinimumCollateralRatio = cerrs.New(cerrs.KindSolvency, "vault: collateral ratio below minimum")
	ErrTroveNotLiquidatable        = cerrs.New(cerrs.KindSolvency, "vault: trove not eligible for liquidation")
	ErrNoRedistributionTarget      = cerrs.New(cerrs.KindSolvency, "vault: no open troves to absorb redistributed debt")
	ErrInsufficientVaultBalance    = cerrs.New(cerrs.KindResource, "vault: insufficient vault balance")
)
