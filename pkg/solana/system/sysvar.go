package system

import (
	"github.com/code-payments/launchpad-server/pkg/solana"
)

// RentSysVar points to the system variable "Rent"
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
var RentSysVar = solana.MustParsePublicKey("SysvarRent111111111111111111111111111111111")
