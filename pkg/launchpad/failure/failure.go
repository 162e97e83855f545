// Package failure maps workflow errors onto the categories a user can act on.
package failure

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/launchpad/sizing"
	"github.com/code-payments/launchpad-server/pkg/launchpad/submission"
	"github.com/code-payments/launchpad-server/pkg/launchpad/wallet"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

type Category string

const (
	CategoryValidation            Category = "validation"
	CategorySizing                Category = "sizing"
	CategorySigningDeclined       Category = "signing_declined"
	CategoryRateLimited           Category = "rate_limited"
	CategoryInsufficientFunds     Category = "insufficient_funds"
	CategoryStaleFreshnessBinding Category = "stale_freshness_binding"
	CategoryUnknown               Category = "unknown"
)

// FaucetURL is the public faucet suggested when the ledger's own faucet is
// throttled or the account is unfunded.
const FaucetURL = "https://faucet.solana.com"

var remediations = map[Category]string{
	CategoryValidation:            "Correct the highlighted input and try again.",
	CategorySizing:                "Could not reach the network to size the token account. Please try again in a moment.",
	CategorySigningDeclined:       "The request was declined in the wallet. Nothing was submitted.",
	CategoryRateLimited:           "Rate limited by RPC. Wait 5-10 minutes or try " + FaucetURL,
	CategoryInsufficientFunds:     "Account balance issue. Try " + FaucetURL + " first.",
	CategoryStaleFreshnessBinding: "Network issue. The transaction expired before it was confirmed; please try again.",
	CategoryUnknown:               "The request failed. Try again, or use the official faucet: " + FaucetURL,
}

// Classification describes a failure. Diagnostic is always the raw error
// text.
type Classification struct {
	Category    Category
	Remediation string
	Diagnostic  string
}

func (c *Classification) String() string {
	return string(c.Category) + ": " + c.Diagnostic
}

// Classify categorizes err. Typed errors are matched first, then well known
// phrases in the root cause's text. Wrap context added along the way is never
// matched. A nil error returns nil.
func Classify(err error) *Classification {
	if err == nil {
		return nil
	}

	category := classifyTyped(err)
	if category == CategoryUnknown {
		category = classifyText(rootCause(err).Error())
	}

	return &Classification{
		Category:    category,
		Remediation: remediations[category],
		Diagnostic:  err.Error(),
	}
}

func classifyTyped(err error) Category {
	var validationErr *common.ValidationError
	if errors.As(err, &validationErr) {
		return CategoryValidation
	}

	var sizingErr *sizing.SizingError
	if errors.As(err, &sizingErr) {
		return CategorySizing
	}

	if errors.Is(err, wallet.ErrSigningDeclined) {
		return CategorySigningDeclined
	}

	if errors.Is(err, solana.ErrRateLimited) {
		return CategoryRateLimited
	}
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code == http.StatusTooManyRequests {
		return CategoryRateLimited
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == http.StatusTooManyRequests {
		return CategoryRateLimited
	}

	if errors.Is(err, submission.ErrExpired) || errors.Is(err, ledger.ErrBlockHeightExceeded) {
		return CategoryStaleFreshnessBinding
	}

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) {
		switch txErr.ErrorKey() {
		case solana.TransactionErrorBlockhashNotFound:
			return CategoryStaleFreshnessBinding
		case solana.TransactionErrorInsufficientFundsForFee, solana.TransactionErrorInsufficientFundsForRent:
			return CategoryInsufficientFunds
		case solana.TransactionErrorInstructionError:
			if txErr.InstructionError() != nil && txErr.InstructionError().ErrorKey() == solana.InstructionErrorInsufficientFunds {
				return CategoryInsufficientFunds
			}
		}
	}

	return CategoryUnknown
}

// rootCause unwraps err down to the error that the failing collaborator
// returned.
func rootCause(err error) error {
	for {
		cause := errors.Cause(err)
		next := errors.Unwrap(cause)
		if next == nil {
			return cause
		}
		err = next
	}
}

var textPatterns = []struct {
	category Category
	phrases  []string
}{
	{CategoryRateLimited, []string{"429", "rate limit", "too many requests"}},
	{CategoryInsufficientFunds, []string{"insufficient", "balance"}},
	{CategoryStaleFreshnessBinding, []string{"blockhash", "recent", "block height exceeded"}},
}

func classifyText(text string) Category {
	text = strings.ToLower(text)
	for _, pattern := range textPatterns {
		for _, phrase := range pattern.phrases {
			if strings.Contains(text, phrase) {
				return pattern.category
			}
		}
	}
	return CategoryUnknown
}
