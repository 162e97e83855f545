package launchpad

import (
	"fmt"

	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
	"github.com/code-payments/launchpad-server/pkg/launchpad/failure"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

// ValidationError indicates a request was rejected before reaching the ledger.
type ValidationError = common.ValidationError

// WorkflowError is returned by every failed Service operation. It carries the
// failure's classification alongside the original error.
type WorkflowError struct {
	Workflow       string
	WorkflowID     string
	Signature      solana.Signature
	Classification *failure.Classification
	Err            error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Workflow, e.Classification.Category, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}
