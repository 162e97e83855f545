package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ApprovalRequest describes what the user is asked to sign.
type ApprovalRequest struct {
	// Kind is either "transaction" or "message".
	Kind    string
	Summary string
}

// Approver decides whether the wallet may sign a request on the user's behalf.
type Approver interface {
	Approve(ctx context.Context, req *ApprovalRequest) (bool, error)
}

type autoApprover struct{}

// NewAutoApprover approves every request.
func NewAutoApprover() Approver {
	return autoApprover{}
}

func (autoApprover) Approve(_ context.Context, _ *ApprovalRequest) (bool, error) {
	return true, nil
}

type denyingApprover struct{}

// NewDenyingApprover declines every request.
func NewDenyingApprover() Approver {
	return denyingApprover{}
}

func (denyingApprover) Approve(_ context.Context, _ *ApprovalRequest) (bool, error) {
	return false, nil
}

type promptApprover struct {
	sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPromptApprover asks the user on out and reads a y/N answer from in.
func NewPromptApprover(in io.Reader, out io.Writer) Approver {
	return &promptApprover{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (p *promptApprover) Approve(ctx context.Context, req *ApprovalRequest) (bool, error) {
	p.Lock()
	defer p.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	if _, err := fmt.Fprintf(p.out, "Sign %s?\n%s\nApprove [y/N]: ", req.Kind, req.Summary); err != nil {
		return false, errors.Wrap(err, "error writing prompt")
	}

	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, "error reading answer")
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
