package launchpad

import (
	"sync"
	"time"
)

// CreatedToken is a token created during this process' lifetime. The list is
// for display only and isn't persisted.
type CreatedToken struct {
	Mint              string
	AssociatedAccount string
	Signature         string
	Name              string
	Symbol            string
	Decimals          uint8
	Supply            uint64
	ExplorerURL       string
	CreatedAt         time.Time
}

type tokenList struct {
	sync.RWMutex
	limit  int
	tokens []CreatedToken
}

func newTokenList(limit int) *tokenList {
	return &tokenList{limit: limit}
}

func (l *tokenList) add(token CreatedToken) {
	l.Lock()
	defer l.Unlock()

	l.tokens = append([]CreatedToken{token}, l.tokens...)
	if l.limit > 0 && len(l.tokens) > l.limit {
		l.tokens = l.tokens[:l.limit]
	}
}

// list returns the tokens newest first.
func (l *tokenList) list() []CreatedToken {
	l.RLock()
	defer l.RUnlock()
	return append([]CreatedToken{}, l.tokens...)
}
