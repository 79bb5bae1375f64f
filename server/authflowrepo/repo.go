package authflowrepo

import (
	"errors"
	"time"
)

var (
	ErrPortInUse     = errors.New("port already has an active authorization flow")
	ErrStateNotFound = errors.New("state not found")
)

// AuthFlowState records one in-progress authorization attempt.
type AuthFlowState struct {
	SessionID   string
	Port        int
	RedirectURI string
	Scope       string
	CreatedAt   time.Time
}

// Repo tracks in-progress authorization flows keyed by their state parameter.
// At most one flow may be registered per port.
type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
	Active() int
}
