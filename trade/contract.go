package trade

import (
	"fmt"
	"time"
)

const (
	// DefaultMinLockTime is the shortest refund delay accepted by default.
	DefaultMinLockTime = 23 * time.Hour
	// DefaultMaxLockTime is the longest refund delay accepted by default.
	DefaultMaxLockTime = 25 * time.Hour
)

// ScriptKind selects the locking-script strategy used for a trade.
type ScriptKind uint8

const (
	// ScriptCooperative guards funds with a secret claim path and a
	// refund path that needs both parties' signatures.
	ScriptCooperative ScriptKind = iota
	// ScriptTimeLocked replaces the cooperative refund with a unilateral
	// refund that only becomes valid after the lock time (CHECKLOCKTIMEVERIFY).
	ScriptTimeLocked
)

func (k ScriptKind) String() string {
	switch k {
	case ScriptCooperative:
		return "cooperative"
	case ScriptTimeLocked:
		return "timelocked"
	default:
		return fmt.Sprintf("ScriptKind(%d)", uint8(k))
	}
}

// ParseScriptKind parses the String form of a ScriptKind.
func ParseScriptKind(s string) (ScriptKind, error) {
	switch s {
	case "cooperative", "":
		return ScriptCooperative, nil
	case "timelocked":
		return ScriptTimeLocked, nil
	}
	return 0, fmt.Errorf("%w: unknown script kind %q", ErrInvalidContract, s)
}

// Contract is the negotiated policy for a trade: the acceptable refund
// delay window and the script strategy both parties derive scripts with.
type Contract struct {
	MinLockTime time.Duration
	MaxLockTime time.Duration
	Script      ScriptKind
}

// DefaultContract returns the 23h/25h cooperative contract.
func DefaultContract() Contract {
	return Contract{
		MinLockTime: DefaultMinLockTime,
		MaxLockTime: DefaultMaxLockTime,
		Script:      ScriptCooperative,
	}
}

// NewContract returns a validated Contract.
func NewContract(minLockTime, maxLockTime time.Duration, kind ScriptKind) (Contract, error) {
	c := Contract{MinLockTime: minLockTime, MaxLockTime: maxLockTime, Script: kind}
	if err := c.Validate(); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// Validate checks that 0 < MinLockTime < MaxLockTime and the script kind is known.
func (c Contract) Validate() error {
	if c.MinLockTime <= 0 {
		return fmt.Errorf("%w: min lock time must be positive, got %s", ErrInvalidContract, c.MinLockTime)
	}
	if c.MinLockTime >= c.MaxLockTime {
		return fmt.Errorf("%w: min lock time %s must be below max lock time %s",
			ErrInvalidContract, c.MinLockTime, c.MaxLockTime)
	}
	if c.Script > ScriptTimeLocked {
		return fmt.Errorf("%w: unknown script kind %d", ErrInvalidContract, c.Script)
	}
	return nil
}

// CheckLockTime accepts lockTime iff it lies between MinLockTime and
// MaxLockTime after now, bounds inclusive.
func (c Contract) CheckLockTime(lockTime, now time.Time) error {
	delay := lockTime.Sub(now)
	if delay < c.MinLockTime || delay > c.MaxLockTime {
		return fmt.Errorf("%w: delay %s not in [%s, %s]",
			ErrLockTimeOutOfRange, delay.Round(time.Second), c.MinLockTime, c.MaxLockTime)
	}
	return nil
}
