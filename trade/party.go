package trade

// Party selects one of the two roles in a trade.
type Party uint8

const (
	// Lead originates the secret and commits its public key at creation.
	Lead Party = iota
	// Other learns the secret hash from the lead and supplies its key during negotiation.
	Other
)

// Parties lists both roles in index order.
var Parties = [2]Party{Lead, Other}

// Opposite returns the counterparty role.
func (p Party) Opposite() Party {
	if p == Lead {
		return Other
	}
	return Lead
}

// Valid reports whether p is Lead or Other.
func (p Party) Valid() bool {
	return p == Lead || p == Other
}

func (p Party) String() string {
	switch p {
	case Lead:
		return "lead"
	case Other:
		return "other"
	default:
		return "invalid"
	}
}

// ParseParty parses the String form of a Party.
func ParseParty(s string) (Party, error) {
	switch s {
	case "lead":
		return Lead, nil
	case "other":
		return Other, nil
	}
	return 0, ErrInvalidParty
}
