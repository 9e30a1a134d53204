package routing

import "strings"

// CredentialMatch is the outcome of looking for client credentials in a message.
type CredentialMatch int

const (
	// CredentialsAbsent means the message carries neither credential.
	CredentialsAbsent CredentialMatch = iota
	// CredentialsValid means both the client id and the password were found.
	CredentialsValid
	// CredentialsInvalid means only one of the two was found.
	CredentialsInvalid
)

func (m CredentialMatch) String() string {
	switch m {
	case CredentialsValid:
		return "valid"
	case CredentialsInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

// CredentialVerifier inspects raw message text for a credential submission.
type CredentialVerifier interface {
	Verify(text string) CredentialMatch
}

// SharedCredentialVerifier matches a single shared client id/password pair
// anywhere in the message, case-sensitively.
type SharedCredentialVerifier struct {
	ClientID string
	Password string
}

// NewSharedCredentialVerifier returns a verifier for the given pair.
func NewSharedCredentialVerifier(clientID, password string) *SharedCredentialVerifier {
	return &SharedCredentialVerifier{ClientID: clientID, Password: password}
}

// Verify implements CredentialVerifier. An empty literal never matches.
func (v *SharedCredentialVerifier) Verify(text string) CredentialMatch {
	if v == nil {
		return CredentialsAbsent
	}
	hasID := v.ClientID != "" && strings.Contains(text, v.ClientID)
	hasPassword := v.Password != "" && strings.Contains(text, v.Password)
	switch {
	case hasID && hasPassword:
		return CredentialsValid
	case hasID || hasPassword:
		return CredentialsInvalid
	default:
		return CredentialsAbsent
	}
}
