package enums

import "fmt"

// SenderType identifies which side of a conversation authored a message.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderVendor   SenderType = "vendor"
)

var validSenderTypes = []SenderType{
	SenderCustomer,
	SenderVendor,
}

// String implements fmt.Stringer.
func (s SenderType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SenderType.
func (s SenderType) IsValid() bool {
	for _, candidate := range validSenderTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant role.
func (s SenderType) Counterpart() SenderType {
	if s == SenderCustomer {
		return SenderVendor
	}
	return SenderCustomer
}

// ParseSenderType converts raw input into a SenderType.
func ParseSenderType(value string) (SenderType, error) {
	for _, candidate := range validSenderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sender type %q", value)
}
