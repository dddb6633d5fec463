package enums

import "fmt"

// OrderType distinguishes online pickup orders from in-store sales.
type OrderType string

const (
	OrderTypeBOPIS   OrderType = "BOPIS"
	OrderTypePOSSale OrderType = "POS_SALE"
)

var validOrderTypes = []OrderType{
	OrderTypeBOPIS,
	OrderTypePOSSale,
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
