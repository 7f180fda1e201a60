package sepadoc

import (
	"fmt"
	"strings"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// DeliveryMode selects how Send handles documents.
type DeliveryMode int

const (
	DeliveryModeUnknown  DeliveryMode = 0
	DeliveryModeDirect   DeliveryMode = 1
	DeliveryModeArchive  DeliveryMode = 2
	deliveryModeSentinel DeliveryMode = 3
)

func (m DeliveryMode) String() string {
	switch m {
	case DeliveryModeUnknown:
		return "unknown"
	case DeliveryModeDirect:
		return "direct"
	case DeliveryModeArchive:
		return "archive"
	default:
		return fmt.Sprintf("DeliveryMode(%d)", m)
	}
}

func (m DeliveryMode) Valid() bool {
	return m > DeliveryModeUnknown && m < deliveryModeSentinel
}

// ParseDeliveryMode parses "direct" or "archive". An empty string selects archive.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "archive":
		return DeliveryModeArchive, nil
	case "direct", "mail":
		return DeliveryModeDirect, nil
	default:
		return DeliveryModeUnknown, errors.Wrap(ErrDeliveryModeInvalid, "", j.MKV{"mode": s})
	}
}
