package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeliveryStatus_Ordering(t *testing.T) {
	req := require.New(t)

	// The lifecycle only moves forward; the numeric order encodes it.
	req.True(StatusSent < StatusDelivered)
	req.True(StatusDelivered < StatusSeen)
}

func TestParseDeliveryStatus(t *testing.T) {
	req := require.New(t)

	for _, status := range []DeliveryStatus{StatusSent, StatusDelivered, StatusSeen} {
		parsed, err := ParseDeliveryStatus(status.String())
		req.NoError(err)
		req.Equal(status, parsed)
	}

	_, err := ParseDeliveryStatus("read")
	req.Error(err)
}
