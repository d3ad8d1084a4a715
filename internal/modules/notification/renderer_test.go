package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Subjects(t *testing.T) {
	r := NewRenderer()
	cases := map[Kind]string{
		KindCustomer: "Order ORD-1 - Order Confirmed",
		KindVendor:   "New Order ORD-1 - Action Required",
		KindAdmin:    "Order ORD-1 - Status Changed to CONFIRMED",
	}
	for kind, want := range cases {
		msg, err := r.Render(testJob(kind, "to@example.com"))
		require.NoError(t, err, kind)
		assert.Equal(t, want, msg.Subject)
		assert.Equal(t, "to@example.com", msg.To)
	}
}

func TestRenderer_Bodies(t *testing.T) {
	r := NewRenderer()

	msg, err := r.Render(testJob(KindCustomer, "ada@example.com"))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Hi Ada,")
	assert.Contains(t, msg.Body, "1 x mug from Clay Co @ 12.00")
	assert.Contains(t, msg.Body, "Total: 12.00")

	msg, err = r.Render(testJob(KindAdmin, "admin@crafty.local"))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "PENDING -> CONFIRMED")
	assert.Contains(t, msg.Body, "Ada <ada@example.com>")
}

func TestRenderer_Rejects(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render(testJob(Kind("fax"), "ada@example.com"))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.Render(testJob(KindCustomer, " "))
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "On the Way", statusMessage("SHIPPED"))
	assert.Equal(t, "LOST", statusMessage("LOST"))
}
