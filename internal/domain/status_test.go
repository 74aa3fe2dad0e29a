package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable_CoversEveryStatus(t *testing.T) {
	for _, s := range Statuses() {
		_, ok := transitions[s]
		assert.True(t, ok, "status %q has no transition entry", s)
	}
	assert.Len(t, transitions, len(Statuses()))
}

func TestAttemptTransition_AllPairs(t *testing.T) {
	legal := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusPreparing}:        true,
		{OrderStatusPending, OrderStatusCancelled}:        true,
		{OrderStatusPreparing, OrderStatusOutForDelivery}: true,
		{OrderStatusPreparing, OrderStatusCancelled}:      true,
		{OrderStatusOutForDelivery, OrderStatusDelivered}: true,
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			got, err := AttemptTransition(from, to)
			if legal[[2]OrderStatus{from, to}] {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, got)
				continue
			}

			require.Error(t, err, "%s -> %s", from, to)
			assert.ErrorIs(t, err, ErrIllegalTransition)

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, from, te.Current)
			assert.Equal(t, to, te.Requested)
			assert.Equal(t, from.AllowedTransitions(), te.Allowed)
		}
	}
}

func TestAttemptTransition_NoSelfLoops(t *testing.T) {
	for _, s := range Statuses() {
		_, err := AttemptTransition(s, s)
		assert.ErrorIs(t, err, ErrIllegalTransition, "self transition allowed for %s", s)
	}
}

func TestAttemptTransition_TerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		assert.True(t, terminal.IsTerminal())
		for _, to := range Statuses() {
			_, err := AttemptTransition(terminal, to)
			assert.Error(t, err, "%s -> %s", terminal, to)
		}
		_, err := AttemptTransition(terminal, "bogus")
		assert.Error(t, err)
	}
}

func TestAttemptTransition_NoSkipping(t *testing.T) {
	next, err := AttemptTransition(OrderStatusPending, OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPreparing, next)

	_, err = AttemptTransition(OrderStatusPending, OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestAttemptTransition_UnknownRequestedStatus(t *testing.T) {
	_, err := AttemptTransition(OrderStatusPending, "em preparação")
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.NotErrorIs(t, err, ErrIllegalTransition)

	_, err = AttemptTransition(OrderStatusPending, "")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestAttemptTransition_UnknownCurrentStatus(t *testing.T) {
	_, err := AttemptTransition("PENDENTE", OrderStatusPreparing)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Empty(t, te.Allowed)
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	allowed := OrderStatusPending.AllowedTransitions()
	allowed[0] = OrderStatusDelivered

	assert.Equal(t, []OrderStatus{OrderStatusPreparing, OrderStatusCancelled}, OrderStatusPending.AllowedTransitions())
}

func TestTransitionError_Message(t *testing.T) {
	_, err := AttemptTransition(OrderStatusPreparing, OrderStatusDelivered)
	assert.EqualError(t, err, `illegal transition of order status: "preparing" -> "delivered"`)
}

func TestStage_EveryTransitionMovesForward(t *testing.T) {
	for _, from := range Statuses() {
		for _, to := range from.AllowedTransitions() {
			assert.Greater(t, to.Stage(), from.Stage(), "%s -> %s", from, to)
		}
	}
	assert.Equal(t, -1, OrderStatus("baked").Stage())
}

func TestSupersedes(t *testing.T) {
	pending := &Order{ID: 1, Status: OrderStatusPending}
	preparing := &Order{ID: 1, Status: OrderStatusPreparing}
	cancelled := &Order{ID: 1, Status: OrderStatusCancelled}

	assert.True(t, preparing.Supersedes(pending))
	assert.False(t, pending.Supersedes(preparing))
	assert.True(t, cancelled.Supersedes(preparing))
	assert.False(t, preparing.Supersedes(cancelled))
	assert.True(t, preparing.Supersedes(preparing))
}
