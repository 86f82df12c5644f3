package notify

import (
	"context"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// Manager walks an ordered list of channels until the strategy is satisfied.
// It holds no cross-call state: memory of what was already alerted lives in
// the state ledger, not here.
type Manager struct {
	services         map[string]Service
	order            []string
	stopAfterSuccess bool
}

// NewManager builds a manager from the strategy order and the available
// services, keyed by Service.Name(). Channels absent from order are never
// invoked.
func NewManager(order []string, stopAfterSuccess bool, services ...Service) *Manager {
	m := &Manager{
		services:         make(map[string]Service, len(services)),
		order:            order,
		stopAfterSuccess: stopAfterSuccess,
	}
	for _, s := range services {
		m.services[s.Name()] = s
	}
	return m
}

// Notify executes the strategy for one message. It returns true when at
// least one channel reported success; with stopAfterSuccess the iteration
// halts at the first success and later channels are never invoked. A channel
// failure is not terminal: only exhausting the whole order with zero
// successes yields false.
func (m *Manager) Notify(ctx context.Context, message string) bool {
	ordered := m.filteredOrder()
	if len(ordered) == 0 {
		logging.Get().Warn().Msg("no valid channels in strategy order")
		return false
	}

	logging.Get().Info().
		Strs("order", ordered).
		Bool("stop_after_success", m.stopAfterSuccess).
		Msg("starting notification strategy")

	success := false
	delivered := false
	for _, name := range ordered {
		svc := m.services[name]
		logging.Get().Info().Str("channel", name).Msg("attempting notification")

		if err := svc.Send(ctx, message); err != nil {
			logging.Get().Warn().Err(err).Str("channel", name).Msg("notification failed")
			continue
		}

		success = true
		if svc.Enabled() {
			delivered = true
		}
		logging.Get().Info().Str("channel", name).Msg("notification succeeded")
		if m.stopAfterSuccess {
			break
		}
	}

	switch {
	case !success:
		logging.Get().Error().Msg("all notification attempts failed")
	case !delivered:
		// Every "success" came from a disabled channel being skipped.
		// The strategy is formally satisfied but nobody was alerted.
		logging.Get().Warn().Msg("strategy satisfied only by disabled channels; nothing was actually sent")
	}
	return success
}

// filteredOrder drops unknown channel names from the configured order,
// keeping duplicates and the exact configured sequence.
func (m *Manager) filteredOrder() []string {
	out := make([]string, 0, len(m.order))
	for _, name := range m.order {
		if _, ok := m.services[name]; !ok {
			logging.Get().Warn().Str("channel", name).Msg("unknown channel in strategy order, ignoring")
			continue
		}
		out = append(out, name)
	}
	return out
}
