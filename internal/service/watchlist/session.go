package watchlist

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/auth"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
)

// OnAuthStateChanged switches the watchlist to user, or to the signed-out view when user is nil.
// Signing in loads the user's entries once and then follows the live store feed.
func (m *Manager) OnAuthStateChanged(ctx context.Context, user *auth.User) {
	signedIn := user != nil && user.ID != ""

	var epoch uint64
	var same bool
	ev, err := m.do(func(s *state, ev *effects) {
		if !signedIn {
			if s.phase == PhaseSignedOut {
				return
			}
			ev.closeSub = s.sub
			s.reset()
			ev.changed = true
			return
		}

		if s.user != nil && s.user.ID == user.ID && s.phase != PhaseSignedOut {
			same = true
			return
		}

		ev.closeSub = s.sub
		s.reset()
		u := *user
		s.user = &u
		s.phase = PhaseLoading
		epoch = s.epoch
		ev.changed = true
	})
	if err != nil {
		log.Warn().Err(err).Msg("Auth change ignored")
		return
	}

	if ev.closeSub != nil {
		ev.closeSub.Unsubscribe()
	}
	m.dispatch(ev)

	if !signedIn {
		log.Info().Msg("Signed out, watchlist cleared")
		return
	}
	if same {
		return
	}

	log.Info().Str("user_id", user.ID).Msg("Signed in, loading watchlist")
	m.load(ctx, user.ID, epoch)
}

// load fetches the user's entries once, then opens the live subscription
func (m *Manager) load(ctx context.Context, ownerUserID string, epoch uint64) {
	stocks, err := m.deps.Store.FetchAll(ctx, ownerUserID)
	if err != nil {
		m.emitError(fmt.Errorf("load watchlist: %w", err))
	} else {
		m.applySnapshot(stocks, epoch, true, true)
	}

	sub, err := m.deps.Store.Subscribe(m.ctx,
		func(stocks []watchlist.Stock) {
			m.applySnapshot(stocks, epoch, true, false)
		},
		func(err error) {
			m.emitError(fmt.Errorf("watchlist updates: %w", err))
		},
	)
	if err != nil {
		m.emitError(fmt.Errorf("subscribe to watchlist: %w", err))
		return
	}

	ev, err := m.do(func(s *state, ev *effects) {
		if s.epoch != epoch {
			// signed out or switched user while subscribing
			ev.closeSub = sub
			return
		}
		s.sub = sub
	})
	if err != nil {
		sub.Unsubscribe()
		return
	}
	if ev.closeSub != nil {
		ev.closeSub.Unsubscribe()
	}
}

// OnStoreSnapshot replaces the watchlist with the current user's entries from stocks.
// An empty snapshot is reported and leaves the watchlist as it was.
func (m *Manager) OnStoreSnapshot(stocks []watchlist.Stock) {
	m.applySnapshot(stocks, 0, false, false)
}

// applySnapshot replaces both lists in one loop step.
// With guarded set, snapshots from an older session are dropped.
// An empty initial fetch is a valid empty watchlist; an empty pushed snapshot is an error.
func (m *Manager) applySnapshot(stocks []watchlist.Stock, epoch uint64, guarded, initial bool) {
	ev, err := m.do(func(s *state, ev *effects) {
		if guarded && s.epoch != epoch {
			return
		}
		if s.user == nil {
			return
		}
		if len(stocks) == 0 && !initial {
			ev.errs = append(ev.errs, watchlist.ErrNoStockData)
			return
		}

		s.canonical = sortByName(ownedBy(stocks, s.user.ID))
		s.displayed = cloneAll(s.canonical)
		s.sort = watchlist.SortReset
		s.filter = watchlist.FilterAll
		s.phase = PhaseSynced
		ev.changed = true
	})
	if err != nil {
		return
	}
	m.dispatch(ev)
}
