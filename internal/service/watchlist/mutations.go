package watchlist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
)

// AddStock fetches a quote for stock and appends it to the watchlist right away.
// The store write happens in the background; a failed write is reported but not undone.
// When the quote fetch fails nothing is added.
func (m *Manager) AddStock(ctx context.Context, stock watchlist.Stock) (watchlist.Stock, error) {
	v := m.View()
	if v.Phase == PhaseSignedOut {
		m.emitError(watchlist.ErrSignedOut)
		return watchlist.Stock{}, watchlist.ErrSignedOut
	}

	symbol := strings.TrimSpace(stock.Symbol)
	if symbol == "" {
		m.emitError(watchlist.ErrInvalidSymbol)
		return watchlist.Stock{}, watchlist.ErrInvalidSymbol
	}
	stock.Symbol = symbol

	if _, ok := v.Find(watchlist.Stock{Symbol: symbol}); ok {
		err := fmt.Errorf("%s: %w", symbol, ErrAlreadySaved)
		m.emitError(err)
		return watchlist.Stock{}, err
	}

	q, err := m.deps.Quotes.GetQuote(ctx, symbol)
	if err != nil {
		err = fmt.Errorf("add %s: %w", symbol, err)
		m.emitError(err)
		return watchlist.Stock{}, err
	}

	var added watchlist.Stock
	var owner string
	var stale bool
	ev, err := m.do(func(s *state, ev *effects) {
		if s.epoch != v.epoch || s.user == nil {
			stale = true
			return
		}

		entry := stock.Clone()
		entry.OwnerUserID = s.user.ID
		entry.PreviousPrice = entry.CurrentPrice
		entry.CurrentPrice = watchlist.StringPtr(q.Price)
		entry.DailyChange = watchlist.StringPtr(q.ChangePercent)

		if alert, ok := m.checkSignificant(entry); ok {
			ev.alerts = append(ev.alerts, alert)
		}

		s.canonical = append(s.canonical, entry)
		s.displayed = append(s.displayed, entry.Clone())
		ev.changed = true

		added = entry.Clone()
		owner = s.user.ID
	})
	if err != nil {
		return watchlist.Stock{}, err
	}
	if stale {
		return watchlist.Stock{}, ErrSessionChanged
	}
	m.dispatch(ev)

	log.Info().Str("symbol", symbol).Str("price", q.Price).Msg("Stock added to watchlist")

	m.background(func(ctx context.Context) {
		m.persistNew(ctx, v.epoch, added, owner)
	})

	return added, nil
}

// RemoveStock drops every entry matching stock and deletes it from the store in the background.
// A failed delete is reported but the entry stays removed.
func (m *Manager) RemoveStock(ctx context.Context, stock watchlist.Stock) error {
	var removed []watchlist.Stock
	ev, err := m.do(func(s *state, ev *effects) {
		if s.user == nil {
			ev.errs = append(ev.errs, watchlist.ErrSignedOut)
			return
		}
		s.canonical, removed = removeMatching(s.canonical, stock)
		s.displayed, _ = removeMatching(s.displayed, stock)
		s.markUnsavedRemoved(removed)
		if len(removed) > 0 {
			ev.changed = true
		}
	})
	if err != nil {
		return err
	}
	m.dispatch(ev)
	if len(ev.errs) > 0 {
		return ev.errs[0]
	}

	if len(removed) == 0 {
		if stock.ID == "" {
			return watchlist.ErrStockNotFound
		}
		// not held locally, the store may still have it
		removed = []watchlist.Stock{stock}
	}

	m.deleteRemoved(removed)
	return nil
}

// RemoveAt drops the displayed entries at positions.
// All positions are checked before anything is removed.
func (m *Manager) RemoveAt(ctx context.Context, positions []int) error {
	var removed []watchlist.Stock
	ev, err := m.do(func(s *state, ev *effects) {
		if s.user == nil {
			ev.errs = append(ev.errs, watchlist.ErrSignedOut)
			return
		}

		idx := uniqueDescending(positions)
		for _, i := range idx {
			if i < 0 || i >= len(s.displayed) {
				ev.errs = append(ev.errs, fmt.Errorf("%w: %d", watchlist.ErrInvalidPosition, i))
				return
			}
		}

		for _, i := range idx {
			target := s.displayed[i]
			s.displayed = append(s.displayed[:i], s.displayed[i+1:]...)

			var gone []watchlist.Stock
			s.canonical, gone = removeMatching(s.canonical, target)
			if len(gone) == 0 {
				gone = []watchlist.Stock{target}
			}
			s.markUnsavedRemoved(gone)
			removed = append(removed, gone...)
		}
		if len(idx) > 0 {
			ev.changed = true
		}
	})
	if err != nil {
		return err
	}
	m.dispatch(ev)
	if len(ev.errs) > 0 {
		return ev.errs[0]
	}

	m.deleteRemoved(removed)
	return nil
}

// ToggleSaved removes stock when it is saved and adds it otherwise.
// saved reports the state after the call.
func (m *Manager) ToggleSaved(ctx context.Context, stock watchlist.Stock) (saved bool, err error) {
	if existing, ok := m.View().Find(stock); ok {
		return false, m.RemoveStock(ctx, existing)
	}
	if _, err := m.AddStock(ctx, stock); err != nil {
		return false, err
	}
	return true, nil
}

// Sort reorders the displayed list. Any filter is discarded.
func (m *Manager) Sort(ctx context.Context, by watchlist.SortCriterion) (*View, error) {
	switch by {
	case watchlist.SortReset, watchlist.SortPrice, watchlist.SortDailyChange, watchlist.SortWeeklyChange:
	default:
		return nil, watchlist.ErrInvalidCriterion
	}

	ev, err := m.do(func(s *state, ev *effects) {
		s.displayed = applySort(s.canonical, by)
		s.sort = by
		s.filter = watchlist.FilterAll
		ev.changed = true
	})
	if err != nil {
		return nil, err
	}
	m.dispatch(ev)
	return m.View(), nil
}

// Filter narrows the displayed list. Any sort is discarded.
func (m *Manager) Filter(ctx context.Context, by watchlist.FilterCriterion) (*View, error) {
	switch by {
	case watchlist.FilterAll, watchlist.FilterPriceIncrease, watchlist.FilterPriceDecrease, watchlist.FilterSignificantChange:
	default:
		return nil, watchlist.ErrInvalidCriterion
	}

	ev, err := m.do(func(s *state, ev *effects) {
		s.displayed = applyFilter(s.canonical, by, m.threshold)
		s.filter = by
		s.sort = watchlist.SortReset
		ev.changed = true
	})
	if err != nil {
		return nil, err
	}
	m.dispatch(ev)
	return m.View(), nil
}

// ==============================================================================
// Store writes
// ==============================================================================

// background runs fn with its own store timeout; Stop waits for it
func (m *Manager) background(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// persistNew saves a freshly added entry and records the id the store assigned.
// If the user removed the entry before the save finished, the stored copy is deleted.
func (m *Manager) persistNew(ctx context.Context, epoch uint64, entry watchlist.Stock, owner string) {
	saved, err := m.deps.Store.Save(ctx, entry, owner)
	if err != nil {
		m.emitError(fmt.Errorf("save %s: %w", entry.Symbol, err))
		return
	}

	orphan, err := m.recordID(epoch, entry, saved.ID)
	if err != nil || !orphan {
		return
	}

	log.Debug().Str("symbol", entry.Symbol).Str("id", saved.ID).Msg("Entry removed before save completed, deleting")
	if err := m.deps.Store.Delete(ctx, saved.ID); err != nil {
		m.emitError(fmt.Errorf("delete %s: %w", entry.Symbol, err))
	}
}

// recordID stamps id on the unsaved local entry for entry.Symbol.
// orphan is true only when the user removed that entry before its save landed.
// An entry that vanished because a snapshot replaced the list is not an orphan:
// the store copy is the one the user asked for.
func (m *Manager) recordID(epoch uint64, entry watchlist.Stock, id string) (orphan bool, err error) {
	if id == "" || entry.ID != "" {
		return false, nil
	}

	ev, err := m.do(func(s *state, ev *effects) {
		if s.epoch != epoch {
			return
		}
		for _, st := range s.canonical {
			if st.ID == id {
				delete(s.unsavedRemoved, entry.Symbol)
				return
			}
		}

		found := false
		for i := range s.canonical {
			if s.canonical[i].ID == "" && s.canonical[i].Symbol == entry.Symbol {
				s.canonical[i].ID = id
				found = true
				break
			}
		}
		for i := range s.displayed {
			if s.displayed[i].ID == "" && s.displayed[i].Symbol == entry.Symbol {
				s.displayed[i].ID = id
				break
			}
		}

		switch {
		case found:
			ev.changed = true
		case s.unsavedRemoved[entry.Symbol]:
			orphan = true
		}
		delete(s.unsavedRemoved, entry.Symbol)
	})
	if err != nil {
		return false, err
	}
	m.dispatch(ev)
	return orphan, nil
}

func (m *Manager) deleteRemoved(removed []watchlist.Stock) {
	for _, st := range removed {
		if st.ID == "" {
			// not saved yet, persistNew cleans it up
			continue
		}
		st := st
		m.background(func(ctx context.Context) {
			if err := m.deps.Store.Delete(ctx, st.ID); err != nil {
				m.emitError(fmt.Errorf("delete %s: %w", st.Symbol, err))
				return
			}
			log.Info().Str("symbol", st.Symbol).Str("id", st.ID).Msg("Stock removed from watchlist")
		})
	}
}

func uniqueDescending(positions []int) []int {
	seen := make(map[int]bool, len(positions))
	out := make([]int, 0, len(positions))
	for _, p := range positions {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
