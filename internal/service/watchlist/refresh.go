package watchlist

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wonny/stockwatch/internal/domain/quote"
	"github.com/wonny/stockwatch/internal/domain/watchlist"
	"github.com/wonny/stockwatch/internal/service/pricechange"
	"golang.org/x/sync/errgroup"
)

// RefreshResult summarizes one RefreshAllPrices run
type RefreshResult struct {
	Total    int           `json:"total"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Alerts   int           `json:"alerts"`
	Duration time.Duration `json:"duration"`
}

// RefreshAllPrices fetches a fresh quote for every saved entry concurrently.
// Each entry is fetched, updated and saved on its own; a failure is reported
// for that entry only and never stops the others.
func (m *Manager) RefreshAllPrices(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	v := m.View()
	if v.Phase == PhaseSignedOut {
		return RefreshResult{}, nil
	}

	var updated, failed, alerts atomic.Int32

	var g errgroup.Group
	g.SetLimit(m.cfg.RefreshConcurrency)
	for _, entry := range v.Canonical {
		entry := entry
		g.Go(func() error {
			n, err := m.refreshEntry(ctx, v.epoch, v.UserID, entry)
			if err != nil {
				failed.Add(1)
				return nil
			}
			updated.Add(1)
			alerts.Add(int32(n))
			return nil
		})
	}
	_ = g.Wait()

	res := RefreshResult{
		Total:    len(v.Canonical),
		Updated:  int(updated.Load()),
		Failed:   int(failed.Load()),
		Alerts:   int(alerts.Load()),
		Duration: time.Since(start),
	}

	log.Info().
		Int("total", res.Total).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Int("alerts", res.Alerts).
		Dur("duration", res.Duration).
		Msg("Price refresh completed")

	return res, nil
}

func (m *Manager) scheduledRefresh() {
	log.Debug().Msg("Scheduled price refresh")
	if _, err := m.RefreshAllPrices(m.ctx); err != nil {
		log.Warn().Err(err).Msg("Scheduled price refresh failed")
	}
}

// refreshEntry serializes work per symbol; concurrent callers share one run
func (m *Manager) refreshEntry(ctx context.Context, epoch uint64, owner string, entry watchlist.Stock) (int, error) {
	v, err, _ := m.sf.Do("refresh:"+entry.Symbol, func() (interface{}, error) {
		return m.refreshSymbol(ctx, epoch, owner, entry)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// refreshSymbol runs fetch → update → save for one entry and returns the number of alerts raised
func (m *Manager) refreshSymbol(ctx context.Context, epoch uint64, owner string, entry watchlist.Stock) (int, error) {
	q, err := m.deps.Quotes.GetQuote(ctx, entry.Symbol)
	if err != nil {
		err = fmt.Errorf("refresh %s: %w", entry.Symbol, err)
		m.emitError(err)
		return 0, err
	}

	var updated watchlist.Stock
	var found bool
	ev, err := m.do(func(s *state, ev *effects) {
		if s.epoch != epoch {
			return
		}
		i := indexOf(s.canonical, entry)
		if i < 0 {
			return
		}

		cur := s.canonical[i].Clone()
		cur.PreviousPrice = cur.CurrentPrice
		cur.CurrentPrice = watchlist.StringPtr(q.Price)
		cur.DailyChange = watchlist.StringPtr(q.ChangePercent)

		if alert, ok := m.checkSignificant(cur); ok {
			ev.alerts = append(ev.alerts, alert)
		}

		s.canonical[i] = cur
		if j := indexOf(s.displayed, cur); j >= 0 {
			s.displayed[j] = cur.Clone()
		}
		ev.changed = true

		updated = cur.Clone()
		found = true
	})
	if err != nil {
		return 0, err
	}
	m.dispatch(ev)

	if !found {
		// removed or signed out meanwhile
		return 0, nil
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StoreTimeout)
	defer cancel()

	saved, err := m.deps.Store.Save(saveCtx, updated, owner)
	if err != nil {
		err = fmt.Errorf("save %s: %w", updated.Symbol, err)
		m.emitError(err)
		return len(ev.alerts), err
	}
	if _, err := m.recordID(epoch, updated, saved.ID); err != nil {
		return len(ev.alerts), nil
	}

	log.Debug().
		Str("symbol", updated.Symbol).
		Str("price", q.Price).
		Str("change", q.ChangePercent).
		Msg("Price refreshed")

	return len(ev.alerts), nil
}

// RefreshChanges recomputes weekly and monthly changes for a saved entry.
// It does nothing when both values were already computed today. Concurrent
// calls for the same symbol share one computation.
func (m *Manager) RefreshChanges(ctx context.Context, stock watchlist.Stock) (watchlist.Stock, error) {
	entry, ok := m.View().Find(stock)
	if !ok {
		return watchlist.Stock{}, watchlist.ErrStockNotFound
	}
	if !entry.NeedsChangeRecompute(m.now()) {
		return entry, nil
	}
	if m.deps.History == nil {
		return entry, ErrNoHistory
	}

	v, err, _ := m.sf.Do("changes:"+entry.Symbol, func() (interface{}, error) {
		return m.refreshChanges(ctx, entry)
	})
	updated, _ := v.(watchlist.Stock)
	return updated, err
}

// refreshChanges runs fetch → compute → update → save for one entry.
// The once-a-day check is repeated against the latest view, since a call that
// finished just before this one may already have stamped the entry.
func (m *Manager) refreshChanges(ctx context.Context, stock watchlist.Stock) (watchlist.Stock, error) {
	v := m.View()
	entry, ok := v.Find(stock)
	if !ok {
		return watchlist.Stock{}, watchlist.ErrStockNotFound
	}
	now := m.now()
	if !entry.NeedsChangeRecompute(now) {
		return entry, nil
	}

	var weekly, monthly quote.TimeSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weekly, err = m.deps.History.GetTimeSeries(gctx, entry.Symbol, quote.GranularityWeekly)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = m.deps.History.GetTimeSeries(gctx, entry.Symbol, quote.GranularityMonthly)
		return err
	})
	if err := g.Wait(); err != nil {
		err = fmt.Errorf("price history %s: %w", entry.Symbol, err)
		m.emitError(err)
		return entry, err
	}

	weeklyChange := changeString(weekly)
	monthlyChange := changeString(monthly)

	var updated watchlist.Stock
	var found, fresh bool
	ev, err := m.do(func(s *state, ev *effects) {
		if s.epoch != v.epoch {
			return
		}
		i := indexOf(s.canonical, entry)
		if i < 0 {
			return
		}
		found = true

		if !s.canonical[i].NeedsChangeRecompute(now) {
			updated = s.canonical[i].Clone()
			fresh = true
			return
		}

		cur := s.canonical[i].Clone()
		cur.WeeklyChange = weeklyChange
		cur.MonthlyChange = monthlyChange
		at := now
		cur.ChangeComputedAt = &at

		s.canonical[i] = cur
		if j := indexOf(s.displayed, cur); j >= 0 {
			s.displayed[j] = cur.Clone()
		}
		ev.changed = true
		updated = cur.Clone()
	})
	if err != nil {
		return entry, err
	}
	m.dispatch(ev)
	if !found {
		return entry, ErrSessionChanged
	}
	if fresh {
		return updated, nil
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StoreTimeout)
	defer cancel()

	if _, err := m.deps.Store.Save(saveCtx, updated, v.UserID); err != nil {
		err = fmt.Errorf("save %s: %w", updated.Symbol, err)
		m.emitError(err)
		return updated, err
	}

	log.Debug().
		Str("symbol", updated.Symbol).
		Msg("Weekly and monthly changes refreshed")

	return updated, nil
}

func changeString(series quote.TimeSeries) *string {
	change, ok := pricechange.FromSeries(series)
	if !ok {
		return nil
	}
	return watchlist.StringPtr(pricechange.FormatPercent(change))
}
