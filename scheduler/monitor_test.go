package scheduler

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"boxtrack/models"
)

type fakeProductStore struct {
	due      []*models.MonitoredProduct
	byID     map[int]*models.MonitoredProduct
	saved    []*models.MonitoredProduct
	advanced map[int]time.Time
}

func newFakeProductStore(products ...*models.MonitoredProduct) *fakeProductStore {
	s := &fakeProductStore{
		byID:     make(map[int]*models.MonitoredProduct),
		advanced: make(map[int]time.Time),
	}
	for _, p := range products {
		s.due = append(s.due, p)
		s.byID[p.ID] = p
	}
	return s
}

func (s *fakeProductStore) GetDue(now time.Time) ([]*models.MonitoredProduct, error) {
	return s.due, nil
}

func (s *fakeProductStore) GetByID(id int) (*models.MonitoredProduct, error) {
	return s.byID[id], nil
}

func (s *fakeProductStore) Save(p *models.MonitoredProduct) error {
	s.saved = append(s.saved, p)
	return nil
}

func (s *fakeProductStore) AdvanceNextScrape(id int, next time.Time) error {
	s.advanced[id] = next
	return nil
}

func (s *fakeProductStore) CountActive() (int, error) { return len(s.due), nil }

func (s *fakeProductStore) CountDue(now time.Time) (int, error) { return len(s.due), nil }

type fakeHistoryStore struct {
	prices    []*models.PriceHistoryEntry
	sellers   []*models.SellerHistoryEntry
	snapshots []*models.SellerHistoryEntry
}

func (s *fakeHistoryStore) AddPriceEntry(e *models.PriceHistoryEntry) error {
	s.prices = append(s.prices, e)
	return nil
}

func (s *fakeHistoryStore) AddSellerEntry(e *models.SellerHistoryEntry) error {
	s.sellers = append(s.sellers, e)
	return nil
}

func (s *fakeHistoryStore) SaveSellerSnapshot(e *models.SellerHistoryEntry) error {
	s.snapshots = append(s.snapshots, e)
	return nil
}

type fakeAlertStore struct {
	recorded  []*models.AlertLogEntry
	delivered []int
}

func (s *fakeAlertStore) Record(e *models.AlertLogEntry) (int, error) {
	s.recorded = append(s.recorded, e)
	return len(s.recorded), nil
}

func (s *fakeAlertStore) MarkDelivered(id int) error {
	s.delivered = append(s.delivered, id)
	return nil
}

type fakeFetcher struct {
	results map[string]models.RegionResult
	seq     []models.RegionResult
	fetched []string
}

func (f *fakeFetcher) Fetch(asin, region string) models.RegionResult {
	key := asin + "|" + region
	f.fetched = append(f.fetched, key)
	if len(f.seq) > 0 {
		result := f.seq[0]
		f.seq = f.seq[1:]
		return result
	}
	return f.results[key]
}

type fakeNotifier struct {
	events []models.AlertEvent
	err    error
}

func (n *fakeNotifier) Notify(event models.AlertEvent) error {
	n.events = append(n.events, event)
	return n.err
}

func newTestMonitor(products *fakeProductStore, history *fakeHistoryStore, alerts *fakeAlertStore,
	fetcher *fakeFetcher, notifier *fakeNotifier) *Monitor {
	m := NewMonitor(products, history, alerts, fetcher, notifier, MonitorOptions{
		Interval:             5 * time.Minute,
		DelayBetweenProducts: 5 * time.Second,
		DelayAfterProduct:    3 * time.Second,
		DelayAfterError:      3 * time.Second,
	})
	m.sleep = func(time.Duration) {}
	return m
}

func TestMonitorRunCycle(t *testing.T) {
	t.Run("successful refresh records history and reschedules", func(t *testing.T) {
		product := observedProduct(100, "Seller A", true)
		products := newFakeProductStore(product)
		history := &fakeHistoryStore{}
		alerts := &fakeAlertStore{}
		result := *successResult(102, "Seller A", true)
		fetcher := &fakeFetcher{results: map[string]models.RegionResult{product.Key(): result}}
		notify := &fakeNotifier{}

		m := newTestMonitor(products, history, alerts, fetcher, notify)
		if n := m.RunCycle(); n != 1 {
			t.Fatalf("RunCycle() = %d, want 1", n)
		}

		if len(history.prices) != 1 {
			t.Fatalf("got %d price row(s), want 1", len(history.prices))
		}
		if !history.prices[0].Price.Valid || history.prices[0].Price.Float64 != 102 {
			t.Errorf("price row = %+v, want valid 102", history.prices[0].Price)
		}
		if len(history.sellers) != 1 || len(history.snapshots) != 1 {
			t.Errorf("seller rows = %d, snapshots = %d, want 1 and 1",
				len(history.sellers), len(history.snapshots))
		}
		if len(products.saved) != 1 {
			t.Fatalf("got %d save(s), want 1", len(products.saved))
		}

		saved := products.saved[0]
		wantNext := result.ScrapedAt.Add(5 * time.Minute)
		if !saved.NextScrapeAt.Equal(wantNext) {
			t.Errorf("NextScrapeAt = %v, want %v", saved.NextScrapeAt, wantNext)
		}
		if saved.GetCurrentPrice() != 102 {
			t.Errorf("CurrentPrice = %v, want 102", saved.GetCurrentPrice())
		}
		if !saved.PreviousPrice.Valid || saved.PreviousPrice.Float64 != 100 {
			t.Errorf("PreviousPrice = %+v, want valid 100", saved.PreviousPrice)
		}
		// 2% move is under the 5% threshold.
		if len(alerts.recorded) != 0 {
			t.Errorf("got %d alert(s), want 0", len(alerts.recorded))
		}
	})

	t.Run("failed refresh reschedules without history", func(t *testing.T) {
		product := observedProduct(100, "Seller A", true)
		products := newFakeProductStore(product)
		history := &fakeHistoryStore{}
		failedAt := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)
		fetcher := &fakeFetcher{results: map[string]models.RegionResult{
			product.Key(): {
				ASIN: product.ASIN, Region: product.Region,
				Status: models.FetchFailed, ErrorMessage: "navigation timeout",
				Attempts: 3, ScrapedAt: failedAt,
			},
		}}

		m := newTestMonitor(products, history, &fakeAlertStore{}, fetcher, &fakeNotifier{})
		m.RunCycle()

		if len(history.prices) != 0 {
			t.Errorf("got %d price row(s) for failed refresh, want 0", len(history.prices))
		}
		if len(products.saved) != 0 {
			t.Errorf("got %d save(s) for failed refresh, want 0", len(products.saved))
		}
		next, ok := products.advanced[product.ID]
		if !ok {
			t.Fatal("failed refresh must still advance next_scrape_at")
		}
		if want := failedAt.Add(5 * time.Minute); !next.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})

	t.Run("unavailable page records null price row", func(t *testing.T) {
		product := observedProduct(100, "Seller A", true)
		products := newFakeProductStore(product)
		history := &fakeHistoryStore{}
		alerts := &fakeAlertStore{}
		fetcher := &fakeFetcher{results: map[string]models.RegionResult{
			product.Key(): {
				ASIN: product.ASIN, Region: product.Region,
				Status:    models.FetchUnavailable,
				Title:     "Some Product",
				ScrapedAt: time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC),
			},
		}}

		m := newTestMonitor(products, history, alerts, fetcher, &fakeNotifier{})
		m.RunCycle()

		if len(history.prices) != 1 {
			t.Fatalf("got %d price row(s), want 1", len(history.prices))
		}
		if history.prices[0].Price.Valid {
			t.Error("unavailable observation must record a NULL price")
		}
		if len(products.saved) != 1 {
			t.Fatalf("got %d save(s), want 1", len(products.saved))
		}
		// Last known price stays on the product row.
		if products.saved[0].GetCurrentPrice() != 100 {
			t.Errorf("CurrentPrice = %v, want last known 100", products.saved[0].GetCurrentPrice())
		}
		if len(alerts.recorded) != 0 {
			t.Errorf("got %d alert(s) for unavailable page, want 0", len(alerts.recorded))
		}
	})

	t.Run("alert is recorded, delivered, and marked", func(t *testing.T) {
		product := observedProduct(100, "Seller A", true)
		products := newFakeProductStore(product)
		alerts := &fakeAlertStore{}
		fetcher := &fakeFetcher{results: map[string]models.RegionResult{
			product.Key(): *successResult(80, "Seller A", true),
		}}
		notify := &fakeNotifier{}

		m := newTestMonitor(products, &fakeHistoryStore{}, alerts, fetcher, notify)
		m.RunCycle()

		if len(alerts.recorded) != 1 {
			t.Fatalf("got %d alert(s), want 1", len(alerts.recorded))
		}
		if alerts.recorded[0].AlertType != models.AlertPriceChange {
			t.Errorf("AlertType = %s, want %s", alerts.recorded[0].AlertType, models.AlertPriceChange)
		}
		if len(notify.events) != 1 {
			t.Fatalf("notifier got %d event(s), want 1", len(notify.events))
		}
		if len(alerts.delivered) != 1 {
			t.Errorf("got %d delivered mark(s), want 1", len(alerts.delivered))
		}
	})

	t.Run("notifier failure keeps alert undelivered", func(t *testing.T) {
		product := observedProduct(100, "Seller A", true)
		products := newFakeProductStore(product)
		alerts := &fakeAlertStore{}
		fetcher := &fakeFetcher{results: map[string]models.RegionResult{
			product.Key(): *successResult(80, "Seller A", true),
		}}
		notify := &fakeNotifier{err: errors.New("telegram unreachable")}

		m := newTestMonitor(products, &fakeHistoryStore{}, alerts, fetcher, notify)
		m.RunCycle()

		if len(alerts.recorded) != 1 {
			t.Fatalf("got %d alert(s), want 1", len(alerts.recorded))
		}
		if len(alerts.delivered) != 0 {
			t.Errorf("got %d delivered mark(s) after notifier failure, want 0", len(alerts.delivered))
		}
		if len(products.saved) != 1 {
			t.Errorf("notifier failure must not block the product save")
		}
	})

	t.Run("seller miss keeps last known ownership state", func(t *testing.T) {
		product := observedProduct(100, "Seller A", true)
		products := newFakeProductStore(product)
		alerts := &fakeAlertStore{}
		bare := *successResult(100, "", false)
		recovered := *successResult(100, "Seller A", true)
		fetcher := &fakeFetcher{seq: []models.RegionResult{bare, recovered}}
		notify := &fakeNotifier{}

		m := newTestMonitor(products, &fakeHistoryStore{}, alerts, fetcher, notify)

		m.RunCycle()
		if len(alerts.recorded) != 0 {
			t.Fatalf("got %d alert(s) for a seller-less page, want 0", len(alerts.recorded))
		}
		if len(products.saved) != 1 {
			t.Fatalf("got %d save(s), want 1", len(products.saved))
		}
		if !products.saved[0].HasBuyBox {
			t.Error("HasBuyBox cleared by a page with no seller observed")
		}
		if !products.saved[0].SellerName.Valid || products.saved[0].SellerName.String != "Seller A" {
			t.Errorf("SellerName = %+v, want last known Seller A", products.saved[0].SellerName)
		}

		// The next good extraction sees consistent state and stays quiet.
		m.RunCycle()
		if len(alerts.recorded) != 0 {
			t.Fatalf("got %d alert(s) after seller recovery, want 0", len(alerts.recorded))
		}
	})

	t.Run("replayed refreshes append history in order", func(t *testing.T) {
		product := observedProduct(100, "Seller A", true)
		products := newFakeProductStore(product)
		history := &fakeHistoryStore{}

		t1 := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)
		first := *successResult(100, "Seller A", true)
		first.ScrapedAt = t1
		failed := models.RegionResult{
			ASIN: product.ASIN, Region: product.Region,
			Status: models.FetchFailed, ErrorMessage: "navigation timeout",
			ScrapedAt: t1.Add(5 * time.Minute),
		}
		unavailable := models.RegionResult{
			ASIN: product.ASIN, Region: product.Region,
			Status:    models.FetchUnavailable,
			ScrapedAt: t1.Add(10 * time.Minute),
		}
		last := *successResult(90, "Seller A", true)
		last.ScrapedAt = t1.Add(15 * time.Minute)

		fetcher := &fakeFetcher{seq: []models.RegionResult{first, failed, unavailable, last}}
		m := newTestMonitor(products, history, &fakeAlertStore{}, fetcher, &fakeNotifier{})

		for i := 0; i < 4; i++ {
			m.RunCycle()
		}

		// Four refreshes, one failed: three history rows.
		if len(history.prices) != 3 {
			t.Fatalf("got %d history row(s), want 3", len(history.prices))
		}
		for i := 1; i < len(history.prices); i++ {
			if history.prices[i].ScrapedAt.Before(history.prices[i-1].ScrapedAt) {
				t.Errorf("history out of order at %d: %v before %v",
					i, history.prices[i].ScrapedAt, history.prices[i-1].ScrapedAt)
			}
		}
		if history.prices[1].Price.Valid {
			t.Error("unavailable refresh must append a NULL price row")
		}
		if !history.prices[2].Price.Valid || history.prices[2].Price.Float64 != 90 {
			t.Errorf("final row price = %+v, want valid 90", history.prices[2].Price)
		}
	})

	t.Run("products are processed in due order", func(t *testing.T) {
		first := observedProduct(100, "Seller A", true)
		second := observedProduct(200, "Seller B", true)
		second.ID = 2
		second.ASIN = "B0TEST5678"
		products := newFakeProductStore(first, second)
		fetcher := &fakeFetcher{results: map[string]models.RegionResult{
			first.Key():  *successResult(100, "Seller A", true),
			second.Key(): {ASIN: second.ASIN, Region: second.Region, Status: models.FetchFailed, ErrorMessage: "x", ScrapedAt: time.Now()},
		}}

		m := newTestMonitor(products, &fakeHistoryStore{}, &fakeAlertStore{}, fetcher, &fakeNotifier{})
		if n := m.RunCycle(); n != 2 {
			t.Fatalf("RunCycle() = %d, want 2", n)
		}
		if len(fetcher.fetched) != 2 || fetcher.fetched[0] != first.Key() || fetcher.fetched[1] != second.Key() {
			t.Errorf("fetch order = %v, want [%s %s]", fetcher.fetched, first.Key(), second.Key())
		}
	})
}

func TestMonitorRefreshProduct(t *testing.T) {
	t.Run("unknown product errors", func(t *testing.T) {
		m := newTestMonitor(newFakeProductStore(), &fakeHistoryStore{}, &fakeAlertStore{}, &fakeFetcher{}, &fakeNotifier{})
		if err := m.RefreshProduct(42); err == nil {
			t.Error("RefreshProduct(42) = nil error, want not-found error")
		}
	})

	t.Run("first refresh stores state without alerting", func(t *testing.T) {
		product := observedProduct(0, "", false)
		product.CurrentPrice = sql.NullFloat64{}
		product.LastScrapedAt = nil
		products := newFakeProductStore(product)
		alerts := &fakeAlertStore{}
		fetcher := &fakeFetcher{results: map[string]models.RegionResult{
			product.Key(): *successResult(500, "Seller A", true),
		}}

		m := newTestMonitor(products, &fakeHistoryStore{}, alerts, fetcher, &fakeNotifier{})
		if err := m.RefreshProduct(product.ID); err != nil {
			t.Fatalf("RefreshProduct() error = %v", err)
		}
		if len(alerts.recorded) != 0 {
			t.Errorf("got %d alert(s) on first refresh, want 0", len(alerts.recorded))
		}
		if len(products.saved) != 1 || products.saved[0].GetCurrentPrice() != 500 {
			t.Error("first refresh must store the observed price")
		}
	})
}
