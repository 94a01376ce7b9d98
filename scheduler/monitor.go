package scheduler

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"boxtrack/models"
	"boxtrack/scraper"
)

// ProductStore is the product persistence the monitor needs.
type ProductStore interface {
	GetDue(now time.Time) ([]*models.MonitoredProduct, error)
	GetByID(id int) (*models.MonitoredProduct, error)
	Save(p *models.MonitoredProduct) error
	AdvanceNextScrape(id int, next time.Time) error
	CountActive() (int, error)
	CountDue(now time.Time) (int, error)
}

// HistoryStore is the append-only observation log.
type HistoryStore interface {
	AddPriceEntry(e *models.PriceHistoryEntry) error
	AddSellerEntry(e *models.SellerHistoryEntry) error
	SaveSellerSnapshot(e *models.SellerHistoryEntry) error
}

// AlertStore records fired alerts.
type AlertStore interface {
	Record(e *models.AlertLogEntry) (int, error)
	MarkDelivered(id int) error
}

// Notifier delivers alert events to an external channel.
type Notifier interface {
	Notify(event models.AlertEvent) error
}

// MonitorStatus is the scheduler's externally visible state.
type MonitorStatus struct {
	IsRunning          bool       `json:"isRunning"`
	ActiveProductCount int        `json:"activeProductCount"`
	DueNowCount        int        `json:"dueNowCount"`
	LastCycleAt        *time.Time `json:"lastCycleAt"`
}

// MonitorOptions tunes the monitoring loop.
type MonitorOptions struct {
	Interval             time.Duration
	DelayBetweenProducts time.Duration
	DelayAfterProduct    time.Duration
	DelayAfterError      time.Duration
}

// Monitor drives the refresh loop: every interval it collects due products
// and processes them sequentially, diffing fresh observations against
// stored state and firing alerts on meaningful changes.
type Monitor struct {
	products ProductStore
	history  HistoryStore
	alerts   AlertStore
	fetcher  scraper.Fetcher
	notifier Notifier
	opts     MonitorOptions

	cron    *cron.Cron
	entryID cron.EntryID

	mu          sync.Mutex
	running     bool
	cycleActive bool
	lastCycleAt *time.Time
	inFlight    map[string]bool

	now   func() time.Time
	sleep func(time.Duration)
}

// NewMonitor wires the monitor to its stores, fetcher, and notifier.
func NewMonitor(products ProductStore, history HistoryStore, alerts AlertStore, fetcher scraper.Fetcher, notifier Notifier, opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	return &Monitor{
		products: products,
		history:  history,
		alerts:   alerts,
		fetcher:  fetcher,
		notifier: notifier,
		opts:     opts,
		inFlight: make(map[string]bool),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Start schedules the recurring cycle and kicks one off immediately.
// Starting an already running monitor is a no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.cron = cron.New()
	entryID, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.opts.Interval), m.runCycle)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to schedule monitoring cycle: %w", err)
	}
	m.entryID = entryID
	m.running = true
	m.cron.Start()
	m.mu.Unlock()

	log.Printf("Monitoring started, cycle every %s", m.opts.Interval)
	go m.runCycle()
	return nil
}

// Stop halts scheduling. A cycle already in flight finishes its current
// product and then observes the stop flag.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	if m.cron != nil {
		m.cron.Stop()
		m.cron = nil
	}
	log.Println("Monitoring stopped")
}

// IsRunning reports whether the recurring cycle is scheduled.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status summarizes the monitor for the control API.
func (m *Monitor) Status() (MonitorStatus, error) {
	m.mu.Lock()
	running := m.running
	lastCycle := m.lastCycleAt
	m.mu.Unlock()

	active, err := m.products.CountActive()
	if err != nil {
		return MonitorStatus{}, err
	}
	due, err := m.products.CountDue(m.now())
	if err != nil {
		return MonitorStatus{}, err
	}
	return MonitorStatus{
		IsRunning:          running,
		ActiveProductCount: active,
		DueNowCount:        due,
		LastCycleAt:        lastCycle,
	}, nil
}

// RunCycle triggers one cycle outside the schedule. It returns the number
// of products processed.
func (m *Monitor) RunCycle() int {
	return m.cycle(false)
}

func (m *Monitor) runCycle() {
	m.cycle(true)
}

// cycle processes all currently due products in order of overdue-ness. Only
// one cycle runs at a time; an overlapping trigger is skipped.
func (m *Monitor) cycle(honorStopFlag bool) int {
	m.mu.Lock()
	if m.cycleActive {
		m.mu.Unlock()
		log.Println("Cycle already in progress, skipping trigger")
		return 0
	}
	m.cycleActive = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.cycleActive = false
		now := m.now()
		m.lastCycleAt = &now
		m.mu.Unlock()
	}()

	due, err := m.products.GetDue(m.now())
	if err != nil {
		log.Printf("Failed to load due products: %v", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}
	log.Printf("Processing %d due product(s)", len(due))

	processed := 0
	for i, product := range due {
		if honorStopFlag && !m.IsRunning() {
			log.Println("Stop requested, abandoning remainder of cycle")
			break
		}
		if i > 0 {
			m.sleep(m.opts.DelayBetweenProducts)
		}
		m.processProduct(product)
		processed++
	}
	return processed
}

// RefreshProduct fetches one product immediately, outside any cycle. Used
// for the first observation after registration and for manual refreshes.
func (m *Monitor) RefreshProduct(id int) error {
	product, err := m.products.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("product %d not found", id)
	}
	m.processProduct(product)
	return nil
}

func (m *Monitor) processProduct(product *models.MonitoredProduct) {
	key := product.Key()
	m.mu.Lock()
	if m.inFlight[key] {
		m.mu.Unlock()
		log.Printf("Refresh already in flight for %s, skipping", key)
		return
	}
	m.inFlight[key] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inFlight, key)
		m.mu.Unlock()
	}()

	result := m.fetcher.Fetch(product.ASIN, product.Region)

	if result.Status == models.FetchFailed {
		log.Printf("Refresh failed for %s after %d attempt(s): %s", key, result.Attempts, result.ErrorMessage)
		next := result.ScrapedAt.Add(product.Interval())
		if err := m.products.AdvanceNextScrape(product.ID, next); err != nil {
			log.Printf("Failed to reschedule %s: %v", key, err)
		}
		m.sleep(m.opts.DelayAfterError)
		return
	}

	m.applyObservation(product, &result)
	m.sleep(m.opts.DelayAfterProduct)
}

// applyObservation persists a terminal observation: history first, then the
// product row, then alerts. History is written even when the later steps
// fail, so the observation log stays complete.
func (m *Monitor) applyObservation(product *models.MonitoredProduct, result *models.RegionResult) {
	key := product.Key()

	priceEntry := &models.PriceHistoryEntry{
		ProductID: product.ID,
		ASIN:      product.ASIN,
		Region:    product.Region,
		ScrapedAt: result.ScrapedAt,
	}
	if result.Price != nil {
		priceEntry.Price = sql.NullFloat64{Float64: *result.Price, Valid: true}
		priceEntry.PriceDisplay = sql.NullString{String: result.PriceDisplay, Valid: true}
	}
	if err := m.history.AddPriceEntry(priceEntry); err != nil {
		log.Printf("Failed to record price history for %s: %v", key, err)
	}

	if result.HasSeller() {
		sellerEntry := &models.SellerHistoryEntry{
			ProductID:   product.ID,
			ASIN:        product.ASIN,
			Region:      product.Region,
			SellerName:  result.SellerName,
			HasBuyBox:   result.HasBuyBox,
			TotalOffers: result.TotalOffers,
			ScrapedAt:   result.ScrapedAt,
		}
		if err := m.history.AddSellerEntry(sellerEntry); err != nil {
			log.Printf("Failed to record seller history for %s: %v", key, err)
		}
		if err := m.history.SaveSellerSnapshot(sellerEntry); err != nil {
			log.Printf("Failed to save seller snapshot for %s: %v", key, err)
		}
	}

	var events []models.AlertEvent
	if result.Status == models.FetchSuccess {
		delta := Diff(product, result)
		events = DecideAlerts(product, result, delta, product.AlertThresholdPercent)
		m.updateProductState(product, result, delta)
	} else {
		// Unavailable or shipping-restricted: keep the last known price
		// on the product row, just advance the schedule.
		scrapedAt := result.ScrapedAt
		product.LastScrapedAt = &scrapedAt
		product.NextScrapeAt = scrapedAt.Add(product.Interval())
		if result.Title != "" {
			product.Title = sql.NullString{String: result.Title, Valid: true}
		}
	}

	if err := m.products.Save(product); err != nil {
		log.Printf("Failed to save product %s: %v", key, err)
		return
	}

	for _, event := range events {
		m.dispatchAlert(event)
	}
}

func (m *Monitor) updateProductState(product *models.MonitoredProduct, result *models.RegionResult, delta StateDelta) {
	scrapedAt := result.ScrapedAt
	product.LastScrapedAt = &scrapedAt
	product.NextScrapeAt = scrapedAt.Add(product.Interval())

	if result.Title != "" {
		product.Title = sql.NullString{String: result.Title, Valid: true}
	}
	if result.ImageURL != "" {
		product.ImageURL = sql.NullString{String: result.ImageURL, Valid: true}
	}

	if result.Price != nil {
		if product.CurrentPrice.Valid {
			product.PreviousPrice = product.CurrentPrice
		}
		product.CurrentPrice = sql.NullFloat64{Float64: *result.Price, Valid: true}
		product.PriceDisplay = sql.NullString{String: result.PriceDisplay, Valid: true}
		if delta.HadPrice && delta.HasPrice {
			product.PriceChange = sql.NullFloat64{Float64: delta.PriceDelta, Valid: true}
			product.PriceChangePercent = sql.NullFloat64{Float64: delta.PriceChangePercent, Valid: true}
		}
	}

	// Keep the last known seller state when the page yielded no seller, so
	// one extraction gap cannot fake an ownership transition later.
	if result.HasSeller() {
		product.SellerName = sql.NullString{String: result.SellerName, Valid: true}
		product.HasBuyBox = result.HasBuyBox
		product.TotalOffers = result.TotalOffers
	}
}

// dispatchAlert records the alert, hands it to the notifier, and marks it
// delivered. Notifier failures are logged and never block the refresh.
func (m *Monitor) dispatchAlert(event models.AlertEvent) {
	entry := &models.AlertLogEntry{
		ProductID: event.ProductID,
		ASIN:      event.ASIN,
		Region:    event.Region,
		AlertType: event.Type,
		SentAt:    event.OccurredAt,
	}
	switch event.Type {
	case models.AlertPriceChange:
		entry.OldValue = fmt.Sprintf("%.2f", event.OldPrice)
		entry.NewValue = fmt.Sprintf("%.2f", event.NewPrice)
	default:
		entry.OldValue = event.OldSeller
		entry.NewValue = event.NewSeller
	}

	id, err := m.alerts.Record(entry)
	if err != nil {
		log.Printf("Failed to record %s alert for %s/%s: %v", event.Type, event.ASIN, event.Region, err)
	}

	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(event); err != nil {
		log.Printf("Failed to deliver %s alert for %s/%s: %v", event.Type, event.ASIN, event.Region, err)
		return
	}
	if id != 0 {
		if err := m.alerts.MarkDelivered(id); err != nil {
			log.Printf("Failed to mark alert %d delivered: %v", id, err)
		}
	}
}
