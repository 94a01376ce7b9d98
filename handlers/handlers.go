package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"boxtrack/config"
	"boxtrack/models"
	"boxtrack/repository"
	"boxtrack/scheduler"
	"boxtrack/scraper"
)

// Handlers bundles the HTTP surface over the monitor and repositories.
type Handlers struct {
	cfg         *config.Config
	products    *repository.ProductRepository
	history     *repository.HistoryRepository
	alerts      *repository.AlertLogRepository
	monitor     *scheduler.Monitor
	coordinator *scraper.MultiRegionCoordinator
}

// New creates the handler set.
func New(cfg *config.Config, products *repository.ProductRepository, history *repository.HistoryRepository,
	alerts *repository.AlertLogRepository, monitor *scheduler.Monitor, coordinator *scraper.MultiRegionCoordinator) *Handlers {
	return &Handlers{
		cfg:         cfg,
		products:    products,
		history:     history,
		alerts:      alerts,
		monitor:     monitor,
		coordinator: coordinator,
	}
}

func (h *Handlers) nowUTC() time.Time {
	return time.Now().UTC()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health reports process liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartMonitor begins the recurring refresh cycle.
func (h *Handlers) StartMonitor(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"isRunning": true})
}

// StopMonitor halts the recurring cycle.
func (h *Handlers) StopMonitor(w http.ResponseWriter, r *http.Request) {
	h.monitor.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{"isRunning": false})
}

// RunCycle triggers one cycle immediately, in the background.
func (h *Handlers) RunCycle(w http.ResponseWriter, r *http.Request) {
	go h.monitor.RunCycle()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cycle triggered"})
}

// MonitorStatus reports the scheduler's state.
func (h *Handlers) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.monitor.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read monitor status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// AddProduct registers a new (asin, region) pair and kicks off its first
// refresh in the background.
func (h *Handlers) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req models.AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ScrapeIntervalMinutes = h.cfg.ClampInterval(req.ScrapeIntervalMinutes)
	threshold := h.cfg.ThresholdOrDefault(req.AlertThresholdPercent)
	req.AlertThresholdPercent = &threshold
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.products.GetByASINRegion(req.ASIN, req.Region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check for existing product")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "product is already monitored in this region")
		return
	}

	product, err := h.products.Create(&req, models.CurrencyFor(req.Region), h.nowUTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	go func(id int) {
		if err := h.monitor.RefreshProduct(id); err != nil {
			log.Printf("Initial refresh failed for product %d: %v", id, err)
		}
	}(product.ID)

	writeJSON(w, http.StatusCreated, product)
}

// ListProducts returns all products, active first.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.GetAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []*models.MonitoredProduct{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct returns one product by id.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct deactivates a product, or deletes it with its history when
// ?purge=true is set.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}

	purge := r.URL.Query().Get("purge") == "true"
	var err error
	if purge {
		err = h.products.Purge(id)
	} else {
		err = h.products.Deactivate(id)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "purged": purge})
}

// PriceHistory returns a product's price observations, newest first.
func (h *Handlers) PriceHistory(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromPath(w, r)
	if !ok {
		return
	}
	entries, err := h.history.PriceHistory(product.ID, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	if entries == nil {
		entries = []*models.PriceHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// SellerHistory returns a product's seller observations, newest first.
func (h *Handlers) SellerHistory(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromPath(w, r)
	if !ok {
		return
	}
	entries, err := h.history.SellerHistory(product.ID, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load seller history")
		return
	}
	if entries == nil {
		entries = []*models.SellerHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ProductAlerts returns a product's fired alerts, newest first.
func (h *Handlers) ProductAlerts(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromPath(w, r)
	if !ok {
		return
	}
	entries, err := h.alerts.ForProduct(product.ID, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}
	if entries == nil {
		entries = []*models.AlertLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// RecentAlerts returns the latest alerts across all products.
func (h *Handlers) RecentAlerts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.alerts.Recent(limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}
	if entries == nil {
		entries = []*models.AlertLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ScrapeRequest is the payload for an ad-hoc multi-region scrape.
type ScrapeRequest struct {
	ASIN    string   `json:"asin"`
	Regions []string `json:"regions"`
}

// Scrape runs a one-off multi-region fetch without registering anything.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !models.ValidASIN(req.ASIN) {
		writeError(w, http.StatusBadRequest, "invalid ASIN: must be 10 alphanumeric characters")
		return
	}
	regions := req.Regions
	if len(regions) == 0 {
		regions = h.cfg.Regions
	}
	for _, region := range regions {
		if !models.ValidRegion(region) {
			writeError(w, http.StatusBadRequest, "unsupported region: "+region)
			return
		}
	}

	result := h.coordinator.FetchAll(req.ASIN, regions)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) productFromPath(w http.ResponseWriter, r *http.Request) (*models.MonitoredProduct, bool) {
	id, ok := idFromPath(w, r)
	if !ok {
		return nil, false
	}
	product, err := h.products.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return nil, false
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return nil, false
	}
	return product, true
}

func idFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func limitParam(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
