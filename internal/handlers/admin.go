package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leasing-sync/internal/cleanup"
	"leasing-sync/internal/models"
	"leasing-sync/internal/report"
	"leasing-sync/internal/scheduler"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	db             *gorm.DB
	scheduler      *scheduler.Scheduler
	cleanupService *cleanup.Service
	logger         *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		db:             db,
		scheduler:      sched,
		cleanupService: cleanup.NewService(db, logger),
		logger:         logger,
	}
}

// TriggerRun manually starts a reconciliation run
func (h *AdminHandler) TriggerRun(c *gin.Context) {
	if h.scheduler.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{
			"error": "a reconciliation run is already in progress",
		})
		return
	}

	h.logger.Info("manual run trigger requested")

	// Run in goroutine to avoid blocking
	go func() {
		if _, err := h.scheduler.RunNow(); err != nil {
			h.logger.Error("manual run failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Reconciliation run started",
		"status":  "running",
	})
}

// GetRunStatus returns the current pipeline step message
func (h *AdminHandler) GetRunStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": h.scheduler.IsRunning(),
		"status":  h.scheduler.Status(),
	})
}

// ListRuns returns recent reconciliation runs, newest first
func (h *AdminHandler) ListRuns(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "30")
	limit, _ := strconv.Atoi(limitStr)
	if limit <= 0 || limit > 200 {
		limit = 30
	}

	var runs []models.SyncRun
	if err := h.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRunReport renders the change report for one run. ?format=html returns
// the HTML email body, otherwise markdown.
func (h *AdminHandler) GetRunReport(c *gin.Context) {
	batchID := c.Param("id")

	var run models.SyncRun
	if err := h.db.Where("batch_id = ?", batchID).First(&run).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var events []models.SolverEvent
	if err := h.db.Where("run_id = ?", run.BatchID).Order("id ASC").Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	known, err := h.knownPropertyCodes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "html" {
		body, err := report.RenderHTML(&run, events, known)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
		return
	}

	c.Data(http.StatusOK, "text/markdown; charset=utf-8",
		[]byte(report.RenderMarkdown(&run, events, known)))
}

// GetOpenFlags returns unresolved unit flags, optionally for one property
func (h *AdminHandler) GetOpenFlags(c *gin.Context) {
	query := h.db.Where("resolved_at IS NULL").Order("created_at DESC")
	if property := c.Query("property"); property != "" {
		query = query.Where("property_code = ?", property)
	}

	var flags []models.UnitFlag
	if err := query.Find(&flags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flags": flags,
		"count": len(flags),
	})
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	var activeTenancies, totalTenancies int64
	h.db.Model(&models.Tenancy{}).
		Where("status IN ?", models.ActiveTenancyStatuses).
		Count(&activeTenancies)
	h.db.Model(&models.Tenancy{}).Count(&totalTenancies)
	stats["tenancies"] = map[string]interface{}{
		"active": activeTenancies,
		"total":  totalTenancies,
	}

	var activeLeases int64
	h.db.Model(&models.Lease{}).Where("is_active = ?", true).Count(&activeLeases)
	stats["leases"] = map[string]interface{}{
		"active": activeLeases,
	}

	var availableUnits int64
	h.db.Model(&models.Availability{}).
		Where("is_active = ? AND status = ?", true, models.AvailabilityStatusAvailable).
		Count(&availableUnits)
	stats["availabilities"] = map[string]interface{}{
		"available": availableUnits,
	}

	var openFlags int64
	h.db.Model(&models.UnitFlag{}).Where("resolved_at IS NULL").Count(&openFlags)
	stats["flags"] = map[string]interface{}{
		"open": openFlags,
	}

	// Run activity (last 7 days)
	last7days := time.Now().AddDate(0, 0, -7)
	var recentRuns, recentFailures int64
	h.db.Model(&models.SyncRun{}).Where("started_at >= ?", last7days).Count(&recentRuns)
	h.db.Model(&models.SyncRun{}).
		Where("started_at >= ? AND status = ?", last7days, models.RunStatusFailed).
		Count(&recentFailures)
	stats["runs"] = map[string]interface{}{
		"last_7_days":   recentRuns,
		"failed_7_days": recentFailures,
	}

	c.JSON(http.StatusOK, stats)
}

// RunCleanup purges aged history: resolved flags, old completed runs and
// their events
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays    int  `json:"retention_days"`
		MaxDeletionCount int  `json:"max_deletion_count"`
		DryRun           bool `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := cleanup.DefaultConfig()
	if req.RetentionDays > 0 {
		cfg.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		cfg.MaxDeletionCount = req.MaxDeletionCount
	}
	cfg.DryRun = req.DryRun

	result, err := h.cleanupService.Purge(cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) knownPropertyCodes() (map[string]struct{}, error) {
	var properties []models.Property
	if err := h.db.Where("is_active = ?", true).Find(&properties).Error; err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		known[p.Code] = struct{}{}
	}
	return known, nil
}
