package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/cleanup"
	"github.com/codeready-toolchain/meetingcore/pkg/database"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the job worker pool, discovery poller, subscription manager and retention sweep",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	pool := queue.NewWorkerPool(workerPoolID(), a.jobs, a.cfg.Queue.ToPoolConfig(), a.jobRegistry())
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting worker pool: %w", err)
	}

	poller := a.discoveryPoller()
	poller.Start(ctx)

	// The relay listener must be up before the subscription manager's first
	// Ensure runs — Manager.Start delays briefly for exactly this reason, but
	// starting the listener first too means that delay is pure margin, not
	// the only thing standing between startup and a dropped notification.
	var relayListener interface{ Stop() }
	if a.cfg.Relay.Enabled {
		l := a.relayListener()
		l.Start(ctx)
		relayListener = l
	}

	subMgr := a.subscriptionManager()
	subMgr.Start(ctx)

	cleanupSvc := cleanup.NewService(a.cfg.Retention, a.jobs)
	cleanupSvc.Start(ctx)

	srv := newHealthServer(a)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintln(os.Stderr, "health server error:", err)
		}
	}()

	fmt.Println("meetingcore worker running. Press Ctrl+C to stop.")
	<-ctx.Done()
	fmt.Println("\nShutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Queue.GracefulShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if relayListener != nil {
		relayListener.Stop()
	}
	cleanupSvc.Stop()
	subMgr.Stop()
	poller.Stop()
	pool.Stop()

	return nil
}

func workerPoolID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// newHealthServer builds the liveness/readiness/manual-trigger HTTP
// surface.
func newHealthServer(a *app) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := database.Health(reqCtx, a.db.Pool)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": dbHealth, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": dbHealth})
	})

	router.GET("/readyz", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := database.Health(reqCtx, a.db.Pool); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true})
	})

	// Manual trigger: process a callRecords id directly, bypassing the
	// relay/poller discovery paths entirely — used by operators
	// recovering a specific meeting that the automated paths missed.
	router.POST("/trigger/call-record/:id", func(c *gin.Context) {
		result := a.ingestHandler.ProcessCallRecord(c.Request.Context(), c.Param("id"), "manual")
		status := http.StatusOK
		if result.Status == "error" {
			status = http.StatusInternalServerError
		}
		c.JSON(status, result)
	})

	// Admin exclusion: disables distribution for a meeting and cancels any
	// pending/retrying jobs still queued for it — used when a meeting is
	// excluded or opted out after its chain was already enqueued.
	router.POST("/admin/meetings/:id/exclude", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
			return
		}
		reqCtx := c.Request.Context()

		if err := a.meetings.SetDistributionEnabled(reqCtx, id, false, "admin"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		cancelled, err := a.jobs.CancelMeetingJobs(reqCtx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"meeting_id": id, "cancelled_jobs": cancelled})
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		Handler: router,
	}
}
