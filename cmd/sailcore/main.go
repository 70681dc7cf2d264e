package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sailcore/sailcore/internal/alarm"
	"github.com/sailcore/sailcore/internal/config"
	"github.com/sailcore/sailcore/internal/gpsingest"
	"github.com/sailcore/sailcore/internal/health"
	"github.com/sailcore/sailcore/internal/logger"
	"github.com/sailcore/sailcore/internal/metrics"
	"github.com/sailcore/sailcore/internal/mission"
	"github.com/sailcore/sailcore/internal/navigator"
	"github.com/sailcore/sailcore/internal/ottolink"
	"github.com/sailcore/sailcore/internal/polar"
	"github.com/sailcore/sailcore/internal/sharedstate"
	"github.com/sailcore/sailcore/internal/waypoint"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

var Version = "0.1.0"

func main() {
	fmt.Printf("sailcore v%s — guidance core\n", Version)

	cfg, err := config.Load(os.Getenv("SAILCORE_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		LogDir:     cfg.Logger.LogDir,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Compress:   true,
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	store, err := sharedstate.New(ctx, sharedstate.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger.Sugar())
	if err != nil {
		logger.Fatal("failed to connect to shared-state backend", zap.Error(err))
	}
	defer store.Close()

	missionFile, err := mission.LoadFile(cfg.Mission.FilePath)
	if err != nil {
		logger.Fatal("failed to load mission file", zap.Error(err))
	}

	ottoPort, err := openSerial(cfg.Otto.Port, cfg.Otto.Baud)
	if err != nil {
		logger.Fatal("failed to open otto serial port", zap.Error(err))
	}
	gpsPort, err := openSerial(cfg.GPS.Port, cfg.GPS.Baud)
	if err != nil {
		logger.Fatal("failed to open gps serial port", zap.Error(err))
	}

	m := metrics.New()

	ottoState := &ottolink.State{}
	if err := ottolink.Sync(ctx, ottoPort, logger.Sugar()); err != nil {
		logger.Fatal("otto handshake failed", zap.Error(err))
	}
	lastOttoSync := time.Now()

	fix := &gpsingest.GpsFix{}

	healthChecker := health.NewHealthChecker()
	healthChecker.RegisterCheck("redis", health.RedisHealthCheck(func(ctx context.Context) error {
		return store.Load(ctx, &mission.Status{})
	}), 30*time.Second)
	healthChecker.RegisterCheck("memory", health.MemoryHealthCheck(func() (used, total uint64) {
		m.UpdateSystemMetrics()
		return m.MemoryUsed, m.MemoryTotal
	}), time.Minute)
	healthChecker.RegisterCheck("goroutines", health.GoroutineHealthCheck(func() int {
		m.UpdateSystemMetrics()
		return m.GoroutineCount
	}, 500), time.Minute)
	healthChecker.RegisterCheck("otto_sync", health.OttoSyncHealthCheck(func() (time.Time, bool) {
		return lastOttoSync, true
	}, 2*time.Minute), 30*time.Second)
	healthChecker.RegisterCheck("gps_freshness", health.GPSFreshnessHealthCheck(func() (time.Time, bool) {
		_ = store.Load(ctx, fix)
		return fix.Time, fix.Valid
	}, 30*time.Second), 30*time.Second)
	healthChecker.RegisterCheck("log_disk_space", health.DiskSpaceHealthCheck(func() (used, total uint64) {
		return diskUsage(cfg.Logger.LogDir)
	}), time.Minute)
	healthChecker.StartPeriodicChecks(ctx)

	ottoReader := ottolink.NewReader(ottoPort, ottoState, store, logger.WithTask("otto_reader").Sugar(), func(name string) {
		m.IncrementAlarmsRaised()
		if name == "OTTO_RESTART" {
			m.IncrementOttoResyncs()
			if err := alarm.Raise(ctx, store, alarm.OttoRestart); err != nil {
				logger.WithTask("otto_reader").Warn("failed to raise alarm", zap.Error(err))
			}
		}
		logger.WithTask("otto_reader").Warn("alarm raised", zap.String("alarm", name))
	})
	ottoWriter := ottolink.NewWriter(ottoPort, logger.WithTask("otto_writer").Sugar())

	ingest := gpsingest.NewIngest(gpsPort, store, logger.WithTask("gps_ingest").Sugar(), func(name string) {
		m.IncrementAlarmsRaised()
		m.IncrementGPSFixes(false)
		if name == "GPS_INVALID" {
			if err := alarm.Raise(ctx, store, alarm.GPSInvalid); err != nil {
				logger.WithTask("gps_ingest").Warn("failed to raise alarm", zap.Error(err))
			}
		}
		logger.WithTask("gps_ingest").Warn("alarm raised", zap.String("alarm", name))
	})

	runID := uuid.NewString()
	status := mission.NewStatus(runID)
	if err := store.Setup(ctx, status); err != nil {
		logger.Fatal("failed to seed mission status", zap.Error(err))
	}

	if cfg.Navigator.ReachedDistanceNM > 0 {
		waypoint.ReachedThresholdNM = cfg.Navigator.ReachedDistanceNM
	}

	navCfg := navigator.Config{
		SwingDegrees:       cfg.Navigator.SwingDegrees,
		LookaheadWaypoints: cfg.Navigator.LookaheadWaypoints,
	}
	supervisor := mission.NewSupervisor(store, ottoWriter, missionFile, status, polar.DefaultCurve, navCfg, m, logger.WithMissionRun(runID).Sugar())

	var wg sync.WaitGroup
	runTask := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				logger.WithTask(name).Error("task exited with error", zap.Error(err))
			}
		}()
	}

	runTask("otto_reader", ottoReader.Run)
	runTask("otto_writer", ottoWriter.Run)
	runTask("gps_ingest", ingest.Run)
	runTask("mission_supervisor", supervisor.Run)

	logger.Info(fmt.Sprintf("sailcore running mission %q (run %s)", missionFile.Title, runID))

	wg.Wait()
	logger.Info("sailcore shutting down")
}

// diskUsage reports used/total bytes on the filesystem holding dir, for
// the log-rotation disk-space health check.
func diskUsage(dir string) (used, total uint64) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, 0
	}
	total = stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	return total - free, total
}

func openSerial(portName string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(portName, mode)
}

func handleSignals(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("received shutdown signal")
	cancel()
}
