// shm-monitor is the operator tool for the shared memory substrate: it
// dumps the health table and control flags, toggles the control flags, and
// removes the segments when the pipeline is torn down.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spreadscan/spreadscan/config"
	"github.com/spreadscan/spreadscan/shm"
)

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	log, err := cfg.Build()
	if err != nil {
		os.Exit(1)
	}
	return log
}

func slotName(id int) string {
	switch {
	case id < shm.NumSources:
		return shm.SourceID(id).String()
	case id == shm.ProcEngine:
		return "engine"
	case id == shm.ProcTracker:
		return "tracker"
	case id == shm.ProcDiscovery:
		return "discovery"
	case id == shm.ProcMonitor:
		return "monitor"
	default:
		return fmt.Sprintf("slot_%d", id)
	}
}

func dump(control *shm.ControlStore, health *shm.HealthTable) {
	fmt.Printf("control: pause=%v kill=%v shutdown=%v config_version=%d\n",
		control.IsPaused(), control.IsKilled(), control.IsShutdown(), control.ConfigVersion())

	now := uint64(time.Now().UnixMicro())
	fmt.Printf("%-4s %-16s %-9s %-10s %-10s %-7s %-5s %s\n",
		"slot", "process", "status", "hb_age", "msgs", "errs", "conns", "uptime")
	for i, snap := range health.ReadAll() {
		if snap.Status == shm.StatusUnknown && snap.HeartbeatUS == 0 {
			continue
		}
		age := "never"
		if snap.HeartbeatUS > 0 && now >= snap.HeartbeatUS {
			age = (time.Duration(now-snap.HeartbeatUS) * time.Microsecond).Truncate(time.Millisecond).String()
		}
		fmt.Printf("%-4d %-16s %-9s %-10s %-10d %-7d %-5d %ds\n",
			i, slotName(i), snap.Status, age, snap.MsgCount, snap.ErrCount, snap.Connections, snap.UptimeSec)
	}
}

func main() {
	configPath := flag.String("config", "config/config.toml", "path to config file")
	watch := flag.Duration("watch", 0, "refresh interval (0 = dump once)")
	setPause := flag.Bool("pause", false, "set the global pause flag")
	resume := flag.Bool("resume", false, "clear the global pause flag")
	kill := flag.Bool("kill", false, "set the kill switch")
	shutdown := flag.Bool("shutdown", false, "set the graceful shutdown flag")
	clear := flag.Bool("clear", false, "clear kill and shutdown flags")
	bump := flag.Bool("bump-config", false, "increment the config version")
	cleanup := flag.Bool("cleanup", false, "remove all segments and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := newLogger(cfg.General.LogLevel)
	defer log.Sync()

	g := cfg.General

	if *cleanup {
		for _, name := range []string{g.ShmSeqs, g.ShmData, g.ShmBitmap, g.ShmEvents, g.ShmHealth, g.ShmControl} {
			if err := shm.RemoveSegment(name); err != nil {
				log.Fatal("remove segment", zap.String("name", name), zap.Error(err))
			}
			log.Info("segment removed", zap.String("name", name))
		}
		return
	}

	control, err := shm.OpenControlStore(g.ShmControl)
	if err != nil {
		log.Fatal("open control store", zap.Error(err))
	}
	defer control.Close()

	health, err := shm.OpenHealthTable(g.ShmHealth)
	if err != nil {
		log.Fatal("open health table", zap.Error(err))
	}
	defer health.Close()

	switch {
	case *setPause:
		control.SetPause(true)
		log.Info("pause set")
	case *resume:
		control.SetPause(false)
		log.Info("pause cleared")
	}
	if *kill {
		control.SetKillSwitch(true)
		log.Info("kill switch set")
	}
	if *shutdown {
		control.SetShutdown(true)
		log.Info("shutdown set")
	}
	if *clear {
		control.SetKillSwitch(false)
		control.SetShutdown(false)
		log.Info("kill and shutdown cleared")
	}
	if *bump {
		v := control.IncrementConfigVersion()
		log.Info("config version bumped", zap.Uint64("version", v))
	}

	dump(control, health)
	if *watch <= 0 {
		return
	}
	for range time.Tick(*watch) {
		fmt.Println()
		dump(control, health)
	}
}
