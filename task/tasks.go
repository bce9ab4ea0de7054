package task

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/wattshare/wattshare-go/config"
	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/plants"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	RecorderTask    func()
	MaintenanceTask func()
}

func NewTasks(db *database.Database, plantSvc *plants.Service, cnfg *config.AppConfig) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		RecorderTask:    NewRecorderTask(logger.With(slog.String("task", "recorder")), plantSvc, cnfg.Recorder),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() {
	_, err := t.cron.AddFunc(t.cnfg.Recorder.GetRunAt(), t.RecorderTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("30 2 * * *", t.MaintenanceTask)
	if err != nil {
		panic(err)
	}
	t.cron.Start()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
