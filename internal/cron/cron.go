package cron

import (
	"context"

	"github.com/google/wire"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewCron, NewJanitorJob)

type Cron struct {
	logger  *zap.Logger
	server  *cron.Cron
	janitor *JanitorJob
}

// NewCron .
func NewCron(logger *zap.Logger, janitor *JanitorJob) *Cron {
	server := cron.New(
		cron.WithSeconds(),
	)

	return &Cron{
		logger:  logger,
		server:  server,
		janitor: janitor,
	}
}

func (c *Cron) Run() error {
	// 每 10 分鐘清一次孤兒 thread 與已定稿訊息殘留的 delta
	if _, err := c.server.AddFunc("0 */10 * * * *", c.janitor.Run); err != nil {
		return err
	}

	c.server.Start()
	return nil
}

func (c *Cron) Stop(ctx context.Context) error {
	c.server.Stop()
	return nil
}
