package auctions

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/jewelbid-backend/internal/cron"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

const closeJobName = "auction-close"

type closeJob struct {
	closer Closer
	logg   *logger.Logger
	now    func() time.Time
}

// NewCloseJob runs the closer on every cron tick.
func NewCloseJob(closer Closer, logg *logger.Logger) (cron.Job, error) {
	if closer == nil {
		return nil, fmt.Errorf("closer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &closeJob{closer: closer, logg: logg, now: time.Now}, nil
}

func (j *closeJob) Name() string { return closeJobName }

func (j *closeJob) Run(ctx context.Context) error {
	result, err := j.closer.CloseExpiredAuctions(ctx, j.now())
	logCtx := j.logg.WithField(ctx, "processed", result.Processed)
	if err != nil {
		return err
	}
	if result.Processed > 0 {
		j.logg.Info(logCtx, "expired auctions closed")
	}
	return nil
}
