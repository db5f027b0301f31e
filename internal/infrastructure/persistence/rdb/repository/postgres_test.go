package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"trustscore/internal/domain/reliability"
	"trustscore/internal/infrastructure/persistence/rdb/model"
	"trustscore/internal/infrastructure/persistence/rdb/uow"
	"trustscore/internal/ports"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func TestPostgres_AdvisoryLockSerializesChain(t *testing.T) {
	db := setupPostgres(t)
	summaries := NewSummaryRepository(db)
	logs := NewAuditLogRepository(db)
	unit := uow.NewUnitOfWork(db)
	ref := reliability.NewEntityRef(reliability.ModelProducts, uuid.NewString())
	t.Cleanup(func() {
		db.Where("foreign_key = ?", ref.ID).Delete(&model.ReliabilityLog{})
		db.Where("foreign_key = ?", ref.ID).Delete(&model.ReliabilitySummary{})
	})

	const writers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- unit.WithTx(context.Background(), func(ctx context.Context) error {
				if err := summaries.LockKey(ctx, ref); err != nil {
					return err
				}
				var from *float64
				prior, err := summaries.FindByKey(ctx, ref)
				switch {
				case err == nil:
					from = &prior.TotalScore
				case !errors.Is(err, ports.ErrSummaryNotFound):
					return err
				}
				s := newSummary(ref.ID, 0.5, 50, "v1")
				s.ID = uuid.NewString()
				if _, err := summaries.Upsert(ctx, s); err != nil {
					return err
				}
				e := newEntry(ref.ID, from, 0.5, "system", reliability.FormatTimestamp(time.Now()))
				e.ID = uuid.NewString()
				return logs.Insert(ctx, e)
			})
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("writer error = %v", err)
		}
	}

	chain, err := logs.ListByKey(context.Background(), ref)
	if err != nil {
		t.Fatalf("ListByKey() error = %v", err)
	}
	if len(chain) != writers {
		t.Fatalf("chain len = %d, want %d", len(chain), writers)
	}
	firsts := 0
	for _, e := range chain {
		if e.FromTotalScore == nil {
			firsts++
		}
	}
	if firsts != 1 {
		t.Fatalf("entries without prior state = %d, want 1", firsts)
	}
}
