package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	analytics "scada-cloud/internal/analytics/domain"
	analyticspostgres "scada-cloud/internal/analytics/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestBucketUpsert_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "hourly_buckets") {
		t.Skip("hourly_buckets missing; run migrations")
	}

	ctx := context.Background()
	pointID := "point-it"
	deviceID := "device-it"
	hourStart := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	_, _ = db.ExecContext(ctx, "DELETE FROM hourly_buckets WHERE data_point_id = $1", pointID)

	repo := analyticspostgres.NewBucketRepository(db)

	bucket := &analytics.Bucket{
		DeviceID:    deviceID,
		DataPointID: pointID,
		BucketStart: hourStart,
		Min:         10,
		Max:         30,
		Avg:         20,
		Sum:         60,
		Count:       3,
		UpdatedAt:   time.Now().UTC(),
	}

	created, err := repo.Upsert(ctx, analytics.GranularityHourly, bucket)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Fatal("first upsert must create")
	}

	bucket.Max = 35
	bucket.Sum = 65
	created, err = repo.Upsert(ctx, analytics.GranularityHourly, bucket)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatal("second upsert must update the same row")
	}

	stored, err := repo.FindByPointAndStart(ctx, analytics.GranularityHourly, pointID, hourStart)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil {
		t.Fatal("bucket not found after upsert")
	}
	if stored.Max != 35 || stored.Sum != 65 || stored.Count != 3 {
		t.Fatalf("stored = %+v", stored)
	}

	items, total, err := repo.List(ctx, analytics.GranularityHourly, analytics.BucketFilter{
		DataPointID: pointID,
		Page:        1,
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("list total=%d len=%d", total, len(items))
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
