package db

import (
	"time"

	"smartcommerce/internal/metrics"

	"gorm.io/gorm"
)

const startedAtKey = "metrics:started_at"

// 全クエリの処理時間をPrometheusに記録する
func registerMetricsCallbacks(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", markStart); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", observe("insert")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", markStart); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", observe("select")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", markStart); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", observe("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", markStart); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("metrics:after_delete", observe("delete")); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("metrics:before_row", markStart); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("metrics:after_row", observe("row")); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("metrics:before_raw", markStart); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("metrics:after_raw", observe("raw"))
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func observe(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		if start, ok := v.(time.Time); ok {
			metrics.ObserveDBQuery(operation, start)
		}
	}
}
