package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterGormTracing adds a span per query. Query variables are left out of
// span attributes so that seller data does not reach the collector.
func RegisterGormTracing(db *gorm.DB, dbName string, logger *zap.Logger) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("database tracing enabled", zap.String("db_name", dbName))
	}
	return nil
}
