package database

import (
	"taxengine/internal/model"

	"github.com/go-gormigrate/gormigrate/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrations lists every schema change in order. IDs are never reused or edited.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202602010001_enable_pgcrypto",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},
		{
			ID: "202602010002_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.TaxEngineUser{},
					&model.ClientCompany{},
					&model.AccountingPeriod{},
					&model.ClaimPack{},
					&model.ClaimAdjustment{},
					&model.Submission{},
					&model.AuditLog{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&model.AuditLog{},
					&model.Submission{},
					&model.ClaimAdjustment{},
					&model.ClaimPack{},
					&model.AccountingPeriod{},
					&model.ClientCompany{},
					&model.TaxEngineUser{},
				)
			},
		},
		{
			ID: "202602010003_settings_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Template{}, &model.GatewayConfig{}, &model.BillingProfile{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.BillingProfile{}, &model.GatewayConfig{}, &model.Template{})
			},
		},
		{
			ID: "202602080001_jobs_and_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&model.ProcessingJob{}, &model.Notification{}); err != nil {
					return err
				}
				// the runner polls queued jobs oldest first
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_processing_jobs_queue
					ON processing_jobs (created_at) WHERE status = 'queued'`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.Notification{}, &model.ProcessingJob{})
			},
		},
		{
			ID: "202602090001_period_end_unique",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounting_periods_client_end
					ON accounting_periods (client_company_id, end_date)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_accounting_periods_client_end`).Error
			},
		},
	}
}

// Migrate applies pending migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.Migrate(); err != nil {
		logger.Error("could not migrate", zap.Error(err))
		return err
	}
	logger.Info("migrations ran successfully", zap.Int("count", len(Migrations())))
	return nil
}
