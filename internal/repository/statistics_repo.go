package repository

import (
	"context"
	"fmt"
	"time"

	"taxengine/internal/model"

	"gorm.io/gorm"
)

// StatisticsRepository runs the aggregate queries behind the dashboard
type StatisticsRepository interface {
	CountClients(ctx context.Context) (active, inactive int64, err error)
	CountGrouped(ctx context.Context, table, column string) (map[string]int64, error)
	UpcomingPeriodEnds(ctx context.Context, from, to time.Time, limit int) ([]model.UpcomingPeriod, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountClients(ctx context.Context) (int64, int64, error) {
	var rows []struct {
		IsActive bool
		Count    int64
	}
	if err := GetDB(ctx, r.db).Model(&model.ClientCompany{}).
		Select("is_active, COUNT(*) as count").
		Group("is_active").
		Scan(&rows).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	var active, inactive int64
	for _, row := range rows {
		if row.IsActive {
			active = row.Count
		} else {
			inactive = row.Count
		}
	}
	return active, inactive, nil
}

var groupableColumns = map[string]string{
	"accounting_periods": "status",
	"claim_packs":        "current_stage",
	"submissions":        "status",
}

// CountGrouped counts rows of table per distinct value of column.
// Only the table/column pairs in groupableColumns are accepted.
func (r *statisticsRepository) CountGrouped(ctx context.Context, table, column string) (map[string]int64, error) {
	if groupableColumns[table] != column {
		return nil, fmt.Errorf("unsupported grouping %s.%s", table, column)
	}

	var rows []struct {
		GroupKey string
		Count    int64
	}
	if err := GetDB(ctx, r.db).Table(table).
		Select(column + " as group_key, COUNT(*) as count").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", table, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.GroupKey] = row.Count
	}
	return out, nil
}

func (r *statisticsRepository) UpcomingPeriodEnds(ctx context.Context, from, to time.Time, limit int) ([]model.UpcomingPeriod, error) {
	var rows []model.UpcomingPeriod
	if err := GetDB(ctx, r.db).Table("accounting_periods").
		Select("accounting_periods.uuid as period_uuid, accounting_periods.client_company_uuid, client_companies.name as client_name, TO_CHAR(accounting_periods.end_date, 'YYYY-MM-DD') as end_date, accounting_periods.status").
		Joins("JOIN client_companies ON client_companies.id = accounting_periods.client_company_id").
		Where("accounting_periods.end_date BETWEEN ? AND ? AND accounting_periods.status <> ? AND client_companies.is_active = ?",
			from.Format("2006-01-02"), to.Format("2006-01-02"), model.PeriodSubmitted, true).
		Order("accounting_periods.end_date asc").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query upcoming period ends: %w", err)
	}
	return rows, nil
}
