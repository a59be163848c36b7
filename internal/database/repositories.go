package database

import (
	"github.com/frostdev-ops/kpi-backend-go/internal/database/repositories"
	"github.com/frostdev-ops/kpi-backend-go/internal/database/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Repositories holds all repository instances
type Repositories struct {
	KPI     repositories.KPIRepository
	History repositories.KPIHistoryRepository
	Alert   repositories.KPIAlertRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *sqlx.DB, log *logrus.Logger) *Repositories {
	return &Repositories{
		KPI:     sqlite.NewKPIRepository(db, log),
		History: sqlite.NewKPIHistoryRepository(db, log),
		Alert:   sqlite.NewKPIAlertRepository(db, log),
	}
}
