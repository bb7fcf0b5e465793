// Package dbtest opens throwaway SQLite databases with the settlement schema for tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nurpe/trip-settlements/internal/model"
)

// New returns an empty in-memory database. Every test gets its own copy.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	// :memory: is private to a connection.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(&model.Unit{}, &model.Operator{}, &model.Settlement{}))
	for _, category := range model.Categories {
		require.NoError(t, database.Table(category.Table()).AutoMigrate(&model.Expense{}))
	}
	return database
}

// SeedUnit inserts a unit of the given category and returns it.
func SeedUnit(t *testing.T, database *gorm.DB, category string) model.Unit {
	t.Helper()
	unit := model.Unit{ID: uuid.New(), Number: "T-" + uuid.NewString()[:4], Category: category, Plates: "ABC-123"}
	require.NoError(t, database.Create(&unit).Error)
	return unit
}

func SeedOperator(t *testing.T, database *gorm.DB) model.Operator {
	t.Helper()
	operator := model.Operator{ID: uuid.New(), FirstName: "Ramon", LastName: "Estrada"}
	require.NoError(t, database.Create(&operator).Error)
	return operator
}
