package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID    uint
	Label string
}

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestInTxIsolation(t *testing.T) {
	db := testDB(t)
	report := NewReport()

	// First record fails after a write; second succeeds.
	ok := InTx(db, report, "widget 1", func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Label: "doomed"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	assert.False(t, ok)

	ok = InTx(db, report, "widget 2", func(tx *gorm.DB) error {
		return tx.Create(&widget{Label: "kept"}).Error
	})
	assert.True(t, ok)

	// The failed record rolled back, the sibling committed.
	var count int64
	db.Model(&widget{}).Count(&count)
	assert.Equal(t, int64(1), count)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "widget 1", report.Errors[0].Record)
	assert.Equal(t, "boom", report.Errors[0].Message)
}

func TestReportFinish(t *testing.T) {
	report := NewReport()
	report.Failf(errors.New("too long"), "stat %s", "kills")
	report.Finish()

	assert.Equal(t, "stat kills", report.Errors[0].Record)
	assert.NotEmpty(t, report.ExecutionTime)
}
