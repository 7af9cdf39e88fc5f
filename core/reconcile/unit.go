package reconcile

import (
	"gorm.io/gorm"
)

// InTx runs one record's work inside its own transaction. A failure is
// converted into a report entry instead of aborting the batch, so sibling
// records are unaffected. Each call gets a fresh transaction handle rather
// than sharing one session across sequential finds.
func InTx(db *gorm.DB, report *Report, record string, fn func(tx *gorm.DB) error) bool {
	if err := db.Transaction(fn); err != nil {
		report.Fail(record, err)
		return false
	}
	return true
}
