package models

import (
	"log"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{}, &Business{}, &Membership{},
		&CashSession{}, &ExpenseItem{}, &TransferItem{},
		&AuditLogEntry{},
		&DailyAggregate{},
	)
	if err != nil {
		log.Fatal(err)
	}

	ensureOpenSlotIndex()
}

// ensureOpenSlotIndex installs the column that makes "one open session per
// operator per business" a database fact rather than an application promise.
// open_slot is non-null only while the row is a live OPEN session; the unique
// index ignores NULLs, so closed and deleted rows never collide. AutoMigrate
// cannot express a stored generated column, hence the raw DDL.
func ensureOpenSlotIndex() {
	db := config.GetDB()

	var count int64
	err := db.Raw(`SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = 'cash_sessions' AND column_name = 'open_slot'`).
		Scan(&count).Error
	if err != nil {
		log.Fatal(err)
	}
	if count > 0 {
		return
	}

	if err := db.Exec(`ALTER TABLE cash_sessions
		ADD COLUMN open_slot VARCHAR(255)
		GENERATED ALWAYS AS (
			CASE WHEN status = 'OPEN' AND is_deleted = 0
				THEN CONCAT(operator_id, ':', business_id)
				ELSE NULL
			END
		) STORED`).Error; err != nil {
		log.Fatal(err)
	}
	if err := db.Exec(`ALTER TABLE cash_sessions ADD UNIQUE INDEX idx_open_slot (open_slot)`).Error; err != nil {
		log.Fatal(err)
	}
}
