package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/config"
	"github.com/sendgate/sendgate/internal/models"
)

type Repositories struct {
	TenantRepository      interfaces.TenantRepository
	SendRecordRepository  interfaces.SendRecordRepository
	BatchRepository       interfaces.BatchRepository
	IdempotencyRepository interfaces.IdempotencyRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		TenantRepository:      NewTenantRepository(db),
		SendRecordRepository:  NewSendRecordRepository(db),
		BatchRepository:       NewBatchRepository(db),
		IdempotencyRepository: NewIdempotencyRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.SendRecord{},
		&models.Batch{},
		&models.IdempotencyRecord{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
