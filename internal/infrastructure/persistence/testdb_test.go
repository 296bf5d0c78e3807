package persistence

import (
	"testing"

	"github.com/wintercreative/lagoon/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.GroupModel{},
		&models.GroupAttributeModel{},
		&models.GroupRealmRoleModel{},
		&models.GroupMemberModel{},
		&models.UserModel{},
		&models.RealmRoleModel{},
		&models.ProjectModel{},
		&models.EnvironmentModel{},
		&models.EnvironmentHitsModel{},
		&models.EnvironmentStorageModel{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
