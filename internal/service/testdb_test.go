package service

import (
	"path/filepath"
	"testing"

	"tinyvault/internal/config"
	"tinyvault/internal/models"
	"tinyvault/internal/shortcode"
	"tinyvault/internal/storage"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Item{}, &models.ProcessedUpdate{}); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func testVaultConfig() config.VaultConfig {
	return config.VaultConfig{
		CodeAlphabet:    shortcode.DefaultAlphabet,
		CodeLength:      7,
		MaxCodeAttempts: 5,
		ListLimit:       5,
		MaxContentBytes: 10000,
	}
}

// fixedGenerator always returns the same codes in order, cycling the last
// one forever. Lets tests force collisions deterministically.
type fixedGenerator struct {
	codes []string
	next  int
}

func (g *fixedGenerator) Generate() (string, error) {
	code := g.codes[g.next]
	if g.next < len(g.codes)-1 {
		g.next++
	}
	return code, nil
}

func newTestServices(t *testing.T, db *gorm.DB, gen codeGenerator) (*ItemService, *UserService, *Processor) {
	t.Helper()

	if gen == nil {
		realGen, err := shortcode.NewGenerator(shortcode.DefaultAlphabet, 7)
		if err != nil {
			t.Fatalf("failed to build generator: %v", err)
		}
		gen = realGen
	}

	vault := testVaultConfig()
	items := NewItemService(storage.NewItemRepository(db), gen, vault)
	users := NewUserService(storage.NewUserRepository(db))
	processor := NewProcessor(db, items, users, storage.NewUpdateRepository(db), vault)
	return items, users, processor
}
