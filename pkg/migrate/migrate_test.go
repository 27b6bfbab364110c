package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozz-online/mozz-backend/pkg/config"
	"github.com/mozz-online/mozz-backend/pkg/db"
	"github.com/mozz-online/mozz-backend/pkg/db/dbtest"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

func TestEmbeddedMigrationsValidate(t *testing.T) {
	require.NoError(t, ValidateDir(embeddedDir))
	require.NoError(t, ValidateFS(Migrations, embeddedDir))

	entries, err := fs.ReadDir(Migrations, embeddedDir)
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join(embeddedDir, "*.sql"))
	require.NoError(t, err)
	assert.Len(t, entries, len(onDisk))
}

func TestMigrationsDeclareUniqueIndexes(t *testing.T) {
	var all strings.Builder
	err := fs.WalkDir(Migrations, embeddedDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(Migrations, path)
		all.Write(b)
		return err
	})
	require.NoError(t, err)

	content := all.String()
	for _, idx := range []string{db.ConstraintToppingName, db.ConstraintPizzaName, db.ConstraintMemberEmail, db.ConstraintUserEmail} {
		assert.Contains(t, content, "CREATE UNIQUE INDEX IF NOT EXISTS "+idx)
	}
	assert.Contains(t, content, "PRIMARY KEY (pizza_id, topping_id)")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Pizza Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_pizza_notes.sql"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "-- +goose Up")
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestValidateFSRejectsBrokenMarkers(t *testing.T) {
	cases := map[string]string{
		"missing down":   "-- +goose Up\nSELECT 1;\n",
		"down before up": "-- +goose Down\n-- +goose Up\n",
		"unbalanced":     "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"20260301090000_broken.sql": {Data: []byte(body)}}
			assert.Error(t, ValidateFS(fsys, "."))
		})
	}
}

func TestValidateFSRejectsDuplicateVersions(t *testing.T) {
	ok := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"20260301090000_first.sql":  {Data: ok},
		"20260301090000_second.sql": {Data: ok},
	}
	assert.ErrorContains(t, ValidateFS(fsys, "."), "already used")
}

func TestMaybeRunDevSQLite(t *testing.T) {
	client := dbtest.Open(t)
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		DB:           config.DBConfig{Driver: config.DBDriverSQLite},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), client))

	cfg.App.Env = config.AppEnvProd
	require.NoError(t, MaybeRunDev(context.Background(), cfg, logger.Nop(), nil))
}
