package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-shop/internal/config"
	"lesson-shop/internal/logger"
	"lesson-shop/internal/services"
	"lesson-shop/internal/storage"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lessons.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedInsertsLessons(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, logger.LevelDebug)
	path := writeSeed(t, `[
		{"subject":"Maths","location":"Hendon","price":100,"spaces":5,"image":"maths.png"},
		{"subject":"Music","location":"Colindale","price":0,"spaces":0,"image":"music.png"}
	]`)

	lessons, err := readSeed(path)
	require.NoError(t, err)

	store := storage.NewInMemoryStore()
	n, err := seed(context.Background(), services.NewLessonService(store, log), lessons)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, _ := store.ListLessons(context.Background())
	assert.Len(t, all, 2)
}

func TestSeedStopsAtInvalidLesson(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, logger.LevelDebug)
	lessons, err := readSeed(writeSeed(t, `[{"subject":"Maths","location":"Hendon","price":1,"spaces":1,"image":"m.png"},{"subject":"Art"}]`))
	require.NoError(t, err)

	n, err := seed(context.Background(), services.NewLessonService(storage.NewInMemoryStore(), log), lessons)
	assert.ErrorIs(t, err, services.ErrInvalidInput)
	assert.Equal(t, 1, n)
}

func TestReadSeedErrors(t *testing.T) {
	_, err := readSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = readSeed(writeSeed(t, `{"not":"an array"}`))
	assert.Error(t, err)
}

func TestMigrateMemoryAndUnknownDriver(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, logger.LevelDebug)

	s, err := migrate(context.Background(), &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMemory}}, log)
	require.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = migrate(context.Background(), &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}, log)
	assert.Error(t, err)
}
