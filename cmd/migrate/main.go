package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"lesson-shop/internal/config"
	"lesson-shop/internal/logger"
	"lesson-shop/internal/models"
	"lesson-shop/internal/services"
	"lesson-shop/internal/storage"
)

func main() {
	envFlag := flag.String("env", "dev", "Environment (dev, test, prod)")
	envFileFlag := flag.String("env-file", "", "Path to .env file")
	seedFlag := flag.String("seed", "", "Path to a JSON array of lessons to insert")
	flag.Parse()

	log := logger.NewLogger()
	defer log.Close()

	loadEnv(log, *envFlag, *envFileFlag)
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.LoadProperties(path); err != nil {
			log.Warn("CONFIG", err.Error())
		}
	} else if err := config.LoadProperties("conf/db.properties"); err != nil {
		log.Debug("CONFIG", err.Error())
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := migrate(ctx, cfg, log)
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	defer store.Close()
	log.LogProcess("MIGRATE", "Schema ready")

	if *seedFlag == "" {
		return
	}

	lessons, err := readSeed(*seedFlag)
	if err != nil {
		log.Fatal("SEED", err.Error())
	}
	n, err := seed(ctx, services.NewLessonService(store, log), lessons)
	if err != nil {
		log.Fatal("SEED", err.Error())
	}
	log.LogProcess("SEED", fmt.Sprintf("Inserted %d lessons from %s", n, *seedFlag))
}

// migrate connects to the configured backend and creates its indexes or tables.
func migrate(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		s, err := storage.NewMongoStore(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.DriverMySQL:
		s, err := storage.NewMySQLStore(cfg.MySQL, log)
		if err != nil {
			return nil, err
		}
		if err := s.InitTables(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return storage.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Database.Driver)
	}
}

func readSeed(path string) ([]models.LessonRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var lessons []models.LessonRequest
	if err := json.Unmarshal(data, &lessons); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return lessons, nil
}

// seed inserts every lesson, stopping at the first invalid entry.
func seed(ctx context.Context, svc *services.LessonService, lessons []models.LessonRequest) (int, error) {
	for i := range lessons {
		if _, err := svc.CreateLesson(ctx, &lessons[i]); err != nil {
			return i, fmt.Errorf("lesson %d: %w", i, err)
		}
	}
	return len(lessons), nil
}

func loadEnv(log *logger.Logger, env string, envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err == nil {
			log.Info("ENV", "Loaded environment from "+envFile)
			return
		}
	}

	envSpecificFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envSpecificFile); err == nil {
		log.Info("ENV", "Loaded environment from "+envSpecificFile)
		return
	}

	if err := godotenv.Load(); err == nil {
		log.Info("ENV", "Loaded environment from .env")
		return
	}

	log.Info("ENV", "No .env file found, using default or system environment variables")
}
