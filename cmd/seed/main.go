package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/db"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/logger"
)

var specialties = []string{
	"General Dentistry",
	"Orthodontics",
	"Endodontics",
	"Periodontics",
	"Prosthodontics",
	"Oral Surgery",
	"Pediatric Dentistry",
}

var treatments = []struct {
	description string
	min, max    float64
}{
	{"Dental cleaning", 30, 60},
	{"Composite filling", 45, 120},
	{"Root canal", 180, 450},
	{"Tooth extraction", 60, 200},
	{"Crown placement", 300, 900},
	{"Teeth whitening", 120, 350},
	{"Orthodontic adjustment", 50, 150},
	{"Dental implant consultation", 40, 90},
}

func main() {
	doctors := flag.Int("doctors", 20, "number of doctors to seed")
	patients := flag.Int("patients", 2000, "number of patients to seed")
	flag.Parse()

	log, err := logger.New("info", "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{})
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if _, err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	s := &seeder{pool: pool, faker: faker, log: log}

	if err := s.seedDoctors(context.Background(), *doctors); err != nil {
		log.Fatal("seed doctors", zap.Error(err))
	}
	if err := s.seedTreatments(context.Background()); err != nil {
		log.Fatal("seed treatments", zap.Error(err))
	}
	if err := s.seedPatients(context.Background(), *patients); err != nil {
		log.Fatal("seed patients", zap.Error(err))
	}

	log.Info("seed complete")
}

type seeder struct {
	pool  *pgxpool.Pool
	faker *gofakeit.Faker
	log   *zap.Logger
}

func (s *seeder) seedDoctors(ctx context.Context, count int) error {
	s.log.Info("seeding doctors", zap.Int("count", count))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 1; i <= count; i++ {
		specialty := specialties[s.faker.Number(0, len(specialties)-1)]
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, fmt.Sprintf("D%03d", i), "Dr. "+s.faker.Name(), specialty)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *seeder) seedTreatments(ctx context.Context) error {
	s.log.Info("seeding treatments", zap.Int("count", len(treatments)))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, t := range treatments {
		cost := s.faker.Price(t.min, t.max)
		_, err := tx.Exec(ctx, `
			INSERT INTO treatments (id, description, cost)
			VALUES ($1, $2, $3::numeric)
			ON CONFLICT (id) DO NOTHING
		`, fmt.Sprintf("T%02d", i+1), t.description, fmt.Sprintf("%.2f", cost))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *seeder) seedPatients(ctx context.Context, count int) error {
	s.log.Info("seeding patients", zap.Int("count", count))

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email)
				VALUES ($1, $2, $3)
				ON CONFLICT (id) DO NOTHING
			`, fmt.Sprintf("P%05d", i+1), s.faker.Name(), s.faker.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		s.log.Info("patients seeded", zap.Int("done", end), zap.Int("total", count))
	}

	return nil
}
