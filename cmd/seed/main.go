// Command seed populates the review database with deterministic demo
// reviews. Re-running it replaces the previously seeded rows.
//
// Run: go run ./cmd/seed -products 50 -per-product 20
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trungse123/review-backend/internal/config"
	"github.com/trungse123/review-backend/internal/domain"
	"github.com/trungse123/review-backend/internal/repository/postgres"
	"github.com/trungse123/review-backend/migrations"
	"github.com/trungse123/review-backend/pkg/database"
	"github.com/trungse123/review-backend/pkg/logger"
)

// seedNamespace derives stable review ids so re-runs hit the same rows.
var seedNamespace = uuid.MustParse("6f1c2d9e-3b7a-4c1e-9a55-0d8e7f4b2a10")

var (
	customerNames = []string{
		"Nguyen Van An", "Tran Thi Bich", "Le Hoang Nam", "Pham Minh Chau",
		"Hoang Gia Huy", "Vu Thu Trang", "Dang Quoc Bao", "Bui Ngoc Lan",
		"Do Thanh Tung", "Ngo Phuong Linh",
	}
	titles = []string{
		"Rat hai long", "Dung nhu mo ta", "Giao hang nhanh", "Chat luong tot",
		"Tam on", "Khong nhu mong doi", "", "",
	}
	contents = []string{
		"San pham dep, dong goi can than.",
		"Chat vai mem, mac rat thoai mai.",
		"Mau sac giong hinh, se ung ho shop tiep.",
		"Size hoi nho so voi bang size.",
		"Giao hang cham hon du kien mot chut.",
		"Gia hop ly so voi chat luong.",
	}
	// ratingWeights skews toward positive reviews; index 0 is "no rating".
	ratingWeights = []int{5, 4, 6, 12, 30, 43}
)

func main() {
	products := flag.Int("products", 50, "number of products to seed")
	perProduct := flag.Int("per-product", 20, "reviews per product")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("review-seed", cfg.LogLevel)

	if err := run(cfg, log, *products, *perProduct); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, products, perProduct int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		AppName:  "review-seed",
		MaxConns: 4,
	}, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	rng := rand.New(rand.NewSource(42))
	reviews := generateReviews(rng, products, perProduct, time.Now().UTC())

	ids := make([]string, len(reviews))
	for i := range reviews {
		ids[i] = reviews[i].ID
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("clean previous seed: %w", err)
		}
		log.Info("removed previous seed data", slog.Int64("rows", tag.RowsAffected()))

		repo := postgres.NewReviewRepository(tx)
		for i := range reviews {
			if err := repo.Create(ctx, &reviews[i]); err != nil {
				return fmt.Errorf("seed review %d: %w", i, err)
			}
		}

		log.Info("seeded reviews",
			slog.Int("products", products),
			slog.Int("reviews", len(reviews)),
		)
		return nil
	})
}

// generateReviews builds perProduct reviews for product ids 1000..1000+products-1.
// Each phone reviews a product at most once, so the data respects the cooldown.
func generateReviews(rng *rand.Rand, products, perProduct int, now time.Time) []domain.Review {
	reviews := make([]domain.Review, 0, products*perProduct)

	for p := 0; p < products; p++ {
		productID := fmt.Sprintf("%d", 1000+p)

		for n := 0; n < perProduct; n++ {
			created := now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour)
			rating := pickRating(rng)

			review := domain.Review{
				ID:           uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("%s:%d", productID, n))).String(),
				ProductID:    productID,
				CustomerName: customerNames[rng.Intn(len(customerNames))],
				Phone:        fmt.Sprintf("09%08d", p*perProduct+n),
				Title:        titles[rng.Intn(len(titles))],
				Content:      contents[rng.Intn(len(contents))],
				Rating:       rating,
				ImageRefs:    []string{},
				IsPurchased:  rng.Intn(3) > 0,
				Status:       domain.ModerationStatus(rating),
				Replies:      []domain.Reply{},
				CreatedAt:    created,
				UpdatedAt:    created,
			}

			if review.Status == domain.StatusPending && rng.Intn(2) == 0 {
				review.Status = domain.StatusApproved
			}
			if rng.Intn(5) == 0 {
				review.Replies = append(review.Replies, domain.Reply{
					Name:      "Shop",
					Content:   "Cam on ban da danh gia san pham!",
					CreatedAt: created.Add(6 * time.Hour),
				})
			}

			reviews = append(reviews, review)
		}
	}

	return reviews
}

func pickRating(rng *rand.Rand) *float64 {
	total := 0
	for _, w := range ratingWeights {
		total += w
	}
	roll := rng.Intn(total)
	for stars, w := range ratingWeights {
		if roll < w {
			if stars == 0 {
				return nil
			}
			v := float64(stars)
			return &v
		}
		roll -= w
	}
	return nil
}
