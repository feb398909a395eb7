package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"scrapdeal/internal/auth"
	"scrapdeal/internal/cache"
	"scrapdeal/internal/config"
	"scrapdeal/internal/db"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/model"
	"scrapdeal/internal/repository"
	"scrapdeal/internal/service"
	"scrapdeal/internal/storage"
)

const seedPassword = "password123"

var materials = []string{"copper", "aluminium", "brass", "steel", "iron", "lead", "plastic", "cardboard", "e-waste"}

func main() {
	sellers := flag.Int("sellers", 3, "number of sellers to create")
	perSeller := flag.Int("products", 5, "listings per seller")
	buyers := flag.Int("buyers", 3, "number of buyers to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("config", err)
	}
	log := logger.Init(cfg.IsProduction())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		fatal("database init", err)
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		fatal("auto-migrate", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	images, err := storage.NewDiskStore(cfg.UploadDir, cfg.MaxUploadMB)
	if err != nil {
		fatal("upload dir", err)
	}

	repos := repository.NewRepositories(gormDB)
	tx := repository.NewTxManager(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(repos.Users, jwtService, auth.NewTokenStore(cacheClient))
	productService := service.NewProductService(repos, tx, cacheClient, images)

	gofakeit.Seed(time.Now().UnixNano())
	ctx := context.Background()

	listed := 0
	for i := 0; i < *sellers; i++ {
		session, err := signup(ctx, authService, model.RoleSeller)
		if err != nil {
			fatal("seed seller", err)
		}
		for j := 0; j < *perSeller; j++ {
			quantity := gofakeit.Number(10, 500)
			_, err := productService.CreateListing(ctx, session.User.ID, service.CreateListingInput{
				Name:        gofakeit.RandomString(materials) + " " + gofakeit.Noun(),
				Description: gofakeit.Sentence(10),
				Type:        gofakeit.RandomString(materials),
				Price:       decimal.NewFromFloat(gofakeit.Price(0.5, 50)).Round(2),
				Quantity:    quantity,
				MinOrderQty: gofakeit.Number(1, quantity/5+1),
			})
			if err != nil {
				fatal("seed listing", err)
			}
			listed++
		}
		fmt.Printf("seller  %-40s %s\n", session.User.Email, seedPassword)
	}

	for i := 0; i < *buyers; i++ {
		session, err := signup(ctx, authService, model.RoleBuyer)
		if err != nil {
			fatal("seed buyer", err)
		}
		fmt.Printf("buyer   %-40s %s\n", session.User.Email, seedPassword)
	}

	log.Info("seed completed",
		slog.Int("sellers", *sellers),
		slog.Int("buyers", *buyers),
		slog.Int("listings", listed),
	)
}

func signup(ctx context.Context, authService service.AuthService, role model.Role) (*service.Session, error) {
	profile := service.ProfileFields{
		Address: gofakeit.Street() + ", " + gofakeit.City(),
		Phone:   gofakeit.Phone(),
	}
	if role == model.RoleBuyer {
		profile.BusinessName = gofakeit.Company()
	}
	return authService.Signup(ctx, service.SignupInput{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: seedPassword,
		Role:     role,
		Profile:  profile,
	})
}

func fatal(msg string, err error) {
	logger.L.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}
