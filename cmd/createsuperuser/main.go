// Command createsuperuser creates an admin account: role 0 with the
// superuser and staff flags set.  Such accounts cannot be registered over
// HTTP.  With -reactivate it instead turns an existing account, deactivated
// by a profile delete, back on.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/iliyamo/gym-server/internal/config"
	"github.com/iliyamo/gym-server/internal/database"
	"github.com/iliyamo/gym-server/internal/repository"
	"github.com/iliyamo/gym-server/internal/service"
	"github.com/iliyamo/gym-server/internal/utils"
)

func main() {
	log.SetFlags(0)
	var (
		email      = flag.String("email", "", "admin email")
		first      = flag.String("first-name", "Admin", "first name")
		last       = flag.String("last-name", "Admin", "last name")
		password   = flag.String("password", os.Getenv("SUPERUSER_PASSWORD"), "password (or SUPERUSER_PASSWORD)")
		reactivate = flag.Bool("reactivate", false, "reactivate the account with -email instead of creating one")
	)
	flag.Parse()

	if *email == "" || (*password == "" && !*reactivate) {
		log.Fatal("usage: createsuperuser -email admin@example.com -password ... | -email user@example.com -reactivate")
	}

	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	codec := utils.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	auth := service.NewAuthService(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), codec, nil)
	if *reactivate {
		u, err := auth.SetUserActive(ctx, *email, true)
		if err != nil {
			log.Fatalf("reactivate: %v", err)
		}
		log.Printf("user %s (id %d) reactivated", u.Email, u.ID)
		return
	}

	u, err := auth.CreateSuperuser(ctx, service.RegisterInput{
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Password:  *password,
	})
	if err != nil {
		log.Fatalf("create superuser: %v", err)
	}
	log.Printf("superuser %s created with id %d", u.Email, u.ID)
}
