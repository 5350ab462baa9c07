package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cragline/backend/internal/authctx"
	"cragline/backend/internal/config"
	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/firebase"
	"cragline/backend/internal/logger"
)

// set-claims grants or revokes the platform admin claim and mirrors a
// user's gym administrator roles into their token.
//
//	set-claims -uid=abc -admin
//	set-claims -uid=abc -revoke-admin
//	set-claims -uid=abc -sync-gyms
func main() {
	uid := flag.String("uid", "", "target firebase uid")
	admin := flag.Bool("admin", false, "grant the platform admin claim")
	revoke := flag.Bool("revoke-admin", false, "remove the platform admin claim")
	syncGyms := flag.Bool("sync-gyms", false, "copy gym administrator roles into claims")
	flag.Parse()

	ctx := context.Background()
	log := logger.New(logger.Options{ServiceName: "set-claims", Format: "console", Output: os.Stderr})

	if *uid == "" {
		log.Fatal(ctx, "uid is required: -uid=xxxxx", nil)
	}
	if *admin && *revoke {
		log.Fatal(ctx, "-admin and -revoke-admin are exclusive", nil)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(ctx, "config", err)
	}
	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		log.Fatal(ctx, "firebase init failed", err)
	}
	defer clients.Close()

	rec, err := clients.Auth.GetUser(ctx, *uid)
	if err != nil {
		log.Fatal(ctx, "GetUser", err)
	}

	patch := map[string]any{}
	switch {
	case *admin:
		patch["admin"] = true
	case *revoke:
		patch["admin"] = nil
	}
	if *syncGyms {
		gc, err := gym.NewService(gym.NewFirestoreRepo(clients.Firestore)).Claims(ctx, *uid)
		if err != nil {
			log.Fatal(ctx, "read gym roles", err)
		}
		for k, v := range gc {
			patch[k] = v
		}
	}
	if len(patch) == 0 {
		log.Fatal(ctx, "nothing to do: pass -admin, -revoke-admin or -sync-gyms", nil)
	}

	claims := authctx.MergeClaims(rec.CustomClaims, patch, time.Now())
	if err := clients.Auth.SetCustomUserClaims(ctx, *uid, claims); err != nil {
		log.Fatal(ctx, "SetCustomUserClaims", err)
	}
	fmt.Printf("ok: claims for %s = %v\n", *uid, claims)
}
