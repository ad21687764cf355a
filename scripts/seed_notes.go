package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Pallinder/go-randomdata"

	"github.com/S4nzh4r/ya-note/internal/auth"
	"github.com/S4nzh4r/ya-note/internal/config"
	"github.com/S4nzh4r/ya-note/internal/errs"
	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/notes"
	"github.com/S4nzh4r/ya-note/internal/store"
	"github.com/S4nzh4r/ya-note/internal/store/boltstore"
	"github.com/S4nzh4r/ya-note/internal/store/sqlstore"
)

func main() {
	username := flag.String("user", "demo", "user to seed notes for, created if missing")
	password := flag.String("password", "demo-password", "password for a newly created user")
	count := flag.Int("n", 50, "number of notes to create")
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	if err := run(*configPath, *username, *password, *count); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, username, password string, count int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.StoreBackend == config.BackendBolt {
		st, err = boltstore.Open(cfg.BoltPath)
	} else {
		st, err = sqlstore.New(cfg.DBDriver, cfg.DBConn)
	}
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	user, err := seedUser(ctx, st, username, password)
	if err != nil {
		return err
	}
	fmt.Printf("Seeding notes for %s (id %d)\n", user.Username, user.ID)

	svc := notes.NewService(st, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	inserted := 0
	for range count {
		in := notes.NoteInput{
			Title: fmt.Sprintf("%s %s", capitalize(randomdata.Adjective()), randomdata.Noun()),
			Text:  randomNoteText(),
		}
		_, err := svc.Create(ctx, user, in)
		if errs.Is(err, errs.AlreadyExists) {
			// Derived slug collided with an earlier random title.
			in.Slug = fmt.Sprintf("%s-%d", notes.Slugify(in.Title), randomdata.Number(1000, 9999))
			_, err = svc.Create(ctx, user, in)
		}
		if err != nil {
			slog.Warn("note not created", "title", in.Title, "error", err)
			continue
		}
		inserted++
	}

	fmt.Printf("Inserted %d notes for %s\n", inserted, user.Username)
	return nil
}

func seedUser(ctx context.Context, st store.Store, username, password string) (*models.User, error) {
	user, err := st.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return auth.NewAccounts(st).Register(ctx, username, password)
	}
	return user, err
}

func randomNoteText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", randomdata.City())
	b.WriteString(randomdata.Paragraph())
	b.WriteString("\n\n")
	for range randomdata.Number(1, 4) {
		fmt.Fprintf(&b, "- %s %s\n", randomdata.Adjective(), randomdata.Noun())
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
