package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/raushankrgupta/fitly-tryon/app"
	"github.com/raushankrgupta/fitly-tryon/config"
	"github.com/raushankrgupta/fitly-tryon/models"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

// staticSession signs every run in as the same user.
type staticSession struct{ session *tryon.Session }

func (s staticSession) CurrentSession(ctx context.Context) (*tryon.Session, error) {
	return s.session, nil
}

func main() {
	modelSrc := flag.String("model", "", "model photo: local path or http(s) URL")
	garmentSrc := flag.String("garment", "", "garment photo: local path or http(s) URL")
	category := flag.String("category", string(models.CategoryTop), "garment category: top, bottom or full-body")
	userID := flag.String("user", "cli", "user id the try-on is recorded for")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *modelSrc == "" || *garmentSrc == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, staticSession{session: &tryon.Session{UserID: *userID}}, logger)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	defer a.Close(context.Background())

	model, err := loadImage(ctx, *modelSrc)
	if err != nil {
		log.Fatalf("Failed to load model image: %v", err)
	}
	garment, err := loadImage(ctx, *garmentSrc)
	if err != nil {
		log.Fatalf("Failed to load garment image: %v", err)
	}

	fmt.Printf("Trying on %s (%s) over %s (%s)\n", garment.Filename, garment.ContentType, model.Filename, model.ContentType)

	res, err := a.Orchestrator.TryOnClothing(ctx, model, garment, models.Category(*category))
	if err != nil {
		te := tryon.AsError(err)
		fmt.Fprintf(os.Stderr, "Try-on failed [%s]: %s\n", te.Code, te.Message)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}

func loadImage(ctx context.Context, src string) (tryon.Image, error) {
	data, name, contentType, err := utils.FetchImage(ctx, src)
	if err != nil {
		return tryon.Image{}, err
	}
	return tryon.Image{Filename: name, ContentType: contentType, Data: data}, nil
}
