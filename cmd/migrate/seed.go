package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/spf13/cobra"

	"gallery-backend/internal/bootstrap"
	"gallery-backend/internal/images"
	"gallery-backend/internal/shared/config"
	"gallery-backend/internal/shared/storage/db"
	"gallery-backend/internal/shared/telemetry"
)

const (
	defaultSeedDescription = "Sample image"
	sampleSize             = 16
)

func newSeedCmd(databaseURL *string) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upload a sample image and catalog it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if *databaseURL != "" {
				cfg.DatabaseURL = *databaseURL
			}
			app, err := bootstrap.Build(cfg, bootstrap.RequireCatalog(), bootstrap.WithDBProfile(db.ProfileCLI))
			if err != nil {
				return err
			}
			if app.DB != nil {
				defer app.DB.Close()
			}
			img, err := seed(cmd.Context(), app.ImagesService, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded image %d at %s\n", img.ID, img.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", defaultSeedDescription, "Description for the sample image")
	return cmd
}

// seed stores a generated PNG through the catalog service so the record and
// its object are written together.
func seed(ctx context.Context, svc *images.Service, description string) (images.Image, error) {
	body, err := samplePNG()
	if err != nil {
		return images.Image{}, fmt.Errorf("render sample: %w", err)
	}
	img, err := svc.Upload(ctx, images.UploadInput{
		Body:         body,
		ContentType:  "image/png",
		OriginalName: "sample.png",
		Description:  description,
	})
	if err != nil {
		return images.Image{}, err
	}
	telemetry.Info("migrate.seed.created", map[string]any{"image_id": img.ID, "object_key": img.ObjectKey})
	return img, nil
}

func samplePNG() ([]byte, error) {
	m := image.NewRGBA(image.Rect(0, 0, sampleSize, sampleSize))
	for y := 0; y < sampleSize; y++ {
		for x := 0; x < sampleSize; x++ {
			m.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
