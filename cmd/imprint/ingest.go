package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/imprint-ph/imprint-annotator/internal/config"
	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

// ingestMaxWidth is the width ingested images are downscaled to. Street-view
// exports are much larger than the annotation canvas needs.
const ingestMaxWidth = 1280

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [images-dir] [boxes.csv]",
	Short: "Load street-view images and their ground-truth boxes",
	Long: `Load a flat folder of street-view images plus a CSV of ground-truth
obstruction boxes into the image collection. Images are downscaled and copied
into the configured images directory; the CSV has one box per row:

  image,city,label,x,y,width,height

where image is the source filename. Optionally seed contributor profiles from
a second CSV (--contributors) with rows:

  username,email,city,frequently_walked_cities

where the last column is ;-separated.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(2)(cmd, args); err != nil {
			return err
		}
		fileInfo, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("on 1st argument: %w", err)
		}
		if !fileInfo.IsDir() {
			return fmt.Errorf("on 1st argument: must be a directory")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Server.ImagesDir == "" {
			return fmt.Errorf("config is missing server.images_dir, nowhere to place ingested images")
		}
		if err := os.MkdirAll(cfg.Server.ImagesDir, 0o777); err != nil {
			return err
		}

		store, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		boxes, cities, err := loadGroundTruth(args[1])
		if err != nil {
			return err
		}

		count, err := ingestImages(cmd.Context(), store, cfg, args[0], boxes, cities)
		if err != nil {
			return err
		}
		log.Printf("ingest: loaded %d images", count)

		contributorsFile, _ := cmd.Flags().GetString("contributors")
		if contributorsFile != "" {
			n, err := seedContributors(cmd.Context(), store, contributorsFile)
			if err != nil {
				return err
			}
			log.Printf("ingest: seeded %d contributors", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().String("contributors", "", "CSV of contributor profiles to seed")
	ingestCmd.MarkFlagFilename("contributors")
}

// loadGroundTruth reads the box CSV into per-image box lists and city tags.
func loadGroundTruth(filename string) (map[string][]domain.Box, map[string]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	boxes := make(map[string][]domain.Box)
	cities := make(map[string]string)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("while reading %s: %w", filename, err)
		}
		line++
		if line == 1 && record[0] == "image" {
			continue
		}
		if len(record) != 7 {
			return nil, nil, fmt.Errorf("%s line %d: want 7 columns, got %d", filename, line, len(record))
		}
		image, city, label := record[0], record[1], record[2]
		geometry := make([]float64, 4)
		for i, raw := range record[3:] {
			geometry[i], err = strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s line %d: %w", filename, line, err)
			}
		}
		id := imageStem(image)
		cities[id] = city
		boxes[id] = append(boxes[id], domain.Box{
			ID:     fmt.Sprintf("%s-gt-%d", id, len(boxes[id])+1),
			Source: domain.BoxSourceGroundTruth,
			X:      geometry[0],
			Y:      geometry[1],
			Width:  geometry[2],
			Height: geometry[3],
			Label:  label,
		})
	}
	return boxes, cities, nil
}

func ingestImages(ctx context.Context, store domain.Store, cfg *config.Config, inputDir string, boxes map[string][]domain.Box, cities map[string]string) (int, error) {
	count := 0
	err := filepath.WalkDir(inputDir, func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == inputDir {
			return nil
		}
		if info.IsDir() {
			return fmt.Errorf("while checking item '%s': datasets must be organized in a flat folder structure", path)
		}

		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("while decoding '%s': %w", path, err)
		}
		if img.Bounds().Dx() > ingestMaxWidth {
			img = imaging.Resize(img, ingestMaxWidth, 0, imaging.Lanczos)
		}

		id := imageStem(info.Name())
		filename := id + ".jpg"
		if err := imaging.Save(img, filepath.Join(cfg.Server.ImagesDir, filename), imaging.JPEGQuality(85)); err != nil {
			return fmt.Errorf("while saving '%s': %w", filename, err)
		}

		record := &domain.ImageRecord{
			ID:          id,
			Key:         imageKey(id),
			City:        cities[id],
			URL:         "/asset/" + filename,
			GroundTruth: boxes[id],
			IngestedAt:  time.Now().UTC(),
		}
		if err := store.Images().Put(ctx, record); err != nil {
			return err
		}
		count++
		log.Printf("ingest: %s (%s, %d boxes)", id, record.City, len(record.GroundTruth))
		return nil
	})
	return count, err
}

func seedContributors(ctx context.Context, store domain.Store, filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	count := 0
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("while reading %s: %w", filename, err)
		}
		line++
		if line == 1 && record[0] == "username" {
			continue
		}
		if len(record) != 4 {
			return count, fmt.Errorf("%s line %d: want 4 columns, got %d", filename, line, len(record))
		}
		var walked []string
		if record[3] != "" {
			walked = strings.Split(record[3], ";")
		}
		err = store.Contributors().Put(ctx, &domain.Contributor{
			Username:               record[0],
			Email:                  record[1],
			City:                   record[2],
			FrequentlyWalkedCities: walked,
			CreatedAt:              time.Now().UTC(),
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func imageStem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// imageKey derives the stable numeric key edits are correlated by. Hashing
// the id keeps re-ingest idempotent without a counter column.
func imageKey(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64() & (1<<63 - 1))
}
