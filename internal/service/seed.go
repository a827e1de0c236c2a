package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"kidtasks/internal/models"
	"kidtasks/internal/repository"
	"kidtasks/internal/validation"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the initial board written to an empty store
type Seed struct {
	Kids []SeedKid `yaml:"kids"`
}

// SeedKid is one kid of a seed file with their tasks in display order
type SeedKid struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	Color        string     `yaml:"color"`
	PhotoDataURL string     `yaml:"photoDataUrl"`
	Tasks        []SeedTask `yaml:"tasks"`
}

// SeedTask is one task of a seed kid. IconType defaults to emoji.
type SeedTask struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	IconType string `yaml:"iconType"`
	Icon     string `yaml:"icon"`
}

// LoadSeed reads a YAML seed from path, or the built-in seed when path is empty
func LoadSeed(path string) (*Seed, error) {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates a YAML seed
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	var errs []error
	for i, kid := range seed.Kids {
		if err := errors.Join(validation.ValidateName(kid.Name), validation.ValidateColor(kid.Color), validation.ValidatePhoto(kid.PhotoDataURL)); err != nil {
			errs = append(errs, fmt.Errorf("kid %d: %w", i+1, err))
		}
		for j, task := range kid.Tasks {
			if err := errors.Join(validation.ValidateTitle(task.Title), validation.ValidateIcon(task.iconType(), task.Icon)); err != nil {
				errs = append(errs, fmt.Errorf("kid %d task %d: %w", i+1, j+1, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &seed, nil
}

func (t SeedTask) iconType() string {
	if t.IconType == "" {
		return models.IconTypeEmoji
	}
	return t.IconType
}

// SeedIfEmpty writes seed when the store has no kids and marks today as reset.
// Reports whether anything was written.
func SeedIfEmpty(ctx context.Context, store *repository.Store, seed *Seed, today string, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seeded := false
	err := store.Within(ctx, func(r repository.Repos) error {
		n, err := r.Kids.CountKids(ctx)
		if err != nil || n > 0 {
			return err
		}

		for _, sk := range seed.Kids {
			kid := &models.Kid{ID: sk.ID, Name: sk.Name, Color: sk.Color, PhotoDataURL: sk.PhotoDataURL}
			if err := r.Kids.CreateKid(ctx, kid); err != nil {
				return err
			}
			for i, st := range sk.Tasks {
				task := &models.Task{
					ID:        st.ID,
					KidID:     kid.ID,
					Title:     st.Title,
					IconType:  st.iconType(),
					IconValue: st.Icon,
					Order:     i + 1,
					IsActive:  true,
				}
				if err := r.Tasks.CreateTask(ctx, task); err != nil {
					return err
				}
			}
		}
		if err := r.Meta.SetLastResetDate(ctx, today); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed board: %w", err)
	}
	if seeded {
		logger.Info("seeded empty board", slog.Int("kids", len(seed.Kids)), slog.String("day", today))
	}
	return seeded, nil
}
