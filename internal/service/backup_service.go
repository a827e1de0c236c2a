package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"kidtasks/internal/calendar"
	"kidtasks/internal/models"
	"kidtasks/internal/repository"
)

// BackupVersion is written to every export
const BackupVersion = "1.0"

// BackupData represents the complete board backup structure
type BackupData struct {
	Version       string               `json:"version"`
	ExportedAt    time.Time            `json:"exported_at"`
	DatabaseType  string               `json:"database_type"`
	LastResetDate string               `json:"lastResetDate,omitempty"`
	Kids          []models.Kid         `json:"kids"`
	Tasks         []models.Task        `json:"tasks"`
	Streaks       []models.StreakState `json:"streaks"`
}

// ImportStats counts the rows written by an import
type ImportStats struct {
	Kids    int
	Tasks   int
	Streaks int
}

// BackupService exports and imports the whole board as JSON
type BackupService struct {
	store        *repository.Store
	databaseType string
	logger       *slog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(store *repository.Store, databaseType string, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupService{store: store, databaseType: databaseType, logger: logger.With(slog.String("component", "backup"))}
}

// Export writes a backup of the board to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export board: %w", err)
	}

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.databaseType,
		Kids:         snap.Kids,
		Tasks:        snap.Tasks,
		Streaks:      snap.Streaks,
	}
	if snap.LastResetDate != nil {
		backup.LastResetDate = *snap.LastResetDate
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("board exported",
		slog.Int("kids", len(backup.Kids)),
		slog.Int("tasks", len(backup.Tasks)),
		slog.Int("streaks", len(backup.Streaks)))
	return backup, nil
}

// ExportFile writes a backup to outputPath
func (s *BackupService) ExportFile(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if _, err := s.Export(ctx, file); err != nil {
		return err
	}
	return file.Close()
}

// Import restores a backup from r in one transaction. With clearExisting set, every
// existing row is removed first; otherwise conflicting IDs fail the import.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clearExisting bool) (ImportStats, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return ImportStats{}, fmt.Errorf("failed to decode backup: %w", err)
	}
	if err := checkBackup(&backup); err != nil {
		return ImportStats{}, err
	}

	s.logger.Info("importing backup",
		slog.String("version", backup.Version),
		slog.Time("exported_at", backup.ExportedAt),
		slog.Bool("clear", clearExisting))

	var stats ImportStats
	err := s.store.Within(ctx, func(repos repository.Repos) error {
		if clearExisting {
			if err := repos.Clear(ctx); err != nil {
				return err
			}
		}
		for i := range backup.Kids {
			if err := repos.Kids.CreateKid(ctx, &backup.Kids[i]); err != nil {
				return fmt.Errorf("failed to import kid %s: %w", backup.Kids[i].ID, err)
			}
			stats.Kids++
		}
		for i := range backup.Tasks {
			if err := repos.Tasks.CreateTask(ctx, &backup.Tasks[i]); err != nil {
				return fmt.Errorf("failed to import task %s: %w", backup.Tasks[i].ID, err)
			}
			stats.Tasks++
		}
		for _, st := range backup.Streaks {
			if err := repos.Meta.PutStreak(ctx, st); err != nil {
				return fmt.Errorf("failed to import streak of %s: %w", st.KidID, err)
			}
			stats.Streaks++
		}
		if backup.LastResetDate != "" {
			return repos.Meta.SetLastResetDate(ctx, backup.LastResetDate)
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	s.logger.Info("backup imported",
		slog.Int("kids", stats.Kids),
		slog.Int("tasks", stats.Tasks),
		slog.Int("streaks", stats.Streaks))
	return stats, nil
}

// ImportFile restores a backup from inputPath
func (s *BackupService) ImportFile(ctx context.Context, inputPath string, clearExisting bool) (ImportStats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.Import(ctx, file, clearExisting)
}

// checkBackup rejects documents with dangling kid references, bad days or bad counters
func checkBackup(b *BackupData) error {
	if b.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", b.Version)
	}
	if b.LastResetDate != "" && !calendar.ValidDay(b.LastResetDate) {
		return fmt.Errorf("invalid lastResetDate %q", b.LastResetDate)
	}

	kids := make(map[string]bool, len(b.Kids))
	for _, kid := range b.Kids {
		if kid.ID == "" {
			return fmt.Errorf("kid %q has no id", kid.Name)
		}
		kids[kid.ID] = true
	}
	for _, task := range b.Tasks {
		if !kids[task.KidID] {
			return fmt.Errorf("task %s references unknown kid %q", task.ID, task.KidID)
		}
	}
	for _, st := range b.Streaks {
		if !kids[st.KidID] {
			return fmt.Errorf("streak references unknown kid %q", st.KidID)
		}
		if !st.Valid() {
			return fmt.Errorf("streak of %s has invalid counters", st.KidID)
		}
		if st.LastPerfectDate != "" && !calendar.ValidDay(st.LastPerfectDate) {
			return fmt.Errorf("streak of %s has invalid lastPerfectDate %q", st.KidID, st.LastPerfectDate)
		}
	}
	return nil
}
