package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/database"
)

const (
	backupPrefix     = "swapbook-backup-"
	backupTimeLayout = "2006-01-02-150405"
	minBackupsToKeep = 3
)

// BackupService snapshots every database to an S3-compatible object
// store. Databases are copied with VACUUM INTO so the snapshot is a
// consistent image even while the engine keeps writing.
type BackupService struct {
	databases map[string]*database.DB
	store     *ObjectStoreClient
	dataDir   string
	log       zerolog.Logger
}

// BackupMetadata describes the contents of one backup archive.
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database file inside a backup.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"sizeBytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo summarises a stored backup archive.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"sizeBytes"`
	AgeHours  int64     `json:"ageHours"`
}

// NewBackupService creates a backup service over the given databases.
func NewBackupService(databases map[string]*database.DB, store *ObjectStoreClient, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		store:     store,
		dataDir:   dataDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots all databases into one tar.gz archive
// and uploads it. The staging directory is removed afterwards either way.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	var files []string
	for name, db := range s.databases {
		snapshotPath := filepath.Join(stagingDir, name+".db")
		if err := s.snapshotDatabase(db, snapshotPath); err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s snapshot: %w", name, err)
		}
		checksum, err := fileChecksum(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %s snapshot: %w", name, err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      name,
			Filename:  name + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, snapshotPath)
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	files = append(files, metadataPath)

	archiveName := backupPrefix + time.Now().Format(backupTimeLayout) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	if err := s.store.Upload(ctx, archiveName, archive); err != nil {
		return err
	}

	archiveInfo, _ := os.Stat(archivePath)
	var sizeBytes int64
	if archiveInfo != nil {
		sizeBytes = archiveInfo.Size()
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", sizeBytes).
		Msg("Backup completed")
	return nil
}

// ListBackups returns the stored backups, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, backupPrefix) || !strings.HasSuffix(obj.Key, ".tar.gz") {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(obj.Key, backupPrefix), ".tar.gz")
		timestamp, err := time.Parse(backupTimeLayout, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Unparseable backup filename, skipping")
			continue
		}

		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than the retention period while
// always keeping the newest few. A retention of zero keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= minBackupsToKeep {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, backup := range backups {
		if i < minBackupsToKeep || backup.Timestamp.After(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("key", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("Rotated old backups")
	}
	return nil
}

// snapshotDatabase writes a consistent copy of a live database.
func (s *BackupService) snapshotDatabase(db *database.DB, destPath string) error {
	_ = os.Remove(destPath)
	if _, err := db.Conn().Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into failed: %w", err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func createArchive(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, file := range files {
		if err := addFileToArchive(tw, file); err != nil {
			return err
		}
	}
	return nil
}

func addFileToArchive(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
