package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/2beens/ironlog/internal/gymlog/repo"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	rootBackupsFolderName = "gymlog-backup"
	recordsFileChunkSize  = 350 // number of records in one backup file
)

// recordSet is one kind of gym log records prepared for backup, each
// record marshaled on its own so they can be chunked into files
type recordSet struct {
	kind    string
	records []json.RawMessage
}

type GoogleDriveBackupService struct {
	workoutsRepo    *repo.WorkoutsRepo
	exercisesRepo   *repo.ExercisesRepo
	aliasesRepo     *repo.AliasesRepo
	bodyweightsRepo *repo.BodyweightsRepo
	service         *drive.Service
	backupsFolderId string

	// where the main service listens for backup stats
	metricsSocketAddrDir  string
	metricsSocketFileName string
}

func NewGoogleDriveBackupService(
	ctx context.Context,
	credentialsJson []byte,
	db *pgxpool.Pool,
	metricsSocketAddrDir string,
	metricsSocketFileName string,
) (*GoogleDriveBackupService, error) {
	// https://github.com/googleapis/google-api-go-client/blob/master/drive/v3/drive-gen.go
	driveService, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJson))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	rootFolderQuery := fmt.Sprintf("mimeType = 'application/vnd.google-apps.folder' and trashed = false and name = '%s'", rootBackupsFolderName)
	log.Println(rootFolderQuery)
	gymlogBackupFolder, err := driveService.
		Files.List().
		Q(rootFolderQuery).
		Fields("files(id, name)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	backupsFolderId := ""
	if len(gymlogBackupFolder.Files) == 1 {
		rbf := gymlogBackupFolder.Files[0]
		log.Printf("root backups folder found, %s: %s", rbf.Name, rbf.Id)
		backupsFolderId = rbf.Id
	} else if len(gymlogBackupFolder.Files) == 0 {
		log.Println("root backups folder not found, will recreate")
	} else {
		rbf := gymlogBackupFolder.Files[0]
		log.Printf("attention: found %d root backups folders, will take the first one: %s", len(gymlogBackupFolder.Files), rbf.Id)
		backupsFolderId = rbf.Id
	}

	s := &GoogleDriveBackupService{
		workoutsRepo:          repo.NewWorkoutsRepo(db),
		exercisesRepo:         repo.NewExercisesRepo(db),
		aliasesRepo:           repo.NewAliasesRepo(db),
		bodyweightsRepo:       repo.NewBodyweightsRepo(db),
		service:               driveService,
		metricsSocketAddrDir:  metricsSocketAddrDir,
		metricsSocketFileName: metricsSocketFileName,
	}

	if backupsFolderId == "" {
		log.Println("root backups folder not found, recreating ...")
		backupsFolderId, err = s.createRootBackupsFolder()
		if err != nil {
			return nil, fmt.Errorf("failed to create root backups folder: %w", err)
		}
		log.Printf("new root backups folder created: %s", backupsFolderId)
	} else {
		log.Printf("found backups folder ID: %s", backupsFolderId)
	}

	s.backupsFolderId = backupsFolderId

	return s, nil
}

func (s *GoogleDriveBackupService) Reinit(ctx context.Context, baseTime time.Time) error {
	log.Println("gym log backup reinit starting ...")

	err := s.service.Files.
		Delete(s.backupsFolderId).
		Do()
	if err != nil {
		return err
	}

	backupsFolderId, err := s.createRootBackupsFolder()
	if err != nil {
		return fmt.Errorf("failed to create root backups folder: %w", err)
	}

	log.Printf("new root backups folder created: %s", backupsFolderId)

	s.backupsFolderId = backupsFolderId

	return s.DoBackup(ctx, baseTime)
}

func (s *GoogleDriveBackupService) DoBackup(ctx context.Context, baseTime time.Time) error {
	begin := time.Now()

	currentAllBackupFiles, err := s.getGymlogBackupFiles(s.backupsFolderId)
	if err != nil {
		return err
	}

	if len(currentAllBackupFiles) == 0 {
		log.Println("backups empty, creating initial backup files ...")
		backedUp, err := s.createInitialBackupFiles(ctx, baseTime)
		if err != nil {
			return err
		}
		log.Println("initial backup files created!")
		trySendMetrics(begin, backedUp, s.metricsSocketAddrDir, s.metricsSocketFileName)
		return nil
	}

	log.Println("current backup files:")
	lastCreatedAt := time.Time{}
	for _, file := range currentAllBackupFiles {
		createdAt, err := time.Parse(time.RFC3339, file.CreatedTime)
		if err != nil {
			log.Printf(" ---> error parsing created at for file %s: %s", file.Name, err)
			continue
		}
		log.Printf(" -- [%v]: %s (%s)\n", createdAt, file.Name, file.Id)

		if createdAt.After(lastCreatedAt) {
			lastCreatedAt = createdAt
		}
	}

	recordSets, total, err := s.collectRecordSets(ctx, &lastCreatedAt)
	if err != nil {
		return fmt.Errorf("failed to get next backup records: %w", err)
	}

	if total == 0 {
		log.Println("no new gym log records to backup, done")
		return nil
	}

	log.Printf(" ---- backing up %d gym log records since %v", total, lastCreatedAt)

	for _, set := range recordSets {
		if len(set.records) == 0 {
			continue
		}
		nextBackupFileName := nextBackupFileBaseName(set.kind, baseTime, currentAllBackupFiles)
		if err := s.backupRecords(set.records, nextBackupFileName); err != nil {
			return fmt.Errorf("failed to backup %s: %w", set.kind, err)
		}
		log.Printf("next %s backup since %v successfully saved: %s", set.kind, lastCreatedAt, nextBackupFileName)
	}

	trySendMetrics(begin, total, s.metricsSocketAddrDir, s.metricsSocketFileName)

	return nil
}

func (s *GoogleDriveBackupService) createRootBackupsFolder() (string, error) {
	backupsFolderMeta := &drive.File{
		Name:     rootBackupsFolderName,
		MimeType: "application/vnd.google-apps.folder",
	}

	bfRes, err := s.service.
		Files.Create(backupsFolderMeta).
		Fields("id").
		Do()
	if err != nil {
		return "", err
	}

	if pId, err := s.updateFilePermission(bfRes.Id); err != nil {
		return bfRes.Id, fmt.Errorf("failed to create additional permission for root backup folder: %s", err)
	} else {
		log.Printf("permission %s created for root backup folder %s", pId, bfRes.Id)
	}

	return bfRes.Id, nil
}

func (s *GoogleDriveBackupService) createInitialBackupFiles(ctx context.Context, baseTime time.Time) (int, error) {
	recordSets, total, err := s.collectRecordSets(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get gym log records from db: %w", err)
	}

	log.Printf("initial backup of %d gym log records starting ...", total)

	for _, set := range recordSets {
		if len(set.records) == 0 {
			continue
		}
		baseFileName := fmt.Sprintf("initial-%s-%d-%d-%d", set.kind, baseTime.Day(), baseTime.Month(), baseTime.Year())
		if err := s.backupRecords(set.records, baseFileName); err != nil {
			return 0, fmt.Errorf("failed to backup %s: %w", set.kind, err)
		}
	}

	return total, nil
}

// collectRecordSets fetches all gym log records created at or after the
// given time (nil for everything), marshaled and grouped per kind
func (s *GoogleDriveBackupService) collectRecordSets(ctx context.Context, createdAfter *time.Time) ([]recordSet, int, error) {
	workouts, err := s.workoutsRepo.ListCreatedAfter(ctx, createdAfter)
	if err != nil {
		return nil, 0, fmt.Errorf("get workouts: %w", err)
	}
	exercises, err := s.exercisesRepo.ListCreatedAfter(ctx, createdAfter)
	if err != nil {
		return nil, 0, fmt.Errorf("get exercises: %w", err)
	}
	aliases, err := s.aliasesRepo.ListCreatedAfter(ctx, createdAfter)
	if err != nil {
		return nil, 0, fmt.Errorf("get aliases: %w", err)
	}
	bodyweights, err := s.bodyweightsRepo.ListCreatedAfter(ctx, createdAfter)
	if err != nil {
		return nil, 0, fmt.Errorf("get bodyweights: %w", err)
	}

	workoutRecords := make([]json.RawMessage, 0, len(workouts))
	for _, workout := range workouts {
		record, err := json.Marshal(workout)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal workout %d: %w", workout.ID, err)
		}
		workoutRecords = append(workoutRecords, record)
	}

	exerciseRecords := make([]json.RawMessage, 0, len(exercises))
	for _, exercise := range exercises {
		record, err := json.Marshal(exercise)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal exercise %d: %w", exercise.ID, err)
		}
		exerciseRecords = append(exerciseRecords, record)
	}

	aliasRecords := make([]json.RawMessage, 0, len(aliases))
	for _, alias := range aliases {
		record, err := json.Marshal(alias)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal alias %s: %w", alias.Name, err)
		}
		aliasRecords = append(aliasRecords, record)
	}

	bodyweightRecords := make([]json.RawMessage, 0, len(bodyweights))
	for _, entry := range bodyweights {
		record, err := json.Marshal(entry)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal bodyweight %d: %w", entry.ID, err)
		}
		bodyweightRecords = append(bodyweightRecords, record)
	}

	recordSets := []recordSet{
		{kind: "workouts", records: workoutRecords},
		{kind: "exercises", records: exerciseRecords},
		{kind: "aliases", records: aliasRecords},
		{kind: "bodyweights", records: bodyweightRecords},
	}

	total := len(workoutRecords) + len(exerciseRecords) + len(aliasRecords) + len(bodyweightRecords)
	return recordSets, total, nil
}

func (s *GoogleDriveBackupService) backupRecords(records []json.RawMessage, baseFileName string) error {
	chunks := len(records) / recordsFileChunkSize
	fromIndex, toIndex := 0, recordsFileChunkSize
	if len(records)%recordsFileChunkSize > 0 {
		chunks++
	}

	if len(records) < recordsFileChunkSize {
		toIndex = len(records)
	}

	for i := 1; i <= chunks; i++ {
		nextFileName := fmt.Sprintf("%s_%d.json", baseFileName, i)
		nextRecords := records[fromIndex:toIndex]

		log.Printf("%s: create backup file with %d gym log records [from %d to %d] ...", nextFileName, len(nextRecords), fromIndex, toIndex)

		nextRecordsJson, err := json.Marshal(nextRecords)
		if err != nil {
			return fmt.Errorf("%s failed to marshal gym log records: %w", nextFileName, err)
		}

		log.Printf("%s: creating file on google drive ...", nextFileName)
		fileMeta := &drive.File{
			Name: nextFileName,
			// https://developers.google.com/drive/api/v3/mime-types
			MimeType: "application/vnd.google-apps.file",
			Parents:  []string{s.backupsFolderId},
		}

		nextBackupChunkFile, err := s.service.
			Files.Create(fileMeta).
			Fields("id, parents").
			Media(bytes.NewReader(nextRecordsJson)).
			Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create records backup file: %w", nextFileName, err)
		}

		permissionId, err := s.updateFilePermission(nextBackupChunkFile.Id)
		if err != nil {
			return fmt.Errorf("%s: failed to create additional permission: %s", nextFileName, err)
		}

		log.Printf("%s: backup file [%s] [permission %s] saved: %s", nextFileName, fileMeta.Name, permissionId, nextBackupChunkFile.Id)

		fromIndex = toIndex
		toIndex = toIndex + recordsFileChunkSize
		if toIndex >= len(records) {
			toIndex = len(records)
		}
	}

	return nil
}

func (s *GoogleDriveBackupService) updateFilePermission(fileId string) (string, error) {
	permission := &drive.Permission{
		EmailAddress: "lazar.dusan.veliki@gmail.com",
		Type:         "user",
		Role:         "reader",
	}

	createdPermission, err := s.service.Permissions.
		Create(fileId, permission).
		Do()
	if err != nil {
		return "", err
	}

	return createdPermission.Id, nil
}

func (s *GoogleDriveBackupService) getGymlogBackupFiles(gymlogBackupFolderId string) ([]*drive.File, error) {
	gbQuery := fmt.Sprintf("'%s' in parents and mimeType != 'application/vnd.google-apps.folder' and trashed = false", gymlogBackupFolderId)
	backups, err := s.service.
		Files.List().
		Q(gbQuery).
		Fields("files(id, name, createdTime)").
		Do()
	if err != nil {
		return nil, err
	}

	return backups.Files, nil
}

// nextBackupFileBaseName picks a base name for the next backup of the
// given record kind. A rerun on the same day gets a numbered suffix
// instead of clashing with the files from the previous run.
func nextBackupFileBaseName(kind string, baseTime time.Time, existingFiles []*drive.File) string {
	baseName := fmt.Sprintf("gymlog-%s-%d-%d-%d", kind, baseTime.Day(), baseTime.Month(), baseTime.Year())
	nextName := baseName
	fileCounter := 1
	for {
		nameExists := false
		for _, file := range existingFiles {
			if strings.HasPrefix(file.Name, nextName+"_") {
				nameExists = true
				break
			}
		}
		if !nameExists {
			return nextName
		}
		fileCounter++
		nextName = fmt.Sprintf("%s-%d", baseName, fileCounter)
	}
}

// DestroyAllFiles removes all files visible to the backup account
// (warning: all, not just the backups folder). Drive lists 100 files
// per page, so rerun it until nothing is left.
func DestroyAllFiles(ctx context.Context, credentialsJson []byte) error {
	driveService, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJson))
	if err != nil {
		return fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	files, err := driveService.
		Files.List().
		Fields("files(id, name)").
		Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve files: %w", err)
	}

	if len(files.Files) == 0 {
		log.Println("no files found, nothing to destroy")
		return nil
	}

	for _, file := range files.Files {
		if err := driveService.Files.Delete(file.Id).Do(); err != nil {
			log.Printf("failed to delete file %s (%s): %s", file.Name, file.Id, err)
			continue
		}
		log.Printf("file %s (%s) deleted", file.Name, file.Id)
	}

	return nil
}

// trySendMetrics reports the backup stats to the main service over its
// unix socket, so they end up in prometheus. The backup itself does not
// depend on it, failures are only logged.
func trySendMetrics(beginTimestamp time.Time, recordsCount int, socketAddrDir, socketFileName string) {
	socket := filepath.Join(socketAddrDir, socketFileName)
	conn, err := net.Dial("unix", socket)
	if err != nil {
		log.Printf("failed to dial backup metrics socket %s: %s", socket, err)
		return
	}
	defer func() { _ = conn.Close() }()

	message := fmt.Sprintf(
		"records-count::%d||duration::%f",
		recordsCount, time.Since(beginTimestamp).Seconds(),
	)
	if _, err := conn.Write([]byte(message)); err != nil {
		log.Printf("failed to send backup metrics: %s", err)
		return
	}

	response := make([]byte, 256)
	n, err := conn.Read(response)
	if err != nil {
		log.Printf("failed to read backup metrics response: %s", err)
		return
	}

	log.Printf("backup metrics sent, response: %s", response[:n])
}
