package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/2beens/ironlog/internal/backup"
	"github.com/2beens/ironlog/internal/db"

	"gopkg.in/natefinch/lumberjack.v2"
)

// gym log google drive backup cmd, meant to be run from a cron job

func main() {
	credentialsFile := flag.String(
		"gd-creds",
		"./ironlog-drive-credentials.json",
		"google drive credentials json",
	)
	logsPath := flag.String("logs-path", "/var/log/ironlog/backup.log", "backup logs file path (empty for stdout)")
	reinit := flag.Bool("reinit", false, "reinitialize all again")
	destroy := flag.Bool("destroy", false, "destroy all files (warning!!) (try running more times, if more than 100 files are present)")

	dbHost := flag.String("db-host", "localhost", "postgres host")
	dbPort := flag.String("db-port", "5432", "postgres port")
	dbName := flag.String("db-name", "ironlog", "postgres database name")

	socketAddrDir := flag.String("socket-addr-dir", "/tmp/ironlog", "dir of the unix socket where the main service listens for backup stats")
	socketFileName := flag.String("socket-file-name", "backup.sock", "file name of the unix socket where the main service listens for backup stats")

	flag.Parse()

	loggingSetup(*logsPath)

	log.Println("starting gym log backup ...")

	if *credentialsFile == "" {
		log.Fatalln("google drive credentials json not specified")
	}
	if *reinit {
		log.Println("!! attention: will reinitialize all again...")
	}

	credentialsFileBytes, err := os.ReadFile(*credentialsFile)
	if err != nil {
		log.Fatalf("unable to read client secret file: %v", err)
	}

	ctx := context.Background()

	if *destroy {
		if err := backup.DestroyAllFiles(ctx, credentialsFileBytes); err != nil {
			log.Fatalf("destroy failed: %s", err)
		}
		log.Println("destroy done!")
		return
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         *dbHost,
		DBPort:         *dbPort,
		DBName:         *dbName,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("failed to create db pool: %s", err)
	}
	defer dbPool.Close()

	s, err := backup.NewGoogleDriveBackupService(
		ctx, credentialsFileBytes, dbPool,
		*socketAddrDir, *socketFileName,
	)
	if err != nil {
		log.Fatalf("failed to create google drive backup service: %s", err)
	}

	baseTime := time.Now()

	if *reinit {
		if err := s.Reinit(ctx, baseTime); err != nil {
			log.Fatalf("reinit failed: %s", err)
		}
		log.Println("reinit done")
		return
	}

	if err := s.DoBackup(ctx, baseTime); err != nil {
		log.Fatalf("%+v", err)
	}
}

func loggingSetup(logFileName string) {
	if logFileName == "" {
		log.SetOutput(os.Stdout)
		return
	}

	if !strings.HasSuffix(logFileName, ".log") {
		logFileName += ".log"
	}

	log.SetOutput(&lumberjack.Logger{
		Filename:  logFileName,
		MaxSize:   50,    // megabytes
		LocalTime: false, // false -> use UTC
		Compress:  true,  // disabled by default
		// comment out MaxBackups and MaxAge, as I want to retain rotated log files indefinitely for now
		//MaxBackups: 30,
		//MaxAge:     730,   //days
	})
}
