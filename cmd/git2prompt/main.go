package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/fabiomolinar/git2prompt/internal/cli"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

const (
	loggerInitializationFailedFormat = "failed to initialize logger: %v"
	applicationExecutionFailed       = "git2prompt execution failed"
	loggerSyncFailedFormat           = "logger sync failed: %v"
)

// main is the entry point for the git2prompt command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(false)
	if loggerInitializationError != nil {
		log.Fatalf(loggerInitializationFailedFormat, loggerInitializationError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	applicationExecutionError := cli.Execute(ctx)
	stop()
	if applicationExecutionError != nil {
		syncLogger(loggerInstance)
		loggerInstance.Fatal(applicationExecutionFailed, zap.Error(applicationExecutionError))
	}
	syncLogger(loggerInstance)
}

// syncLogger flushes the logger when stderr can be synced.
func syncLogger(loggerInstance *zap.Logger) {
	if !term.IsTerminal(int(os.Stderr.Fd())) && !isRegularFile(os.Stderr) {
		return
	}
	if syncError := loggerInstance.Sync(); syncError != nil {
		if !strings.Contains(strings.ToLower(syncError.Error()), "invalid argument") {
			log.Printf(loggerSyncFailedFormat, syncError)
		}
	}
}

func isRegularFile(file *os.File) bool {
	fileInfo, statError := file.Stat()
	if statError != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}
