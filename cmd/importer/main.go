// Command importer loads a CSV or XLSX product file and creates one store
// product per row.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"catalog-import-service/internal/bootstrap"
	"catalog-import-service/internal/config"
	"catalog-import-service/internal/loader"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/report"
	"catalog-import-service/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		file         = flag.String("file", "", "CSV or XLSX file to import")
		validateOnly = flag.Bool("validate-only", false, "validate the file without importing")
		reportPath   = flag.String("report", "", "write row outcomes to this .csv or .xlsx file")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := bootstrap.NewLogger(cfg)
	log := logger.WithField("service", "catalog-importer")

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: importer -file products.xlsx [-validate-only] [-report out.xlsx]")
		os.Exit(2)
	}

	os.Exit(run(cfg, log, *file, *validateOnly, *reportPath))
}

func run(cfg *config.Config, log *logrus.Entry, file string, validateOnly bool, reportPath string) int {
	batch, err := loader.LoadFile(file)
	if err != nil {
		log.WithError(err).Error("Failed to load file")
		return 1
	}

	validation := services.NewRowValidator().Validate(batch)
	for _, w := range validation.Warnings {
		fmt.Println("warning:", w)
	}
	for _, e := range validation.Errors {
		fmt.Println("error:", e)
	}
	if !validation.Valid {
		fmt.Printf("%s is invalid, nothing was imported\n", filepath.Base(file))
		return 1
	}
	if validateOnly {
		fmt.Printf("%s is valid: %d rows\n", filepath.Base(file), len(batch.Rows))
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := bootstrap.StoreCredentials(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to resolve store credentials")
		return 1
	}
	client, err := bootstrap.NewStoreClient(creds, cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to create store client")
		return 1
	}

	processor := services.NewBatchProcessor(client, bootstrap.NewRetrier(cfg), log)
	outcomes := processor.Process(ctx, batch.Rows)

	for _, o := range outcomes {
		fmt.Printf("row %d [%s] %s: %s\n", o.RowNumber, o.Status, o.Title, o.Message)
	}
	summary := models.Summarize(outcomes)
	fmt.Printf("%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)

	if reportPath != "" {
		if err := writeReport(reportPath, outcomes); err != nil {
			log.WithError(err).Error("Failed to write report")
			return 1
		}
		fmt.Println("report written to", reportPath)
	}

	if summary.Failed > 0 {
		return 1
	}
	return 0
}

func writeReport(path string, outcomes []models.UploadOutcome) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return report.WriteXLSX(out, outcomes)
	}
	return report.WriteCSV(out, outcomes)
}
