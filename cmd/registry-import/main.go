package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/internal/store"
	"github.com/noah-isme/complaint-desk-api/pkg/config"
	"github.com/noah-isme/complaint-desk-api/pkg/database"
	"github.com/noah-isme/complaint-desk-api/pkg/logger"
)

func main() {
	var (
		filePath string
		template string
		dryRun   bool
		timeout  time.Duration
	)
	flag.StringVar(&filePath, "file", "", "CSV file to import (- for stdin)")
	flag.StringVar(&template, "template", "", "write the import template to this path and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "validate against an in-memory copy without writing to the database")
	flag.DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	registryCfg := service.RegistryConfig{DefaultYear: cfg.Registry.DefaultYear, MaxImportBytes: cfg.Registry.MaxImportBytes}

	if template != "" {
		data, err := service.NewRegistryService(store.New(nil, logr), nil, nil, logr, registryCfg).CSVTemplate()
		if err != nil {
			log.Fatalf("failed to render template: %v", err)
		}
		if err := os.WriteFile(template, data, 0o644); err != nil {
			log.Fatalf("failed to write template: %v", err)
		}
		fmt.Printf("template written to %s\n", template)
		return
	}
	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var gateway store.Gateway
	switch {
	case cfg.Database.Enabled:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("database connection failed", zap.Error(err))
		}
		defer db.Close()
		pg := repository.NewPostgresGateway(db)
		if err := pg.Migrate(ctx); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
		gateway = pg
	case !dryRun:
		log.Fatal("DB_ENABLED is false; nothing would be persisted (use -dry-run to only validate)")
	}

	st := store.New(gateway, logr)
	if gateway != nil {
		if err := st.Hydrate(ctx); err != nil {
			logr.Fatal("could not load current registry", zap.Error(err))
		}
	}
	if dryRun && gateway != nil {
		// validate against the loaded registry, but never write back
		snapshot := st.Students()
		st = store.New(nil, logr)
		if _, err := st.AddStudents(ctx, snapshot); err != nil {
			logr.Fatal("could not copy registry", zap.Error(err))
		}
	}

	in, err := openInput(filePath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", filePath, err)
	}
	defer in.Close()

	res, err := service.NewRegistryService(st, nil, nil, logr, registryCfg).ImportCSV(ctx, in)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	printResult(os.Stdout, res)
	if !res.Success {
		os.Exit(1)
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func printResult(w io.Writer, res *models.ImportResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tRESULT\tMESSAGE")
	for _, row := range res.Rows {
		status := "ok"
		if !row.Success {
			status = "failed"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Line, row.Name, status, row.Message)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%s\n", res.Message)
	if !res.Durable {
		fmt.Fprintf(w, "warning: %s\n", res.Warning)
	}
}
