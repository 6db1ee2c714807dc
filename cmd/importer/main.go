package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/listellodavide/onion-factory/internal/config"
	"github.com/listellodavide/onion-factory/internal/db"
	"github.com/listellodavide/onion-factory/internal/importer"
	productrepo "github.com/listellodavide/onion-factory/internal/repository/product"
	productsvc "github.com/listellodavide/onion-factory/internal/service/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	products := productsvc.New(productrepo.NewPostgres(pool, logger))
	imp := importer.NewCSVImporter(f, products)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Imported %d products (%d skipped) in %s\n", res.Imported, res.Skipped, time.Since(start).Truncate(time.Millisecond))
}
