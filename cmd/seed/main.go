package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/ikkim/marketplace-backend/config"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	"github.com/ikkim/marketplace-backend/internal/db"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

func main() {
	assumeYes := flag.Bool("y", false, "import without asking for confirmation")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: go run cmd/seed/main.go [-y] <xlsx_file_path>")
	}
	filePath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Initialize(logger.Config{Level: "warn", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productService := service.NewProductService(repository.NewProductRepository(db.GetDB()), nil)

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX file:", err)
	}
	defer f.Close()

	result, err := readProductsFromXLSX(f)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Valid products: %d\n", len(result.Products))
	fmt.Printf("  Skipped rows: %d\n", len(result.Skipped))
	for _, reason := range result.Skipped {
		fmt.Printf("    %s\n", reason)
	}

	if !*assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	imported := 0
	for _, input := range result.Products {
		if _, err := productService.CreateProduct(input); err != nil {
			fmt.Printf("Failed to import %q: %v\n", input.Title, err)
			continue
		}
		imported++
	}

	fmt.Println("Import completed!")
	fmt.Printf("Total products imported: %d/%d\n", imported, len(result.Products))
}
