package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/kdimtricp/instasave/internal/bootstrap"
	"github.com/kdimtricp/instasave/internal/config"
	"github.com/kdimtricp/instasave/internal/database"
)

func main() {
	status := flag.Bool("status", false, "Show migration status only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db, err := database.NewDB(bootstrap.DatabaseConfig(cfg))
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := database.NewMigrator(db)

	if *status {
		statuses, err := migrator.Status(ctx)
		if err != nil {
			log.Fatal("Failed to read migration status: ", err)
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%s - %s [%s]\n", s.Version, s.Name, state)
		}
		return
	}

	fmt.Printf("Running migrations against %s database...\n", cfg.Database.Type)
	applied, err := migrator.Run(ctx)
	if err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	fmt.Printf("Migrations completed successfully (%d applied)\n", applied)
}
