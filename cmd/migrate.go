/*
Copyright 2024 Locafin Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/locafin/locafin"
	"github.com/locafin/locafin/database"
)

// migrateCommands groups the schema migration subcommands.
func migrateCommands(l *locafinInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run locafin migrations",
	}

	cmd.AddCommand(migrationCommand(l, "up", migrate.Up, "Applied %d migrations!\n"))
	cmd.AddCommand(migrationCommand(l, "down", migrate.Down, "Rolled back %d migrations!\n"))
	return cmd
}

func migrationCommand(l *locafinInstance, use string, direction migrate.MigrationDirection, done string) *cobra.Command {
	return &cobra.Command{
		Use: use,
		Run: func(cmd *cobra.Command, args []string) {
			migrations := migrate.EmbedFileSystemMigrationSource{
				FileSystem: locafin.SQLFiles,
				Root:       "sql",
			}

			db, err := database.ConnectDB(l.cnf.DataSource.Dns)
			if err != nil {
				log.Printf("Error connecting to database: %v", err)
				return
			}
			defer db.Close()

			migrate.SetSchema("locafin")
			n, err := migrate.Exec(db, "postgres", migrations, direction)
			if err != nil {
				log.Printf("Error migrating %s: %v", use, err)
				return
			}
			fmt.Printf(done, n)
		},
	}
}
