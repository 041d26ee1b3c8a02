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
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/locafin/locafin"
	"github.com/locafin/locafin/config"
	"github.com/locafin/locafin/database"
	"github.com/locafin/locafin/internal/notification"
)

// Locafin represents the CLI application, encapsulating the root Cobra command.
type Locafin struct {
	cmd *cobra.Command
}

// locafinInstance holds the service and its configuration for the subcommands.
type locafinInstance struct {
	locafin *locafin.Locafin
	cnf     *config.Configuration
}

// recoverPanic logs a panic with logrus and exits with an error status.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the service before any subcommand runs.
func preRun(app *locafinInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newLocafin, err := setupLocafin(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.locafin = newLocafin
		app.cnf = cnf
		return nil
	}
}

// setupLocafin connects to postgres and redis and returns the service.
func setupLocafin(cfg *config.Configuration) (*locafin.Locafin, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newLocafin, err := locafin.NewLocafin(db)
	if err != nil {
		return nil, fmt.Errorf("error creating locafin: %v", err)
	}
	return newLocafin, nil
}

// NewCLI creates the root command and registers the start, workers, migrate,
// recalculate and config subcommands.
func NewCLI() *Locafin {
	var configFile string
	l := &locafinInstance{}

	var rootCmd = &cobra.Command{
		Use:   "locafin",
		Short: "Ledger and CNAB240 banking for property management",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./locafin.json", "Configuration file for locafin")
	rootCmd.PersistentPreRunE = preRun(l, &configFile)

	rootCmd.AddCommand(serverCommands(l))
	rootCmd.AddCommand(workerCommands(l))
	rootCmd.AddCommand(migrateCommands(l))
	rootCmd.AddCommand(recalculateCommands(l))
	rootCmd.AddCommand(configCommands())

	return &Locafin{cmd: rootCmd}
}

func (w Locafin) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
