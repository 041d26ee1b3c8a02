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
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/locafin/locafin/api"
	"github.com/locafin/locafin/config"
	"github.com/locafin/locafin/internal/traces"
)

func initializeRouter(l *locafinInstance) *gin.Engine {
	return api.NewAPI(l.locafin, l.cnf).Router()
}

func initializeTracing(ctx context.Context, cfg *config.Configuration) (traces.ShutdownFunc, error) {
	shutdown, err := traces.SetupOTelSDK(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

func startServer(router *gin.Engine, cfg config.ServerConfig) error {
	log.Printf("Starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

// serverCommands returns the `start` command serving the HTTP API.
func serverCommands(l *locafinInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start locafin server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			defer func() {
				if err := l.locafin.Close(); err != nil {
					log.Printf("Error closing queue: %v", err)
				}
			}()

			shutdown, err := initializeTracing(ctx, l.cnf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			router := initializeRouter(l)
			if err := startServer(router, l.cnf.Server); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
