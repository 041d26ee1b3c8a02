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
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	"github.com/locafin/locafin"
	"github.com/locafin/locafin/config"
	redis_db "github.com/locafin/locafin/internal/redis-db"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

func initializeWorkerServer(conf *config.Configuration, opt asynq.RedisConnOpt) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: conf.Recalculation.Workers,
		Queues:      map[string]int{locafin.RecalculationQueue: 1},
		Logger:      logrus.StandardLogger(),
	})
}

// workerCommands defines the `workers` command running deferred
// recalculations from the redis queue. Queue state is served by asynqmon.
func workerCommands(l *locafinInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start locafin workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := l.cnf

			shutdown, err := initializeTracing(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			redisClient, err := redis_db.FromConfig(conf.Redis)
			if err != nil {
				log.Fatal(err)
			}
			opt, err := redisClient.AsynqOpt()
			if err != nil {
				log.Fatal(err)
			}

			srv := initializeWorkerServer(conf, opt)
			mux := asynq.NewServeMux()
			mux.HandleFunc(locafin.TypeRecalculatePositions, l.locafin.ProcessRecalculation)

			h := asynqmon.New(asynqmon.Options{
				RootPath:     "/monitoring",
				RedisConnOpt: opt,
			})
			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Recalculation.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
