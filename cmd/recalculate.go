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
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/locafin/locafin/config"
	"github.com/locafin/locafin/model"
)

// recalculateCommands rebuilds daily positions of every account from the
// --from day, or from today when omitted.
func recalculateCommands(l *locafinInstance) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "rebuild daily positions",
		Run: func(cmd *cobra.Command, args []string) {
			var start *time.Time
			if from != "" {
				d, err := model.ParseDay(from)
				if err != nil {
					log.Fatalf("--from must be formatted as YYYY-MM-DD: %v", err)
				}
				start = &d
			}

			rows, err := l.locafin.Recalculate(context.Background(), start)
			if err != nil {
				log.Fatalf("Error recalculating positions: %v", err)
			}
			fmt.Printf("Wrote %d positions\n", rows)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day to recalculate (YYYY-MM-DD)")
	return cmd
}

func configCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config outputs your instances computed configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Fetch()
			if err != nil {
				log.Fatalf("Error getting config: %v\n", err)
			}

			data, err := json.MarshalIndent(cfg, "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}

			fmt.Println(string(data))
		},
	}
	return cmd
}
