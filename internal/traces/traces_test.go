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

package traces

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/config"
)

func TestSetupOTelSDK_Disabled(t *testing.T) {
	shutdown, err := SetupOTelSDK(context.Background(), &config.Configuration{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupOTelSDK_Enabled(t *testing.T) {
	cfg := &config.Configuration{ProjectName: "Locafin", Otel: config.OtelConfig{Enabled: true, Endpoint: "http://localhost:4318"}}
	shutdown, err := SetupOTelSDK(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, shutdown)
}

func TestExporterOptions(t *testing.T) {
	assert.Nil(t, exporterOptions(""))
	assert.Len(t, exporterOptions("collector:4318"), 2)
	assert.Len(t, exporterOptions("https://collector.example.com/v1/traces"), 2)
	assert.Len(t, exporterOptions("http://localhost:4318"), 2)
}
