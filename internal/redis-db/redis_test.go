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

package redis_db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locafin/locafin/config"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		tls      bool
	}{
		{name: "docker style", url: "redis:6379", addr: "redis:6379"},
		{name: "password only", url: "redis://password123@localhost:6379", addr: "localhost:6379", password: "password123"},
		{name: "empty user", url: "redis://:password123@localhost:6379", addr: "localhost:6379", password: "password123"},
		{name: "tls", url: "rediss://:secret@cache.example.com:6380", addr: "cache.example.com:6380", password: "secret", tls: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, false)
			require.NoError(t, err)
			assert.Equal(t, tt.addr, got.Addr)
			assert.Equal(t, tt.password, got.Password)
			assert.Equal(t, tt.tls, got.TLSConfig != nil)
		})
	}

	_, err := ParseRedisURL("http://bad:1:2", false)
	assert.Error(t, err)
}

func TestParseRedisURL_SkipTLSVerify(t *testing.T) {
	got, err := ParseRedisURL("rediss://cache.example.com:6380", true)
	require.NoError(t, err)
	require.NotNil(t, got.TLSConfig)
	assert.True(t, got.TLSConfig.InsecureSkipVerify)
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, SplitAddresses(" a:1, ,b:2 "))
	assert.Nil(t, SplitAddresses(""))
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(nil, false)
	assert.EqualError(t, err, "redis addresses list cannot be empty")

	mr := miniredis.RunT(t)
	r, err := FromConfig(config.RedisConfig{Dns: mr.Addr()})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Client().Set(ctx, "k", "v", time.Minute).Err())
	got, err := r.Client().Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = r.Client().Get(ctx, "missing").Result()
	assert.Equal(t, redis.Nil, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient([]string{addr}, false)
	assert.Error(t, err)
}

func TestAsynqOpt(t *testing.T) {
	opt, err := AsynqOpt([]string{"redis://:pw@localhost:6379/2"}, false)
	require.NoError(t, err)
	single, ok := opt.(asynq.RedisClientOpt)
	require.True(t, ok)
	assert.Equal(t, "localhost:6379", single.Addr)
	assert.Equal(t, "pw", single.Password)
	assert.Equal(t, 2, single.DB)

	opt, err = AsynqOpt([]string{"a:6379", "b:6379"}, false)
	require.NoError(t, err)
	cluster, ok := opt.(asynq.RedisClusterClientOpt)
	require.True(t, ok)
	assert.Equal(t, []string{"a:6379", "b:6379"}, cluster.Addrs)

	_, err = AsynqOpt(nil, false)
	assert.Error(t, err)
}
