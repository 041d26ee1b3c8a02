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

package redlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Lock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "positions:bank:acc_1", "holder-a")

	mock.ExpectSetNX("positions:bank:acc_1", "holder-a", 5*time.Second).SetVal(true)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Lock_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "positions:bank:acc_1", "holder-a")

	mock.ExpectSetNX("positions:bank:acc_1", "holder-a", 5*time.Second).SetVal(false)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "lock for key positions:bank:acc_1 is already held: lock is already held")
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Lock_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "k", "v")

	mock.ExpectSetNX("k", "v", time.Second).SetErr(errors.New("connection refused"))

	err := locker.Lock(context.Background(), time.Second)
	assert.EqualError(t, err, "connection refused")
	assert.False(t, errors.Is(err, ErrLockHeld))
}

func TestLocker_Unlock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	mock.ExpectEval(unlockScript, []string{"test-key"}, "test-value").SetVal(int64(1))

	err := locker.Unlock(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	// another holder owns the key
	mock.ExpectEval(unlockScript, []string{"test-key"}, "test-value").SetVal(int64(0))

	err := locker.Unlock(context.Background())
	assert.EqualError(t, err, "unlock failed, either lock expired or you're not the lock holder for key test-key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_ExtendLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	mock.ExpectEval(extendScript, []string{"test-key"}, "test-value", "5000").SetVal(int64(1))
	assert.NoError(t, locker.ExtendLock(context.Background(), 5*time.Second))

	mock.ExpectEval(extendScript, []string{"test-key"}, "test-value", "5000").SetVal(int64(0))
	err := locker.ExtendLock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "lock extension failed for key test-key, either lock expired or you're not the holder")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLocker_WaitLock_AcquiresAfterRelease(t *testing.T) {
	mr, client := newMiniredisClient(t)
	require.NoError(t, mr.Set("test-key", "other-holder"))

	go func() {
		time.Sleep(50 * time.Millisecond)
		mr.Del("test-key")
	}()

	locker := NewLocker(client, "test-key", "test-value")
	err := locker.WaitLock(context.Background(), 5*time.Second, 2*time.Second)
	require.NoError(t, err)

	got, err := mr.Get("test-key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", got)
}

func TestLocker_WaitLock_TimesOut(t *testing.T) {
	mr, client := newMiniredisClient(t)
	require.NoError(t, mr.Set("test-key", "other-holder"))

	locker := NewLocker(client, "test-key", "test-value")
	err := locker.WaitLock(context.Background(), 5*time.Second, 100*time.Millisecond)
	assert.EqualError(t, err, "failed to acquire lock for key test-key within the wait timeout: lock is already held")
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestLocker_WaitLock_StopsOnRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "test-key", "test-value")

	mock.ExpectSetNX("test-key", "test-value", 5*time.Second).SetErr(errors.New("connection refused"))

	err := locker.WaitLock(context.Background(), 5*time.Second, 2*time.Second)
	assert.EqualError(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMultiLocker_SortsAndDeduplicatesKeys(t *testing.T) {
	_, client := newMiniredisClient(t)
	m := NewMultiLocker(client, []string{"ledger:cash:b", "ledger:bank:a", "ledger:cash:b"}, "holder")
	assert.Equal(t, []string{"ledger:bank:a", "ledger:cash:b"}, m.Keys())
}

func TestMultiLocker_LockAndUnlock(t *testing.T) {
	mr, client := newMiniredisClient(t)
	ctx := context.Background()

	m := NewMultiLocker(client, []string{"ledger:cash:b", "ledger:bank:a"}, "holder")
	require.NoError(t, m.Lock(ctx, 5*time.Second, 0))
	assert.True(t, mr.Exists("ledger:bank:a"))
	assert.True(t, mr.Exists("ledger:cash:b"))

	require.NoError(t, m.Unlock(ctx))
	assert.False(t, mr.Exists("ledger:bank:a"))
	assert.False(t, mr.Exists("ledger:cash:b"))
}

func TestMultiLocker_ReleasesPartialAcquisition(t *testing.T) {
	mr, client := newMiniredisClient(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("ledger:cash:b", "someone-else"))

	m := NewMultiLocker(client, []string{"ledger:bank:a", "ledger:cash:b"}, "holder")
	err := m.Lock(ctx, 5*time.Second, 0)
	assert.ErrorIs(t, err, ErrLockHeld)

	assert.False(t, mr.Exists("ledger:bank:a"), "first key must be released")
	got, _ := mr.Get("ledger:cash:b")
	assert.Equal(t, "someone-else", got)
}
