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
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the key.
var ErrLockHeld = errors.New("lock is already held")

const (
	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	extendScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"
)

type Locker struct {
	client redis.UniversalClient
	key    string
	value  string
}

func NewLocker(client redis.UniversalClient, key, value string) *Locker {
	return &Locker{
		client: client,
		key:    key,
		value:  value,
	}
}

// Key returns the redis key guarded by the locker.
func (l *Locker) Key() string {
	return l.key
}

func (l *Locker) Lock(ctx context.Context, timeout time.Duration) error {
	success, err := l.client.SetNX(ctx, l.key, l.value, timeout).Result()
	if err != nil {
		return err
	}
	if !success {
		return fmt.Errorf("lock for key %s is already held: %w", l.key, ErrLockHeld)
	}
	return nil
}

func (l *Locker) Unlock(ctx context.Context) error {
	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("unlock failed, either lock expired or you're not the lock holder for key %s", l.key)
	}
	return nil
}

func (l *Locker) ExtendLock(ctx context.Context, extension time.Duration) error {
	result, err := l.client.Eval(ctx, extendScript, []string{l.key}, l.value, fmt.Sprintf("%d", extension.Milliseconds())).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("lock extension failed for key %s, either lock expired or you're not the holder", l.key)
	}
	return nil
}

// WaitLock retries Lock with exponential backoff until waitTimeout elapses.
// Only a held lock is retried; redis errors stop the wait immediately.
func (l *Locker) WaitLock(ctx context.Context, lockTimeout, waitTimeout time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = waitTimeout

	err := backoff.Retry(func() error {
		err := l.Lock(ctx, lockTimeout)
		if err != nil && !errors.Is(err, ErrLockHeld) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if errors.Is(err, ErrLockHeld) {
		return fmt.Errorf("failed to acquire lock for key %s within the wait timeout: %w", l.key, ErrLockHeld)
	}
	return err
}

// MultiLocker holds a set of keys as one lock. Keys are acquired in sorted
// order so two holders of overlapping sets cannot deadlock.
type MultiLocker struct {
	lockers []*Locker
	held    []*Locker
}

// NewMultiLocker builds a locker over the distinct keys, all sharing value.
func NewMultiLocker(client redis.UniversalClient, keys []string, value string) *MultiLocker {
	unique := make(map[string]struct{}, len(keys))
	sorted := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := unique[k]; ok {
			continue
		}
		unique[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	m := &MultiLocker{}
	for _, k := range sorted {
		m.lockers = append(m.lockers, NewLocker(client, k, value))
	}
	return m
}

// Keys returns the guarded keys in acquisition order.
func (m *MultiLocker) Keys() []string {
	keys := make([]string, len(m.lockers))
	for i, l := range m.lockers {
		keys[i] = l.key
	}
	return keys
}

// Lock acquires every key, waiting up to waitTimeout for each. On failure the
// keys already taken are released before returning.
func (m *MultiLocker) Lock(ctx context.Context, lockTimeout, waitTimeout time.Duration) error {
	for _, l := range m.lockers {
		var err error
		if waitTimeout > 0 {
			err = l.WaitLock(ctx, lockTimeout, waitTimeout)
		} else {
			err = l.Lock(ctx, lockTimeout)
		}
		if err != nil {
			_ = m.Unlock(ctx)
			return err
		}
		m.held = append(m.held, l)
	}
	return nil
}

// Unlock releases the held keys in reverse order and reports the first failure.
func (m *MultiLocker) Unlock(ctx context.Context) error {
	var first error
	for i := len(m.held) - 1; i >= 0; i-- {
		if err := m.held[i].Unlock(ctx); err != nil && first == nil {
			first = err
		}
	}
	m.held = nil
	return first
}
