// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
)

var (
	ErrCacheMiss     = errors.New("key not found in cache")
	ErrCacheDisabled = errors.New("cache is disabled")
)

var (
	cacheLock sync.RWMutex
	rdb       *redis.Client
	local     *lru.Cache
	cacheTTL  time.Duration
)

// SetupCache creates the in-process LRU and, when cache.redis is set, the
// shared redis client. Calling it again replaces both.
func SetupCache() error {
	cacheLock.Lock()
	defer cacheLock.Unlock()

	rdb = nil
	local = nil

	if !viper.GetBool("cache.enabled") {
		log.Debug().Msg("market data cache disabled")
		return nil
	}

	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return err
		}
		rdb = redis.NewClient(opt)
	}

	size := viper.GetInt("cache.local_size")
	if size <= 0 {
		size = 128
	}

	var err error
	local, err = lru.New(size)
	if err != nil {
		log.Error().Err(err).Int("Size", size).Msg("could not create LRU cache")
		return err
	}

	cacheTTL = time.Duration(viper.GetInt("cache.ttl")) * time.Second
	return nil
}

// CacheKey derives a stable cache key from the given parts
func CacheKey(parts ...string) string {
	sum := blake3.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "pvf:" + hex.EncodeToString(sum[:16])
}

// CacheSet compresses bytes and stores them locally and, if configured, in redis
func CacheSet(ctx context.Context, key string, bytes []byte) error {
	cacheLock.RLock()
	defer cacheLock.RUnlock()

	if local == nil {
		return ErrCacheDisabled
	}

	compressed, err := Compress(bytes)
	if err != nil {
		return err
	}
	local.Add(key, compressed)

	if rdb != nil {
		return rdb.Set(ctx, key, compressed, cacheTTL).Err()
	}
	return nil
}

// CacheGet returns the decompressed value stored under key
func CacheGet(ctx context.Context, key string) ([]byte, error) {
	cacheLock.RLock()
	defer cacheLock.RUnlock()

	if local == nil {
		return nil, ErrCacheDisabled
	}

	if val, ok := local.Get(key); ok {
		return Decompress(val.([]byte))
	}

	if rdb == nil {
		return nil, ErrCacheMiss
	}

	val, err := rdb.GetEx(ctx, key, cacheTTL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	// promote to the local cache
	local.Add(key, val)
	return Decompress(val)
}
