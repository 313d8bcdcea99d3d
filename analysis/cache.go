// Copyright 2018 MPI-SWS and Valentin Wuestholz

// This file is part of Bran.
//
// Bran is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Bran is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Bran.  If not, see <https://www.gnu.org/licenses/>.

package analysis

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultCacheSize is the number of programs a cache keeps by default.
const DefaultCacheSize = 1024

type result struct {
	prog *Program
	err  error
}

// Cache recovers programs once per code hash. Recovery is deterministic, so
// failures are kept just like programs. It is safe for concurrent use.
type Cache struct {
	cfg     Config
	results *lru.Cache[common.Hash, result]

	mu            sync.Mutex
	numSuccess    uint64
	numFail       uint64
	numHits       uint64
	failureCauses map[string]uint64
	time          time.Duration
}

// NewCache returns a cache holding up to size results, recovering with cfg.
func NewCache(size int, cfg *Config) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if cfg == nil {
		cfg = &DefaultConfig
	}
	return &Cache{
		cfg:           *cfg,
		results:       lru.NewCache[common.Hash, result](size),
		failureCauses: map[string]uint64{},
	}
}

// Recover returns the program of code, recovering it on first use.
func (c *Cache) Recover(code []byte) (*Program, error) {
	hash := crypto.Keccak256Hash(code)
	if res, found := c.results.Get(hash); found {
		cacheHitCounter.Inc(1)
		c.mu.Lock()
		c.numHits++
		c.mu.Unlock()
		return res.prog, res.err
	}
	cacheMissCounter.Inc(1)

	start := time.Now()
	prog, err := Recover(code, &c.cfg)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.time += elapsed
	if err != nil {
		c.numFail++
		c.failureCauses[FailureCause(err)]++
	} else {
		c.numSuccess++
	}
	c.mu.Unlock()

	c.results.Add(hash, result{prog: prog, err: err})
	return prog, err
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.results.Len()
}

func (c *Cache) NumSuccess() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numSuccess
}

func (c *Cache) NumFail() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numFail
}

func (c *Cache) NumHits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numHits
}

// Time returns the time spent recovering, hits excluded.
func (c *Cache) Time() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

func (c *Cache) FailureCauses() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	fcs := map[string]uint64{}
	for cause, cnt := range c.failureCauses {
		fcs[cause] = cnt
	}
	return fcs
}
