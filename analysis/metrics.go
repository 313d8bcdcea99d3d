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

import "github.com/ethereum/go-ethereum/metrics"

var (
	programCounter = metrics.NewRegisteredCounter("analysis/programs", nil)
	blockCounter   = metrics.NewRegisteredCounter("analysis/blocks", nil)
	failureCounter = metrics.NewRegisteredCounter("analysis/failures", nil)

	cacheHitCounter  = metrics.NewRegisteredCounter("analysis/cache/hit", nil)
	cacheMissCounter = metrics.NewRegisteredCounter("analysis/cache/miss", nil)
)
