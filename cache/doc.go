// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache memoizes ranked results per request fingerprint.
//
// A Cache stores Entry values keyed by the string returned from Fingerprint.
// Entries expire lazily: a Get after the entry's TTL has elapsed reports a miss
// and drops the stored value. Two backends are provided:
//
//   - Memory: a bounded in-process cache built on ristretto
//   - Redis: a shared cache for multi-instance deployments
package cache
