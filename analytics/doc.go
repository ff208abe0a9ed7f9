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

// Package analytics aggregates the interaction and event logs into usage
// reports.
//
// A report covers an optional [start, end] window and carries:
//   - total interactions, distinct users and the average satisfaction rating
//   - the ten most frequent queries and selected suggestions
//   - event counts by type
//   - the learned query patterns of the running process
//
// Reports can be exported as CSV with WriteCSV.
package analytics
