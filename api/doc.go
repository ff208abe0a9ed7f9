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

// Package api exposes the suggestion service over HTTP.
//
// Every route except the health check and /metrics sits behind a gate that
// checks the X-API-Key header against the configured keys and applies a
// per-key requests-per-minute limit. Errors are returned as JSON objects
// carrying a message, a machine-readable reason and the request id.
//
// Routes:
//
//	GET  /              health
//	GET  /metrics       Prometheus exposition
//	POST /suggest       rank a query
//	POST /feedback      record a selection and rating
//	POST /data          add one manual record
//	GET  /data          list manual records, optionally ?type=
//	POST /batch_import  add many manual records
//	GET  /analytics     usage report, optional ?start=&end=&format=csv
//	POST /event         track an analytics event
package api
