// Package catalog turns caller-supplied catalog snapshots into scoring candidates.
//
// Snapshots arrive as loosely shaped JSON. Parsing is lenient: a malformed
// field is defaulted to its zero value and never fails the batch. Build then
// flattens categories, members and manual records into a deduplicated
// candidate list in source precedence order.
package catalog
