package badger

import (
	"cmp"
	"encoding/binary"
	"slices"
	"time"

	"github.com/poiesic/suggestit/core"
)

// Key prefixes for different data types
const (
	interactionPrefix     = "intrec:"
	interactionDatePrefix = "intrecd:"
	interactionUserPrefix = "intrecu:"
	interactionIDSeq      = "intrecseq"
	manualPrefix          = "manrec:"
	manualKindPrefix      = "manreck:"
	manualIDSeq           = "manrecseq"
	eventPrefix           = "evtrec:"
	eventDatePrefix       = "evtrecd:"
	eventTypePrefix       = "evtrect:"
	eventIDSeq            = "evtrecseq"
)

// maxTime is later than any stored timestamp.
var maxTime = time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)

// composeKey concatenates a prefix, an optional label and big-endian encoded parts.
// BigEndian order keeps lexicographic key order equal to numeric order.
func composeKey(prefix, label string, parts ...uint64) []byte {
	size := len(prefix) + len(label) + 8*len(parts)
	if label != "" {
		size++
	}
	buf := make([]byte, size)
	offset := copy(buf, prefix)
	if label != "" {
		offset += copy(buf[offset:], label)
		buf[offset] = 0
		offset++
	}
	for _, p := range parts {
		binary.BigEndian.PutUint64(buf[offset:], p)
		offset += 8
	}
	return buf
}

func micros(ts time.Time) uint64 {
	return uint64(ts.UnixMicro())
}

// makeInteractionKey generates a key for an interaction by ID.
func makeInteractionKey(id core.ID) []byte {
	return composeKey(interactionPrefix, "", uint64(id))
}

// makeInteractionDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeInteractionDateKey(ts time.Time, id core.ID) []byte {
	return composeKey(interactionDatePrefix, "", micros(ts), uint64(id))
}

// makeInteractionUserKey generates a composite key for the per-user index.
// Format: prefix:user\x00:timestamp:id
func makeInteractionUserKey(userID string, ts time.Time, id core.ID) []byte {
	return composeKey(interactionUserPrefix, userID, micros(ts), uint64(id))
}

// makeInteractionUserPrefix returns the index prefix covering one user.
func makeInteractionUserPrefix(userID string) []byte {
	return composeKey(interactionUserPrefix, userID)
}

// makeManualKey generates a key for a manual record by ID.
func makeManualKey(id core.ID) []byte {
	return composeKey(manualPrefix, "", uint64(id))
}

// makeManualKindKey generates a composite key for the kind index.
// Format: prefix:kind\x00:id
func makeManualKindKey(kind core.ManualKind, id core.ID) []byte {
	return composeKey(manualKindPrefix, string(kind), uint64(id))
}

func makeManualKindPrefix(kind core.ManualKind) []byte {
	return composeKey(manualKindPrefix, string(kind))
}

// makeEventKey generates a key for an event by ID.
func makeEventKey(id core.ID) []byte {
	return composeKey(eventPrefix, "", uint64(id))
}

// makeEventDateKey generates a composite key for the event date index.
func makeEventDateKey(ts time.Time, id core.ID) []byte {
	return composeKey(eventDatePrefix, "", micros(ts), uint64(id))
}

// makeEventTypeKey generates a composite key for the event type index.
func makeEventTypeKey(eventType string, ts time.Time, id core.ID) []byte {
	return composeKey(eventTypePrefix, eventType, micros(ts), uint64(id))
}

func makeEventTypePrefix(eventType string) []byte {
	return composeKey(eventTypePrefix, eventType)
}

// dateBounds returns the seek key and exclusive upper bound for an inclusive
// [start, end] walk over a date index. Zero times leave the range open.
func dateBounds(prefix string, start, end time.Time) (seek, limit []byte) {
	if start.IsZero() {
		seek = []byte(prefix)
	} else {
		seek = composeKey(prefix, "", micros(start))
	}
	if end.IsZero() {
		end = maxTime
	}
	limit = composeKey(prefix, "", micros(end)+1)
	return seek, limit
}

// decodeTrailingID reads the big-endian ID closing a key.
func decodeTrailingID(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

func sortByID(records []*core.ManualRecord) {
	slices.SortFunc(records, func(a, b *core.ManualRecord) int {
		return cmp.Compare(a.Id, b.Id)
	})
}
