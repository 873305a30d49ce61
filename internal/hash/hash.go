// Package hash computes the content fingerprint of a batch request. The
// fingerprint is the disk-cache key and the reference the service uses to
// resume a pending computation.
package hash

import (
	"crypto/sha1" //nolint:gosec // stable cache key, not a security boundary
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

// Request returns the lowercase hex SHA-1 of the request's canonical fields.
//
// Cells are written one after another, each as year_min, year_max, day_min,
// day_max, hour_min, hour_max (int32, little endian) followed by lat_min,
// lat_max, lon_min, lon_max (IEEE-754 bits, little endian). The provenance
// hint, parameter ID and coverage follow as length-prefixed strings.
func Request(req domain.BatchRequest) string {
	h := sha1.New() //nolint:gosec
	buf := make([]byte, 0, 64)

	for _, c := range req.Cells {
		buf = buf[:0]
		for _, v := range [...]int{c.YearMin, c.YearMax, c.DayMin, c.DayMax, c.HourMin, c.HourMax} {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(v)))
		}
		for _, v := range [...]float64{c.LatMin, c.LatMax, c.LonMin, c.LonMax} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		h.Write(buf) //nolint:errcheck // hash.Hash writes never fail
	}

	writeString(h, req.ProvenanceHint())
	writeString(h, req.Parameter.ID)
	writeString(h, string(req.Parameter.Coverage))

	return hex.EncodeToString(h.Sum(nil))
}

func writeString(w io.Writer, s string) {
	b := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+len(s)), uint32(len(s)))
	w.Write(append(b, s...)) //nolint:errcheck
}
