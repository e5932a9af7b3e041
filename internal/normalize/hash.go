package normalize

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// FileHash computes the hex-encoded SHA-256 of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// RecordSeed derives the PRNG seed of one measurement event from the global
// seed, the natural patient key and the event's occurrence index among that
// patient's rows. It depends on nothing else, so enrichment can run in any
// order or degree of parallelism.
func RecordSeed(global int64, patientKey string, occurrence int) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(global))
	d.Write(buf[:])
	d.WriteString(patientKey)
	d.Write([]byte{0})
	binary.LittleEndian.PutUint64(buf[:], uint64(occurrence))
	d.Write(buf[:])
	return d.Sum64()
}
