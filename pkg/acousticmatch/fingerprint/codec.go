package fingerprint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/himanishpuri/acousticmatch/pkg/models"
	"github.com/klauspost/compress/zlib"
)

const (
	// groupWidth is the number of hex characters per time or code value.
	groupWidth = 5
	// MaxValue is the largest time or code representable in a group.
	MaxValue = 1<<(4*groupWidth) - 1
	// maxCodesPerFrame bounds code density; codegen emits well under one per frame.
	maxCodesPerFrame = 4
	// MaxPayloadBytes is the largest inflated payload Decode accepts: four hours
	// of frames at maxCodesPerFrame, one time and one code group per entry.
	MaxPayloadBytes = int64(MaxIngestSeconds*models.FramesPerSecond) * maxCodesPerFrame * 2 * groupWidth
)

var errPayloadTooLarge = fmt.Errorf("inflated payload exceeds %d bytes", MaxPayloadBytes)

var urlSafeReplacer = strings.NewReplacer("-", "+", "_", "/", "\n", "", "\r", "", " ", "", "\t", "", "=", "")

// Decode expands a URL-safe, base64 encoded, zlib compressed code string into a
// fingerprint. The inflated payload holds N five-character hex times followed by
// N five-character hex codes.
//
// A corrupt base64 or zlib layer, or a payload inflating past MaxPayloadBytes,
// yields a *DecodeError. A payload that inflates but is not well-formed hex
// yields an empty fingerprint and no error. Times that
// go backwards yield ErrInvalidFingerprint.
func Decode(code string) (models.Fingerprint, error) {
	compressed, err := base64.RawStdEncoding.DecodeString(urlSafeReplacer.Replace(code))
	if err != nil {
		return models.Fingerprint{}, &DecodeError{Stage: "base64", Err: err}
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return models.Fingerprint{}, &DecodeError{Stage: "zlib", Err: err}
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, MaxPayloadBytes+1))
	if err != nil {
		return models.Fingerprint{}, &DecodeError{Stage: "zlib", Err: err}
	}
	if int64(len(raw)) > MaxPayloadBytes {
		return models.Fingerprint{}, &DecodeError{Stage: "zlib", Err: errPayloadTooLarge}
	}

	fp, ok := parseGroups(raw)
	if !ok {
		return models.Fingerprint{Codes: []uint32{}, Times: []uint32{}}, nil
	}

	for i := 1; i < len(fp.Times); i++ {
		if fp.Times[i] < fp.Times[i-1] {
			return models.Fingerprint{}, fmt.Errorf("%w: time %d at index %d precedes %d", ErrInvalidFingerprint, fp.Times[i], i, fp.Times[i-1])
		}
	}
	return fp, nil
}

// parseGroups splits the inflated payload into times and codes. It reports false
// if the payload length is not a whole number of entries or any group is not hex.
func parseGroups(buf []byte) (models.Fingerprint, bool) {
	if len(buf)%(2*groupWidth) != 0 {
		return models.Fingerprint{}, false
	}
	n := len(buf) / (2 * groupWidth)

	fp := models.Fingerprint{
		Codes: make([]uint32, n),
		Times: make([]uint32, n),
	}
	for i := 0; i < 2*n; i++ {
		v, err := strconv.ParseUint(string(buf[i*groupWidth:(i+1)*groupWidth]), 16, 32)
		if err != nil {
			return models.Fingerprint{}, false
		}
		if i < n {
			fp.Times[i] = uint32(v)
		} else {
			fp.Codes[i-n] = uint32(v)
		}
	}
	return fp, true
}

// Encode is the inverse of Decode. It returns the URL-safe form of the code string.
func Encode(fp models.Fingerprint) (string, error) {
	if len(fp.Codes) != len(fp.Times) {
		return "", fmt.Errorf("codes/times length mismatch: %d != %d", len(fp.Codes), len(fp.Times))
	}

	var payload bytes.Buffer
	payload.Grow(2 * groupWidth * len(fp.Codes))
	for _, values := range [][]uint32{fp.Times, fp.Codes} {
		for i, v := range values {
			if v > MaxValue {
				return "", fmt.Errorf("value %d at index %d exceeds %d", v, i, MaxValue)
			}
			fmt.Fprintf(&payload, "%05x", v)
		}
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload.Bytes()); err != nil {
		return "", fmt.Errorf("compressing code string: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compressing code string: %w", err)
	}

	return base64.URLEncoding.EncodeToString(compressed.Bytes()), nil
}
