// Package strkey implements the versioned base32 key encoding used for
// account identifiers and signing seeds: one version byte, 32 bytes of key
// material and a CRC16 checksum, base32-encoded without padding. Account
// identifiers start with "G", signing seeds with "S".
package strkey

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
)

// VersionByte selects the key flavour being encoded.
type VersionByte byte

const (
	// VersionAccount is the version byte for public account identifiers ("G...").
	VersionAccount VersionByte = 6 << 3

	// VersionSeed is the version byte for private signing seeds ("S...").
	VersionSeed VersionByte = 18 << 3
)

const keyLen = 32

var (
	// ErrInvalidKey is returned when a strkey cannot be decoded
	ErrInvalidKey = errors.New("invalid strkey")

	// ErrVersionMismatch is returned when a strkey decodes under a different version byte
	ErrVersionMismatch = errors.New("strkey version mismatch")
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Encode renders 32 bytes of key material under the given version byte.
func Encode(version VersionByte, key []byte) (string, error) {
	if len(key) != keyLen {
		return "", ErrInvalidKey
	}

	raw := make([]byte, 0, 1+keyLen+2)
	raw = append(raw, byte(version))
	raw = append(raw, key...)
	raw = binary.LittleEndian.AppendUint16(raw, checksum(raw))

	return encoding.EncodeToString(raw), nil
}

// Decode parses a strkey and returns the 32 bytes of key material.
// The checksum and the expected version byte are both verified.
func Decode(version VersionByte, s string) ([]byte, error) {
	raw, err := encoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKey
	}

	if len(raw) != 1+keyLen+2 {
		return nil, ErrInvalidKey
	}

	payload := raw[:len(raw)-2]
	want := binary.LittleEndian.Uint16(raw[len(raw)-2:])
	if checksum(payload) != want {
		return nil, ErrInvalidKey
	}

	if VersionByte(raw[0]) != version {
		return nil, ErrVersionMismatch
	}

	key := make([]byte, keyLen)
	copy(key, raw[1:1+keyLen])
	return key, nil
}

// IsAccount reports whether s decodes as a public account identifier.
func IsAccount(s string) bool {
	_, err := Decode(VersionAccount, s)
	return err == nil
}

// checksum computes CRC16-XModem over data.
func checksum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
