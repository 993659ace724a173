package main

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
)

// The correlation id ties a command's JSON error envelope to its
// operational-log start/end events. It is derived from the invocation,
// so replaying the same command yields the same id.

const emptyCorrelationID = "000000000000000000000000"

var activeCorrelation atomic.Value

func init() {
	activeCorrelation.Store("")
}

func newCorrelationID(arguments []string) string {
	if len(arguments) == 0 {
		return emptyCorrelationID
	}
	hasher := sha256.New()
	for i, argument := range arguments {
		if i > 0 {
			hasher.Write([]byte{0x1f})
		}
		hasher.Write([]byte(strings.TrimSpace(argument)))
	}
	return hex.EncodeToString(hasher.Sum(nil)[:12])
}

func setCurrentCorrelationID(id string) {
	activeCorrelation.Store(strings.TrimSpace(id))
}

func currentCorrelationID() string {
	id, _ := activeCorrelation.Load().(string)
	return strings.TrimSpace(id)
}
