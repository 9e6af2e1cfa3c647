// FILE: src/internal/core/const.go
package core

// Batch envelope. The %s verb is replaced by comma-joined serialized calls.
const (
	BatchTemplate = `{"batch":[%s]}`

	// Bytes the envelope adds around the calls.
	BatchOverhead = len(BatchTemplate) - len("%s")

	// Bytes held back from the ceiling when packing. The whole template is
	// reserved, verb included, so every payload stays 2 bytes under the
	// ceiling and batch boundaries match the reference packer.
	BatchReserve = len(BatchTemplate)

	// Collector request ceiling, envelope included.
	DefaultMaxPayloadBytes = 500 * 1024
)

const DefaultEndpoint = "https://api.segment.io/v1/batch"

const DefaultTokenLength = 32
