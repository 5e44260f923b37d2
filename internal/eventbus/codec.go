package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// PayloadEncoding значение Metadata["encoding"] для полезной нагрузки правок
const PayloadEncoding = "zstd+json"

// CellChange изменение одной ячейки в событии
type CellChange struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Z   int    `json:"z"`
	Old string `json:"old"`
	New string `json:"new"`
}

// EditEvent полезная нагрузка событий правок
type EditEvent struct {
	TaskID     string       `json:"task_id"`
	Actor      string       `json:"actor"`
	Kind       string       `json:"kind"`
	Name       string       `json:"name"`
	World      string       `json:"world,omitempty"`
	Bounds     string       `json:"bounds,omitempty"`
	Estimated  uint64       `json:"estimated_cells"`
	Changed    int          `json:"changed_cells"`
	DurationMs int64        `json:"duration_ms,omitempty"`
	Error      string       `json:"error,omitempty"`
	Changes    []CellChange `json:"changes,omitempty"`
	Truncated  bool         `json:"truncated,omitempty"`
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// EncodeEdit сериализует событие в JSON и сжимает zstd
func EncodeEdit(ev *EditEvent) ([]byte, error) {
	enc, _, err := codec()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode edit event: %w", err)
	}
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// DecodeEdit обратная операция к EncodeEdit
func DecodeEdit(payload []byte) (*EditEvent, error) {
	_, dec, err := codec()
	if err != nil {
		return nil, err
	}
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress edit event: %w", err)
	}
	var ev EditEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode edit event: %w", err)
	}
	return &ev, nil
}
