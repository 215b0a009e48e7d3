package snapshot

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/spellduel/internal/combat"
)

// Codec сериализует снимки в JSON и сжимает zstd.
// Энкодер и декодер создаются один раз и потокобезопасны для EncodeAll/DecodeAll.
type Codec struct {
	once    sync.Once
	err     error
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (c *Codec) init() error {
	c.once.Do(func() {
		c.encoder, c.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if c.err != nil {
			return
		}
		c.decoder, c.err = zstd.NewReader(nil)
	})
	return c.err
}

// Encode снимок → сжатые байты
func (c *Codec) Encode(s combat.Snapshot) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// Decode обратная операция к Encode
func (c *Codec) Decode(data []byte) (combat.Snapshot, error) {
	var s combat.Snapshot
	if err := c.init(); err != nil {
		return s, fmt.Errorf("zstd: %w", err)
	}
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return s, fmt.Errorf("decompress snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return s, nil
}
