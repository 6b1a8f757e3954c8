package stream

import (
	"log/slog"
	"strings"

	"github.com/nao1215/imagefinder/internal/model"
)

// Decode parses the part of text after the first consumed bytes.
//
// It returns the records found, in order, and the offset to pass as consumed
// on the next call. The offset never moves past an unterminated trailing
// fragment that fails to parse, so that fragment is retried once more bytes
// have arrived. A consumed value outside [0, len(text)] restarts decoding
// from the beginning of text.
func Decode(consumed int, text string) ([]model.Record, int) {
	records, next, _ := decode(consumed, text)
	return records, next
}

// decode is Decode that also reports how many complete lines were dropped.
func decode(consumed int, text string) ([]model.Record, int, int) {
	if consumed < 0 || consumed > len(text) {
		consumed = 0
	}

	var (
		records   []model.Record
		discarded int
		pos       = consumed
	)

	for pos < len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			// Trailing fragment without a line terminator.
			line := strings.TrimSpace(text[pos:])
			if line == "" {
				return records, pos, discarded
			}
			rec, err := model.ParseRecord([]byte(line))
			if err != nil {
				return records, pos, discarded
			}
			return append(records, rec), len(text), discarded
		}

		line := strings.TrimSpace(text[pos : pos+end])
		pos += end + 1
		if line == "" {
			continue
		}

		rec, err := model.ParseRecord([]byte(line))
		if err != nil {
			discarded++
			continue
		}
		records = append(records, rec)
	}

	return records, pos, discarded
}

// Decoder tracks how much of a growing cumulative buffer has been decoded.
// It is not safe for concurrent use; one operation owns one Decoder.
type Decoder struct {
	// consumed is the offset of the first byte not yet decoded.
	consumed int

	// records counts records returned so far.
	records int

	// discarded counts complete lines dropped because they did not parse.
	discarded int

	// logger reports dropped lines at debug level.
	logger *slog.Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used to report dropped lines.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// NewDecoder creates a Decoder positioned at the start of the stream.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Feed decodes the new part of the cumulative text and advances.
func (d *Decoder) Feed(text string) []model.Record {
	if len(text) < d.consumed {
		d.logger.Debug("cumulative buffer shrank, restarting decode",
			"consumed", d.consumed,
			"length", len(text),
		)
	}

	records, next, discarded := decode(d.consumed, text)
	if discarded > 0 {
		d.logger.Debug("dropped malformed lines",
			"count", discarded,
			"offset", d.consumed,
		)
	}

	d.consumed = next
	d.records += len(records)
	d.discarded += discarded
	return records
}

// Consumed returns the offset of the first byte not yet decoded.
func (d *Decoder) Consumed() int {
	return d.consumed
}

// Stats returns the number of records decoded and lines dropped so far.
func (d *Decoder) Stats() (records, discarded int) {
	return d.records, d.discarded
}

// Reset rewinds the decoder for a new stream.
func (d *Decoder) Reset() {
	d.consumed = 0
	d.records = 0
	d.discarded = 0
}
