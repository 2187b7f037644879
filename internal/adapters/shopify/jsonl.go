package shopify

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"shopify-price-manager/internal/adapters/shopify/dto"
	"shopify-price-manager/internal/logging"
)

const jsonlReadBuffer = 64 * 1024

// decodeLines reads newline-delimited JSON from r and hands every decoded
// object to fn in stream order. Lines may span read chunks and the last line
// may lack a terminating newline. Lines that are not valid JSON are skipped.
func decodeLines(ctx context.Context, r io.Reader, logger logging.LoggerService, fn func(dto.BulkLine)) error {
	reader := bufio.NewReaderSize(r, jsonlReadBuffer)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			lineNo++
			var line dto.BulkLine
			if err := json.Unmarshal(trimmed, &line); err != nil {
				logger.LogWarning("skipping undecodable bulk result line",
					zap.Int("line", lineNo),
					zap.Error(err),
				)
			} else {
				fn(line)
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read bulk result: %w", readErr)
		}
	}
}
