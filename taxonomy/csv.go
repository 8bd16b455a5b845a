// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package taxonomy

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/tariff/core"
)

// ParseCSV reads level-annotated nomenclature rows from r. The expected
// columns are level, code, label; a header line is detected and skipped when
// its level column is not numeric. Malformed rows are skipped with a warning
// rather than aborting the load. An error is returned only when no usable
// rows remain.
func ParseCSV(r io.Reader, logger *slog.Logger) ([]Row, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		rows    []Row
		lineNum int
		skipped int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			logger.Warn("skipping unreadable row", "line", lineNum, "error", err)
			skipped++
			continue
		}
		if len(record) < 3 {
			logger.Warn("skipping short row", "line", lineNum, "fields", len(record))
			skipped++
			continue
		}

		level, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			if lineNum == 1 {
				// Header line.
				continue
			}
			logger.Warn("skipping row with non-numeric level", "line", lineNum, "value", record[0])
			skipped++
			continue
		}

		label := strings.TrimSpace(record[2])
		if label == "" {
			logger.Warn("skipping row with empty label", "line", lineNum)
			skipped++
			continue
		}

		rows = append(rows, Row{
			Level: level,
			Code:  strings.TrimSpace(record[1]),
			Label: label,
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no usable taxonomy rows (skipped %d)", core.ErrDataLoad, skipped)
	}
	if skipped > 0 {
		logger.Warn("taxonomy parse finished with skipped rows", "skipped", skipped, "loaded", len(rows))
	}

	return rows, nil
}
