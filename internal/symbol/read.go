package symbol

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadEncoding loads an encoding. Input that already carries sentinels is taken
// verbatim (minus line breaks); otherwise every non-empty line is one row.
func ReadEncoding(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read encoding: %w", err)
	}
	raw := string(data)
	if strings.Contains(raw, Sentinel) {
		raw = strings.NewReplacer("\r", "", "\n", "").Replace(raw)
		if !strings.HasSuffix(raw, Sentinel) {
			raw += Sentinel
		}
		return raw, nil
	}

	rows := make([]string, 0)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan encoding: %w", err)
	}
	return Join(rows), nil
}

// ReadTable loads an encoding from CSV: each record is one row and each field one
// token. Blank fields and blank records are skipped.
func ReadTable(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []string
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return "", fmt.Errorf("read table record %d: %w", line, err)
		}
		var b strings.Builder
		for _, field := range record {
			b.WriteString(strings.TrimSpace(field))
		}
		if b.Len() == 0 {
			continue
		}
		rows = append(rows, b.String())
	}
	return Join(rows), nil
}

// ReadEncodingFile reads path with ReadTable when it ends in .csv and with
// ReadEncoding otherwise.
func ReadEncodingFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadTable(f)
	}
	return ReadEncoding(f)
}
