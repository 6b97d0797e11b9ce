package macro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Extension is the file extension recognised by the macro library.
const Extension = ".csv"

const (
	fieldCount     = 5
	fileNameLayout = "2006-01-02-15-04-05"
)

// FileName returns the default sortable file name for a macro saved at t.
func FileName(t time.Time) string {
	return t.UTC().Format(fileNameLayout) + Extension
}

// Encode writes one `x,y,left,right,timestamp` line per sample.
func Encode(writer io.Writer, samples []Sample) error {
	buffered := bufio.NewWriter(writer)
	for _, sample := range samples {
		if _, err := buffered.WriteString(encodeLine(sample)); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
		if err := buffered.WriteByte('\n'); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("flush samples: %w", err)
	}
	return nil
}

// Decode parses samples line by line. Lines that do not hold exactly five
// parsable fields are skipped; skipped reports how many.
func Decode(reader io.Reader) (samples []Sample, skipped int, err error) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sample, ok := decodeLine(line)
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return samples, skipped, fmt.Errorf("scan samples: %w", err)
	}
	return samples, skipped, nil
}

// LoadFile reads a macro file fully into memory.
func LoadFile(path string) (Macro, int, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Macro{}, 0, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Macro{}, 0, fmt.Errorf("open macro: %w", err)
	}
	defer file.Close()

	samples, skipped, err := Decode(file)
	if err != nil {
		return Macro{}, skipped, err
	}

	loaded := Macro{
		Name:    NameFromPath(path),
		Path:    path,
		Samples: samples,
	}
	if info, statErr := file.Stat(); statErr == nil {
		loaded.CreatedAt = info.ModTime()
	}
	return loaded, skipped, nil
}

// SaveFile writes samples to path through a temporary file and rename.
func SaveFile(path string, samples []Sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create macros directory: %w", err)
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create macro file: %w", err)
	}
	if err := Encode(file, samples); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close macro file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename macro file: %w", err)
	}
	return nil
}

func encodeLine(sample Sample) string {
	var builder strings.Builder
	builder.WriteString(strconv.Itoa(sample.X))
	builder.WriteByte(',')
	builder.WriteString(strconv.Itoa(sample.Y))
	builder.WriteByte(',')
	builder.WriteString(boolField(sample.LeftDown))
	builder.WriteByte(',')
	builder.WriteString(boolField(sample.RightDown))
	builder.WriteByte(',')
	builder.WriteString(strconv.FormatFloat(sample.Timestamp, 'f', -1, 64))
	return builder.String()
}

func decodeLine(line string) (Sample, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != fieldCount {
		return Sample{}, false
	}
	for index := range parts {
		parts[index] = strings.TrimSpace(parts[index])
	}

	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return Sample{}, false
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return Sample{}, false
	}
	timestamp, err := strconv.ParseFloat(parts[4], 64)
	if err != nil || math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return Sample{}, false
	}

	return Sample{
		X:         x,
		Y:         y,
		LeftDown:  parts[2] == "1",
		RightDown: parts[3] == "1",
		Timestamp: timestamp,
	}, true
}

func boolField(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
