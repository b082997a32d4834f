package app

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"sparrow/internal/core/errors"
)

// Data files are plain CSV. Nodes: id[,label...]. Relationships:
// source,target[,value...] with values in property-key order. A first row
// whose leading field is not an integer is treated as a header, and '#'
// starts a comment line.

type relationshipRow struct {
	line   int
	source int64
	target int64
	values []float64
}

func readNodes(path string, fn func(id int64, labels []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeNotFound, "opening nodes file")
	}
	defer file.Close()

	reader := newCSVReader(file)
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "reading nodes file")
		}
		line, _ := reader.FieldPos(0)

		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			if first {
				first = false
				continue
			}
			return errors.Newf(errors.CodeValidationError,
				"nodes file line %d: id %q is not an integer", line, record[0])
		}
		first = false

		if err := fn(id, record[1:]); err != nil {
			return err
		}
	}
	return nil
}

func readRelationships(path string, fn func(row relationshipRow) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeNotFound, "opening relationships file")
	}
	defer file.Close()

	reader := newCSVReader(file)
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "reading relationships file")
		}
		line, _ := reader.FieldPos(0)

		source, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			if first {
				first = false
				continue
			}
			return errors.Newf(errors.CodeValidationError,
				"relationships file line %d: source %q is not an integer", line, record[0])
		}
		first = false

		if len(record) < 2 {
			return errors.Newf(errors.CodeValidationError,
				"relationships file line %d: want source,target[,value...], got %d fields", line, len(record))
		}
		target, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return errors.Newf(errors.CodeValidationError,
				"relationships file line %d: target %q is not an integer", line, record[1])
		}

		values := make([]float64, 0, len(record)-2)
		for i, field := range record[2:] {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return errors.Newf(errors.CodeValidationError,
					"relationships file line %d: value %d (%q) is not a number", line, i+1, field)
			}
			values = append(values, value)
		}

		if err := fn(relationshipRow{line: line, source: source, target: target, values: values}); err != nil {
			return err
		}
	}
	return nil
}

func newCSVReader(file *os.File) *csv.Reader {
	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	return reader
}
