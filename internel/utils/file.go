package utils

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadBinary reads a little-endian dump of fixed-size values.
func ReadBinary[T any](filename string) ([]T, error) {

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	var zero T
	numElements := int(fileInfo.Size()) / binary.Size(zero)
	data := make([]T, numElements)

	err = binary.Read(bufio.NewReader(file), binary.LittleEndian, data)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

func WriteBinary[T any](filename string, data []T) error {

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriter(file)
	err = binary.Write(w, binary.LittleEndian, data)
	if err == nil {
		err = w.Flush()
	}
	return closeWritten(file, err)
}

// ReadTxt reads whitespace separated values.
func ReadTxt[T any](filename string) ([]T, error) {

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var data []T
	for {
		var element T
		_, err := fmt.Fscan(r, &element)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		data = append(data, element)
	}

	return data, nil
}

// WriteTxt writes f(element) of every element on its own line.
func WriteTxt[V, T any](filename string, data []T, f func(T) V) error {

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriter(file)
	for _, element := range data {
		if _, err = fmt.Fprintln(w, f(element)); err != nil {
			break
		}
	}
	if err == nil {
		err = w.Flush()
	}
	return closeWritten(file, err)
}

// closeWritten closes file exactly once and reports the first failure.
func closeWritten(file *os.File, err error) error {
	cerr := file.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
