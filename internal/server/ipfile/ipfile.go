package ipfile

import (
	"errors"
	"os"
	"strings"

	"ipbeacon/internal/utils"
)

// ErrNotFound means the IP file has not been delivered yet
var ErrNotFound = errors.New("ip file not found")

// ErrInvalid means the file exists but does not hold a valid IPv4
// address. The content is never propagated to callers of the HTTP API
var ErrInvalid = errors.New("ip file holds invalid address")

// Reader reads and revalidates the address file the push transport
// delivers. The file is written by an external process, so its content
// is never trusted without validation
type Reader struct {
	path string
}

// NewReader creates a reader for the given path
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the backing file path
func (r *Reader) Path() string {
	return r.path
}

// Read returns the current address. ErrNotFound when the file is
// missing, ErrInvalid when its content fails validation; other errors
// are I/O failures
func (r *Reader) Read() (string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}

	ip := strings.TrimSpace(string(data))
	if !utils.IsValidIPv4(ip) {
		return ip, ErrInvalid
	}

	return ip, nil
}
