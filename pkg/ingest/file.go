package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the detected format of an input file.
type Kind int

const (
	KindUnknown Kind = iota
	KindJSON
	KindCSV
)

func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// Input is one file read from disk, ready to be ingested.
type Input struct {
	Name string
	Kind Kind
	Data []byte
}

// DetectKind decides the format from the file extension, falling back to
// sniffing the content for extension-less names.
func DetectKind(name string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return KindJSON
	case ".csv", ".txt":
		return KindCSV
	case "":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return KindJSON
		}
		if i := bytes.IndexAny(trimmed, "\r\n"); i > 0 && bytes.ContainsAny(trimmed[:i], ";,") {
			return KindCSV
		}
	}
	return KindUnknown
}

// ReadFile reads path and detects its kind. An unreadable file is a
// *ParseError; an unsupported one is a *ValidationError.
func ReadFile(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Err: err}
	}
	kind := DetectKind(path, data)
	if kind == KindUnknown {
		return nil, &ValidationError{Source: path, Reason: "unsupported file type"}
	}
	return &Input{Name: filepath.Base(path), Kind: kind, Data: data}, nil
}
