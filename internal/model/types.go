package model

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// PersistenceType selects the medium a Persistor writes to.
type PersistenceType string

const (
	TypeFile     PersistenceType = "FILE"
	TypeVariable PersistenceType = "VARIABLE"
	TypeString   PersistenceType = "STRING"
)

// DefaultPersistenceType is used when a name cannot be parsed.
const DefaultPersistenceType = TypeVariable

// FileFormat selects the document grammar.
type FileFormat string

const (
	FormatJSON       FileFormat = "JSON"
	FormatXML        FileFormat = "XML"
	FormatProperties FileFormat = "PROPERTIES"
)

// DefaultFileFormat is used when a name or extension cannot be parsed.
const DefaultFileFormat = FormatJSON

// ParsePersistenceType parses name case-insensitively. Unknown names fall
// back to DefaultPersistenceType with a warning; this never fails.
func ParsePersistenceType(name string, logger *slog.Logger) PersistenceType {
	switch PersistenceType(strings.ToUpper(strings.TrimSpace(name))) {
	case TypeFile:
		return TypeFile
	case TypeVariable:
		return TypeVariable
	case TypeString:
		return TypeString
	}
	loggerOrDefault(logger).Warn("unknown persistence type, using default",
		"name", name, "default", DefaultPersistenceType)
	return DefaultPersistenceType
}

// ParseFileFormat parses name case-insensitively. Unknown names fall back
// to DefaultFileFormat with a warning; this never fails.
func ParseFileFormat(name string, logger *slog.Logger) FileFormat {
	switch FileFormat(strings.ToUpper(strings.TrimSpace(name))) {
	case FormatJSON:
		return FormatJSON
	case FormatXML:
		return FormatXML
	case FormatProperties, "PROPS", "FLAT":
		return FormatProperties
	}
	loggerOrDefault(logger).Warn("unknown file format, using default",
		"name", name, "default", DefaultFileFormat)
	return DefaultFileFormat
}

// FormatForPath deduces the format from a file extension.
func FormatForPath(path string, logger *slog.Logger) FileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".xml":
		return FormatXML
	case ".properties", ".props", ".txt":
		return FormatProperties
	}
	loggerOrDefault(logger).Warn("cannot deduce file format from extension, using default",
		"path", path, "default", DefaultFileFormat)
	return DefaultFileFormat
}

// Extension returns the conventional file extension, dot included.
func (f FileFormat) Extension() string {
	switch f {
	case FormatXML:
		return ".xml"
	case FormatProperties:
		return ".properties"
	default:
		return ".json"
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
