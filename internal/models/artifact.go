package models

import (
	"path"
	"strings"
)

// ArtifactType is the coarse classification of a generated file.
type ArtifactType string

const (
	ArtifactImage       ArtifactType = "image"
	ArtifactDocument    ArtifactType = "document"
	ArtifactSpreadsheet ArtifactType = "spreadsheet"
	ArtifactText        ArtifactType = "text"
	ArtifactStructured  ArtifactType = "structured-data"
)

// FileArtifact is a file discovered in a tool response and, once uploaded, its storage location.
type FileArtifact struct {
	Filename    string
	Type        ArtifactType
	ContentType string
	Data        []byte
	Size        int
	Source      string
	// Decoded is false when Data is a payload kept verbatim because it could not be decoded.
	Decoded     bool
	Key         string
	URL         string
	ExpiringURL string
	Error       string
}

// Available reports whether the artifact was stored successfully.
func (a FileArtifact) Available() bool {
	return a.Error == "" && a.URL != ""
}

type extInfo struct {
	contentType string
	kind        ArtifactType
}

var extensions = map[string]extInfo{
	".png":  {"image/png", ArtifactImage},
	".jpg":  {"image/jpeg", ArtifactImage},
	".jpeg": {"image/jpeg", ArtifactImage},
	".gif":  {"image/gif", ArtifactImage},
	".svg":  {"image/svg+xml", ArtifactImage},
	".pdf":  {"application/pdf", ArtifactDocument},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ArtifactDocument},
	".doc":  {"application/msword", ArtifactDocument},
	".md":   {"text/markdown", ArtifactDocument},
	".html": {"text/html", ArtifactDocument},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ArtifactSpreadsheet},
	".xls":  {"application/vnd.ms-excel", ArtifactSpreadsheet},
	".csv":  {"text/csv", ArtifactSpreadsheet},
	".txt":  {"text/plain", ArtifactText},
	".json": {"application/json", ArtifactStructured},
	".yaml": {"text/yaml", ArtifactStructured},
	".yml":  {"text/yaml", ArtifactStructured},
	".xml":  {"application/xml", ArtifactStructured},
}

// Ext returns the lower-cased extension of name including the dot.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

// KnownExtension reports whether the extension is one the gateway recognizes.
func KnownExtension(ext string) bool {
	_, ok := extensions[strings.ToLower(ext)]
	return ok
}

// ContentTypeFor returns the MIME type for a filename, defaulting to application/octet-stream.
func ContentTypeFor(name string) string {
	if info, ok := extensions[Ext(name)]; ok {
		return info.contentType
	}
	return "application/octet-stream"
}

// TypeFor returns the artifact classification for a filename, defaulting to text.
func TypeFor(name string) ArtifactType {
	if info, ok := extensions[Ext(name)]; ok {
		return info.kind
	}
	return ArtifactText
}
