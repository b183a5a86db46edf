package parser

import (
	"path/filepath"
	"strings"
)

// DetectLanguage detects the programming language based on file extension
func DetectLanguage(filePath string) Language {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".js", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return ""
	}
}

// SupportedExtensions returns all supported file extensions
func SupportedExtensions() []string {
	return []string{".js", ".mjs", ".cjs"}
}

// IsSourceFile checks if a file is supported based on its extension
func IsSourceFile(filePath string) bool {
	return DetectLanguage(filePath) != ""
}
