package render

import "strings"

// extensionLanguages maps a lowercased file extension (including the dot) to
// the fence language tag used by the Markdown formatter.
var extensionLanguages = map[string]string{
	".go":         "go",
	".js":         "javascript",
	".jsx":        "jsx",
	".mjs":        "javascript",
	".ts":         "typescript",
	".tsx":        "tsx",
	".py":         "python",
	".rb":         "ruby",
	".java":       "java",
	".c":          "c",
	".h":          "c",
	".cpp":        "cpp",
	".cc":         "cpp",
	".cxx":        "cpp",
	".hpp":        "cpp",
	".rs":         "rust",
	".php":        "php",
	".sh":         "bash",
	".bash":       "bash",
	".zsh":        "bash",
	".yaml":       "yaml",
	".yml":        "yaml",
	".json":       "json",
	".toml":       "toml",
	".md":         "markdown",
	".html":       "html",
	".htm":        "html",
	".css":        "css",
	".scss":       "scss",
	".sql":        "sql",
	".xml":        "xml",
	".kt":         "kotlin",
	".kts":        "kotlin",
	".swift":      "swift",
	".cs":         "csharp",
	".lua":        "lua",
	".r":          "r",
	".pl":         "perl",
	".ex":         "elixir",
	".exs":        "elixir",
	".erl":        "erlang",
	".proto":      "protobuf",
	".dockerfile": "dockerfile",
	".tf":         "hcl",
	".hcl":        "hcl",
	".graphql":    "graphql",
	".vue":        "vue",
	".ini":        "ini",
	".cfg":        "ini",
	".ps1":        "powershell",
	".dart":       "dart",
	".scala":      "scala",
	".clj":        "clojure",
	".zig":        "zig",
}

// languageFor returns the Markdown fence language tag inferred from path's
// extension, or "" when no mapping exists (the fence is then left
// unlabeled).
func languageFor(path string) string {
	ext := strings.ToLower(extOf(path))
	return extensionLanguages[ext]
}

// extOf returns the extension of path (including the leading dot),
// restricted to the final path segment so a dotted directory name earlier
// in the path is never mistaken for an extension.
func extOf(path string) string {
	slash := strings.LastIndexByte(path, '/')
	base := path[slash+1:]
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 {
		return ""
	}
	return base[dot:]
}
