package scope

import "strings"

// Language identifies a supported grammar. The set is fixed at compile time;
// unknown identifiers resolve to LangUnknown, which degrades to an empty
// scope chain rather than failing the analysis.
type Language string

const (
	LangUnknown    Language = ""
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCpp        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRust       Language = "rust"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangSwift      Language = "swift"
	LangKotlin     Language = "kotlin"
	LangBash       Language = "bash"
)

// Supported lists every language with a registered grammar.
var Supported = []Language{
	LangGo, LangJavaScript, LangTypeScript, LangTSX, LangPython, LangJava,
	LangC, LangCpp, LangCSharp, LangRust, LangRuby, LangPHP, LangSwift,
	LangKotlin, LangBash,
}

// identifier aliases as editors and indexers commonly report them
var identifierAliases = map[string]Language{
	"go":              LangGo,
	"golang":          LangGo,
	"javascript":      LangJavaScript,
	"javascriptreact": LangJavaScript, // JSX parses with the JS grammar
	"js":              LangJavaScript,
	"jsx":             LangJavaScript,
	"typescript":      LangTypeScript,
	"ts":              LangTypeScript,
	"typescriptreact": LangTSX,
	"tsx":             LangTSX,
	"python":          LangPython,
	"py":              LangPython,
	"java":            LangJava,
	"c":               LangC,
	"cpp":             LangCpp,
	"c++":             LangCpp,
	"csharp":          LangCSharp,
	"c#":              LangCSharp,
	"cs":              LangCSharp,
	"rust":            LangRust,
	"rs":              LangRust,
	"ruby":            LangRuby,
	"rb":              LangRuby,
	"php":             LangPHP,
	"swift":           LangSwift,
	"kotlin":          LangKotlin,
	"kt":              LangKotlin,
	"bash":            LangBash,
	"sh":              LangBash,
	"shellscript":     LangBash,
}

var extensions = map[string]Language{
	".go":    LangGo,
	".js":    LangJavaScript,
	".mjs":   LangJavaScript,
	".cjs":   LangJavaScript,
	".jsx":   LangJavaScript,
	".ts":    LangTypeScript,
	".mts":   LangTypeScript,
	".cts":   LangTypeScript,
	".tsx":   LangTSX,
	".py":    LangPython,
	".pyi":   LangPython,
	".java":  LangJava,
	".c":     LangC,
	".h":     LangC,
	".cc":    LangCpp,
	".cpp":   LangCpp,
	".cxx":   LangCpp,
	".hpp":   LangCpp,
	".hh":    LangCpp,
	".cs":    LangCSharp,
	".rs":    LangRust,
	".rb":    LangRuby,
	".php":   LangPHP,
	".swift": LangSwift,
	".kt":    LangKotlin,
	".kts":   LangKotlin,
	".sh":    LangBash,
	".bash":  LangBash,
}

// FromIdentifier maps an editor/indexer language identifier to a Language.
func FromIdentifier(id string) Language {
	if lang, ok := identifierAliases[strings.ToLower(id)]; ok {
		return lang
	}
	return LangUnknown
}

// FromExtension maps a file extension (with leading dot) to a Language.
func FromExtension(ext string) Language {
	if lang, ok := extensions[strings.ToLower(ext)]; ok {
		return lang
	}
	return LangUnknown
}

// FromPath picks the language for a file path by its extension.
func FromPath(path string) Language {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return LangUnknown
	}
	return FromExtension(path[idx:])
}
