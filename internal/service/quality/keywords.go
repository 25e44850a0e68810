package quality

// techKeywordsByLanguage maps a repository's primary language to the
// technical keywords counted for the tech-weight signal. Keyword hits are
// matched case-insensitively against title+body.
var techKeywordsByLanguage = map[string][]string{
	"Python": {
		"TypeError", "ImportError", "AttributeError", "KeyError", "ValueError",
		"RuntimeError", "asyncio", "async", "await", "FastAPI", "Django",
		"Flask", "pytest", "pip", "venv", "traceback", "Pydantic",
	},
	"TypeScript": {
		"TypeError", "ReferenceError", "Promise", "async", "await", "React",
		"Node", "ESLint", "tsx", "interface", "type", "undefined", "null",
		"webpack", "Vite", "Next.js", "Angular",
	},
	"JavaScript": {
		"TypeError", "ReferenceError", "Promise", "async", "await", "React",
		"Node", "Express", "npm", "undefined", "null", "callback", "fetch",
		"webpack", "Vite", "Vue",
	},
	"Java": {
		"NullPointerException", "ClassCastException", "IllegalArgumentException",
		"Spring", "Maven", "Gradle", "JUnit", "Hibernate", "JVM",
		"OutOfMemoryError", "StackOverflowError", "IOException", "thread",
		"synchronized",
	},
	"Go": {
		"goroutine", "channel", "panic", "defer", "context", "nil", "error",
		"interface", "struct", "go mod", "concurrency", "deadlock", "race",
	},
	"Rust": {
		"unwrap", "Result", "Option", "panic", "async", "tokio", "cargo",
		"borrow", "lifetime", "ownership", "unsafe", "Send", "Sync", "Arc",
		"Mutex",
	},
	"C++": {
		"segfault", "nullptr", "CMake", "template", "RAII", "memory leak",
		"undefined behavior", "std::", "vector", "pointer", "reference",
		"constructor", "destructor", "SIGSEGV",
	},
	"C#": {
		"NullReferenceException", "ArgumentException", "async", "await", "Task",
		"LINQ", "dotnet", "Entity Framework", "ASP.NET", "Unity",
		"garbage collection",
	},
	"Kotlin": {
		"coroutine", "suspend", "Flow", "Gradle", "Spring", "null safety",
		"lateinit", "by lazy", "sealed", "data class", "Android", "Ktor",
	},
	"SQL": {
		"JOIN", "INDEX", "deadlock", "transaction", "query", "SELECT", "INSERT",
		"UPDATE", "DELETE", "foreign key", "constraint", "performance",
		"slow query",
	},
}

// defaultTechKeywords is the fallback set for languages without a
// dedicated keyword table.
var defaultTechKeywords = []string{
	"error", "bug", "crash", "exception", "fail", "issue", "problem",
	"traceback", "stacktrace", "FATAL", "CRITICAL", "panic",
}

// TechKeywords returns the keyword set for a repository's primary
// language, or the fallback set when the language has no dedicated table.
// The returned slice must not be mutated.
func TechKeywords(language string) []string {
	if kws, ok := techKeywordsByLanguage[language]; ok {
		return kws
	}
	return defaultTechKeywords
}

// templateHeaders are structured issue-template section headers.
// Presence of any of them (case-insensitive) sets the has_headers signal.
var templateHeaders = []string{
	"## Description",
	"## Steps to Reproduce",
	"## Expected Behavior",
	"## Actual Behavior",
	"## Environment",
	"### Bug Report",
	"### Feature Request",
	"## Reproduction",
	"## Context",
	"### Describe the bug",
	"### To Reproduce",
	"### Expected behavior",
}

// junkPhrases flag low-content bodies. Matched case-insensitively as
// substrings anywhere in the body.
var junkPhrases = []string{
	"+1",
	"me too",
	"same issue",
	"same here",
	"bump",
	"any update",
	"any progress",
}
