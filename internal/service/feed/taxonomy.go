package feed

import "strings"

// profileLanguages is the closed set of languages a profile may declare.
// Anything outside it is ignored when building explanation entities.
var profileLanguages = map[string]bool{
	"TypeScript": true,
	"Python":     true,
	"Java":       true,
	"JavaScript": true,
	"C++":        true,
	"C#":         true,
	"Go":         true,
	"Rust":       true,
	"Kotlin":     true,
	"SQL":        true,
}

// stackAreas is the closed set of onboarding stack-area identifiers.
var stackAreas = map[string]bool{
	"backend":          true,
	"frontend":         true,
	"data_engineering": true,
	"machine_learning": true,
	"devops":           true,
	"security":         true,
	"cli_tooling":      true,
	"systems":          true,
}

// skillTaxonomy maps lowercase skill keys to their canonical display form.
// Aliases fold common spellings onto the same canonical entry.
var skillTaxonomy = map[string]struct {
	canonical string
	aliases   []string
}{
	"python":     {"Python", []string{"python3", "py"}},
	"typescript": {"TypeScript", []string{"ts"}},
	"javascript": {"JavaScript", []string{"js", "node.js", "nodejs"}},
	"java":       {"Java", nil},
	"go":         {"Go", []string{"golang"}},
	"rust":       {"Rust", nil},
	"c++":        {"C++", []string{"cpp", "c plus plus"}},
	"c#":         {"C#", []string{"csharp", "c sharp"}},
	"kotlin":     {"Kotlin", nil},
	"sql":        {"SQL", []string{"mysql", "postgresql", "postgres"}},

	"react":   {"React", []string{"react.js", "reactjs"}},
	"vue":     {"Vue", []string{"vue.js", "vuejs"}},
	"angular": {"Angular", []string{"angularjs"}},
	"next.js": {"Next.js", []string{"nextjs", "next"}},
	"svelte":  {"Svelte", []string{"sveltekit"}},

	"fastapi": {"FastAPI", nil},
	"django":  {"Django", nil},
	"flask":   {"Flask", nil},
	"express": {"Express", []string{"express.js", "expressjs"}},
	"spring":  {"Spring", []string{"spring boot", "springboot"}},

	"postgresql":    {"PostgreSQL", []string{"postgres", "psql"}},
	"mongodb":       {"MongoDB", []string{"mongo"}},
	"redis":         {"Redis", nil},
	"elasticsearch": {"Elasticsearch", []string{"elastic"}},

	"docker":     {"Docker", nil},
	"kubernetes": {"Kubernetes", []string{"k8s"}},
	"terraform":  {"Terraform", nil},
	"aws":        {"AWS", []string{"amazon web services"}},
	"gcp":        {"GCP", []string{"google cloud", "google cloud platform"}},
	"azure":      {"Azure", []string{"microsoft azure"}},

	"pytorch":      {"PyTorch", []string{"torch"}},
	"tensorflow":   {"TensorFlow", []string{"tf"}},
	"pandas":       {"Pandas", nil},
	"numpy":        {"NumPy", nil},
	"scikit-learn": {"scikit-learn", []string{"sklearn"}},
}

// skillAliases is the reverse lookup from lowercase alias to taxonomy key,
// built once at init.
var skillAliases = func() map[string]string {
	m := make(map[string]string)
	for key, entry := range skillTaxonomy {
		for _, alias := range entry.aliases {
			m[strings.ToLower(alias)] = key
		}
	}
	return m
}()

// NormalizeSkill maps a raw skill string to its canonical taxonomy form.
// Returns "" for skills outside the taxonomy.
func NormalizeSkill(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if entry, ok := skillTaxonomy[key]; ok {
		return entry.canonical
	}
	if base, ok := skillAliases[key]; ok {
		return skillTaxonomy[base].canonical
	}
	return ""
}
