package term

// DefaultVocabulary is the built-in terminology table mapping technical terms
// to curated synonyms with similarity scores.
//
// Similarity scores reflect how interchangeable the terms are in a search
// query: 0.9+ near-synonyms, 0.7-0.9 closely related, below 0.7 loosely
// related. The table bridges the vocabulary gap between how users phrase
// queries and how documentation phrases answers.
var DefaultVocabulary = map[string][]Match{
	// Authentication / security
	"auth":           {{Term: "authentication", Similarity: 0.95}, {Term: "authorization", Similarity: 0.85}, {Term: "login", Similarity: 0.7}},
	"authentication": {{Term: "auth", Similarity: 0.95}, {Term: "login", Similarity: 0.8}, {Term: "identity", Similarity: 0.6}},
	"authorization":  {{Term: "auth", Similarity: 0.85}, {Term: "permissions", Similarity: 0.8}, {Term: "access", Similarity: 0.6}},
	"login":          {{Term: "signin", Similarity: 0.95}, {Term: "authentication", Similarity: 0.8}},
	"credentials":    {{Term: "secrets", Similarity: 0.75}, {Term: "password", Similarity: 0.7}, {Term: "token", Similarity: 0.65}},
	"token":          {{Term: "jwt", Similarity: 0.8}, {Term: "credentials", Similarity: 0.65}},
	"oauth":          {{Term: "authentication", Similarity: 0.75}, {Term: "sso", Similarity: 0.65}},
	"encryption":     {{Term: "tls", Similarity: 0.7}, {Term: "crypto", Similarity: 0.85}},

	// Configuration / deployment
	"config":        {{Term: "configuration", Similarity: 0.98}, {Term: "settings", Similarity: 0.9}, {Term: "options", Similarity: 0.8}},
	"configuration": {{Term: "config", Similarity: 0.98}, {Term: "settings", Similarity: 0.9}, {Term: "setup", Similarity: 0.7}},
	"settings":      {{Term: "config", Similarity: 0.9}, {Term: "preferences", Similarity: 0.85}},
	"setup":         {{Term: "installation", Similarity: 0.85}, {Term: "configuration", Similarity: 0.7}},
	"install":       {{Term: "installation", Similarity: 0.95}, {Term: "setup", Similarity: 0.85}},
	"deploy":        {{Term: "deployment", Similarity: 0.95}, {Term: "release", Similarity: 0.7}, {Term: "ship", Similarity: 0.55}},
	"upgrade":       {{Term: "update", Similarity: 0.9}, {Term: "migration", Similarity: 0.65}},
	"migration":     {{Term: "migrate", Similarity: 0.95}, {Term: "upgrade", Similarity: 0.65}},
	"environment":   {{Term: "env", Similarity: 0.95}, {Term: "variables", Similarity: 0.5}},

	// Errors / debugging
	"error":       {{Term: "failure", Similarity: 0.85}, {Term: "exception", Similarity: 0.8}, {Term: "fault", Similarity: 0.7}},
	"exception":   {{Term: "error", Similarity: 0.8}, {Term: "panic", Similarity: 0.6}},
	"bug":         {{Term: "defect", Similarity: 0.9}, {Term: "issue", Similarity: 0.8}},
	"crash":       {{Term: "panic", Similarity: 0.85}, {Term: "failure", Similarity: 0.75}},
	"timeout":     {{Term: "deadline", Similarity: 0.85}, {Term: "expiry", Similarity: 0.6}},
	"debug":       {{Term: "troubleshoot", Similarity: 0.85}, {Term: "diagnose", Similarity: 0.8}},
	"troubleshoot": {{Term: "debug", Similarity: 0.85}, {Term: "diagnose", Similarity: 0.85}},
	"log":         {{Term: "logging", Similarity: 0.95}, {Term: "trace", Similarity: 0.6}},

	// Data / storage
	"database":  {{Term: "db", Similarity: 0.98}, {Term: "storage", Similarity: 0.7}, {Term: "datastore", Similarity: 0.85}},
	"db":        {{Term: "database", Similarity: 0.98}, {Term: "datastore", Similarity: 0.8}},
	"cache":     {{Term: "caching", Similarity: 0.95}, {Term: "memoization", Similarity: 0.6}},
	"storage":   {{Term: "persistence", Similarity: 0.8}, {Term: "database", Similarity: 0.7}},
	"backup":    {{Term: "snapshot", Similarity: 0.75}, {Term: "restore", Similarity: 0.6}},
	"index":     {{Term: "indexing", Similarity: 0.95}, {Term: "catalog", Similarity: 0.55}},
	"query":     {{Term: "search", Similarity: 0.85}, {Term: "lookup", Similarity: 0.75}},
	"search":    {{Term: "query", Similarity: 0.85}, {Term: "find", Similarity: 0.8}, {Term: "retrieval", Similarity: 0.7}},
	"schema":    {{Term: "model", Similarity: 0.65}, {Term: "structure", Similarity: 0.6}},

	// Networking / APIs
	"api":       {{Term: "endpoint", Similarity: 0.8}, {Term: "interface", Similarity: 0.6}},
	"endpoint":  {{Term: "api", Similarity: 0.8}, {Term: "route", Similarity: 0.75}},
	"request":   {{Term: "call", Similarity: 0.7}, {Term: "http", Similarity: 0.5}},
	"webhook":   {{Term: "callback", Similarity: 0.8}, {Term: "notification", Similarity: 0.55}},
	"proxy":     {{Term: "gateway", Similarity: 0.7}, {Term: "forwarding", Similarity: 0.6}},
	"websocket": {{Term: "socket", Similarity: 0.8}, {Term: "streaming", Similarity: 0.55}},

	// Performance / operations
	"performance": {{Term: "latency", Similarity: 0.7}, {Term: "throughput", Similarity: 0.7}, {Term: "speed", Similarity: 0.8}},
	"latency":     {{Term: "delay", Similarity: 0.85}, {Term: "performance", Similarity: 0.7}},
	"scaling":     {{Term: "scale", Similarity: 0.95}, {Term: "capacity", Similarity: 0.6}},
	"monitoring":  {{Term: "observability", Similarity: 0.8}, {Term: "metrics", Similarity: 0.75}},
	"metrics":     {{Term: "telemetry", Similarity: 0.8}, {Term: "monitoring", Similarity: 0.75}},
	"concurrency": {{Term: "parallelism", Similarity: 0.8}, {Term: "goroutines", Similarity: 0.55}},
}
