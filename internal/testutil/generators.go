// Package testutil provides shared rapid generators for property-based tests.
// All string generators are intentionally aggressive to catch edge cases.
package testutil

import (
	"pgregory.net/rapid"
)

// ArbitraryString generates truly arbitrary strings including:
// - Empty strings
// - Null bytes
// - Unicode (CJK, Arabic, emoji)
// - Control characters
// - SQL injection attempts
// - Markdown and search-looking syntax
// - Very long strings
func ArbitraryString() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.String(),                              // Truly arbitrary (rapid's default)
		rapid.Just(""),                              // Empty string
		rapid.Just("\x00"),                          // Single null byte
		rapid.Just("test\x00test"),                  // Embedded null
		rapid.Just("\x00\x00\x00"),                  // Multiple nulls
		rapid.StringMatching(`[a-zA-Z0-9 ]{0,100}`), // Normal alphanumeric
		rapid.StringMatching(`[\x00-\x1F]{1,10}`),   // Control characters
		arbitrarySQLInjection(),                     // SQL injection attempts
		arbitraryMarkupSyntax(),                     // Markdown/query syntax
		arbitraryUnicode(),                          // Unicode edge cases
		arbitraryWhitespace(),                       // Whitespace variations
		arbitraryLongString(),                       // Long strings
	)
}

// ArbitraryNonEmptyString is like ArbitraryString but never empty.
// Use for fields that require non-empty values (like titles).
func ArbitraryNonEmptyString() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.StringN(1, 100, 200), // Guaranteed 1-100 chars
		rapid.Just("\x00"),         // Null byte is non-empty
		rapid.Just("test\x00test"),
		rapid.StringMatching(`[a-zA-Z0-9 ]{1,100}`),
		arbitrarySQLInjection(),
		arbitraryMarkupSyntax(),
		arbitraryUnicode(),
		arbitraryLongString(),
	)
}

// ArbitrarySearchQuery generates note search queries, including the edge
// cases that could break case folding or substring matching.
func ArbitrarySearchQuery() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.String(),
		rapid.Just(""),
		rapid.Just("\x00"),
		rapid.Just("test\x00test"),
		arbitrarySQLInjection(),
		arbitraryMarkupSyntax(),
		arbitraryUnicode(),
		arbitraryWhitespace(),
	)
}

// ArbitraryTitle generates a title with at least one non-space character.
func ArbitraryTitle() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.StringMatching(`[a-zA-Z0-9][a-zA-Z0-9 ]{0,60}`),
		arbitrarySQLInjection(),
		arbitraryMarkupSyntax().Filter(func(s string) bool { return s != "" }),
		arbitraryUnicode().Filter(func(s string) bool { return s != "\u200B" }),
	)
}

// BlankString generates empty and whitespace-only strings.
func BlankString() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{"", " ", "  ", "\t", "\n", "\r\n", " \t \n ", "\v", "\f", "\u00A0", "\u3000"})
}

// ArbitraryTag generates tag text, including blanks and padded values that
// normalization must handle.
func ArbitraryTag() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.StringMatching(`[a-z]{1,12}`),
		rapid.StringMatching(` {0,2}[a-z]{1,8} {0,2}`),
		rapid.SampledFrom([]string{"", " ", "Work", "work", "ideas", "📌"}),
	)
}

// StoreKey generates keys shaped like the ones the workspace writes.
func StoreKey() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.SampledFrom([]string{"tasks", "notes", "chat_messages", "user_settings", "user", "openai_api_key"}),
		rapid.StringMatching(`[a-z_]{1,20}(/[a-z0-9_%-]{1,12}){0,2}`),
	)
}

// arbitrarySQLInjection generates common SQL injection patterns
func arbitrarySQLInjection() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		`' OR 1=1 --`,
		`'; DROP TABLE notes; --`,
		`" OR "1"="1`,
		`1; SELECT * FROM users`,
		`admin'--`,
		`' UNION SELECT * FROM users --`,
		`'; TRUNCATE TABLE notes; --`,
		`' OR ''='`,
		`1' AND '1'='1`,
		`%27%20OR%20%271%27%3D%271`,
		`<script>alert('xss')</script>`,
		`' OR 1=1#`,
		`admin' #`,
		`' AND 1=0 UNION SELECT 1,2,3 --`,
	})
}

// arbitraryMarkupSyntax generates markdown and query syntax that a naive
// matcher or renderer could trip over.
func arbitraryMarkupSyntax() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		`# heading`,
		"```go\nfmt.Println()\n```",
		`[link](javascript:alert(1))`,
		`<img src=x onerror=alert(1)>`,
		`**bold** _em_`,
		`%`,
		`_`,
		`\`,
		`"`,
		`""`,
		`"""`,
		`test"`,
		`"test`,
		`"test"`,
		`""test""`,
		`AND`,
		`OR`,
		`NOT`,
		`NEAR`,
		`NEAR/5`,
		`*`,
		`test*`,
		`^test`,
		`col:value`,
		`(test)`,
		`(test`,
		`test)`,
		`-test`,
		`+test`,
		`test AND OR`,
		`test NEAR/10 other`,
		`*test*`,
		`"phrase query"`,
		`"unterminated phrase`,
		`col1:test col2:other`,
	})
}

// arbitraryUnicode generates various Unicode edge cases
func arbitraryUnicode() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		"日本語",                            // Japanese
		"中文测试",                           // Chinese
		"العربية",                        // Arabic (RTL)
		"עברית",                          // Hebrew (RTL)
		"🔥🎉💻🚀",                           // Emoji
		"emoji🔥in🎉middle",                // Mixed emoji
		"Ñoño",                           // Spanish
		"Zürich",                         // German umlaut
		"Москва",                         // Cyrillic
		"Ελληνικά",                       // Greek
		"한국어",                            // Korean
		"\u200B",                         // Zero-width space
		"\u200C",                         // Zero-width non-joiner
		"\u200D",                         // Zero-width joiner
		"\uFEFF",                         // BOM
		"a\u0300",                        // Combining diacritical
		"\u202E" + "reversed" + "\u202C", // RTL override
		"🧑‍💻",                            // ZWJ sequence (person + computer)
		"👨‍👩‍👧‍👦",                        // Family emoji (ZWJ sequence)
		"\U0001F1FA\U0001F1F8",           // Flag emoji (regional indicators)
		"é" + "\u0301",                   // Double combining
		"test\u00A0space",                // Non-breaking space
		"line\u2028separator",            // Line separator
		"para\u2029separator",            // Paragraph separator
		"\U0001F600",                     // Grinning face emoji
		"math∑∏∫",                        // Mathematical symbols
	})
}

// arbitraryWhitespace generates various whitespace patterns
func arbitraryWhitespace() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		" ",
		"  ",
		"   ",
		"\t",
		"\n",
		"\r",
		"\r\n",
		" \t \n ",
		"\t\t\t",
		"\n\n\n",
		"  test  ",
		"\ttest\t",
		"line1\nline2",
		"line1\r\nline2",
		"\u00A0", // Non-breaking space
		"\u2003", // Em space
		"\u2002", // En space
		"\u3000", // Ideographic space
		"\v",     // Vertical tab
		"\f",     // Form feed
	})
}

// arbitraryLongString generates very long strings to test limits
func arbitraryLongString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		length := rapid.SampledFrom([]int{
			1000,    // 1KB
			10000,   // 10KB
			100000,  // 100KB
			500000,  // 500KB
			1000000, // 1MB (at limit)
		}).Draw(t, "length")

		// Generate a repeating pattern
		base := "abcdefghij"
		result := make([]byte, length)
		for i := 0; i < length; i++ {
			result[i] = base[i%len(base)]
		}
		return string(result)
	})
}

// ValidUserID generates valid user IDs (for tests that need valid DB paths).
// User IDs must be safe for filesystem paths.
func ValidUserID() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		prefix := rapid.StringMatching("[a-z]{1,10}").Draw(t, "prefix")
		suffix := rapid.StringMatching("[0-9]{1,5}").Draw(t, "suffix")
		return prefix + "-" + suffix
	})
}

// ArbitraryUserID generates arbitrary user IDs including invalid ones.
// Use for testing error handling.
func ArbitraryUserID() *rapid.Generator[string] {
	return rapid.OneOf(
		ValidUserID(),
		rapid.Just(""),           // Empty
		rapid.Just("\x00"),       // Null byte
		rapid.Just("../escape"),  // Path traversal
		rapid.Just("/root"),      // Absolute path
		rapid.Just("a/b"),        // Slash in name
		rapid.Just("user\x00id"), // Embedded null
		ArbitraryString(),        // Fully arbitrary
	)
}
