package services

import "regexp"

type contentRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order; later rules see the output of earlier ones.
var contentRules = []contentRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "[Email removed]"},
	{regexp.MustCompile(`(\+?[0-9]{1,3}[-\s.]?)?\(?[0-9]{3,5}\)?[-\s.]?[0-9]{3,4}[-\s.]?[0-9]{3,4}`), "[Phone number removed]"},
	{regexp.MustCompile(`(?i)\b(?:whatsapp|wa|whats app).{0,10}(?:me|at|:).{0,15}[0-9+]`), "[Contact reference removed]"},
	{regexp.MustCompile(`(?i)\b(?:instagram|ig|facebook|fb|twitter|x|telegram|tg)[\s:@]+[\w.]{3,30}\b`), "[Social media handle removed]"},
	{regexp.MustCompile(`(?i)(https?://)?[\w-]+(\.[\w-]+)+\.?(:\d+)?(/\S*)?`), "[Link removed]"},
	{regexp.MustCompile(`(?i)\b(?:contact|reach|text|call|message|dm)[\s:]+(?:me|us)[\s:]+(?:at|on|via|using|with|through)`), "[Contact request removed]"},
	// The separator class is the range '.' to '_', so slashes and colons separate too.
	{regexp.MustCompile(`\b\d{3}[\s.-_*]{1,3}\d{3}[\s.-_*]{1,3}\d{4}\b`), "[Phone number removed]"},
}

// blockThreshold is the number of removals at which a message is refused.
const blockThreshold = 3

// removalMarker matches only the markers written by contentRules.
var removalMarker = regexp.MustCompile(`\[(?:Email|Phone number|Contact reference|Social media handle|Link|Contact request) removed\]`)

type FilterResult struct {
	Content     string
	WasFiltered bool
}

// FilterContent masks contact details so tenants and landlords keep their
// conversation, and their payment, on the platform.
func FilterContent(content string) FilterResult {
	filtered := content
	for _, rule := range contentRules {
		filtered = rule.pattern.ReplaceAllLiteralString(filtered, rule.replacement)
	}
	return FilterResult{Content: filtered, WasFiltered: filtered != content}
}

// ShouldBlock reports whether content carries so much contact information
// that it should be rejected outright.
func ShouldBlock(content string) bool {
	return len(removalMarker.FindAllStringIndex(FilterContent(content).Content, -1)) >= blockThreshold
}
