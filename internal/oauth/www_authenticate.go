package oauth

import (
	"fmt"
	"regexp"
	"strings"
)

var challengeParamRegex = regexp.MustCompile(`(\w+)="([^"]*)"`)

// BearerChallenge is a parsed WWW-Authenticate header from the resource API.
type BearerChallenge struct {
	Scheme           string
	Realm            string
	Scope            string
	Error            string
	ErrorDescription string
}

// ParseWWWAuthenticate parses a WWW-Authenticate header value. It returns nil
// for an empty header.
//
// Example header:
//
//	Bearer realm="equipmentapi", error="invalid_token",
//	       error_description="The access token expired"
func ParseWWWAuthenticate(header string) *BearerChallenge {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}

	// Extract the scheme (first word before space)
	scheme, paramStr, _ := strings.Cut(header, " ")
	c := &BearerChallenge{Scheme: scheme}

	for _, match := range challengeParamRegex.FindAllStringSubmatch(paramStr, -1) {
		value := match[2]
		switch strings.ToLower(match[1]) {
		case "realm":
			c.Realm = value
		case "scope":
			c.Scope = value
		case "error":
			c.Error = value
		case "error_description":
			c.ErrorDescription = value
		}
	}
	return c
}

// IsBearer reports whether the challenge uses the Bearer scheme.
func (c *BearerChallenge) IsBearer() bool {
	return c != nil && strings.EqualFold(c.Scheme, "Bearer")
}

// InvalidToken reports whether the resource server rejected the token itself,
// as opposed to the request or its scope.
func (c *BearerChallenge) InvalidToken() bool {
	return c.IsBearer() && c.Error == "invalid_token"
}

// String renders the error code and description.
func (c *BearerChallenge) String() string {
	if c == nil {
		return ""
	}
	if c.ErrorDescription == "" {
		return c.Error
	}
	return fmt.Sprintf("%s: %s", c.Error, c.ErrorDescription)
}
