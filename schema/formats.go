package schema

import (
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Format is the value of a "format" keyword.
type Format string

const (
	FormatDate                Format = "date"
	FormatDateTime            Format = "date-time"
	FormatTime                Format = "time"
	FormatEmail               Format = "email"
	FormatHostname            Format = "hostname"
	FormatIdnEmail            Format = "idn-email"
	FormatIdnHostname         Format = "idn-hostname"
	FormatIPv4                Format = "ipv4"
	FormatIPv6                Format = "ipv6"
	FormatMacAddr             Format = "macaddr"
	FormatMacAddr8            Format = "macaddr8"
	FormatUUID                Format = "uuid"
	FormatDuration            Format = "duration"
	FormatIRI                 Format = "iri"
	FormatURI                 Format = "uri"
	FormatURIReference        Format = "uri-reference"
	FormatIRIReference        Format = "iri-reference"
	FormatURITemplate         Format = "uri-template"
	FormatJSONPointer         Format = "json-pointer"
	FormatRegex               Format = "regex"
	FormatRelativeJSONPointer Format = "relative-json-pointer"
	FormatInteger             Format = "integer"
	FormatNumber              Format = "number"
	FormatSHA256              Format = "sha256"
)

// FormatResult is the outcome of checking a string against a Format.
type FormatResult uint8

const (
	FormatValid FormatResult = iota
	FormatInvalid
	FormatUnsupported
)

var (
	macAddrRe  = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)
	macAddr8Re = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){7}[0-9A-Fa-f]{2}$`)
	sha256Re   = regexp.MustCompile(`^sha256:[0-9a-fA-F]{64}$`)
	durationRe = regexp.MustCompile(`^P(?:\d+W|(?:\d+Y)?(?:\d+M)?(?:\d+D)?(?:T(?:\d+H)?(?:\d+M)?(?:\d+S)?)?)$`)
	hostLabel  = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
	templateRe = regexp.MustCompile(`^(?:[^{}]|\{[^{}]+\})*$`)
	relPtrRe   = regexp.MustCompile(`^(?:0|[1-9][0-9]*)(?:#|(?:/.*)?)$`)
)

// Patterns checked by the "regex" format are compiled once per distinct
// string. Documents tend to repeat a handful of them.
var regexCache, _ = lru.New[string, bool](1024)

// Validate checks s. Formats which aren't known pass.
func (f Format) Validate(s string) FormatResult {
	ok := true
	switch f {
	case FormatDate:
		_, err := time.Parse("2006-01-02", s)
		ok = err == nil
	case FormatDateTime:
		_, err := time.Parse(time.RFC3339Nano, strings.ToUpper(s))
		ok = err == nil
	case FormatTime:
		ok = validTime(s)
	case FormatEmail:
		addr, err := mail.ParseAddress(s)
		ok = err == nil && addr.Address == s
	case FormatHostname:
		ok = validHostname(s)
	case FormatIdnEmail, FormatIdnHostname:
		return FormatUnsupported
	case FormatIPv4:
		ok = validIPv4(s)
	case FormatIPv6:
		a, err := netip.ParseAddr(s)
		ok = err == nil && a.Is6() && a.Zone() == ""
	case FormatMacAddr:
		ok = macAddrRe.MatchString(s)
	case FormatMacAddr8:
		ok = macAddr8Re.MatchString(s)
	case FormatUUID:
		_, err := uuid.Parse(s)
		ok = err == nil && len(s) == 36
	case FormatDuration:
		ok = s != "P" && !strings.HasSuffix(s, "T") && durationRe.MatchString(s)
	case FormatURI, FormatIRI:
		u, err := url.Parse(s)
		ok = err == nil && u.Scheme != ""
	case FormatURIReference, FormatIRIReference:
		_, err := url.Parse(s)
		ok = err == nil
	case FormatURITemplate:
		ok = templateRe.MatchString(s)
	case FormatJSONPointer:
		ok = validPointer(s)
	case FormatRelativeJSONPointer:
		ok = relPtrRe.MatchString(s)
		if ok {
			if i := strings.IndexByte(s, '/'); i >= 0 {
				ok = validPointer(s[i:])
			}
		}
	case FormatRegex:
		ok = validRegex(s)
	case FormatInteger:
		ok = validInteger(s)
	case FormatNumber:
		ok = validNumber(s)
	case FormatSHA256:
		ok = sha256Re.MatchString(s)
	}
	if ok {
		return FormatValid
	}
	return FormatInvalid
}

// DetectFormat returns the first of a fixed list of formats which s
// satisfies, or "".
func DetectFormat(s string) Format {
	for _, f := range []Format{FormatInteger, FormatNumber, FormatDateTime, FormatDate, FormatUUID, FormatSHA256} {
		if f.Validate(s) == FormatValid {
			return f
		}
	}
	return ""
}

func validTime(s string) bool {
	for _, layout := range []string{"15:04:05Z07:00", "15:04:05.999999999Z07:00"} {
		if _, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return true
		}
	}
	return false
}

func validHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !hostLabel.MatchString(label) {
			return false
		}
	}
	return true
}

func validIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if len(p) > 1 && p[0] == '0' {
			return false
		}
	}
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

func validPointer(s string) bool {
	if s == "" {
		return true
	}
	if s[0] != '/' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '~' && (i+1 == len(s) || (s[i+1] != '0' && s[i+1] != '1')) {
			return false
		}
	}
	return true
}

func validRegex(s string) bool {
	if ok, hit := regexCache.Get(s); hit {
		return ok
	}
	_, err := regexp.Compile(s)
	regexCache.Add(s, err == nil)
	return err == nil
}

func validInteger(s string) bool {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if t == "" {
		return false
	}
	for i := 0; i < len(t); i++ {
		if t[i] < '0' || t[i] > '9' {
			return false
		}
	}
	return true
}

func validNumber(s string) bool {
	if strings.ContainsRune(s, '_') {
		return false
	}
	switch strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+") {
	case "NaN", "Infinity", "inf", "Inf":
		return true
	}
	// ParseFloat takes hex floats, JSON numbers don't.
	if strings.ContainsAny(s, "xXpP") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
