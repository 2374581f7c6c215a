package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// LocationPlaceholder is stored when no cell looks like a location.
const LocationPlaceholder = "Ubicación no disponible"

const (
	// locationKeywordMinLen is the rune count a keyword-bearing cell must exceed.
	locationKeywordMinLen = 10
	// locationFallbackMinLen is the rune count the longest-cell fallback must exceed.
	locationFallbackMinLen = 5
)

type dateTimeFormat struct {
	re     *regexp.Regexp
	layout string
}

// dateTimeFormats is ordered by priority: seconds before minutes, so a
// "10:30:00" value is never truncated by a minute-precision pattern.
var dateTimeFormats = []dateTimeFormat{
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\s+\d{1,2}:\d{2}:\d{2}\b`), "2/1/2006 15:04:05"},
	{regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}(?:T|\s+)\d{1,2}:\d{2}:\d{2}\b`), "2006-1-2 15:04:05"},
	{regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\s+\d{1,2}:\d{2}:\d{2}\b`), "2-1-2006 15:04:05"},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\s+\d{1,2}:\d{2}\b`), "2/1/2006 15:04"},
	{regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}(?:T|\s+)\d{1,2}:\d{2}\b`), "2006-1-2 15:04"},
	{regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\s+\d{1,2}:\d{2}\b`), "2-1-2006 15:04"},
}

// magnitudePatterns is ordered from most to least specific. When none match,
// bareMagnitude takes over.
var magnitudePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*M[wlbsc]?\b`),
	regexp.MustCompile(`\bM[wlbsc]?\s*[:=]?\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)magnitud\D{0,5}(\d+(?:\.\d+)?)`),
}

// bareNumberRe finds unlabeled numbers not glued to a date, time, sign or
// another number.
var bareNumberRe = regexp.MustCompile(`(?:^|[^\d.°º/:-])(\d+(?:\.\d+)?)`)

// unitSuffixRe matches what may follow a number that is a depth, a
// coordinate, or part of a date or time rather than a magnitude.
var unitSuffixRe = regexp.MustCompile(`(?i)^\s*(?:[°º]|km|kil|[/:]|-\d|[nsewo]\b)`)

// maxBareMagnitude bounds unlabeled values; larger numbers are depths,
// distances or coordinates.
const maxBareMagnitude = 10

var depthPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*km\b`),
	regexp.MustCompile(`(?i)profundidad\D{0,5}(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*kil[oó]metros`),
}

// coordinateRe matches a signed decimal degree value with an optional degree
// sign and hemisphere letter. O is the Spanish "oeste" (west).
var coordinateRe = regexp.MustCompile(`(?i)(-?\d{1,3}\.\d+)\s*°?\s*([NSEWO])?`)

// locationKeywords are folded words that typically appear in an IGP epicenter
// reference such as "45 km al SO de Lima".
var locationKeywords = map[string]struct{}{
	"km": {}, "al": {}, "de": {}, "del": {}, "cerca": {}, "frente": {}, "costa": {},
	"norte": {}, "sur": {}, "este": {}, "oeste": {},
	"noreste": {}, "noroeste": {}, "sureste": {}, "suroeste": {},
	"n": {}, "s": {}, "e": {}, "o": {}, "ne": {}, "no": {}, "se": {}, "so": {},
	"nne": {}, "ene": {}, "ese": {}, "sse": {}, "sso": {}, "oso": {}, "ono": {}, "nno": {},
}

// ParseDateTime returns the first cell matching a known date/time pattern,
// trying patterns in priority order. It reports false when no cell matches.
func ParseDateTime(texts []string) (string, bool) {
	for _, f := range dateTimeFormats {
		for _, t := range texts {
			if f.re.MatchString(t) {
				return strings.TrimSpace(t), true
			}
		}
	}
	return "", false
}

// NormalizeTimestamp parses the date/time embedded in text as a UTC instant.
// It returns now when nothing parses, including impossible dates like 31/02.
func NormalizeTimestamp(text string, now time.Time) time.Time {
	for _, f := range dateTimeFormats {
		m := f.re.FindString(text)
		if m == "" {
			continue
		}
		m = strings.Join(strings.Fields(strings.Replace(m, "T", " ", 1)), " ")
		if ts, err := time.ParseInLocation(f.layout, m, time.UTC); err == nil {
			return ts
		}
	}
	return now
}

// ParseMagnitude returns the first positive magnitude found, trying each
// pattern against every text before moving to the next pattern. It returns 0
// when nothing matches.
func ParseMagnitude(texts []string) float64 {
	if v := firstPositive(magnitudePatterns, texts); v > 0 {
		return v
	}
	return bareMagnitude(texts)
}

// bareMagnitude accepts an unlabeled number below maxBareMagnitude that is not
// followed by a unit, hemisphere letter or date/time separator. Decimals in
// any cell win over integers, so "Profundidad 8" loses to a "4.5" cell.
func bareMagnitude(texts []string) float64 {
	for _, decimal := range []bool{true, false} {
		for _, t := range texts {
			for _, m := range bareNumberRe.FindAllStringSubmatchIndex(t, -1) {
				num := t[m[2]:m[3]]
				if strings.Contains(num, ".") != decimal || unitSuffixRe.MatchString(t[m[3]:]) {
					continue
				}
				if v, err := strconv.ParseFloat(num, 64); err == nil && v > 0 && v < maxBareMagnitude {
					return v
				}
			}
		}
	}
	return 0
}

// ParseDepth returns the first depth in kilometres found, or 0.
func ParseDepth(texts []string) float64 {
	return firstPositive(depthPatterns, texts)
}

func firstPositive(patterns []*regexp.Regexp, texts []string) float64 {
	for _, re := range patterns {
		for _, t := range texts {
			if v, ok := matchFloat(re, t); ok && v > 0 {
				return v
			}
		}
	}
	return 0
}

func matchFloat(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCoordinates extracts a latitude/longitude pair from text. Both values
// must be present; otherwise it returns (0, 0). When the hemisphere letters
// show the longitude was written first, the pair is swapped.
func ParseCoordinates(text string) (lat, lon float64) {
	matches := coordinateRe.FindAllStringSubmatch(text, 2)
	if len(matches) < 2 {
		return 0, 0
	}
	first, second := matches[0], matches[1]
	if isLongitudeLetter(first[2]) && isLatitudeLetter(second[2]) {
		first, second = second, first
	}

	lat, errLat := strconv.ParseFloat(first[1], 64)
	lon, errLon := strconv.ParseFloat(second[1], 64)
	if errLat != nil || errLon != nil {
		return 0, 0
	}
	// A hemisphere letter decides the sign on its own.
	if first[2] != "" {
		lat = math.Abs(lat)
		if strings.EqualFold(first[2], "S") {
			lat = -lat
		}
	}
	if second[2] != "" {
		lon = math.Abs(lon)
		if isWest(second[2]) {
			lon = -lon
		}
	}
	return lat, lon
}

func isLatitudeLetter(s string) bool {
	return strings.EqualFold(s, "N") || strings.EqualFold(s, "S")
}

func isLongitudeLetter(s string) bool {
	return strings.EqualFold(s, "E") || isWest(s)
}

func isWest(s string) bool {
	return strings.EqualFold(s, "W") || strings.EqualFold(s, "O")
}

// ChooseLocation picks the cell most likely to describe the epicenter: the
// first cell longer than locationKeywordMinLen containing a geographic keyword,
// else the longest cell longer than locationFallbackMinLen, else
// LocationPlaceholder. Date/time cells are never chosen, and a bare coordinate
// pair only qualifies through the longest-cell fallback.
func ChooseLocation(texts []string) string {
	candidates := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" || isDateTime(t) {
			continue
		}
		candidates = append(candidates, t)
	}

	for _, t := range candidates {
		if utf8.RuneCountInString(t) > locationKeywordMinLen && hasLocationKeyword(t) && !isCoordinatePair(t) {
			return t
		}
	}

	best := ""
	for _, t := range candidates {
		if utf8.RuneCountInString(t) > utf8.RuneCountInString(best) {
			best = t
		}
	}
	if utf8.RuneCountInString(best) > locationFallbackMinLen {
		return best
	}
	return LocationPlaceholder
}

func hasLocationKeyword(s string) bool {
	for _, w := range words(s) {
		if _, ok := locationKeywords[w]; ok {
			return true
		}
	}
	return false
}

func isCoordinatePair(s string) bool {
	lat, lon := ParseCoordinates(s)
	return lat != 0 || lon != 0
}

func isDateTime(s string) bool {
	for _, f := range dateTimeFormats {
		if f.re.MatchString(s) {
			return true
		}
	}
	return false
}
